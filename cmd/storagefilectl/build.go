package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/nexusbase-io/llfs-go/blockfile"
	"github.com/nexusbase-io/llfs-go/config"
	"github.com/nexusbase-io/llfs-go/storagefile"
)

func runBuild(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	specPath := fs.String("spec", "", "path to a YAML object spec file")
	outPath := fs.String("out", "", "path to the storage file to create")
	baseOffset := fs.Int64("base-offset", 0, "base offset the layout starts from")
	configPath := fs.String("config", "", "optional path to a builder config YAML file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *specPath == "" || *outPath == "" {
		return fmt.Errorf("build: -spec and -out are required")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	specFile, err := os.Open(*specPath)
	if err != nil {
		return fmt.Errorf("opening spec file: %w", err)
	}
	defer specFile.Close()

	spec, err := parseBuildSpec(specFile)
	if err != nil {
		return err
	}

	sink, err := blockfile.Create(*outPath)
	if err != nil {
		return fmt.Errorf("creating storage file: %w", err)
	}
	defer sink.Close()

	builder := storagefile.NewStorageFileBuilder(sink, *baseOffset,
		storagefile.WithFastIoRingPageDeviceInit(cfg.FastIoRingPageDeviceInit))

	count := 0
	for i, obj := range spec.Objects {
		if obj.PageDevice == nil {
			return fmt.Errorf("object %d: no page_device entry", i)
		}
		opts, err := obj.PageDevice.toOptions()
		if err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
		if opts.PageSizeLog2 == 0 {
			opts.PageSizeLog2 = uint8(cfg.DefaultPageSizeLog2)
		}
		if _, err := builder.AddObject(opts); err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
		count++
	}

	if err := builder.FlushAll(context.Background()); err != nil {
		return fmt.Errorf("flushing storage file: %w", err)
	}

	fmt.Fprintf(stdout, "wrote %d object(s) to %s\n", count, *outPath)
	return nil
}
