package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/nexusbase-io/llfs-go/blockfile"
	"github.com/nexusbase-io/llfs-go/storagefile"
)

func runDump(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	inPath := fs.String("in", "", "path to an existing storage file")
	offset := fs.Int64("offset", 0, "chain start offset")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" {
		return fmt.Errorf("dump: -in is required")
	}

	source, err := blockfile.Open(*inPath)
	if err != nil {
		return fmt.Errorf("opening storage file: %w", err)
	}
	defer source.Close()

	blocks, err := storagefile.ReadStorageFile(context.Background(), source, *offset)
	if err != nil {
		fmt.Fprintf(stdout, "read %d block(s) before failure\n", len(blocks))
		printBlocks(stdout, blocks)
		return err
	}

	printBlocks(stdout, blocks)
	return nil
}

func printBlocks(stdout io.Writer, blocks []storagefile.DecodedBlock) {
	sf := storagefile.NewStorageFile(blocks)
	fmt.Fprintf(stdout, "%d block(s) in chain\n", len(blocks))
	for _, db := range blocks {
		fmt.Fprintf(stdout, "block @ %d: %d slot(s), prev=%d next=%d\n",
			db.Offset, db.Block.SlotCount(), db.Block.PrevOffset(), db.Block.NextOffset())
	}
	for _, ptr := range sf.FindPageDeviceConfigs() {
		cfg := ptr.Value
		fmt.Fprintf(stdout, "  page_device @ %d: uuid=%s device_id=%d page_count=%d page_size_log2=%d\n",
			ptr.Offset, cfg.UUID(), cfg.DeviceID(), cfg.PageCount(), cfg.PageSizeLog2())
	}
}
