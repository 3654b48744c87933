package main

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/nexusbase-io/llfs-go/storagefile"
)

// buildSpec is the minimal document `storagefilectl build` reads to
// describe the objects a storage file should contain.
type buildSpec struct {
	Objects []objectSpec `yaml:"objects"`
}

type objectSpec struct {
	PageDevice *pageDeviceSpec `yaml:"page_device"`
}

type pageDeviceSpec struct {
	PageCount    uint64  `yaml:"page_count"`
	PageSizeLog2 uint8   `yaml:"page_size_log2"`
	DeviceID     *uint64 `yaml:"device_id"`
	UUID         *string `yaml:"uuid"`
}

func parseBuildSpec(r io.Reader) (*buildSpec, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading spec file: %w", err)
	}
	var spec buildSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing spec file: %w", err)
	}
	return &spec, nil
}

func (s pageDeviceSpec) toOptions() (storagefile.PageDeviceConfigOptions, error) {
	opts := storagefile.PageDeviceConfigOptions{
		PageCount:    s.PageCount,
		PageSizeLog2: s.PageSizeLog2,
		DeviceID:     s.DeviceID,
	}
	if s.UUID != nil {
		id, err := uuid.Parse(*s.UUID)
		if err != nil {
			return opts, fmt.Errorf("invalid uuid %q: %w", *s.UUID, err)
		}
		opts.UUID = &id
	}
	return opts, nil
}
