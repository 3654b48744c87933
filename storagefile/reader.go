package storagefile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/nexusbase-io/llfs-go/configblock"
	"github.com/nexusbase-io/llfs-go/ferr"
	"github.com/nexusbase-io/llfs-go/packed"
)

var defaultReaderTracer = noop.NewTracerProvider().Tracer("storagefile")

// ReaderOption configures optional ambient dependencies for ReadStorageFile.
type ReaderOption func(*readerConfig)

type readerConfig struct {
	tracer trace.Tracer
}

// WithReaderTracer attaches a tracer used to create one span per
// ReadStorageFile call.
func WithReaderTracer(tracer trace.Tracer) ReaderOption {
	return func(c *readerConfig) { c.tracer = tracer }
}

// DecodedBlock pairs a validated config block with the absolute file
// offset it was read from.
type DecodedBlock struct {
	Offset int64
	Block  *configblock.Block
}

// ReadStorageFile traverses the config-block chain starting at
// startOffset, validating each block and following next_offset links
// until it reaches the null sentinel, a validation failure, or a cycle.
//
// On a validation failure or cycle, the error is a DataLoss-kind *ferr.Error
// identifying the offending offset, and the successfully-decoded prefix is
// returned alongside it so callers may choose to use partial results.
func ReadStorageFile(ctx context.Context, source RawBlockFile, startOffset int64, opts ...ReaderOption) ([]DecodedBlock, error) {
	cfg := readerConfig{tracer: defaultReaderTracer}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, span := cfg.tracer.Start(ctx, "ReadStorageFile")
	defer span.End()

	offset := packed.RoundUpBits(12, startOffset)
	visited := map[int64]bool{}

	var blocks []DecodedBlock
	buf := make([]byte, configblock.BlockSize)

	for {
		if visited[offset] {
			err := ferr.NewAt(ferr.DataLoss, "storagefile.ReadStorageFile", offset,
				fmt.Errorf("chain cycle detected"))
			span.RecordError(err)
			span.SetStatus(codes.Error, "chain_cycle")
			return blocks, err
		}
		visited[offset] = true

		if err := readFull(ctx, source, offset, buf); err != nil {
			err = ferr.NewAt(ferr.IoError, "storagefile.ReadStorageFile", offset, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "read_failed")
			return blocks, err
		}

		blk, err := configblock.DecodeBlock(buf)
		if err != nil {
			err = ferr.NewAt(ferr.DataLoss, "storagefile.ReadStorageFile", offset, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode_failed")
			return blocks, err
		}

		blocks = append(blocks, DecodedBlock{Offset: offset, Block: blk})

		next := blk.NextOffset()
		if next == configblock.NullOffset {
			span.SetAttributes(attribute.Int("blocks", len(blocks)))
			return blocks, nil
		}
		offset = offset + next
	}
}

// StorageFile is a read-only lookup index over a reader's decoded block
// list. It performs no I/O and constructs no runtime objects; it only
// indexes data ReadStorageFile already decoded.
type StorageFile struct {
	blocks []DecodedBlock
}

// NewStorageFile wraps a decoded block chain for lookup.
func NewStorageFile(blocks []DecodedBlock) *StorageFile {
	return &StorageFile{blocks: blocks}
}

// FindPageDeviceConfigs returns every PageDevice slot across the chain, in
// traversal order, paired with its absolute file offset.
func (s *StorageFile) FindPageDeviceConfigs() []FileOffsetPtr[configblock.PackedPageDeviceConfig] {
	var out []FileOffsetPtr[configblock.PackedPageDeviceConfig]
	for _, db := range s.blocks {
		blockSlotsOffset := db.Offset + configblock.HeaderSize
		for i := 0; i < db.Block.SlotCount(); i++ {
			slot := db.Block.Slot(i)
			if slot.Tag() != configblock.SlotTagPageDevice {
				continue
			}
			cfg, err := configblock.AsPageDeviceConfig(slot)
			if err != nil {
				continue
			}
			out = append(out, FileOffsetPtr[configblock.PackedPageDeviceConfig]{
				Offset: blockSlotsOffset + int64(i*configblock.SlotSize),
				Value:  cfg,
			})
		}
	}
	return out
}

// FindByUUID returns the page device config carrying id, if any. The
// second return value is false if no slot in the chain carries that UUID.
func (s *StorageFile) FindByUUID(id uuid.UUID) (configblock.PackedPageDeviceConfig, bool) {
	for _, ptr := range s.FindPageDeviceConfigs() {
		if ptr.Value.UUID() == id {
			return ptr.Value, true
		}
	}
	return configblock.PackedPageDeviceConfig{}, false
}
