package storagefile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/nexusbase-io/llfs-go/configblock"
	"github.com/nexusbase-io/llfs-go/ferr"
	"github.com/nexusbase-io/llfs-go/packed"
)

// PageDeviceConfigOptions describes a page device to add to a storage
// file. UUID and DeviceID are normalized by AddObject when left nil/unset.
type PageDeviceConfigOptions struct {
	UUID         *uuid.UUID
	DeviceID     *uint64
	PageCount    uint64
	PageSizeLog2 uint8
}

func (o PageDeviceConfigOptions) validate() error {
	if o.PageSizeLog2 < 9 || o.PageSizeLog2 > 24 {
		return errInvalidPageSizeLog2(o.PageSizeLog2)
	}
	if o.PageCount == 0 {
		return errZeroPageCount()
	}
	return nil
}

type pendingPageInit struct {
	offset    int64
	pageCount uint64
	pageSize  uint64
}

// BuilderOption configures optional ambient dependencies on a Builder.
type BuilderOption func(*Builder)

// WithLogger attaches a structured logger used for build-time diagnostics.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = logger }
}

// WithTracer attaches a tracer used to create one span per AddObject and
// one per FlushAll call.
func WithTracer(tracer trace.Tracer) BuilderOption {
	return func(b *Builder) { b.tracer = tracer }
}

// WithFastIoRingPageDeviceInit controls whether FlushAll skips the
// 512-byte zero pre-initialization write for each page. When true, the
// caller is assumed to be relying on a faster external zero-init path
// (e.g. an io_uring-backed device) and FlushAll performs no pre-init
// writes of its own.
func WithFastIoRingPageDeviceInit(fast bool) BuilderOption {
	return func(b *Builder) { b.fastPageInit = fast }
}

// Builder accumulates page-device configuration objects and lays them out
// into a chain of 4096-byte config blocks plus their page payload
// regions. A Builder is single-threaded: no method may be called
// concurrently with another call on the same instance.
type Builder struct {
	sink       RawBlockFile
	baseOffset int64
	nextFree   int64

	blocks       []*configblock.Block
	blockOffsets []int64

	nextDeviceID uint64
	pageInits    []pendingPageInit

	finalized    bool
	fastPageInit bool

	logger *slog.Logger
	tracer trace.Tracer
}

// NewStorageFileBuilder creates a Builder that will lay out objects
// starting at the first 4096-aligned offset at or after baseOffset.
func NewStorageFileBuilder(sink RawBlockFile, baseOffset int64, opts ...BuilderOption) *Builder {
	b := &Builder{
		sink:       sink,
		baseOffset: baseOffset,
		nextFree:   packed.RoundUpBits(12, baseOffset),
		logger:     slog.Default(),
		tracer:     noop.NewTracerProvider().Tracer("storagefile"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) currentBlock() *configblock.Block {
	if len(b.blocks) == 0 {
		return nil
	}
	return b.blocks[len(b.blocks)-1]
}

func (b *Builder) openNewBlock() *configblock.Block {
	offset := packed.RoundUpBits(12, b.nextFree)
	blk := configblock.NewBlock()
	b.blocks = append(b.blocks, blk)
	b.blockOffsets = append(b.blockOffsets, offset)
	b.nextFree = offset + configblock.BlockSize
	return blk
}

// AddObject reserves a page-device payload region and appends its
// configuration as a slot in the current (or a freshly opened) config
// block. It performs no I/O and takes no context, per this package's
// synchronous layout protocol.
func (b *Builder) AddObject(opts PageDeviceConfigOptions) (FileOffsetPtr[configblock.PackedPageDeviceConfig], error) {
	_, span := b.tracer.Start(context.Background(), "Builder.AddObject")
	defer span.End()

	var zero FileOffsetPtr[configblock.PackedPageDeviceConfig]

	if b.finalized {
		err := errBuilderFinalized()
		span.RecordError(err)
		span.SetStatus(codes.Error, "finalized")
		return zero, err
	}
	if err := opts.validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid_arguments")
		return zero, err
	}

	id := uuid.New()
	if opts.UUID != nil {
		id = *opts.UUID
	}
	deviceID := b.nextDeviceID
	if opts.DeviceID != nil {
		deviceID = *opts.DeviceID
	}
	b.nextDeviceID++

	blk := b.currentBlock()
	if blk == nil || blk.Full() {
		blk = b.openNewBlock()
	}
	blockOffset := b.blockOffsets[len(b.blockOffsets)-1]

	pageSize := uint64(1) << opts.PageSizeLog2
	payloadStart := packed.RoundUpBits(uint(opts.PageSizeLog2), b.nextFree)
	pageSpan := opts.PageCount * pageSize
	if opts.PageCount != 0 && pageSpan/opts.PageCount != pageSize {
		err := ferr.New(ferr.OutOfRange, "storagefile.AddObject", fmt.Errorf("page_count*page_size overflow"))
		span.RecordError(err)
		span.SetStatus(codes.Error, "page_span_overflow")
		return zero, err
	}
	b.nextFree = payloadStart + int64(pageSpan)

	cfg, slotOffset, err := blk.AppendPageDeviceConfig(blockOffset, id, deviceID, payloadStart, opts.PageCount, opts.PageSizeLog2)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append_slot_failed")
		return zero, err
	}

	b.pageInits = append(b.pageInits, pendingPageInit{
		offset:    payloadStart,
		pageCount: opts.PageCount,
		pageSize:  pageSize,
	})

	span.SetAttributes(
		attribute.String("uuid", id.String()),
		attribute.Int64("device_id", int64(deviceID)),
		attribute.Int64("slot_offset", slotOffset),
	)
	if b.logger != nil {
		b.logger.Debug("storagefile: added page device config",
			"uuid", id, "device_id", deviceID, "slot_offset", slotOffset, "page_0_offset", payloadStart)
	}

	return FileOffsetPtr[configblock.PackedPageDeviceConfig]{Offset: slotOffset, Value: cfg}, nil
}

// FlushAll finalizes chain linkage and CRCs for every accumulated block,
// extends the sink to the final file size, optionally zero-initializes
// each page's first 512 bytes, and writes every config block in chain
// order. After a successful call the builder is finalized and further
// AddObject calls fail with FailedPrecondition.
func (b *Builder) FlushAll(ctx context.Context) error {
	ctx, span := b.tracer.Start(ctx, "Builder.FlushAll")
	defer span.End()

	if b.finalized {
		err := errAlreadyFlushed()
		span.RecordError(err)
		span.SetStatus(codes.Error, "already_flushed")
		return err
	}

	k := len(b.blocks)
	for i := 0; i < k; i++ {
		if i == 0 {
			b.blocks[i].SetPrevOffset(configblock.NullOffset)
		} else {
			b.blocks[i].SetPrevOffset(b.blockOffsets[i-1] - b.blockOffsets[i])
		}
		if i == k-1 {
			b.blocks[i].SetNextOffset(configblock.NullOffset)
		} else {
			b.blocks[i].SetNextOffset(b.blockOffsets[i+1] - b.blockOffsets[i])
		}
		b.blocks[i].Finalize()
	}

	if err := b.sink.TruncateAtLeast(ctx, b.nextFree); err != nil {
		err = ferr.New(ferr.IoError, "storagefile.FlushAll", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "truncate_failed")
		return err
	}

	if !b.fastPageInit {
		zero := zeroPagePool.Get()
		defer zeroPagePool.Put(zero)
		for _, pi := range b.pageInits {
			for p := uint64(0); p < pi.pageCount; p++ {
				off := pi.offset + int64(p*pi.pageSize)
				if err := writeFull(ctx, b.sink, off, zero); err != nil {
					err = ferr.NewAt(ferr.IoError, "storagefile.FlushAll", off, err)
					span.RecordError(err)
					span.SetStatus(codes.Error, "page_init_write_failed")
					return err
				}
			}
		}
	}

	for i, blk := range b.blocks {
		if err := writeFull(ctx, b.sink, b.blockOffsets[i], blk.Bytes()); err != nil {
			err = ferr.NewAt(ferr.IoError, "storagefile.FlushAll", b.blockOffsets[i], err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "block_write_failed")
			return err
		}
	}

	b.finalized = true
	span.SetAttributes(attribute.Int("blocks", k), attribute.Int64("final_size", b.nextFree))
	if b.logger != nil {
		b.logger.Info("storagefile: flushed storage file", "blocks", k, "final_size", b.nextFree)
	}
	return nil
}
