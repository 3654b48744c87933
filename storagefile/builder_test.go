package storagefile

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nexusbase-io/llfs-go/configblock"
	"github.com/nexusbase-io/llfs-go/ferr"
)

func TestFlushAllWithNoObjectsWritesNoBlocks(t *testing.T) {
	sink := newMemBlockFile()
	b := NewStorageFileBuilder(sink, 0)
	require.NoError(t, b.FlushAll(context.Background()))
	require.Equal(t, 0, len(sink.buf))

	_, err := b.AddObject(PageDeviceConfigOptions{PageCount: 1, PageSizeLog2: 12})
	require.Error(t, err)
	require.True(t, ferr.Is(err, ferr.FailedPrecondition))
}

func TestAddObjectRejectsInvalidOptions(t *testing.T) {
	sink := newMemBlockFile()
	b := NewStorageFileBuilder(sink, 0)

	_, err := b.AddObject(PageDeviceConfigOptions{PageCount: 1, PageSizeLog2: 8})
	require.Error(t, err)
	require.True(t, ferr.Is(err, ferr.InvalidArgument))

	_, err = b.AddObject(PageDeviceConfigOptions{PageCount: 0, PageSizeLog2: 12})
	require.Error(t, err)
	require.True(t, ferr.Is(err, ferr.InvalidArgument))
}

func TestBuildAndReadSingleDevice(t *testing.T) {
	sink := newMemBlockFile()
	b := NewStorageFileBuilder(sink, 0)

	id := uuid.New()
	ptr, err := b.AddObject(PageDeviceConfigOptions{UUID: &id, PageCount: 10, PageSizeLog2: 12})
	require.NoError(t, err)
	require.Equal(t, id, ptr.Value.UUID())

	require.NoError(t, b.FlushAll(context.Background()))

	blocks, err := ReadStorageFile(context.Background(), sink, 0)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.Equal(t, 1, blocks[0].Block.SlotCount())

	sf := NewStorageFile(blocks)
	cfg, ok := sf.FindByUUID(id)
	require.True(t, ok)
	require.Equal(t, uint64(10), cfg.PageCount())
	require.Equal(t, uint8(12), cfg.PageSizeLog2())

	_, ok = sf.FindByUUID(uuid.New())
	require.False(t, ok)
}

func TestPageZeroOffsetIsSlotRelativeAcrossBaseOffsets(t *testing.T) {
	// A single page device laid out alone in its block always stores
	// page_0_offset = 4032: the page payload starts right after the
	// 4096-byte block, and slot 0 sits 64 bytes into that block, so the
	// slot-relative delta is (blockOffset+4096) - (blockOffset+64), which
	// cancels the base offset out entirely.
	for _, base := range []int64{0, 128, 65536} {
		sink := newMemBlockFile()
		b := NewStorageFileBuilder(sink, base)

		ptr, err := b.AddObject(PageDeviceConfigOptions{PageCount: 1, PageSizeLog2: 12})
		require.NoError(t, err)
		require.Equal(t, int64(4032), ptr.Value.Page0Offset(), "base_offset=%d", base)

		require.NoError(t, b.FlushAll(context.Background()))

		blocks, err := ReadStorageFile(context.Background(), sink, base)
		require.NoError(t, err)
		sf := NewStorageFile(blocks)
		cfgs := sf.FindPageDeviceConfigs()
		require.Len(t, cfgs, 1)
		require.Equal(t, int64(4032), cfgs[0].Value.Page0Offset(), "base_offset=%d", base)
	}
}

func TestManyPageDeviceConfigsOverflowIntoThreeBlocks(t *testing.T) {
	sink := newMemBlockFile()
	b := NewStorageFileBuilder(sink, 0)

	const n = 125
	ids := make([]uuid.UUID, n)
	for i := 0; i < n; i++ {
		id := uuid.New()
		ids[i] = id
		_, err := b.AddObject(PageDeviceConfigOptions{UUID: &id, PageCount: 1, PageSizeLog2: 12})
		require.NoError(t, err)
	}
	require.NoError(t, b.FlushAll(context.Background()))

	blocks, err := ReadStorageFile(context.Background(), sink, 0)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	require.Equal(t, configblock.MaxSlotsPerBlock, blocks[0].Block.SlotCount())
	require.Equal(t, configblock.MaxSlotsPerBlock, blocks[1].Block.SlotCount())
	require.Equal(t, 1, blocks[2].Block.SlotCount())

	sf := NewStorageFile(blocks)
	for _, id := range ids {
		_, ok := sf.FindByUUID(id)
		require.True(t, ok)
	}
}

func TestReadStorageFileDetectsCRCTamper(t *testing.T) {
	sink := newMemBlockFile()
	b := NewStorageFileBuilder(sink, 0)
	_, err := b.AddObject(PageDeviceConfigOptions{PageCount: 1, PageSizeLog2: 12})
	require.NoError(t, err)
	require.NoError(t, b.FlushAll(context.Background()))

	sink.buf[100] ^= 0x01

	_, err = ReadStorageFile(context.Background(), sink, 0)
	require.Error(t, err)
	require.True(t, ferr.Is(err, ferr.DataLoss))
}

func TestReadStorageFileDetectsChainCycle(t *testing.T) {
	sink := newMemBlockFile()
	blk := configblock.NewBlock()
	blk.SetPrevOffset(configblock.NullOffset)
	blk.SetNextOffset(0) // points back at itself
	blk.Finalize()
	require.NoError(t, sink.TruncateAtLeast(context.Background(), configblock.BlockSize))
	require.NoError(t, writeFull(context.Background(), sink, 0, blk.Bytes()))

	blocks, err := ReadStorageFile(context.Background(), sink, 0)
	require.Error(t, err)
	require.True(t, ferr.Is(err, ferr.DataLoss))
	require.Len(t, blocks, 1, "partial prefix is still returned")
}

func TestWriteFullAndReadFullRetryOnShortIO(t *testing.T) {
	sink := newMemBlockFile()
	sink.maxChunk = 7
	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, sink.TruncateAtLeast(context.Background(), 100))
	require.NoError(t, writeFull(context.Background(), sink, 0, payload))

	got := make([]byte, 100)
	require.NoError(t, readFull(context.Background(), sink, 0, got))
	require.Equal(t, payload, got)
}

func TestFastIoRingPageDeviceInitSkipsPreInit(t *testing.T) {
	sink := newMemBlockFile()
	// Pre-fill the file with a non-zero pattern so that a 512-byte zero
	// pre-initialization write would be visible in the page region.
	sink.buf = make([]byte, 2*configblock.BlockSize)
	for i := range sink.buf {
		sink.buf[i] = 0xAB
	}
	b := NewStorageFileBuilder(sink, 0, WithFastIoRingPageDeviceInit(true))
	_, err := b.AddObject(PageDeviceConfigOptions{PageCount: 4, PageSizeLog2: 12})
	require.NoError(t, err)
	require.NoError(t, b.FlushAll(context.Background()))

	// The page region lies beyond the single config block; with fast init
	// enabled FlushAll must not have written to it, so the pre-filled
	// pattern is still there.
	pageStart := configblock.BlockSize
	for _, bb := range sink.buf[pageStart : pageStart+512] {
		require.Equal(t, byte(0xAB), bb)
	}
}
