// Package configblock implements the packed 4096-byte config block: a
// fixed-size record holding a magic number, a version, doubly-linked chain
// offsets, an array of up to 62 typed slot records, and a trailing CRC-64
// covering the rest of the block. This is the on-disk unit the layout
// engine in package storagefile allocates and links, and that the reader
// walks back into memory.
package configblock

import (
	"encoding/binary"
	"hash/crc64"
	"math"

	"github.com/google/uuid"

	"github.com/nexusbase-io/llfs-go/ferr"
)

// BlockSize is the fixed size in bytes of every config block.
const BlockSize = 4096

// MaxSlotsPerBlock bounds how many 64-byte slots fit between the block
// header and the CRC trailer.
const MaxSlotsPerBlock = 62

// HeaderSize is the number of bytes preceding the slot array in a block
// (magic, version, prev/next offsets, slot count, padded out to a fixed
// 64-byte header) — the fixed offset a slot's absolute address is computed
// relative to.
const HeaderSize = 64

// NullOffset is the sentinel stored in prev_offset/next_offset for a block
// with no predecessor or successor.
const NullOffset int64 = math.MinInt64

// Magic is the constant every valid block begins with, spelling
// "LLFS_CFG" in little-endian ASCII.
const Magic uint64 = 0x4746435F53464C4C

const (
	magicOffset     = 0
	versionOffset   = 8
	prevOffset      = 16
	nextOffset      = 24
	slotCountOffset = 32
	slotsOffset     = HeaderSize

	slotsRegionSize = MaxSlotsPerBlock * SlotSize // 3968
	reservedOffset  = slotsOffset + slotsRegionSize
	// PayloadCapacity is the number of leading bytes of a block that are
	// covered by the CRC and available to the header, slot array, and
	// trailing reserved padding: everything except the crc64 field itself.
	PayloadCapacity = BlockSize - 8
	crcOffset       = PayloadCapacity
)

var crcTable = crc64.MakeTable(crc64.ISO)

// Block is an in-memory 4096-byte config block image.
type Block struct {
	buf []byte
}

// NewBlock allocates a fresh, zeroed block with the current magic and
// version stamped in and both chain links set to NullOffset.
func NewBlock() *Block {
	b := &Block{buf: make([]byte, BlockSize)}
	binary.LittleEndian.PutUint64(b.buf[magicOffset:], Magic)
	binary.LittleEndian.PutUint64(b.buf[versionOffset:], CurrentVersion())
	b.SetPrevOffset(NullOffset)
	b.SetNextOffset(NullOffset)
	return b
}

// DecodeBlock validates and wraps a raw 4096-byte block image read from
// storage. The returned Block owns a copy of buf.
func DecodeBlock(buf []byte) (*Block, error) {
	if len(buf) != BlockSize {
		return nil, ferr.New(ferr.InvalidArgument, "configblock.DecodeBlock",
			errShortBuffer(len(buf)))
	}
	b := &Block{buf: append([]byte(nil), buf...)}

	if b.Magic() != Magic {
		return nil, ferr.New(ferr.DataLoss, "configblock.DecodeBlock", errBadMagic(b.Magic()))
	}
	if !VersionCompatible(b.Version()) {
		return nil, ferr.New(ferr.DataLoss, "configblock.DecodeBlock", errIncompatibleVersion(b.Version()))
	}
	if err := b.Verify(); err != nil {
		return nil, ferr.New(ferr.DataLoss, "configblock.DecodeBlock", err)
	}
	return b, nil
}

// Magic returns the block's magic field.
func (b *Block) Magic() uint64 { return binary.LittleEndian.Uint64(b.buf[magicOffset:]) }

// Version returns the block's version field.
func (b *Block) Version() uint64 { return binary.LittleEndian.Uint64(b.buf[versionOffset:]) }

// PrevOffset returns the offset of the previous block in the chain,
// relative to this block's own file offset, or NullOffset.
func (b *Block) PrevOffset() int64 { return int64(binary.LittleEndian.Uint64(b.buf[prevOffset:])) }

// SetPrevOffset sets the previous-block chain link.
func (b *Block) SetPrevOffset(v int64) { binary.LittleEndian.PutUint64(b.buf[prevOffset:], uint64(v)) }

// NextOffset returns the offset of the next block in the chain, relative
// to this block's own file offset, or NullOffset.
func (b *Block) NextOffset() int64 { return int64(binary.LittleEndian.Uint64(b.buf[nextOffset:])) }

// SetNextOffset sets the next-block chain link.
func (b *Block) SetNextOffset(v int64) { binary.LittleEndian.PutUint64(b.buf[nextOffset:], uint64(v)) }

// SlotCount returns the number of slots currently populated in this block.
func (b *Block) SlotCount() int {
	return int(binary.LittleEndian.Uint64(b.buf[slotCountOffset:]))
}

func (b *Block) setSlotCount(n int) {
	binary.LittleEndian.PutUint64(b.buf[slotCountOffset:], uint64(n))
}

// Slot returns the i'th slot, which must satisfy 0 <= i < SlotCount().
func (b *Block) Slot(i int) Slot {
	off := slotsOffset + i*SlotSize
	return Slot{buf: b.buf[off : off+SlotSize]}
}

// Full reports whether the block already holds the maximum number of
// slots and cannot accept another AppendSlot.
func (b *Block) Full() bool { return b.SlotCount() >= MaxSlotsPerBlock }

// AppendSlot reserves the next slot in the array and returns it, along
// with its absolute file offset (blockOffset + the slot's offset within
// the block). The caller is responsible for initializing the slot's
// contents; it is zeroed on return.
func (b *Block) AppendSlot(blockOffset int64) (Slot, int64, error) {
	if b.Full() {
		return Slot{}, 0, ferr.New(ferr.FailedPrecondition, "configblock.Block.AppendSlot", errBlockFull())
	}
	idx := b.SlotCount()
	b.setSlotCount(idx + 1)
	s := b.Slot(idx)
	return s, blockOffset + int64(slotsOffset+idx*SlotSize), nil
}

// AppendPageDeviceConfig appends and initializes a PageDevice slot in one
// step, returning the initialized view and its absolute slot offset.
func (b *Block) AppendPageDeviceConfig(blockOffset int64, id uuid.UUID, deviceID uint64, page0AbsOffset int64, pageCount uint64, pageSizeLog2 uint8) (PackedPageDeviceConfig, int64, error) {
	s, slotOffset, err := b.AppendSlot(blockOffset)
	if err != nil {
		return PackedPageDeviceConfig{}, 0, err
	}
	cfg := initPageDeviceConfig(s, slotOffset, id, deviceID, page0AbsOffset, pageCount, pageSizeLog2)
	return cfg, slotOffset, nil
}

// CRC64 returns the CRC-64 value currently stored in the block's trailer.
func (b *Block) CRC64() uint64 { return binary.LittleEndian.Uint64(b.buf[crcOffset:]) }

// TrueCRC64 recomputes the CRC-64 the block's trailer should hold: the
// ISO-polynomial checksum of the full block image with the crc64 field
// itself treated as zero.
func (b *Block) TrueCRC64() uint64 {
	saved := make([]byte, 8)
	copy(saved, b.buf[crcOffset:crcOffset+8])
	for i := crcOffset; i < crcOffset+8; i++ {
		b.buf[i] = 0
	}
	sum := crc64.Checksum(b.buf, crcTable)
	copy(b.buf[crcOffset:crcOffset+8], saved)
	return sum
}

// Finalize stamps the block's trailer with its true CRC-64. It must be
// called after all slots and chain links are set and before the block is
// written out.
func (b *Block) Finalize() {
	binary.LittleEndian.PutUint64(b.buf[crcOffset:], b.TrueCRC64())
}

// Verify reports a DataLoss-flavored error if the block's stored CRC-64
// does not match its true CRC-64.
func (b *Block) Verify() error {
	if want, got := b.CRC64(), b.TrueCRC64(); want != got {
		return errCRCMismatch(want, got)
	}
	return nil
}

// Bytes returns the block's raw 4096-byte image, ready to write to
// storage. Callers must call Finalize first.
func (b *Block) Bytes() []byte { return b.buf }
