package configblock

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// SlotSize is the fixed width of every slot record within a block.
const SlotSize = 64

// SlotTag identifies which typed view a slot's bytes should be interpreted
// through. It occupies the first byte of every slot.
type SlotTag uint8

const (
	// SlotTagNone marks an unused slot (only ever seen on a freshly
	// allocated block before any object is appended to it).
	SlotTagNone SlotTag = 0
	// SlotTagPageDevice marks a slot holding a PackedPageDeviceConfig.
	SlotTagPageDevice SlotTag = 1
)

func (t SlotTag) String() string {
	switch t {
	case SlotTagNone:
		return "None"
	case SlotTagPageDevice:
		return "PageDevice"
	default:
		return fmt.Sprintf("SlotTag(%d)", uint8(t))
	}
}

// Slot is a 64-byte window into a block's slot array. It does not own the
// underlying storage; callers obtain one via Block.Slot or Block.AppendSlot.
type Slot struct {
	buf []byte
}

// Tag returns the slot's discriminator byte.
func (s Slot) Tag() SlotTag { return SlotTag(s.buf[0]) }

// Bytes returns the raw 64-byte slot record.
func (s Slot) Bytes() []byte { return s.buf }

// Slot field offsets within the 64-byte record. Byte 0 is the tag; the
// fields below are shared by every current slot kind. A future slot kind
// with a different payload shape would simply interpret buf[1:] on its own
// terms, same as PackedPageDeviceConfig does here.
const (
	pageDeviceUUIDOffset         = 8
	pageDeviceDeviceIDOffset     = 24
	pageDevicePage0OffsetOffset  = 32
	pageDevicePageCountOffset    = 40
	pageDevicePageSizeLog2Offset = 48
)

// PackedPageDeviceConfig is a typed view over a Slot known to carry
// SlotTagPageDevice. Its accessors read directly out of the slot's backing
// array; nothing is copied until the caller asks for a value.
type PackedPageDeviceConfig struct {
	buf []byte
}

// AsPageDeviceConfig views s as a PackedPageDeviceConfig, failing if the
// slot's tag does not match.
func AsPageDeviceConfig(s Slot) (PackedPageDeviceConfig, error) {
	if s.Tag() != SlotTagPageDevice {
		return PackedPageDeviceConfig{}, fmt.Errorf("configblock: slot tag %s is not PageDevice", s.Tag())
	}
	return PackedPageDeviceConfig{buf: s.buf}, nil
}

func (p PackedPageDeviceConfig) Tag() SlotTag { return SlotTag(p.buf[0]) }

// UUID returns the page device's identifier.
func (p PackedPageDeviceConfig) UUID() uuid.UUID {
	var u uuid.UUID
	copy(u[:], p.buf[pageDeviceUUIDOffset:pageDeviceUUIDOffset+16])
	return u
}

// DeviceID returns the page device's numeric identifier.
func (p PackedPageDeviceConfig) DeviceID() uint64 {
	return binary.LittleEndian.Uint64(p.buf[pageDeviceDeviceIDOffset:])
}

// Page0Offset returns the signed offset of page 0, relative to this slot's
// own position in the file.
func (p PackedPageDeviceConfig) Page0Offset() int64 {
	return int64(binary.LittleEndian.Uint64(p.buf[pageDevicePage0OffsetOffset:]))
}

// PageCount returns the number of fixed-size pages on the device.
func (p PackedPageDeviceConfig) PageCount() uint64 {
	return binary.LittleEndian.Uint64(p.buf[pageDevicePageCountOffset:])
}

// PageSizeLog2 returns log2 of the device's page size.
func (p PackedPageDeviceConfig) PageSizeLog2() uint8 {
	return p.buf[pageDevicePageSizeLog2Offset]
}

// PageSize returns the device's page size in bytes.
func (p PackedPageDeviceConfig) PageSize() uint64 {
	return uint64(1) << p.PageSizeLog2()
}

// initPageDeviceConfig writes a fresh PackedPageDeviceConfig into s,
// overwriting its tag and payload. slotOffset is the absolute file offset
// of this slot, used to turn the absolute page0Offset the caller supplies
// into the slot-relative value stored on disk.
func initPageDeviceConfig(s Slot, slotOffset int64, id uuid.UUID, deviceID uint64, page0AbsOffset int64, pageCount uint64, pageSizeLog2 uint8) PackedPageDeviceConfig {
	buf := s.buf
	for i := range buf {
		buf[i] = 0
	}
	buf[0] = byte(SlotTagPageDevice)
	copy(buf[pageDeviceUUIDOffset:pageDeviceUUIDOffset+16], id[:])
	binary.LittleEndian.PutUint64(buf[pageDeviceDeviceIDOffset:], deviceID)
	binary.LittleEndian.PutUint64(buf[pageDevicePage0OffsetOffset:], uint64(page0AbsOffset-slotOffset))
	binary.LittleEndian.PutUint64(buf[pageDevicePageCountOffset:], pageCount)
	buf[pageDevicePageSizeLog2Offset] = pageSizeLog2
	return PackedPageDeviceConfig{buf: buf}
}
