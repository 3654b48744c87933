package configblock

import (
	"encoding/binary"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nexusbase-io/llfs-go/ferr"
)

func TestNewBlockHasNullChainAndZeroSlots(t *testing.T) {
	b := NewBlock()
	require.Equal(t, Magic, b.Magic())
	require.Equal(t, CurrentVersion(), b.Version())
	require.Equal(t, NullOffset, b.PrevOffset())
	require.Equal(t, NullOffset, b.NextOffset())
	require.Equal(t, 0, b.SlotCount())
	require.False(t, b.Full())
}

func TestAppendPageDeviceConfigRoundTrips(t *testing.T) {
	b := NewBlock()
	const blockOffset = int64(4096)
	id := uuid.New()

	cfg, slotOffset, err := b.AppendPageDeviceConfig(blockOffset, id, 7, blockOffset+4096, 1000, 12)
	require.NoError(t, err)
	require.Equal(t, blockOffset+int64(slotsOffset), slotOffset)
	require.Equal(t, SlotTagPageDevice, cfg.Tag())
	require.Equal(t, id, cfg.UUID())
	require.Equal(t, uint64(7), cfg.DeviceID())
	require.Equal(t, int64(4032), cfg.Page0Offset())
	require.Equal(t, uint64(1000), cfg.PageCount())
	require.Equal(t, uint8(12), cfg.PageSizeLog2())
	require.Equal(t, uint64(4096), cfg.PageSize())
	require.Equal(t, 1, b.SlotCount())

	got, err := AsPageDeviceConfig(b.Slot(0))
	require.NoError(t, err)
	require.Equal(t, id, got.UUID())
}

func TestBlockFullAfterMaxSlots(t *testing.T) {
	b := NewBlock()
	id := uuid.New()
	for i := 0; i < MaxSlotsPerBlock; i++ {
		_, _, err := b.AppendPageDeviceConfig(0, id, uint64(i), 0, 1, 12)
		require.NoError(t, err)
	}
	require.True(t, b.Full())
	_, _, err := b.AppendPageDeviceConfig(0, id, 999, 0, 1, 12)
	require.Error(t, err)
	require.True(t, ferr.Is(err, ferr.FailedPrecondition))
}

func TestFinalizeAndDecodeRoundTrip(t *testing.T) {
	b := NewBlock()
	id := uuid.New()
	_, _, err := b.AppendPageDeviceConfig(0, id, 1, 4096, 256, 9)
	require.NoError(t, err)
	b.SetPrevOffset(NullOffset)
	b.SetNextOffset(8192)
	b.Finalize()

	decoded, err := DecodeBlock(b.Bytes())
	require.NoError(t, err)
	require.Equal(t, int64(8192), decoded.NextOffset())
	require.Equal(t, 1, decoded.SlotCount())

	cfg, err := AsPageDeviceConfig(decoded.Slot(0))
	require.NoError(t, err)
	require.Equal(t, id, cfg.UUID())
}

func TestDecodeBlockRejectsBadMagic(t *testing.T) {
	b := NewBlock()
	b.Finalize()
	buf := append([]byte(nil), b.Bytes()...)
	buf[0] ^= 0xFF

	_, err := DecodeBlock(buf)
	require.Error(t, err)
	require.True(t, ferr.Is(err, ferr.DataLoss))
}

func TestDecodeBlockRejectsTamperedCRC(t *testing.T) {
	b := NewBlock()
	id := uuid.New()
	_, _, err := b.AppendPageDeviceConfig(0, id, 1, 0, 1, 12)
	require.NoError(t, err)
	b.Finalize()

	buf := append([]byte(nil), b.Bytes()...)
	// Flip a byte inside the slot region; the stored CRC no longer matches.
	buf[slotsOffset] ^= 0x01

	_, err = DecodeBlock(buf)
	require.Error(t, err)
	require.True(t, ferr.Is(err, ferr.DataLoss))
}

func TestDecodeBlockRejectsWrongLength(t *testing.T) {
	_, err := DecodeBlock(make([]byte, 100))
	require.Error(t, err)
	require.True(t, ferr.Is(err, ferr.InvalidArgument))
}

func TestDecodeBlockRejectsIncompatibleVersion(t *testing.T) {
	b := NewBlock()
	b.Finalize()
	buf := append([]byte(nil), b.Bytes()...)
	// Bump the major version past what this package understands.
	future := MakeVersion(currentVersionMajor+1, 0, 0)
	binary.LittleEndian.PutUint64(buf[versionOffset:], future)

	_, err := DecodeBlock(buf)
	require.Error(t, err)
	require.True(t, ferr.Is(err, ferr.DataLoss))
}
