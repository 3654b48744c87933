package configblock

import "fmt"

func errShortBuffer(n int) error {
	return fmt.Errorf("configblock: expected a %d-byte block image, got %d bytes", BlockSize, n)
}

func errBadMagic(got uint64) error {
	return fmt.Errorf("configblock: bad magic 0x%016x, expected 0x%016x", got, Magic)
}

func errIncompatibleVersion(got uint64) error {
	return fmt.Errorf("configblock: incompatible version %d.%d.%d",
		versionMajor(got), versionMinor(got), versionPatch(got))
}

func errCRCMismatch(want, got uint64) error {
	return fmt.Errorf("configblock: crc64 mismatch: stored 0x%016x, computed 0x%016x", want, got)
}

func errBlockFull() error {
	return fmt.Errorf("configblock: block already holds %d slots", MaxSlotsPerBlock)
}
