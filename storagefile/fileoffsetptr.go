package storagefile

// FileOffsetPtr pairs a decoded value with the absolute file offset it was
// found at (or will be written to). It is the handle AddObject and the
// reader hand back instead of a bare value, so callers can locate an
// object's slot on disk without re-deriving the offset arithmetic.
type FileOffsetPtr[T any] struct {
	Offset int64
	Value  T
}
