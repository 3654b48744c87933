// Package storagefile implements the layout engine that lays out a chain
// of config blocks and page-device payload regions on a raw
// block-addressable file, and the reader that walks that chain back into
// memory.
package storagefile

import "context"

// RawBlockFile is the narrow synchronous I/O contract the builder, reader,
// and driver depend on. It intentionally says nothing about how the
// underlying storage is implemented; blockfile.OSBlockFile is the default,
// os.File-backed implementation, and tests substitute a mock.
type RawBlockFile interface {
	// TruncateAtLeast extends the underlying storage to at least length
	// bytes. It must not shrink storage that is already longer.
	TruncateAtLeast(ctx context.Context, length int64) error

	// WriteSome performs a single positional write attempt at offset. It
	// may write fewer bytes than len(p); callers retry with an advanced
	// offset and a resliced buffer until the full write completes.
	WriteSome(ctx context.Context, offset int64, p []byte) (int, error)

	// ReadSome performs a single positional read attempt at offset, with
	// the same short-read contract as WriteSome.
	ReadSome(ctx context.Context, offset int64, p []byte) (int, error)
}

// writeFull loops WriteSome until all of p has been written or an error
// occurs, matching the retry contract every RawBlockFile caller in this
// package relies on.
func writeFull(ctx context.Context, f RawBlockFile, offset int64, p []byte) error {
	for len(p) > 0 {
		n, err := f.WriteSome(ctx, offset, p)
		if err != nil {
			return err
		}
		if n == 0 {
			return errShortProgress("write")
		}
		offset += int64(n)
		p = p[n:]
	}
	return nil
}

// readFull loops ReadSome until p is completely filled or an error occurs.
func readFull(ctx context.Context, f RawBlockFile, offset int64, p []byte) error {
	for len(p) > 0 {
		n, err := f.ReadSome(ctx, offset, p)
		if err != nil {
			return err
		}
		if n == 0 {
			return errShortProgress("read")
		}
		offset += int64(n)
		p = p[n:]
	}
	return nil
}
