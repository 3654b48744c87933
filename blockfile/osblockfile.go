// Package blockfile provides the default, os.File-backed implementation
// of storagefile.RawBlockFile, plus a testify/mock double used by this
// module's own builder/reader tests.
package blockfile

import (
	"context"
	"errors"

	"github.com/nexusbase-io/llfs-go/ferr"
	"github.com/nexusbase-io/llfs-go/sys"
)

// OSBlockFile adapts a sys.FileHandle to storagefile.RawBlockFile.
// sys.FileHandle is this codebase's general file abstraction, used by WAL
// segments and SSTables alike; OSBlockFile keeps the narrower
// truncate-to-at-least, positional-read/write-only contract separate so
// storage-file callers aren't exposed to sys.FileHandle's full surface.
type OSBlockFile struct {
	f sys.FileHandle
}

// NewOSBlockFile wraps an already-open file handle.
func NewOSBlockFile(f sys.FileHandle) *OSBlockFile {
	return &OSBlockFile{f: f}
}

// Create opens name for read/write, creating and truncating it if needed,
// and wraps the result.
func Create(name string) (*OSBlockFile, error) {
	f, err := sys.Create(name)
	if err != nil {
		return nil, err
	}
	return NewOSBlockFile(f), nil
}

// Open opens an existing file read-only.
func Open(name string) (*OSBlockFile, error) {
	f, err := sys.Open(name)
	if err != nil {
		return nil, err
	}
	return NewOSBlockFile(f), nil
}

// Close closes the underlying file.
func (o *OSBlockFile) Close() error { return o.f.Close() }

// TruncateAtLeast extends the file to at least length bytes. It first
// tries sys.Preallocate, which reserves blocks without necessarily
// changing the visible size, then falls back to Truncate when
// preallocation is unsupported (matching how this codebase's other
// file-backed stores handle sys.ErrPreallocNotSupported) or when the
// visible size still needs to grow.
func (o *OSBlockFile) TruncateAtLeast(_ context.Context, length int64) error {
	info, err := o.f.Stat()
	if err != nil {
		return err
	}
	if info.Size() >= length {
		return nil
	}

	if err := sys.Preallocate(o.f, length); err != nil && !errors.Is(err, sys.ErrPreallocNotSupported) {
		return err
	}

	info, err = o.f.Stat()
	if err != nil {
		return err
	}
	if info.Size() < length {
		return o.f.Truncate(length)
	}
	return nil
}

// WriteSome performs one positional write attempt, looping internally on
// a short write from the underlying WriteAt so the contract holds even
// for callers that bypass storagefile's own retry loop.
func (o *OSBlockFile) WriteSome(_ context.Context, offset int64, p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := o.f.WriteAt(p[written:], offset+int64(written))
		written += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, ferr.New(ferr.IoError, "blockfile.OSBlockFile.WriteSome", errShortWrite())
		}
	}
	return written, nil
}

// ReadSome performs one positional read attempt, looping on short reads
// from the underlying ReadAt the same way WriteSome does for writes.
func (o *OSBlockFile) ReadSome(_ context.Context, offset int64, p []byte) (int, error) {
	read := 0
	for read < len(p) {
		n, err := o.f.ReadAt(p[read:], offset+int64(read))
		read += n
		if err != nil {
			if read > 0 {
				return read, nil
			}
			return read, err
		}
		if n == 0 {
			return read, nil
		}
	}
	return read, nil
}

func errShortWrite() error { return errors.New("short write with no error reported") }
