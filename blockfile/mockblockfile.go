package blockfile

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockBlockFile is a testify/mock-based storagefile.RawBlockFile used by
// this module's builder/reader tests to assert call ordering, in the
// style of a strict mock over the block-file sink.
type MockBlockFile struct {
	mock.Mock
}

func (m *MockBlockFile) TruncateAtLeast(ctx context.Context, length int64) error {
	args := m.Called(ctx, length)
	return args.Error(0)
}

func (m *MockBlockFile) WriteSome(ctx context.Context, offset int64, p []byte) (int, error) {
	args := m.Called(ctx, offset, p)
	return args.Int(0), args.Error(1)
}

func (m *MockBlockFile) ReadSome(ctx context.Context, offset int64, p []byte) (int, error) {
	args := m.Called(ctx, offset, p)
	return args.Int(0), args.Error(1)
}
