package storagefile

import (
	"fmt"

	"github.com/nexusbase-io/llfs-go/ferr"
)

func errShortProgress(op string) error {
	return fmt.Errorf("storagefile: %s returned zero bytes with data remaining", op)
}

func errInvalidPageSizeLog2(v uint8) error {
	return ferr.New(ferr.InvalidArgument, "storagefile.AddObject",
		fmt.Errorf("page_size_log2 %d out of range [9,24]", v))
}

func errZeroPageCount() error {
	return ferr.New(ferr.InvalidArgument, "storagefile.AddObject",
		fmt.Errorf("page_count must be non-zero"))
}

func errBuilderFinalized() error {
	return ferr.New(ferr.FailedPrecondition, "storagefile.AddObject",
		fmt.Errorf("builder has already been flushed"))
}

func errAlreadyFlushed() error {
	return ferr.New(ferr.FailedPrecondition, "storagefile.FlushAll",
		fmt.Errorf("FlushAll has already been called"))
}
