package storagefile

import "sync"

// fixedBufferPool is a sync.Pool-backed pool of fixed-size byte buffers,
// specialized to a single buffer length since every caller here (the
// zero-init page buffer) only ever needs one size.
type fixedBufferPool struct {
	size int
	pool sync.Pool
}

func newFixedBufferPool(size int) *fixedBufferPool {
	p := &fixedBufferPool{size: size}
	p.pool.New = func() interface{} { return make([]byte, size) }
	return p
}

func (p *fixedBufferPool) Get() []byte { return p.pool.Get().([]byte) }

func (p *fixedBufferPool) Put(buf []byte) {
	if len(buf) != p.size {
		return
	}
	for i := range buf {
		buf[i] = 0
	}
	p.pool.Put(buf)
}

// zeroPagePool supplies the 512-byte zero buffer FlushAll reuses across
// every page's pre-initialization write, avoiding an allocation per page
// when a build creates many devices.
var zeroPagePool = newFixedBufferPool(512)
