package generic

import "sync"

// Pool is a typed sync.Pool.
type Pool[T any] struct {
	pool sync.Pool
}

func NewPool[T any](generate func() T) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() any {
				return generate()
			},
		},
	}
}

func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

func (p *Pool[T]) Put(value T) {
	p.pool.Put(value)
}

// Buffers recycles byte slices up to a size ceiling. Larger buffers are
// allocated on demand and dropped on release.
type Buffers struct {
	pool    *Pool[*[]byte]
	maxSize int
}

func NewBuffers(initial, maxSize int) *Buffers {
	return &Buffers{
		pool: NewPool(func() *[]byte {
			b := make([]byte, 0, initial)
			return &b
		}),
		maxSize: maxSize,
	}
}

// Get returns a slice of length n. Its contents are unspecified.
func (b *Buffers) Get(n int) []byte {
	if n > b.maxSize {
		return make([]byte, n)
	}
	p := b.pool.Get()
	if cap(*p) < n {
		*p = make([]byte, n)
	}
	return (*p)[:n]
}

// Put hands buf back for reuse. buf must not be used afterwards.
func (b *Buffers) Put(buf []byte) {
	if cap(buf) == 0 || cap(buf) > b.maxSize {
		return
	}
	buf = buf[:0]
	b.pool.Put(&buf)
}
