package generic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool(t *testing.T) {
	created := 0
	p := NewPool(func() int {
		created++
		return 42
	})
	assert.Equal(t, 42, p.Get())
	assert.Equal(t, 1, created)
}

func TestBuffers(t *testing.T) {
	b := NewBuffers(16, 64)

	buf := b.Get(8)
	assert.Len(t, buf, 8)
	b.Put(buf)

	buf = b.Get(48)
	assert.Len(t, buf, 48)
	b.Put(buf)

	big := b.Get(128)
	assert.Len(t, big, 128)
	b.Put(big)
}
