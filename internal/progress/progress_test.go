package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNilBarIsNoop(t *testing.T) {
	b := Start(nil, "variants", 10)
	assert.Nil(t, b)
	b.Increment()
	b.Finish()
	assert.Equal(t, int64(0), b.Current())
}

func TestBarCounts(t *testing.T) {
	var buf bytes.Buffer
	b := Start(&buf, "gene sets", 3)
	for i := 0; i < 3; i++ {
		b.Increment()
	}
	b.Finish()
	assert.Equal(t, int64(3), b.Current())
	assert.Contains(t, buf.String(), "gene sets")
}
