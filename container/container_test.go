package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/dbinit/formats/varint"
)

var (
	testData         = []byte("The quick brown fox jumps over the lazy dog")
	testDataSplitted = [][]byte{
		[]byte("T"),
		[]byte("he"),
		[]byte(" qu"),
		[]byte("ick "),
		[]byte("brown"),
		[]byte(" fox j"),
		[]byte("umps ov"),
		[]byte("er the l"),
		[]byte("azy dog"),
	}
)

func TestContainerDataHandling(t *testing.T) {
	t.Parallel()

	c1 := New(testDataSplitted...)
	assert.Equal(t, len(testData), c1.Length())
	assert.Equal(t, testData, c1.CompileData())

	c2 := New()
	for _, part := range testDataSplitted {
		c2.Append(part)
	}
	assert.Equal(t, testData, c2.CompileData())

	c3 := New(testDataSplitted...)
	head, err := c3.Get(10)
	require.NoError(t, err)
	assert.Equal(t, "The quick ", string(head))
	assert.Equal(t, len(testData)-10, c3.Length())
	assert.Equal(t, testData[10:], c3.CompileData())

	_, err = c3.Get(1000)
	assert.ErrorIs(t, err, ErrNotEnoughData)
	_, err = c3.Get(-1)
	assert.ErrorIs(t, err, ErrNotEnoughData)
}

func TestContainerBlockHandling(t *testing.T) {
	t.Parallel()

	c := New()
	c.AppendString("")
	c.AppendString("en_US.UTF-8")
	c.AppendNumber(300)
	c.AppendAsBlock(testData)

	// split up the compiled data so reads cross compartment borders
	data := c.CompileData()
	r := New(data[:3], data[3:14], data[14:])

	s, err := r.GetNextString()
	require.NoError(t, err)
	assert.Empty(t, s)

	s, err = r.GetNextString()
	require.NoError(t, err)
	assert.Equal(t, "en_US.UTF-8", s)

	n, err := r.GetNextN64()
	require.NoError(t, err)
	assert.Equal(t, uint64(300), n)

	block, err := r.GetNextBlock()
	require.NoError(t, err)
	assert.Equal(t, testData, block)

	assert.Zero(t, r.Length())
	_, err = r.GetNextN64()
	assert.ErrorIs(t, err, varint.ErrEmptyBuf)
}

func TestContainerTruncatedBlock(t *testing.T) {
	t.Parallel()

	c := New()
	c.AppendAsBlock(testData)
	data := c.CompileData()

	_, err := New(data[:10]).GetNextBlock()
	assert.ErrorIs(t, err, ErrNotEnoughData)

	// lengths larger than the remaining data are rejected before reading
	for _, length := range []uint64{1 << 40, 1<<63 + 1, 1<<64 - 1} {
		r := New(varint.Pack64(length), testData)
		_, err = r.GetNextBlock()
		assert.ErrorIs(t, err, ErrNotEnoughData, length)
	}
}
