package container

import (
	"errors"

	"github.com/safing/dbinit/formats/varint"
)

// ErrNotEnoughData is returned when a read asks for more bytes than the
// container holds.
var ErrNotEnoughData = errors.New("container: not enough data")

// Container is a []byte slice made of compartments, allowing for quick
// appending as well as sequential fetching of varint framed blocks.
type Container struct {
	compartments [][]byte
	offset       int
}

// New creates a new container with optional initial []byte slices. Data will NOT be copied.
func New(data ...[]byte) *Container {
	return &Container{
		compartments: data,
	}
}

// Append appends the given data. Data will NOT be copied.
func (c *Container) Append(data []byte) {
	c.compartments = append(c.compartments, data)
}

// AppendNumber appends a number (varint encoded).
func (c *Container) AppendNumber(n uint64) {
	c.compartments = append(c.compartments, varint.Pack64(n))
}

// AppendAsBlock appends the length of the data and the data itself. Data will NOT be copied.
func (c *Container) AppendAsBlock(data []byte) {
	c.AppendNumber(uint64(len(data)))
	c.Append(data)
}

// AppendString appends a string as a block.
func (c *Container) AppendString(s string) {
	c.AppendAsBlock([]byte(s))
}

// Length returns the full length of all bytes held by the container.
func (c *Container) Length() (length int) {
	for i := c.offset; i < len(c.compartments); i++ {
		length += len(c.compartments[i])
	}
	return
}

// CompileData concatenates all bytes held by the container and returns it as one single []byte slice. Data is NOT consumed.
func (c *Container) CompileData() []byte {
	if len(c.compartments)-c.offset != 1 {
		newBuf := make([]byte, c.Length())
		copyBuf := newBuf
		for i := c.offset; i < len(c.compartments); i++ {
			copy(copyBuf, c.compartments[i])
			copyBuf = copyBuf[len(c.compartments[i]):]
		}
		c.compartments = [][]byte{newBuf}
		c.offset = 0
	}
	return c.compartments[c.offset]
}

// Get returns the given amount of bytes. Data MAY be copied and IS consumed.
func (c *Container) Get(n int) ([]byte, error) {
	if n < 0 || n > c.Length() {
		return nil, ErrNotEnoughData
	}
	buf := c.gather(n)
	if len(buf) < n {
		return nil, ErrNotEnoughData
	}
	c.skip(len(buf))
	return buf, nil
}

// GetNextBlock returns the next block of data defined by a varint. Data MAY be copied and IS consumed.
func (c *Container) GetNextBlock() ([]byte, error) {
	blockSize, err := c.GetNextN64()
	if err != nil {
		return nil, err
	}
	// the length is untrusted, check it before anything is allocated
	if blockSize > uint64(c.Length()) {
		return nil, ErrNotEnoughData
	}
	return c.Get(int(blockSize))
}

// GetNextString returns the next block as a string.
func (c *Container) GetNextString() (string, error) {
	block, err := c.GetNextBlock()
	if err != nil {
		return "", err
	}
	return string(block), nil
}

// GetNextN64 parses and returns a varint of type uint64.
func (c *Container) GetNextN64() (uint64, error) {
	num, n, err := varint.Unpack64(c.gather(10))
	if err != nil {
		return 0, err
	}
	c.skip(n)
	return num, nil
}

func (c *Container) gather(n int) []byte {
	if c.offset >= len(c.compartments) {
		return nil
	}
	// check if first slice holds enough data
	if len(c.compartments[c.offset]) >= n {
		return c.compartments[c.offset][:n]
	}
	// start gathering data
	slice := make([]byte, n)
	copySlice := slice
	n = 0
	for i := c.offset; i < len(c.compartments); i++ {
		copy(copySlice, c.compartments[i])
		if len(copySlice) <= len(c.compartments[i]) {
			n += len(copySlice)
			return slice[:n]
		}
		n += len(c.compartments[i])
		copySlice = copySlice[len(c.compartments[i]):]
	}
	return slice[:n]
}

func (c *Container) skip(n int) {
	for i := c.offset; i < len(c.compartments); i++ {
		if len(c.compartments[i]) <= n {
			n -= len(c.compartments[i])
			c.offset = i + 1
			c.compartments[i] = nil
			if n == 0 {
				return
			}
		} else {
			c.compartments[i] = c.compartments[i][n:]
			return
		}
	}
}
