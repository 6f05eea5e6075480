// Package common contains definitions of fundamental types and functions used
// by the block cache, the streams built on top of it, and the file system.
package common

import (
	"io"
	"math"
)

// LogicalBlock is a block index relative to the start of an object, e.g. the
// third block of a file.
type LogicalBlock uint

// PhysicalBlock is an absolute block index in the disk image.
type PhysicalBlock uint

const InvalidLogicalBlock = LogicalBlock(math.MaxUint)
const InvalidPhysicalBlock = PhysicalBlock(math.MaxUint)

// Truncator is an interface for objects that support a Truncate() method. This
// method must behave just like [os.File.Truncate].
type Truncator interface {
	Truncate(size int64) error
}

// DetermineBlockCount gives the total number of blocks in a stream, rounded down
// to the nearest block. The stream pointer is left at the end of the stream.
func DetermineBlockCount(stream io.Seeker, bytesPerBlock uint) (uint, error) {
	offset, err := stream.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	return uint(offset / int64(bytesPerBlock)), nil
}
