// Package basicstream implements a read-only file-like abstraction around a
// block-oriented cache.

package basicstream

import (
	"fmt"
	"io"

	"github.com/dargueta/llfs/errors"
	c "github.com/dargueta/llfs/file_systems/common"
	"github.com/dargueta/llfs/file_systems/common/blockcache"
)

// BasicStream is a file-like wrapper around a BlockCache that emulates the
// reading subset of the functionality provided by an [os.File] instance.
//
// The cache's block 0 is the first block of the stream, regardless of where the
// blocks actually live in the image; the cache's fetch callback does the
// translation.
type BasicStream struct {
	size     int64
	position int64
	data     *blockcache.BlockCache
}

var (
	_ io.ReadSeekCloser = (*BasicStream)(nil)
	_ io.ReaderAt       = (*BasicStream)(nil)
	_ io.WriterTo       = (*BasicStream)(nil)
)

// New creates a BasicStream on top of a block cache. The `size` argument gives
// the exact size of the stream, in bytes. It must be between 0 and
// `data.Size()` (inclusive).
func New(size int64, data *blockcache.BlockCache) (*BasicStream, error) {
	maxSize := data.Size()
	if size < 0 || size > maxSize {
		return nil, errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("invalid stream size: %d not in the range [0, %d]", size, maxSize),
		)
	}

	return &BasicStream{
		size:     size,
		position: 0,
		data:     data,
	}, nil
}

func (stream *BasicStream) convertLinearAddr(offset int64) (c.LogicalBlock, uint) {
	bytesPerBlock := int64(stream.data.BytesPerBlock())
	return c.LogicalBlock(offset / bytesPerBlock), uint(offset % bytesPerBlock)
}

// Close releases the stream. Nothing is buffered for writing, so this never
// fails. The stream must not be used afterwards.
func (stream *BasicStream) Close() error {
	stream.data = nil
	return nil
}

func (stream *BasicStream) Read(buffer []byte) (int, error) {
	totalRead, err := stream.ReadAt(buffer, stream.position)
	stream.position += int64(totalRead)
	return totalRead, err
}

// ReadAt reads up to len(buffer) bytes starting at `offset`. Following
// [io.ReaderAt], a short read always comes with [io.EOF].
func (stream *BasicStream) ReadAt(buffer []byte, offset int64) (int, error) {
	if stream.data == nil {
		return 0, errors.ErrInvalidFileDescriptor
	}
	if offset < 0 {
		return 0, errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("negative read offset: %d", offset),
		)
	}

	bufLen := int64(len(buffer))
	if bufLen == 0 {
		return 0, nil
	}
	if offset >= stream.size {
		return 0, io.EOF
	}

	numBytesToRead := bufLen
	if offset+bufLen > stream.size {
		numBytesToRead = stream.size - offset
	}

	firstBlock, firstBlockOffset := stream.convertLinearAddr(offset)
	lastBlock, _ := stream.convertLinearAddr(offset + numBytesToRead - 1)

	sourceData, err := stream.data.GetSlice(firstBlock, uint(lastBlock-firstBlock)+1)
	if err != nil {
		return 0, err
	}

	copy(buffer, sourceData[firstBlockOffset:firstBlockOffset+uint(numBytesToRead)])

	if numBytesToRead < bufLen {
		return int(numBytesToRead), io.EOF
	}
	return int(numBytesToRead), nil
}

// Seek resets the stream pointer to `offset` bytes from the origin specified in
// `whence`. It must be one of [io.SeekStart], [io.SeekCurrent], or [io.SeekEnd].
//
// Seeking past the end of the stream is allowed; reads from there return
// [io.EOF].
func (stream *BasicStream) Seek(offset int64, whence int) (int64, error) {
	var absoluteOffset int64

	switch whence {
	case io.SeekStart:
		absoluteOffset = offset
	case io.SeekCurrent:
		absoluteOffset = stream.position + offset
	case io.SeekEnd:
		absoluteOffset = stream.size + offset
	default:
		return stream.position, errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("invalid seek origin: %d", whence),
		)
	}

	if absoluteOffset < 0 {
		return stream.position, errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("result of Seek(offset=%d, whence=%d) is negative", offset, whence),
		)
	}

	stream.position = absoluteOffset
	return absoluteOffset, nil
}

// Size returns the size of the stream, in bytes.
func (stream *BasicStream) Size() int64 {
	return stream.size
}

// Tell returns the current stream position. It's a more concise way of calling
// `Seek(0, io.SeekCurrent)`.
func (stream *BasicStream) Tell() int64 {
	return stream.position
}

// WriteTo copies the rest of the stream into `w`, one block at a time.
func (stream *BasicStream) WriteTo(w io.Writer) (int64, error) {
	if stream.data == nil {
		return 0, errors.ErrInvalidFileDescriptor
	}

	buffer := make([]byte, stream.data.BytesPerBlock())
	totalWritten := int64(0)

	for {
		blockSize, readErr := stream.Read(buffer)
		if blockSize > 0 {
			n, writeErr := w.Write(buffer[:blockSize])
			totalWritten += int64(n)
			if writeErr != nil {
				return totalWritten, writeErr
			}
		}

		if readErr == io.EOF {
			return totalWritten, nil
		} else if readErr != nil {
			return totalWritten, readErr
		}
	}
}
