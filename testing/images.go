package testing

import (
	"bytes"
	"io"
	"testing"

	"github.com/dargueta/llfs/utilities/compression"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// fixedStream hides every method of the wrapped stream other than Read, Write,
// and Seek, so the stream can't be resized.
type fixedStream struct {
	io.ReadWriteSeeker
}

// NewMemoryImage allocates a zeroed buffer of `bytesPerBlock * totalBlocks`
// bytes and returns it along with a fixed-size stream over it. Writes to the
// stream are visible in the returned slice, so tests can inspect the raw image
// bytes directly.
func NewMemoryImage(bytesPerBlock, totalBlocks uint) ([]byte, io.ReadWriteSeeker) {
	backing := make([]byte, bytesPerBlock*totalBlocks)
	return backing, fixedStream{bytesextra.NewReadWriteSeeker(backing)}
}

// StreamOverImage returns a fixed-size stream over an existing image buffer, so
// a test can remount an image it already holds the bytes of.
func StreamOverImage(image []byte) io.ReadWriteSeeker {
	return fixedStream{bytesextra.NewReadWriteSeeker(image)}
}

// LoadDiskImage takes a compressed disk image and returns a stream to access the
// uncompressed data.
//
//   - Writes to the stream do not affect `compressedImageBytes`.
//   - While the stream can be written to, its size is fixed to
//     `bytesPerBlock * totalBlocks`. Attempting to write past the end of this
//     buffer will trigger an error.
func LoadDiskImage(
	t *testing.T, compressedImageBytes []byte, bytesPerBlock, totalBlocks uint,
) ([]byte, io.ReadWriteSeeker) {
	compressedBuf := bytes.NewBuffer(compressedImageBytes)
	require.Greater(t, len(compressedImageBytes), 0, "compressed image is empty")

	imageBytes, err := compression.DecompressImageToBytes(compressedBuf)
	require.NoError(t, err)

	require.Equal(
		t,
		totalBlocks*bytesPerBlock,
		uint(len(imageBytes)),
		"uncompressed image is wrong size",
	)
	return imageBytes, fixedStream{bytesextra.NewReadWriteSeeker(imageBytes)}
}

// CompressImage is the inverse of [LoadDiskImage]. It's used by tests that need
// to round-trip a whole image through the on-disk compressed form.
func CompressImage(t *testing.T, image []byte) []byte {
	var out bytes.Buffer
	_, err := compression.CompressImage(bytes.NewReader(image), &out)
	require.NoError(t, err, "failed to compress image")
	return out.Bytes()
}
