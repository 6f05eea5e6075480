package llfs

import (
	"bytes"
	"testing"

	llfstest "github.com/dargueta/llfs/testing"
	"github.com/stretchr/testify/require"
)

// newFormattedStore returns a freshly formatted in-memory image along with the
// raw bytes backing it.
func newFormattedStore(t *testing.T) (*Store, []byte) {
	backing, stream := llfstest.NewMemoryImage(BlockSize, NumBlocks)
	store := NewStore(stream)
	require.NoError(t, Format(store), "formatting failed")
	return store, backing
}

// newBlankStore returns an all-zero, unformatted in-memory image.
func newBlankStore(t *testing.T) (*Store, []byte) {
	backing, stream := llfstest.NewMemoryImage(BlockSize, NumBlocks)
	return NewStore(stream), backing
}

func newFormattedDriver(t *testing.T) (*Driver, []byte) {
	backing, stream := llfstest.NewMemoryImage(BlockSize, NumBlocks)
	driver := NewDriverFromStream(stream)
	require.NoError(t, driver.Format(), "formatting failed")
	return driver, backing
}

func rawBlock(backing []byte, block uint) []byte {
	return backing[block*BlockSize : (block+1)*BlockSize]
}

func cloneBlock(backing []byte, block uint) []byte {
	result := make([]byte, BlockSize)
	copy(result, rawBlock(backing, block))
	return result
}

func bytesOf(s string) *bytes.Reader {
	return bytes.NewReader([]byte(s))
}
