package llfs

import (
	goerrors "errors"
	"fmt"
	"io"

	"github.com/dargueta/llfs/errors"
	c "github.com/dargueta/llfs/file_systems/common"
	"github.com/dargueta/llfs/file_systems/common/blockcache"
	"github.com/dargueta/llfs/utilities/debug"
)

// Store gives block-granular access to an LLFS image. Every write goes straight
// through to the backing storage before the call returns, so a failed transfer
// is always reported by the operation that caused it.
//
// A Store does no locking of its own. [Driver] serializes access to it.
type Store struct {
	cache *blockcache.BlockCache
}

// NewStore wraps a stream holding an LLFS image. The stream may be shorter than
// [ImageSize] (e.g. a new empty file); missing blocks read back as zeroes.
func NewStore(stream io.ReadWriteSeeker) *Store {
	return &Store{cache: blockcache.WrapStream(stream, BlockSize, NumBlocks, true)}
}

// NewStoreFromCache creates a Store on top of an existing block cache, which
// must have the LLFS geometry.
func NewStoreFromCache(cache *blockcache.BlockCache) (*Store, error) {
	if cache.BytesPerBlock() != BlockSize || cache.TotalBlocks() != NumBlocks {
		return nil, errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"cache must be %d blocks of %d bytes, got %d blocks of %d",
				NumBlocks,
				BlockSize,
				cache.TotalBlocks(),
				cache.BytesPerBlock(),
			),
		)
	}
	return &Store{cache: cache}, nil
}

// TotalBlocks is always [NumBlocks].
func (store *Store) TotalBlocks() uint {
	return store.cache.TotalBlocks()
}

// ReadBlock returns a copy of one block.
func (store *Store) ReadBlock(block c.PhysicalBlock) ([]byte, error) {
	return store.ReadBytes(block, BlockSize, 0)
}

// ReadBytes returns a copy of `size` bytes from `block`, starting `offset`
// bytes into it. The range must lie entirely within the block.
func (store *Store) ReadBytes(block c.PhysicalBlock, size, offset uint) ([]byte, error) {
	err := checkBlock(block)
	if err != nil {
		return nil, err
	}
	err = checkByteRange(size, offset)
	if err != nil {
		return nil, err
	}

	blockData, err := store.cache.GetSlice(c.LogicalBlock(block), 1)
	if err != nil {
		return nil, err
	}

	debug.DPrintf(debug.LevelIO, "read %d bytes at %d:%d", size, block, offset)
	result := make([]byte, size)
	copy(result, blockData[offset:offset+size])
	return result, nil
}

// WriteBlock writes `data` at the start of `block` and fills the rest of the
// block with zeroes. `data` can't be longer than [BlockSize].
func (store *Store) WriteBlock(block c.PhysicalBlock, data []byte) error {
	err := checkBlock(block)
	if err != nil {
		return err
	}
	err = checkByteRange(uint(len(data)), 0)
	if err != nil {
		return err
	}

	padded := make([]byte, BlockSize)
	copy(padded, data)

	_, err = store.cache.WriteAt(padded, c.LogicalBlock(block))
	if err != nil {
		return err
	}

	debug.DPrintf(debug.LevelIO, "wrote block %d (%d bytes of data)", block, len(data))
	return store.cache.FlushRange(c.LogicalBlock(block), 1)
}

// WriteBytes overwrites `len(data)` bytes of `block` starting `offset` bytes in.
// Every other byte of the block is left as it was.
func (store *Store) WriteBytes(block c.PhysicalBlock, data []byte, offset uint) error {
	err := checkBlock(block)
	if err != nil {
		return err
	}
	err = checkByteRange(uint(len(data)), offset)
	if err != nil {
		return err
	}

	blockData, err := store.cache.GetSlice(c.LogicalBlock(block), 1)
	if err != nil {
		return err
	}

	copy(blockData[offset:], data)
	err = store.cache.MarkBlockRangeDirty(c.LogicalBlock(block), 1)
	if err != nil {
		return err
	}

	debug.DPrintf(debug.LevelIO, "wrote %d bytes at %d:%d", len(data), block, offset)
	return store.cache.FlushRange(c.LogicalBlock(block), 1)
}

// Flush writes out anything still pending in the cache. Since every write is
// flushed immediately, this only has work to do after a failed write.
func (store *Store) Flush() error {
	return store.cache.Flush()
}

// zeroAll grows the backing storage to [ImageSize] if it supports resizing,
// then overwrites every block with zeroes.
func (store *Store) zeroAll() error {
	err := store.cache.Resize(NumBlocks)
	if err != nil && !goerrors.Is(err, errors.ErrNotSupported) {
		return errors.CastToDriverError(err)
	}

	_, err = store.cache.WriteAt(make([]byte, ImageSize), 0)
	if err != nil {
		return err
	}
	return store.cache.Flush()
}

func checkByteRange(size, offset uint) error {
	if offset+size > BlockSize {
		return errors.ErrArgumentOutOfRange.WithMessage(
			fmt.Sprintf(
				"can't access %d bytes at offset %d; block is only %d bytes",
				size,
				offset,
				BlockSize,
			),
		)
	}
	return nil
}
