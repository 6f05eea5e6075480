// Package blockcache provides a block-oriented cache that can be used for
// providing a linear view of a single object scattered across discontiguous
// blocks in the disk image, or of the disk image itself.
//
// All block indices begin at 0.

package blockcache

import (
	"fmt"
	"io"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/llfs/errors"
	c "github.com/dargueta/llfs/file_systems/common"
)

// FetchBlockCallback is a pointer to a function that writes the contents of a
// single block from the backing storage into `buffer`. The following guarantees
// apply:
//
// - `blockIndex` is in the range [0, TotalBlocks).
// - `buffer` is always BytesPerBlock bytes.
type FetchBlockCallback func(blockIndex c.LogicalBlock, buffer []byte) error

// FlushBlockCallback is a pointer to a function that writes the contents of the
// given buffer to a block in the backing storage. All restrictions and
// guarantees in [FetchBlockCallback] apply here too.
type FlushBlockCallback func(blockIndex c.LogicalBlock, buffer []byte) error

// ResizeCallback is a pointer to a function that is called to grow or shrink
// the backing storage. It takes one argument, the new total number of blocks.
//
// The implementation of the callback can do anything so long as 1) it doesn't
// modify the data in the surviving blocks; 2) at least the requested number of
// blocks are available once the function returns.
//
// Standard conditions for error codes:
//
//   - [errors.EFBIG]: Can't increase the size of the object because it would
//     exceed some technical limit.
//   - [errors.ENOSPC]: Can't increase the size of the object because there's no
//     space left on the volume.
//   - [errors.ENOTSUP]: The object can't be resized as a general rule.
type ResizeCallback func(newTotalBlocks c.LogicalBlock) error

type BlockCache struct {
	loadedBlocks  bitmap.Bitmap
	dirtyBlocks   bitmap.Bitmap
	fetch         FetchBlockCallback
	flush         FlushBlockCallback
	resize        ResizeCallback
	bytesPerBlock uint
	totalBlocks   uint
	data          []byte
}

// New creates a new BlockCache.
//
// There are three callback functions:
//
//   - `fetchCb` reads a single block from the backing storage.
//   - `flushCb` writes a single block to the backing storage.
//   - `resizeCb` resizes the backing storage to a given number of blocks. If
//     nil is passed for this argument, a stub function is provided that always
//     returns an error with code [errors.ENOTSUP].
func New(
	bytesPerBlock uint,
	totalBlocks uint,
	fetchCb FetchBlockCallback,
	flushCb FlushBlockCallback,
	resizeCb ResizeCallback,
) *BlockCache {
	if resizeCb == nil {
		resizeCb = func(newTotalBlocks c.LogicalBlock) error {
			return errors.ErrNotSupported.WithMessage(
				fmt.Sprintf(
					"resizing is not supported; size fixed at %d bytes",
					bytesPerBlock*totalBlocks,
				),
			)
		}
	}

	return &BlockCache{
		loadedBlocks:  bitmap.New(int(totalBlocks)),
		dirtyBlocks:   bitmap.New(int(totalBlocks)),
		data:          make([]byte, int(bytesPerBlock*totalBlocks)),
		fetch:         fetchCb,
		flush:         flushCb,
		resize:        resizeCb,
		bytesPerBlock: bytesPerBlock,
		totalBlocks:   totalBlocks,
	}
}

// WrapStream creates a [BlockCache] that wraps any [io.ReadWriteSeeker],
// optionally forbidding resizing the stream. To support resizing, `stream` must
// implement [common.Truncator], equivalent to [os.File.Truncate].
//
// Blocks lying partly or wholly past the current end of the stream are read
// back as zeroes.
func WrapStream(
	stream io.ReadWriteSeeker,
	bytesPerBlock uint,
	totalBlocks uint,
	allowResize bool,
) *BlockCache {
	var cache *BlockCache

	fetchCb := func(block c.LogicalBlock, buffer []byte) error {
		err := seekToBlock(stream, block, c.LogicalBlock(cache.totalBlocks), bytesPerBlock)
		if err != nil {
			return err
		}

		n, err := io.ReadFull(stream, buffer)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			for i := n; i < len(buffer); i++ {
				buffer[i] = 0
			}
			return nil
		}
		return err
	}

	flushCb := func(block c.LogicalBlock, buffer []byte) error {
		err := seekToBlock(stream, block, c.LogicalBlock(cache.totalBlocks), bytesPerBlock)
		if err != nil {
			return err
		}
		_, err = stream.Write(buffer)
		return err
	}

	var resizeCb ResizeCallback
	truncator, streamHasTruncate := stream.(c.Truncator)

	if allowResize && streamHasTruncate {
		resizeCb = func(newTotalBlocks c.LogicalBlock) error {
			return truncator.Truncate(int64(newTotalBlocks) * int64(bytesPerBlock))
		}
	} else {
		// Resizing is not allowed, either because the caller forbade it or the
		// stream doesn't support it. Note we don't return ENOSYS here because
		// the functionality *is* supported, but not by this specific stream.
		resizeCb = func(newTotalBlocks c.LogicalBlock) error {
			return errors.ErrNotSupported
		}
	}

	cache = New(bytesPerBlock, totalBlocks, fetchCb, flushCb, resizeCb)
	return cache
}

// seekToBlock sets the stream pointer for a stream to the offset of a block.
func seekToBlock(stream io.Seeker, block, totalBlocks c.LogicalBlock, bytesPerBlock uint) error {
	if block >= totalBlocks {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"invalid block number: %d not in range [0, %d)",
				block,
				totalBlocks,
			),
		)
	}

	blockOffset := int64(block) * int64(bytesPerBlock)
	_, err := stream.Seek(blockOffset, io.SeekStart)
	return err
}

// BytesPerBlock returns the size of a single block, in bytes.
func (cache *BlockCache) BytesPerBlock() uint {
	return cache.bytesPerBlock
}

// TotalBlocks returns the size of the cache, in blocks. To change the size of
// the cache, use the Resize() function.
func (cache *BlockCache) TotalBlocks() uint {
	return cache.totalBlocks
}

// Size gives the size of the cache, in bytes (not blocks!).
func (cache *BlockCache) Size() int64 {
	return int64(cache.bytesPerBlock) * int64(cache.totalBlocks)
}

// LengthToNumBlocks gives the minimum number of blocks required to hold the
// given number of bytes.
func (cache *BlockCache) LengthToNumBlocks(size uint) uint {
	return (size + cache.bytesPerBlock - 1) / cache.bytesPerBlock
}

// checkBounds verifies that `count` blocks can be accessed in the cache
// starting from block `start`. If not, it returns an error describing the exact
// conditions. Accessing zero blocks is only valid at an existing block.
func (cache *BlockCache) checkBounds(start c.LogicalBlock, count uint) error {
	if uint(start) >= cache.totalBlocks {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"invalid block number: %d not in range [0, %d)",
				start,
				cache.totalBlocks,
			),
		)
	}

	if uint(start)+count > cache.totalBlocks {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"can't access %d blocks from block %d; range not in [0, %d)",
				count,
				start,
				cache.totalBlocks,
			),
		)
	}
	return nil
}

// rawSlice returns the cache's storage for the given block range without
// loading anything. Bounds must have been checked already.
func (cache *BlockCache) rawSlice(start c.LogicalBlock, count uint) []byte {
	startOffset := uint(start) * cache.bytesPerBlock
	endOffset := startOffset + (count * cache.bytesPerBlock)
	return cache.data[startOffset:endOffset]
}

// GetSlice returns a slice pointing to the cache's storage, beginning at block
// `start` and continuing for `count` blocks.
//
// If the returned slice is modified, the modified blocks MUST be marked as
// dirty.
func (cache *BlockCache) GetSlice(start c.LogicalBlock, count uint) ([]byte, error) {
	err := cache.loadBlockRange(start, count)
	if err != nil {
		return nil, err
	}
	return cache.rawSlice(start, count), nil
}

// Data returns a slice of the entire cache's data. This requires loading all
// blocks not yet in the cache, so it may incur a one-time performance penalty
// for large objects.
//
// If the returned slice is modified, the modified blocks MUST be marked as
// dirty.
func (cache *BlockCache) Data() ([]byte, error) {
	err := cache.LoadAll()
	if err != nil {
		return nil, err
	}
	return cache.data[:], nil
}

// loadBlockRange ensures that all blocks in the range [start, start + count) are
// present in the cache, and loads any missing ones from storage.
func (cache *BlockCache) loadBlockRange(start c.LogicalBlock, count uint) error {
	err := cache.checkBounds(start, count)
	if err != nil {
		return err
	}

	for blockIndex := int(start); uint(blockIndex) < uint(start)+count; blockIndex++ {
		// Dirty blocks are present by definition, so checking `loadedBlocks` is
		// enough.
		if cache.loadedBlocks.Get(blockIndex) {
			continue
		}

		buffer := cache.rawSlice(c.LogicalBlock(blockIndex), 1)
		err = cache.fetch(c.LogicalBlock(blockIndex), buffer)
		if err != nil {
			return errors.ErrIOFailed.Wrap(
				fmt.Errorf("failed to load block %d from source: %w", blockIndex, err),
			)
		}

		cache.loadedBlocks.Set(blockIndex, true)
		cache.dirtyBlocks.Set(blockIndex, false)
	}

	return nil
}

// FlushRange writes out all dirty blocks (and only dirty blocks) in the range
// [start, start + count) to the underlying storage and marks them as clean.
func (cache *BlockCache) FlushRange(start c.LogicalBlock, count uint) error {
	if count == 0 {
		return nil
	}

	err := cache.checkBounds(start, count)
	if err != nil {
		return err
	}

	for blockIndex := int(start); uint(blockIndex) < uint(start)+count; blockIndex++ {
		// Missing blocks are considered clean, so this skips them too.
		if !cache.dirtyBlocks.Get(blockIndex) {
			continue
		}

		buffer := cache.rawSlice(c.LogicalBlock(blockIndex), 1)
		err = cache.flush(c.LogicalBlock(blockIndex), buffer)
		if err != nil {
			return errors.ErrIOFailed.Wrap(
				fmt.Errorf("failed to flush block %d to storage: %w", blockIndex, err),
			)
		}

		cache.dirtyBlocks.Set(blockIndex, false)
	}

	return nil
}

// LoadAll ensures all missing blocks are loaded from storage into the cache.
func (cache *BlockCache) LoadAll() error {
	if cache.totalBlocks == 0 {
		return nil
	}
	return cache.loadBlockRange(0, cache.totalBlocks)
}

// Flush flushes all dirty blocks from the cache into storage, and marks them
// as clean.
func (cache *BlockCache) Flush() error {
	return cache.FlushRange(0, cache.totalBlocks)
}

// ReadAt fills `buffer` with data beginning at block `start`, loading any
// missing blocks first. `buffer` does not need to be an exact multiple of the
// size of one block.
//
// Attempting to read past the end of the cache will result in an error, and
// `buffer` will be left unmodified.
func (cache *BlockCache) ReadAt(buffer []byte, start c.LogicalBlock) (int, error) {
	numBlocks := cache.LengthToNumBlocks(uint(len(buffer)))
	sourceData, err := cache.GetSlice(start, numBlocks)
	if err != nil {
		return 0, err
	}
	return copy(buffer, sourceData), nil
}

// WriteAt copies data into the cache from `buffer`, beginning at block `start`.
// All modified blocks are marked as dirty. `buffer` does not need to be an
// exact multiple of the size of one block; the unwritten tail of a partially
// written block keeps its previous contents.
//
// Attempting to write past the end of the cache will result in an error, and
// the cache will be left unmodified.
func (cache *BlockCache) WriteAt(buffer []byte, start c.LogicalBlock) (int, error) {
	bufLen := uint(len(buffer))
	numBlocks := cache.LengthToNumBlocks(bufLen)

	err := cache.checkBounds(start, numBlocks)
	if err != nil {
		return 0, err
	}

	// Only a trailing partial block needs its old contents; whole blocks are
	// overwritten completely.
	if bufLen%cache.bytesPerBlock != 0 {
		lastBlock := start + c.LogicalBlock(numBlocks-1)
		err = cache.loadBlockRange(lastBlock, 1)
		if err != nil {
			return 0, err
		}
	}

	n := copy(cache.rawSlice(start, numBlocks), buffer)

	for i := uint(0); i < numBlocks; i++ {
		currentBlockIndex := int(start) + int(i)
		cache.loadedBlocks.Set(currentBlockIndex, true)
		cache.dirtyBlocks.Set(currentBlockIndex, true)
	}
	return n, nil
}

// Resize changes the number of blocks in the cache. Blocks are added to and
// removed from the end.
//
// If the cache size is increased, zeroed-out blocks are appended to the end of
// the slice. These new blocks are treated as dirty, so flushing the cache will
// write them out.
func (cache *BlockCache) Resize(newTotalBlocks uint) error {
	err := cache.resize(c.LogicalBlock(newTotalBlocks))
	if err != nil {
		return err
	}

	newCacheData := make([]byte, newTotalBlocks*cache.bytesPerBlock)
	copy(newCacheData, cache.data)

	newDirtyBlocks := bitmap.New(int(newTotalBlocks))
	newLoadedBlocks := bitmap.New(int(newTotalBlocks))

	keptBlocks := cache.totalBlocks
	if newTotalBlocks < keptBlocks {
		keptBlocks = newTotalBlocks
	}
	for i := 0; i < int(keptBlocks); i++ {
		newDirtyBlocks.Set(i, cache.dirtyBlocks.Get(i))
		newLoadedBlocks.Set(i, cache.loadedBlocks.Get(i))
	}

	// New blocks are zeroed in memory. If we didn't mark them dirty they
	// wouldn't get written, and the storage could keep whatever was there.
	for i := cache.totalBlocks; i < newTotalBlocks; i++ {
		newDirtyBlocks.Set(int(i), true)
		newLoadedBlocks.Set(int(i), true)
	}

	cache.data = newCacheData
	cache.dirtyBlocks = newDirtyBlocks
	cache.loadedBlocks = newLoadedBlocks
	cache.totalBlocks = newTotalBlocks
	return nil
}

// MarkBlockRangeDirty marks a range of blocks as modified. They will be written
// out to the backing storage on the next call to [BlockCache.Flush].
func (cache *BlockCache) MarkBlockRangeDirty(start c.LogicalBlock, count uint) error {
	err := cache.checkBounds(start, count)
	if err != nil {
		return err
	}

	for i := uint(0); i < count; i++ {
		bitIndex := int(start) + int(i)
		cache.dirtyBlocks.Set(bitIndex, true)
		cache.loadedBlocks.Set(bitIndex, true)
	}
	return nil
}

// IsDirty reports whether a block has changes that haven't been flushed.
func (cache *BlockCache) IsDirty(block c.LogicalBlock) bool {
	if uint(block) >= cache.totalBlocks {
		return false
	}
	return cache.dirtyBlocks.Get(int(block))
}
