package llfs

import (
	"testing"

	"github.com/dargueta/llfs/errors"
	c "github.com/dargueta/llfs/file_systems/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Setting then clearing a bit must round-trip for every block in both bitmaps,
// and must never disturb any other bit.
func TestSetBlockAvailability__RoundTripEveryBlock(t *testing.T) {
	store, backing := newBlankStore(t)

	for _, bitmapBlock := range []c.PhysicalBlock{InodeBitmapBlock, DataBitmapBlock} {
		for block := c.PhysicalBlock(0); block < NumBlocks; block++ {
			require.NoError(t, SetBlockAvailability(store, bitmapBlock, block, true))

			occupied, err := IsBlockOccupied(store, bitmapBlock, block)
			require.NoError(t, err)
			require.Truef(t, occupied, "bit %d of bitmap %d not set", block, bitmapBlock)

			require.NoError(t, SetBlockAvailability(store, bitmapBlock, block, false))

			occupied, err = IsBlockOccupied(store, bitmapBlock, block)
			require.NoError(t, err)
			require.Falsef(t, occupied, "bit %d of bitmap %d not cleared", block, bitmapBlock)
		}
		assert.Equal(t, make([]byte, BlockSize), rawBlock(backing, uint(bitmapBlock)))
	}
}

func TestSetBlockAvailability__MSBFirst(t *testing.T) {
	store, backing := newBlankStore(t)

	require.NoError(t, SetBlockAvailability(store, InodeBitmapBlock, 0, true))
	require.NoError(t, SetBlockAvailability(store, InodeBitmapBlock, 9, true))
	require.NoError(t, SetBlockAvailability(store, InodeBitmapBlock, 4095, true))

	bitmapBytes := rawBlock(backing, 0)
	assert.EqualValues(t, 0x80, bitmapBytes[0])
	assert.EqualValues(t, 0x40, bitmapBytes[1])
	assert.EqualValues(t, 0x01, bitmapBytes[511])
}

// Rewriting the data bitmap must leave the root pointer in its first four
// bytes alone.
func TestSetBlockAvailability__PreservesRootPointer(t *testing.T) {
	store, _ := newFormattedStore(t)

	require.NoError(t, SetBlockAvailability(store, DataBitmapBlock, 4000, true))
	require.NoError(t, SetBlockAvailability(store, DataBitmapBlock, 4000, false))

	rootBlock, err := ReadRootPointer(store)
	require.NoError(t, err)
	assert.EqualValues(t, FirstDataBlock, rootBlock)
}

func TestSetBlockAvailability__BadBlock(t *testing.T) {
	store, _ := newBlankStore(t)
	err := SetBlockAvailability(store, InodeBitmapBlock, NumBlocks, true)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

// On a fresh image the first free blocks are the lowest ones not reserved or
// taken by the root directory.
func TestFindFreeBlock__FirstFit(t *testing.T) {
	store, _ := newFormattedStore(t)

	block, err := FindFreeBlock(store, InodeBitmapBlock, FirstInodeBlock, EndInodeBlock)
	require.NoError(t, err)
	assert.EqualValues(t, 3, block)

	block, err = FindFreeBlock(store, DataBitmapBlock, FirstDataBlock, EndDataBlock)
	require.NoError(t, err)
	assert.EqualValues(t, 259, block)

	// Searching doesn't claim anything.
	block, err = FindFreeBlock(store, DataBitmapBlock, FirstDataBlock, EndDataBlock)
	require.NoError(t, err)
	assert.EqualValues(t, 259, block)
}

// Set bits outside the range must not affect the result.
func TestFindFreeBlock__IgnoresBitsOutsideRange(t *testing.T) {
	store, _ := newBlankStore(t)

	require.NoError(t, SetBlockAvailability(store, DataBitmapBlock, 10, true))
	block, err := FindFreeBlock(store, DataBitmapBlock, 10, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 11, block)

	// Same byte as block 10, but the range starts at 13.
	require.NoError(t, SetBlockAvailability(store, DataBitmapBlock, 13, true))
	block, err = FindFreeBlock(store, DataBitmapBlock, 13, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 14, block)
}

func TestFindFreeBlock__Exhausted(t *testing.T) {
	store, _ := newBlankStore(t)
	for block := c.PhysicalBlock(100); block < 104; block++ {
		require.NoError(t, SetBlockAvailability(store, DataBitmapBlock, block, true))
	}

	block, err := FindFreeBlock(store, DataBitmapBlock, 100, 104)
	assert.ErrorIs(t, err, errors.ErrNoSpaceOnDevice)
	assert.Equal(t, c.InvalidPhysicalBlock, block)

	// Block 104 is free, just outside the range.
	block, err = FindFreeBlock(store, DataBitmapBlock, 100, 105)
	require.NoError(t, err)
	assert.EqualValues(t, 104, block)
}

func TestFindFreeBlock__BadRange(t *testing.T) {
	store, _ := newBlankStore(t)

	_, err := FindFreeBlock(store, DataBitmapBlock, 10, 10)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	_, err = FindFreeBlock(store, DataBitmapBlock, 10, NumBlocks+1)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestAllocator__Allocate(t *testing.T) {
	store, _ := newFormattedStore(t)
	alloc := DataAllocator(store)

	before, err := alloc.CountFree()
	require.NoError(t, err)
	assert.EqualValues(t, NumBlocks-FirstDataBlock-1, before)

	first, err := alloc.Allocate()
	require.NoError(t, err)
	second, err := alloc.Allocate()
	require.NoError(t, err)
	assert.EqualValues(t, 259, first)
	assert.EqualValues(t, 260, second)

	after, err := alloc.CountFree()
	require.NoError(t, err)
	assert.Equal(t, before-2, after)

	occupied, err := IsBlockOccupied(store, DataBitmapBlock, first)
	require.NoError(t, err)
	assert.True(t, occupied)
}

func TestAllocator__InodesExhausted(t *testing.T) {
	store, _ := newFormattedStore(t)
	alloc := InodeAllocator(store)

	// Inodes 1 through 254 are available; 0 is the root and 255 is reserved.
	for i := 1; i <= 254; i++ {
		block, err := alloc.Allocate()
		require.NoError(t, err)
		require.EqualValues(t, InodeBlockOf(Inumber(i)), block)
	}

	_, err := alloc.Allocate()
	assert.ErrorIs(t, err, ErrNoFreeInodes)
	assert.ErrorIs(t, err, errors.ErrNoSpaceOnDevice)
	assert.NotErrorIs(t, err, ErrNoFreeDataBlocks)
}
