package llfs

import (
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/llfs/errors"
	c "github.com/dargueta/llfs/file_systems/common"
	"github.com/dargueta/llfs/utilities/debug"
)

// bitIndex converts a block number into an index for go-bitmap. LLFS bitmaps
// are MSB-first within each byte while go-bitmap is LSB-first, so only the bit
// position within the byte needs to be mirrored.
func bitIndex(block c.PhysicalBlock) int {
	return int(block) ^ 7
}

func checkBitmapRange(rangeStart, rangeEnd c.PhysicalBlock) error {
	if rangeStart >= rangeEnd || rangeEnd > NumBlocks {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"invalid bitmap range [%d, %d); must be a non-empty subset of [0, %d)",
				rangeStart,
				rangeEnd,
				NumBlocks,
			),
		)
	}
	return nil
}

func readBitmap(store *Store, bitmapBlock c.PhysicalBlock) (bitmap.Bitmap, error) {
	data, err := store.ReadBlock(bitmapBlock)
	if err != nil {
		return nil, err
	}
	return bitmap.Bitmap(data), nil
}

// FindFreeBlock returns the lowest block number in [rangeStart, rangeEnd) whose
// bit in `bitmapBlock` is clear. Bits outside the range are never looked at.
// If every bit in the range is set, it returns [errors.ErrNoSpaceOnDevice].
func FindFreeBlock(
	store *Store, bitmapBlock, rangeStart, rangeEnd c.PhysicalBlock,
) (c.PhysicalBlock, error) {
	err := checkBitmapRange(rangeStart, rangeEnd)
	if err != nil {
		return c.InvalidPhysicalBlock, err
	}

	freeMap, err := readBitmap(store, bitmapBlock)
	if err != nil {
		return c.InvalidPhysicalBlock, err
	}

	for block := rangeStart; block < rangeEnd; block++ {
		if !freeMap.Get(bitIndex(block)) {
			return block, nil
		}
	}
	return c.InvalidPhysicalBlock, errors.ErrNoSpaceOnDevice.WithMessage(
		fmt.Sprintf(
			"no clear bit in block %d for range [%d, %d)",
			bitmapBlock,
			rangeStart,
			rangeEnd,
		),
	)
}

// SetBlockAvailability sets (`occupied` = true) or clears the bit for `block`
// in `bitmapBlock`. The bitmap block is rewritten in full, and every other bit
// and byte in it is preserved.
func SetBlockAvailability(
	store *Store, bitmapBlock, block c.PhysicalBlock, occupied bool,
) error {
	err := checkBlock(block)
	if err != nil {
		return err
	}

	freeMap, err := readBitmap(store, bitmapBlock)
	if err != nil {
		return err
	}

	freeMap.Set(bitIndex(block), occupied)
	return store.WriteBlock(bitmapBlock, freeMap.Data(false))
}

// IsBlockOccupied reports whether the bit for `block` in `bitmapBlock` is set.
func IsBlockOccupied(store *Store, bitmapBlock, block c.PhysicalBlock) (bool, error) {
	err := checkBlock(block)
	if err != nil {
		return false, err
	}

	freeMap, err := readBitmap(store, bitmapBlock)
	if err != nil {
		return false, err
	}
	return freeMap.Get(bitIndex(block)), nil
}

// Allocator hands out blocks tracked by one of the two bitmaps. Allocation is
// always first-fit in ascending order, and blocks are never given back.
type Allocator struct {
	store       *Store
	bitmapBlock c.PhysicalBlock
	rangeStart  c.PhysicalBlock
	rangeEnd    c.PhysicalBlock
	// exhausted is returned when every block in the range is taken.
	exhausted errors.DriverError
	name      string
}

// InodeAllocator returns an allocator over the inode table.
func InodeAllocator(store *Store) Allocator {
	return Allocator{
		store:       store,
		bitmapBlock: InodeBitmapBlock,
		rangeStart:  FirstInodeBlock,
		rangeEnd:    EndInodeBlock,
		exhausted:   ErrNoFreeInodes,
		name:        "inode",
	}
}

// DataAllocator returns an allocator over the data area.
func DataAllocator(store *Store) Allocator {
	return Allocator{
		store:       store,
		bitmapBlock: DataBitmapBlock,
		rangeStart:  FirstDataBlock,
		rangeEnd:    EndDataBlock,
		exhausted:   ErrNoFreeDataBlocks,
		name:        "data",
	}
}

// Allocate finds the first free block in the allocator's range and marks it
// occupied before returning it.
func (alloc Allocator) Allocate() (c.PhysicalBlock, error) {
	block, err := FindFreeBlock(alloc.store, alloc.bitmapBlock, alloc.rangeStart, alloc.rangeEnd)
	if err != nil {
		if errors.CastToDriverError(err).Errno() == errors.ENOSPC {
			return c.InvalidPhysicalBlock, alloc.exhausted
		}
		return c.InvalidPhysicalBlock, err
	}

	err = SetBlockAvailability(alloc.store, alloc.bitmapBlock, block, true)
	if err != nil {
		return c.InvalidPhysicalBlock, err
	}

	debug.DPrintf(debug.LevelAlloc, "allocated %s block %d", alloc.name, block)
	return block, nil
}

// CountFree gives the number of clear bits in the allocator's range.
func (alloc Allocator) CountFree() (uint, error) {
	freeMap, err := readBitmap(alloc.store, alloc.bitmapBlock)
	if err != nil {
		return 0, err
	}

	total := uint(0)
	for block := alloc.rangeStart; block < alloc.rangeEnd; block++ {
		if !freeMap.Get(bitIndex(block)) {
			total++
		}
	}
	return total, nil
}

// Size gives the number of blocks in the allocator's range, free or not.
func (alloc Allocator) Size() uint {
	return uint(alloc.rangeEnd - alloc.rangeStart)
}
