package llfs

import (
	"fmt"

	"github.com/dargueta/llfs/errors"
	c "github.com/dargueta/llfs/file_systems/common"
	"github.com/dargueta/llfs/utilities/debug"
)

// Format writes an empty LLFS file system to the store, destroying anything
// that was there before.
//
// Every block is zeroed (growing the backing storage to [ImageSize] first if it
// can be resized), the reserved bitmap bits are set, and the root directory is
// created. The root directory always ends up with inode 0 and data block 258.
func Format(store *Store) error {
	err := store.zeroAll()
	if err != nil {
		return err
	}

	for _, block := range reservedInodeBits {
		err = SetBlockAvailability(store, InodeBitmapBlock, block, true)
		if err != nil {
			return err
		}
	}
	for _, block := range reservedDataBits {
		err = SetBlockAvailability(store, DataBitmapBlock, block, true)
		if err != nil {
			return err
		}
	}

	rootInodeBlock, err := InodeAllocator(store).Allocate()
	if err != nil {
		return err
	}
	if rootInodeBlock != InodeBlockOf(RootInumber) {
		return errors.ErrFileSystemCorrupted.WithMessage(
			fmt.Sprintf("root directory got inode block %d on a blank image", rootInodeBlock))
	}

	rootDataBlock, err := DataAllocator(store).Allocate()
	if err != nil {
		return err
	}

	err = WriteInodeHeader(store, rootInodeBlock, BlockSize, TypeDirectory)
	if err != nil {
		return err
	}
	err = WriteDirectPointer(store, rootInodeBlock, 0, rootDataBlock)
	if err != nil {
		return err
	}

	err = writeRootPointer(store, rootDataBlock)
	if err != nil {
		return err
	}

	debug.DPrintf(
		debug.LevelAlloc,
		"formatted image: root inode block %d, root data block %d",
		rootInodeBlock,
		rootDataBlock,
	)
	return nil
}

// validate checks that the store holds something [Format] could have produced,
// and returns the root directory's data block.
func validate(store *Store) (c.PhysicalBlock, error) {
	for _, block := range reservedInodeBits {
		occupied, err := IsBlockOccupied(store, InodeBitmapBlock, block)
		if err != nil {
			return c.InvalidPhysicalBlock, err
		} else if !occupied {
			return c.InvalidPhysicalBlock, corruptionf("reserved bit %d in inode bitmap is clear", block)
		}
	}
	for _, block := range reservedDataBits {
		occupied, err := IsBlockOccupied(store, DataBitmapBlock, block)
		if err != nil {
			return c.InvalidPhysicalBlock, err
		} else if !occupied {
			return c.InvalidPhysicalBlock, corruptionf("reserved bit %d in data bitmap is clear", block)
		}
	}

	rootDataBlock, err := ReadRootPointer(store)
	if err != nil {
		return c.InvalidPhysicalBlock, err
	}

	occupied, err := IsBlockOccupied(store, DataBitmapBlock, rootDataBlock)
	if err != nil {
		return c.InvalidPhysicalBlock, err
	} else if !occupied {
		return c.InvalidPhysicalBlock, corruptionf("root directory block %d is marked free", rootDataBlock)
	}

	rootInodeBlock := InodeBlockOf(RootInumber)
	occupied, err = IsBlockOccupied(store, InodeBitmapBlock, rootInodeBlock)
	if err != nil {
		return c.InvalidPhysicalBlock, err
	} else if !occupied {
		return c.InvalidPhysicalBlock, corruptionf("root directory inode is marked free")
	}

	rootInode, err := ReadInode(store, rootInodeBlock)
	if err != nil {
		return c.InvalidPhysicalBlock, err
	}
	if !rootInode.IsDir() {
		return c.InvalidPhysicalBlock, corruptionf("root inode is not a directory")
	}
	if rootInode.Size != BlockSize || c.PhysicalBlock(rootInode.Direct[0]) != rootDataBlock {
		return c.InvalidPhysicalBlock, corruptionf(
			"root inode (size %d, block %d) disagrees with root pointer %d",
			rootInode.Size,
			rootInode.Direct[0],
			rootDataBlock,
		)
	}
	return rootDataBlock, nil
}
