package llfs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dargueta/llfs/errors"
	c "github.com/dargueta/llfs/file_systems/common"
	"github.com/noxer/bytewriter"
)

// RawInode is the on-disk inode record, stored little-endian at the start of
// the inode's block.
type RawInode struct {
	Size uint32
	Type uint8
	// Direct holds block numbers for the first NumDirectPointers blocks of the
	// object. Only the first BlocksUsed() entries are meaningful.
	Direct [NumDirectPointers]uint16
	// The indirect pointers are part of the format but never used.
	SingleIndirect uint16
	DoubleIndirect uint16
}

func (inode *RawInode) IsFile() bool {
	return inode.Type == TypeFile
}

func (inode *RawInode) IsDir() bool {
	return inode.Type == TypeDirectory
}

// BlocksUsed gives the number of direct pointers in use.
func (inode *RawInode) BlocksUsed() uint {
	return (uint(inode.Size) + BlockSize - 1) / BlockSize
}

// DataBlocks returns the blocks holding the object's contents, in order.
func (inode *RawInode) DataBlocks() []c.PhysicalBlock {
	used := inode.BlocksUsed()
	if used > NumDirectPointers {
		used = NumDirectPointers
	}

	blocks := make([]c.PhysicalBlock, used)
	for i := range blocks {
		blocks[i] = c.PhysicalBlock(inode.Direct[i])
	}
	return blocks
}

// BlocksNeeded gives the number of data blocks required to store `size` bytes.
// Anything over [MaxFileSize] fails with [ErrFileTooLarge].
func BlocksNeeded(size int64) (uint, error) {
	if size < 0 {
		return 0, errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("file size can't be negative, got %d", size))
	}

	count := (size + BlockSize - 1) / BlockSize
	if count > NumDirectPointers {
		return 0, ErrFileTooLarge.WithMessage(
			fmt.Sprintf("%d bytes needs %d blocks, only %d available", size, count, NumDirectPointers),
		)
	}
	return uint(count), nil
}

// WriteInodeHeader sets the size and type fields of an inode. The direct
// pointers and the rest of the block are left untouched.
func WriteInodeHeader(store *Store, inodeBlock c.PhysicalBlock, size uint32, typeFlag uint8) error {
	err := checkInodeBlock(inodeBlock)
	if err != nil {
		return err
	}

	header := make([]byte, inodeDirectOffset)
	writer := bytewriter.New(header)
	binary.Write(writer, binary.LittleEndian, size)
	binary.Write(writer, binary.LittleEndian, typeFlag)

	return store.WriteBytes(inodeBlock, header, inodeSizeOffset)
}

// WriteDirectPointer sets direct pointer number `slot` of an inode to
// `dataBlock`.
func WriteDirectPointer(
	store *Store, inodeBlock c.PhysicalBlock, slot uint, dataBlock c.PhysicalBlock,
) error {
	err := checkInodeBlock(inodeBlock)
	if err != nil {
		return err
	}
	if slot >= NumDirectPointers {
		return errors.ErrArgumentOutOfRange.WithMessage(
			fmt.Sprintf("direct pointer slot %d not in range [0, %d)", slot, NumDirectPointers),
		)
	}
	err = checkBlock(dataBlock)
	if err != nil {
		return err
	}

	pointer := make([]byte, 2)
	binary.LittleEndian.PutUint16(pointer, uint16(dataBlock))
	return store.WriteBytes(inodeBlock, pointer, inodeDirectOffset+2*slot)
}

// ReadInode decodes the inode stored in `inodeBlock`.
//
// A record that can't have been written by this package (an unknown type, a
// file bigger than [MaxFileSize], or a used direct pointer outside the data
// area) fails with [errors.ErrFileSystemCorrupted].
func ReadInode(store *Store, inodeBlock c.PhysicalBlock) (RawInode, error) {
	var inode RawInode

	err := checkInodeBlock(inodeBlock)
	if err != nil {
		return inode, err
	}

	record, err := store.ReadBytes(inodeBlock, InodeRecordSize, 0)
	if err != nil {
		return inode, err
	}

	err = binary.Read(bytes.NewReader(record), binary.LittleEndian, &inode)
	if err != nil {
		return inode, errors.ErrIOFailed.Wrap(err)
	}

	if !inode.IsFile() && !inode.IsDir() {
		return inode, corruptionf("inode in block %d has unknown type 0x%02x", inodeBlock, inode.Type)
	}
	if inode.Size > MaxFileSize {
		return inode, corruptionf(
			"inode in block %d has size %d, max is %d", inodeBlock, inode.Size, MaxFileSize)
	}
	for i, block := range inode.DataBlocks() {
		if !isDataBlock(block) {
			return inode, corruptionf(
				"inode in block %d: direct pointer %d is %d, not in data area [%d, %d)",
				inodeBlock,
				i,
				block,
				FirstDataBlock,
				EndDataBlock,
			)
		}
	}
	return inode, nil
}
