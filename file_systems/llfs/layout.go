package llfs

import (
	c "github.com/dargueta/llfs/file_systems/common"
)

const BlockSize = 512
const NumBlocks = 4096

// ImageSize is the exact size of an LLFS image, in bytes.
const ImageSize = BlockSize * NumBlocks

const InodeBitmapBlock = c.PhysicalBlock(0)
const DataBitmapBlock = c.PhysicalBlock(1)

// FirstInodeBlock and EndInodeBlock bound the inode table, [2, 258).
const FirstInodeBlock = c.PhysicalBlock(2)
const EndInodeBlock = c.PhysicalBlock(258)

// FirstDataBlock and EndDataBlock bound the data area, [258, 4096).
const FirstDataBlock = c.PhysicalBlock(258)
const EndDataBlock = c.PhysicalBlock(NumBlocks)

const NumDirectPointers = 10
const MaxFileSize = NumDirectPointers * BlockSize

// InodeRecordSize is the encoded size of a [RawInode]. The rest of the inode's
// block is unused.
const InodeRecordSize = 29

const (
	inodeSizeOffset   = 0
	inodeTypeOffset   = 4
	inodeDirectOffset = 5
)

const TypeFile = uint8(0xFF)
const TypeDirectory = uint8(0x00)

const DirentSize = 32
const DirentsPerBlock = BlockSize / DirentSize
const MaxNameLength = DirentSize - 1

// rootPointerOffset is where the root directory's data block number is stored
// in DataBitmapBlock. It overlays the bits for blocks 0-31, which are outside
// the data allocator's range.
const rootPointerOffset = 0

// reservedInodeBits are set in the inode bitmap when an image is formatted.
// Block 257 is included so inode 255 is never handed out.
var reservedInodeBits = []c.PhysicalBlock{0, 1, 257, 258, 259, 260, 261, 262, 263}

// reservedDataBits are set in the data bitmap when an image is formatted.
var reservedDataBits = []c.PhysicalBlock{256}

// Inumber is an inode number. Inode N is stored in block N + 2.
type Inumber uint8

// RootInumber is the inode of the root directory. Formatting always assigns it
// first, so no file can ever be given this number.
const RootInumber = Inumber(0)

// InodeBlockOf gives the block an inode is stored in.
func InodeBlockOf(inumber Inumber) c.PhysicalBlock {
	return FirstInodeBlock + c.PhysicalBlock(inumber)
}

// InumberOf is the inverse of [InodeBlockOf]. It fails if `block` isn't in the
// inode table.
func InumberOf(block c.PhysicalBlock) (Inumber, error) {
	err := checkInodeBlock(block)
	if err != nil {
		return 0, err
	}
	return Inumber(block - FirstInodeBlock), nil
}

func isDataBlock(block c.PhysicalBlock) bool {
	return block >= FirstDataBlock && block < EndDataBlock
}
