package llfs

import (
	"fmt"

	"github.com/dargueta/llfs/errors"
	c "github.com/dargueta/llfs/file_systems/common"
)

// Capacity errors. Each one matches its own sentinel with [errors.Is] as well
// as the generic errno error it's derived from ([errors.ErrNoSpaceOnDevice] or
// [errors.ErrFileTooLarge]).
var (
	ErrNoFreeInodes     = errors.ErrNoSpaceOnDevice.WithMessage("no free inodes")
	ErrNoFreeDataBlocks = errors.ErrNoSpaceOnDevice.WithMessage("no free data blocks")
	ErrDirectoryFull    = errors.ErrNoSpaceOnDevice.WithMessage("root directory is full")
	ErrFileTooLarge     = errors.ErrFileTooLarge.WithMessage(
		fmt.Sprintf("files can't exceed %d bytes", MaxFileSize))
)

// ErrNotMounted is returned by driver methods called before Mount or Format,
// or after Unmount.
var ErrNotMounted = errors.ErrInvalidFileDescriptor.WithMessage("image is not mounted")

func checkBlock(block c.PhysicalBlock) error {
	if block >= NumBlocks {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("invalid block number: %d not in range [0, %d)", block, NumBlocks),
		)
	}
	return nil
}

func checkInodeBlock(block c.PhysicalBlock) error {
	if block < FirstInodeBlock || block >= EndInodeBlock {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"block %d is not in the inode table [%d, %d)",
				block,
				FirstInodeBlock,
				EndInodeBlock,
			),
		)
	}
	return nil
}

func corruptionf(format string, a ...interface{}) errors.DriverError {
	return errors.ErrFileSystemCorrupted.WithMessage(
		"corruption detected: " + fmt.Sprintf(format, a...))
}
