package llfs

import (
	goerrors "errors"
	"fmt"
	"io"

	"github.com/dargueta/llfs/errors"
	c "github.com/dargueta/llfs/file_systems/common"
	"github.com/dargueta/llfs/utilities/debug"
)

// CreateFile stores the contents of `source` as a new file called `name` in the
// root directory, and returns the new file's inode number.
//
// Steps happen in this order, and nothing is undone if a later one fails:
//
//  1. The name is normalized and checked against the existing entries. Failing
//     here changes nothing.
//  2. An inode is allocated.
//  3. A free directory slot is found ([ErrDirectoryFull] otherwise).
//  4. The number of data blocks is computed ([ErrFileTooLarge] if over ten).
//  5. The directory entry is written.
//  6. The inode's size and type are written.
//  7. Data blocks are allocated and filled one at a time. Each block is marked
//     occupied and recorded in the inode before its data is written.
//
// A failure in steps 3 or 4 leaves the inode allocated but unreferenced. The
// directory and data bitmap aren't touched in either case.
func CreateFile(store *Store, source SourceStream, name string) (Inumber, error) {
	storedName, err := NormalizeName(name)
	if err != nil {
		return 0, err
	}

	rootBlock, err := ReadRootPointer(store)
	if err != nil {
		return 0, err
	}

	_, err = LookupEntry(store, rootBlock, storedName)
	if err == nil {
		return 0, errors.ErrExists.WithMessage(fmt.Sprintf("%q", storedName))
	} else if !goerrors.Is(err, errors.ErrNotFound) {
		return 0, err
	}

	inodeBlock, err := InodeAllocator(store).Allocate()
	if err != nil {
		return 0, err
	}
	inumber := Inumber(inodeBlock - FirstInodeBlock)

	slot, err := FindFreeSlot(store, rootBlock)
	if err != nil {
		return 0, err
	}

	size := source.Size()
	numBlocks, err := BlocksNeeded(size)
	if err != nil {
		return 0, err
	}

	err = WriteEntry(store, rootBlock, slot, inumber, storedName)
	if err != nil {
		return 0, err
	}

	err = WriteInodeHeader(store, inodeBlock, uint32(size), TypeFile)
	if err != nil {
		return 0, err
	}

	debug.DPrintf(
		debug.LevelAlloc,
		"creating %q: inode %d, slot %d, %d bytes in %d blocks",
		storedName,
		inumber,
		slot,
		size,
		numBlocks,
	)

	remaining := size
	buffer := make([]byte, BlockSize)
	for i := uint(0); i < numBlocks; i++ {
		dataBlock, err := DataAllocator(store).Allocate()
		if err != nil {
			return 0, err
		}

		err = WriteDirectPointer(store, inodeBlock, i, dataBlock)
		if err != nil {
			return 0, err
		}

		chunkSize := int64(BlockSize)
		if remaining < chunkSize {
			chunkSize = remaining
		}

		err = readChunk(source, buffer[:chunkSize], dataBlock)
		if err != nil {
			return 0, err
		}

		err = store.WriteBlock(dataBlock, buffer[:chunkSize])
		if err != nil {
			return 0, err
		}
		remaining -= chunkSize
	}

	return inumber, nil
}

func readChunk(source io.Reader, chunk []byte, dataBlock c.PhysicalBlock) error {
	_, err := io.ReadFull(source, chunk)
	if err == nil {
		return nil
	}
	if goerrors.Is(err, io.EOF) || goerrors.Is(err, io.ErrUnexpectedEOF) {
		err = fmt.Errorf("source ended early while filling block %d: %w", dataBlock, err)
	}
	return errors.ErrIOFailed.Wrap(err)
}
