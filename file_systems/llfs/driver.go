package llfs

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/dargueta/llfs/errors"
	c "github.com/dargueta/llfs/file_systems/common"
	"github.com/hashicorp/go-multierror"
)

// Driver is the public handle to an LLFS image. All methods are safe to call
// from multiple goroutines; they're serialized by a single lock around the
// whole image.
type Driver struct {
	mu        sync.Mutex
	stream    io.ReadWriteSeeker
	store     *Store
	rootBlock c.PhysicalBlock
	isMounted bool
}

// syncer is implemented by streams like [os.File] that can push their own
// buffers to stable storage.
type syncer interface {
	Sync() error
}

func NewDriverFromStream(stream io.ReadWriteSeeker) *Driver {
	return &Driver{
		stream:    stream,
		store:     NewStore(stream),
		rootBlock: c.InvalidPhysicalBlock,
	}
}

// Format creates a new, empty file system on the image, then mounts it.
// Anything already on the image is lost.
func (driver *Driver) Format() error {
	driver.mu.Lock()
	defer driver.mu.Unlock()

	err := Format(driver.store)
	if err != nil {
		driver.isMounted = false
		return err
	}
	return driver.mountLocked()
}

// Mount checks that the image holds a valid file system and prepares the
// driver for use. Mounting an image that's already mounted does nothing.
//
// The image must be exactly [ImageSize] bytes. An image of the wrong size
// fails with [errors.ErrInvalidFileSystem]; one whose housekeeping structures
// are damaged fails with [errors.ErrFileSystemCorrupted].
func (driver *Driver) Mount() error {
	driver.mu.Lock()
	defer driver.mu.Unlock()

	if driver.isMounted {
		return nil
	}

	totalBlocks, err := c.DetermineBlockCount(driver.stream, BlockSize)
	if err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}
	if totalBlocks != NumBlocks {
		return errors.ErrInvalidFileSystem.WithMessage(
			fmt.Sprintf("image must be %d blocks, got %d", NumBlocks, totalBlocks))
	}
	return driver.mountLocked()
}

func (driver *Driver) mountLocked() error {
	rootBlock, err := validate(driver.store)
	if err != nil {
		return err
	}
	driver.rootBlock = rootBlock
	driver.isMounted = true
	return nil
}

func (driver *Driver) checkMounted() error {
	if !driver.isMounted {
		return ErrNotMounted
	}
	return nil
}

// Flush writes out any changes still pending. Writes go straight through to
// the image, so normally there's nothing to do.
func (driver *Driver) Flush() error {
	driver.mu.Lock()
	defer driver.mu.Unlock()

	err := driver.checkMounted()
	if err != nil {
		return err
	}
	return driver.flushLocked()
}

func (driver *Driver) flushLocked() error {
	var result *multierror.Error

	err := driver.store.Flush()
	if err != nil {
		result = multierror.Append(result, err)
	}

	if s, ok := driver.stream.(syncer); ok {
		err = s.Sync()
		if err != nil {
			result = multierror.Append(result, errors.ErrIOFailed.Wrap(err))
		}
	}
	return result.ErrorOrNil()
}

// Unmount flushes all changes to the image. The driver can be mounted again
// afterwards. The stream itself is not closed.
func (driver *Driver) Unmount() error {
	driver.mu.Lock()
	defer driver.mu.Unlock()

	err := driver.checkMounted()
	if err != nil {
		return err
	}

	err = driver.flushLocked()
	driver.isMounted = false
	driver.rootBlock = c.InvalidPhysicalBlock
	return err
}

// CreateFile creates a file called `name` in the root directory holding the
// contents of `source`. See the package-level [CreateFile] for details,
// including what's left behind on failure.
func (driver *Driver) CreateFile(name string, source SourceStream) (Inumber, error) {
	driver.mu.Lock()
	defer driver.mu.Unlock()

	err := driver.checkMounted()
	if err != nil {
		return 0, err
	}
	return CreateFile(driver.store, source, name)
}

// WriteFile is a convenience wrapper for [Driver.CreateFile] that takes the
// file's contents as a byte slice.
func (driver *Driver) WriteFile(name string, data []byte) (Inumber, error) {
	return driver.CreateFile(name, bytes.NewReader(data))
}

// usableInodes excludes inode 255, which is reserved at format time and so
// never free or in use.
const usableInodes = uint(EndInodeBlock-FirstInodeBlock) - 1

// FSStat reports how much of the image is in use. The root directory counts as
// a file.
func (driver *Driver) FSStat() (FSStat, error) {
	driver.mu.Lock()
	defer driver.mu.Unlock()

	err := driver.checkMounted()
	if err != nil {
		return FSStat{}, err
	}

	dataAlloc := DataAllocator(driver.store)
	freeBlocks, err := dataAlloc.CountFree()
	if err != nil {
		return FSStat{}, err
	}

	inodeAlloc := InodeAllocator(driver.store)
	freeInodes, err := inodeAlloc.CountFree()
	if err != nil {
		return FSStat{}, err
	}

	entries, err := ReadEntries(driver.store, driver.rootBlock)
	if err != nil {
		return FSStat{}, err
	}

	return FSStat{
		BlockSize:          BlockSize,
		TotalBlocks:        NumBlocks,
		BlocksFree:         uint64(freeBlocks),
		BlocksAvailable:    uint64(freeBlocks),
		Files:              uint64(usableInodes - freeInodes),
		FilesFree:          uint64(freeInodes),
		MaxNameLength:      MaxNameLength,
		DirectorySlotsFree: DirentsPerBlock - uint(len(entries)),
	}, nil
}

func (driver *Driver) GetFSFeatures() FSFeatures {
	return FSFeatures{
		HasDirectories:    true,
		HasSubdirectories: false,
		HasDeletion:       false,
		HasTimestamps:     false,
		HasPermissions:    false,
		DefaultBlockSize:  BlockSize,
		MinTotalBlocks:    NumBlocks,
		MaxTotalBlocks:    NumBlocks,
		MaxFileSize:       MaxFileSize,
		MaxNameLength:     MaxNameLength,
	}
}
