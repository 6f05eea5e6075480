// This file implements the read-only half of the driver.

package llfs

import (
	"io"
	"io/fs"

	"github.com/dargueta/llfs/errors"
	c "github.com/dargueta/llfs/file_systems/common"
	"github.com/dargueta/llfs/file_systems/common/basicstream"
	"github.com/dargueta/llfs/file_systems/common/blockcache"
)

func statFromInode(inumber Inumber, inode *RawInode) FileStat {
	mode := uint32(fileMode)
	if inode.IsDir() {
		mode = directoryMode
	}

	blocks := inode.DataBlocks()
	return FileStat{
		InodeNumber: inumber,
		Size:        int64(inode.Size),
		Mode:        mode,
		Blocks:      blocks,
		Nblocks:     uint(len(blocks)),
		Blksize:     BlockSize,
	}
}

func (driver *Driver) lookupLocked(name string) (FileStat, string, error) {
	err := driver.checkMounted()
	if err != nil {
		return FileStat{}, "", err
	}

	entry, err := LookupEntry(driver.store, driver.rootBlock, name)
	if err != nil {
		return FileStat{}, "", err
	}

	inode, err := ReadInode(driver.store, InodeBlockOf(entry.Inumber))
	if err != nil {
		return FileStat{}, "", err
	}
	return statFromInode(entry.Inumber, &inode), entry.Name, nil
}

// ReadDir lists every file in the root directory, in the order they're stored.
func (driver *Driver) ReadDir() ([]DirectoryEntry, error) {
	driver.mu.Lock()
	defer driver.mu.Unlock()

	err := driver.checkMounted()
	if err != nil {
		return nil, err
	}

	dirents, err := ReadEntries(driver.store, driver.rootBlock)
	if err != nil {
		return nil, err
	}

	result := make([]DirectoryEntry, 0, len(dirents))
	for _, dirent := range dirents {
		inode, err := ReadInode(driver.store, InodeBlockOf(dirent.Inumber))
		if err != nil {
			return nil, err
		}
		result = append(result, DirectoryEntry{
			FileStat: statFromInode(dirent.Inumber, &inode),
			name:     dirent.Name,
		})
	}
	return result, nil
}

// Stat returns information about the file called `name`. A missing file fails
// with [errors.ErrNotFound].
func (driver *Driver) Stat(name string) (FileStat, error) {
	driver.mu.Lock()
	defer driver.mu.Unlock()

	stat, _, err := driver.lookupLocked(name)
	return stat, err
}

// SameFile reports whether two entries returned by [Driver.ReadDir] refer to
// the same inode.
func (driver *Driver) SameFile(fi1, fi2 fs.FileInfo) bool {
	stat1, ok1 := fi1.Sys().(FileStat)
	stat2, ok2 := fi2.Sys().(FileStat)
	return ok1 && ok2 && stat1.InodeNumber == stat2.InodeNumber
}

// Open returns a read-only stream over the contents of the file called `name`.
// The file's blocks are read while the lock is held, so the stream stays valid
// after the driver is unmounted and can be passed straight to
// [Driver.CreateFile] on the same driver.
func (driver *Driver) Open(name string) (*basicstream.BasicStream, error) {
	driver.mu.Lock()
	defer driver.mu.Unlock()

	stat, storedName, err := driver.lookupLocked(name)
	if err != nil {
		return nil, err
	}
	if stat.IsDir() {
		return nil, errors.ErrIsADirectory.WithMessage(storedName)
	}

	contents := make([][]byte, len(stat.Blocks))
	for i, block := range stat.Blocks {
		contents[i], err = driver.store.ReadBlock(block)
		if err != nil {
			return nil, err
		}
	}

	fetch := func(index c.LogicalBlock, buffer []byte) error {
		copy(buffer, contents[index])
		return nil
	}
	flush := func(index c.LogicalBlock, buffer []byte) error {
		return errors.ErrReadOnlyFileSystem
	}

	cache := blockcache.New(BlockSize, uint(len(contents)), fetch, flush, nil)
	return basicstream.New(stat.Size, cache)
}

// ReadFile returns the entire contents of the file called `name`.
func (driver *Driver) ReadFile(name string) ([]byte, error) {
	stream, err := driver.Open(name)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	return io.ReadAll(stream)
}
