package llfs

import (
	"io"
	"io/fs"
	"os"
	"time"

	c "github.com/dargueta/llfs/file_systems/common"
)

// SourceStream is where [CreateFile] gets a new file's contents from. It needs
// to know the total size up front, since the inode is written before the data.
//
// [bytes.Reader], [strings.Reader], and the streams returned by [Driver.Open]
// all satisfy this. For an [os.File] use [SourceFromFile].
type SourceStream interface {
	io.Reader
	// Size returns the total number of bytes the reader will produce.
	Size() int64
}

type fileSource struct {
	*os.File
	size int64
}

func (source fileSource) Size() int64 {
	return source.size
}

// SourceFromFile turns an open file into a [SourceStream]. The size is taken
// from the file's current position to its end.
func SourceFromFile(file *os.File) (SourceStream, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	position, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	size := info.Size() - position
	if size < 0 {
		size = 0
	}
	return fileSource{File: file, size: size}, nil
}

// FSStat describes the usage of a mounted image, in the manner of statfs(2).
type FSStat struct {
	BlockSize       uint
	TotalBlocks     uint64
	BlocksFree      uint64
	BlocksAvailable uint64
	Files           uint64
	FilesFree       uint64
	MaxNameLength   uint
	// DirectorySlotsFree is the number of files that can still be created
	// before the root directory fills up, no matter how many inodes are free.
	DirectorySlotsFree uint
}

// FSFeatures describes the fixed capabilities of the file system.
type FSFeatures struct {
	HasDirectories    bool
	HasSubdirectories bool
	HasDeletion       bool
	HasTimestamps     bool
	HasPermissions    bool
	DefaultBlockSize  uint
	MinTotalBlocks    uint
	MaxTotalBlocks    uint
	MaxFileSize       uint
	MaxNameLength     uint
}

// FileStat holds what an inode knows about a file.
type FileStat struct {
	InodeNumber Inumber
	Size        int64
	// Mode holds S_IF* type bits plus permission bits. LLFS doesn't store
	// permissions, so they're always 0o777.
	Mode    uint32
	Blocks  []c.PhysicalBlock
	Nblocks uint
	Blksize uint
}

func (stat *FileStat) IsDir() bool {
	return stat.Mode&S_IFMT == S_IFDIR
}

// DirectoryEntry is one file in the root directory. It implements [fs.FileInfo].
type DirectoryEntry struct {
	FileStat
	name string
}

var _ fs.FileInfo = (*DirectoryEntry)(nil)

func (entry *DirectoryEntry) Name() string {
	return entry.name
}

func (entry *DirectoryEntry) Size() int64 {
	return entry.FileStat.Size
}

func (entry *DirectoryEntry) Mode() fs.FileMode {
	mode := fs.FileMode(entry.FileStat.Mode & S_IPERM)
	if entry.FileStat.IsDir() {
		mode |= fs.ModeDir
	}
	return mode
}

// ModTime always returns the zero time. LLFS has no timestamps.
func (entry *DirectoryEntry) ModTime() time.Time {
	return time.Time{}
}

func (entry *DirectoryEntry) IsDir() bool {
	return entry.FileStat.IsDir()
}

// Sys returns a copy of the [FileStat] backing this entry.
func (entry *DirectoryEntry) Sys() interface{} {
	return entry.FileStat
}
