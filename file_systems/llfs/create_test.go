package llfs

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"strings"
	"testing"

	"github.com/dargueta/llfs/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shortSource claims to be bigger than the data it actually has.
type shortSource struct {
	*bytes.Reader
	claimedSize int64
}

func (s shortSource) Size() int64 {
	return s.claimedSize
}

func randomBytes(t *testing.T, size int) []byte {
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)
	return data
}

func TestCreateFile__ThreeBlocks(t *testing.T) {
	store, backing := newFormattedStore(t)
	contents := randomBytes(t, 1200)

	freeBefore, err := DataAllocator(store).CountFree()
	require.NoError(t, err)

	inumber, err := CreateFile(store, bytes.NewReader(contents), "/data.bin")
	require.NoError(t, err)
	assert.EqualValues(t, 1, inumber)

	freeAfter, err := DataAllocator(store).CountFree()
	require.NoError(t, err)
	assert.Equal(t, freeBefore-3, freeAfter, "wrong number of data blocks allocated")

	inode, err := ReadInode(store, InodeBlockOf(inumber))
	require.NoError(t, err)
	assert.EqualValues(t, 1200, inode.Size, "size must be exact")
	assert.True(t, inode.IsFile())
	assert.Equal(t, []uint16{259, 260, 261}, inode.Direct[:3])
	assert.Equal(t, make([]uint16, 7), inode.Direct[3:])

	// Data is laid out in order, and the tail of the last block is zeroed.
	assert.Equal(t, contents[:512], rawBlock(backing, 259))
	assert.Equal(t, contents[512:1024], rawBlock(backing, 260))
	assert.Equal(t, contents[1024:], rawBlock(backing, 261)[:176])
	assert.Equal(t, make([]byte, 512-176), rawBlock(backing, 261)[176:])

	// Retrievable through a directory scan.
	rootBlock, err := ReadRootPointer(store)
	require.NoError(t, err)
	entries, err := ReadEntries(store, rootBlock)
	require.NoError(t, err)
	assert.Equal(t, []Dirent{{Slot: 0, Inumber: 1, Name: "data.bin"}}, entries)
}

func TestCreateFile__Empty(t *testing.T) {
	store, _ := newFormattedStore(t)
	freeBefore, err := DataAllocator(store).CountFree()
	require.NoError(t, err)

	inumber, err := CreateFile(store, bytes.NewReader(nil), "empty")
	require.NoError(t, err)

	inode, err := ReadInode(store, InodeBlockOf(inumber))
	require.NoError(t, err)
	assert.EqualValues(t, 0, inode.Size)
	assert.Empty(t, inode.DataBlocks())

	freeAfter, err := DataAllocator(store).CountFree()
	require.NoError(t, err)
	assert.Equal(t, freeBefore, freeAfter)
}

func TestCreateFile__MaxSize(t *testing.T) {
	store, _ := newFormattedStore(t)
	inumber, err := CreateFile(store, bytes.NewReader(randomBytes(t, MaxFileSize)), "big")
	require.NoError(t, err)

	inode, err := ReadInode(store, InodeBlockOf(inumber))
	require.NoError(t, err)
	assert.EqualValues(t, NumDirectPointers, inode.BlocksUsed())
}

// A file one byte too big is rejected without touching the directory or the
// data bitmap. Only the inode it claimed stays allocated.
func TestCreateFile__TooLarge(t *testing.T) {
	store, backing := newFormattedStore(t)
	rootBlock, err := ReadRootPointer(store)
	require.NoError(t, err)

	directoryBefore := cloneBlock(backing, uint(rootBlock))
	dataBitmapBefore := cloneBlock(backing, uint(DataBitmapBlock))
	freeInodesBefore, err := InodeAllocator(store).CountFree()
	require.NoError(t, err)

	_, err = CreateFile(store, bytes.NewReader(make([]byte, MaxFileSize+1)), "huge")
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.ErrorIs(t, err, errors.ErrFileTooLarge)

	assert.Equal(t, directoryBefore, rawBlock(backing, uint(rootBlock)), "directory was modified")
	assert.Equal(t, dataBitmapBefore, rawBlock(backing, uint(DataBitmapBlock)), "data bitmap was modified")

	freeInodesAfter, err := InodeAllocator(store).CountFree()
	require.NoError(t, err)
	assert.Equal(t, freeInodesBefore-1, freeInodesAfter, "inode should stay claimed")
}

// The directory holds sixteen files. They get inodes 1 through 16, and the
// seventeenth fails.
func TestCreateFile__DirectoryFull(t *testing.T) {
	store, _ := newFormattedStore(t)

	for i := 1; i <= DirentsPerBlock; i++ {
		inumber, err := CreateFile(store, strings.NewReader("x"), fmt.Sprintf("file%02d", i))
		require.NoError(t, err)
		assert.EqualValues(t, i, inumber)
	}

	_, err := CreateFile(store, strings.NewReader("x"), "one-too-many")
	assert.ErrorIs(t, err, ErrDirectoryFull)
	assert.NotErrorIs(t, err, ErrNoFreeInodes)

	rootBlock, err := ReadRootPointer(store)
	require.NoError(t, err)
	entries, err := ReadEntries(store, rootBlock)
	require.NoError(t, err)
	require.Len(t, entries, DirentsPerBlock)
	for i, entry := range entries {
		assert.Equal(t, fmt.Sprintf("file%02d", i+1), entry.Name)
	}
}

// A rejected name must not allocate anything.
func TestCreateFile__BadNames(t *testing.T) {
	store, backing := newFormattedStore(t)
	_, err := CreateFile(store, strings.NewReader("first"), "taken")
	require.NoError(t, err)

	inodeBitmapBefore := cloneBlock(backing, uint(InodeBitmapBlock))
	dataBitmapBefore := cloneBlock(backing, uint(DataBitmapBlock))

	_, err = CreateFile(store, strings.NewReader("second"), "/taken")
	assert.ErrorIs(t, err, errors.ErrExists)

	_, err = CreateFile(store, strings.NewReader("second"), "")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	_, err = CreateFile(store, strings.NewReader("second"), "dir/file")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	assert.Equal(t, inodeBitmapBefore, rawBlock(backing, uint(InodeBitmapBlock)))
	assert.Equal(t, dataBitmapBefore, rawBlock(backing, uint(DataBitmapBlock)))
}

// Names that only differ past the 31st byte collide once truncated.
func TestCreateFile__TruncatedNamesCollide(t *testing.T) {
	store, _ := newFormattedStore(t)
	prefix := strings.Repeat("p", MaxNameLength)

	_, err := CreateFile(store, strings.NewReader("a"), prefix+"-one")
	require.NoError(t, err)

	_, err = CreateFile(store, strings.NewReader("b"), prefix+"-two")
	assert.ErrorIs(t, err, errors.ErrExists)
}

func TestCreateFile__ShortSource(t *testing.T) {
	store, _ := newFormattedStore(t)
	source := shortSource{Reader: bytes.NewReader(make([]byte, 600)), claimedSize: 1100}

	_, err := CreateFile(store, source, "liar")
	assert.ErrorIs(t, err, errors.ErrIOFailed)
}

func TestCreateFile__OutOfDataBlocks(t *testing.T) {
	store, _ := newFormattedStore(t)

	// Leave exactly one data block free.
	alloc := DataAllocator(store)
	free, err := alloc.CountFree()
	require.NoError(t, err)
	for i := uint(0); i < free-1; i++ {
		_, err = alloc.Allocate()
		require.NoError(t, err)
	}

	_, err = CreateFile(store, bytes.NewReader(make([]byte, 700)), "two-blocks")
	assert.ErrorIs(t, err, ErrNoFreeDataBlocks)
	assert.ErrorIs(t, err, errors.ErrNoSpaceOnDevice)
}
