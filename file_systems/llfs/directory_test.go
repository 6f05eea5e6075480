package llfs

import (
	"strings"
	"testing"

	"github.com/dargueta/llfs/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootDirectory__FreshHasSixteenEmptySlots(t *testing.T) {
	store, backing := newFormattedStore(t)

	rootBlock, err := ReadRootPointer(store)
	require.NoError(t, err)

	entries, err := ReadEntries(store, rootBlock)
	require.NoError(t, err)
	assert.Empty(t, entries)

	slot, err := FindFreeSlot(store, rootBlock)
	require.NoError(t, err)
	assert.EqualValues(t, 0, slot)

	assert.Equal(t, make([]byte, BlockSize), rawBlock(backing, uint(rootBlock)))
}

func TestNormalizeName(t *testing.T) {
	valid := []struct{ input, expected string }{
		{"foo", "foo"},
		{"/foo", "foo"},
		{"a.b-c_d", "a.b-c_d"},
		{strings.Repeat("x", 31), strings.Repeat("x", 31)},
		{strings.Repeat("y", 40), strings.Repeat("y", 31)},
		{"/" + strings.Repeat("z", 35), strings.Repeat("z", 31)},
	}
	for _, tc := range valid {
		result, err := NormalizeName(tc.input)
		if assert.NoErrorf(t, err, "%q should be valid", tc.input) {
			assert.Equal(t, tc.expected, result)
		}
	}

	for _, input := range []string{"", "/", "//foo", "a/b", "/a/b", "nul\x00here"} {
		_, err := NormalizeName(input)
		assert.ErrorIsf(t, err, errors.ErrInvalidArgument, "%q should be rejected", input)
	}
}

func TestWriteEntry__Layout(t *testing.T) {
	store, backing := newFormattedStore(t)
	rootBlock, err := ReadRootPointer(store)
	require.NoError(t, err)

	require.NoError(t, WriteEntry(store, rootBlock, 2, 9, "/hello.txt"))

	raw := rawBlock(backing, uint(rootBlock))
	assert.EqualValues(t, 9, raw[64])
	expectedName := make([]byte, MaxNameLength)
	copy(expectedName, "hello.txt")
	assert.Equal(t, expectedName, raw[65:96])

	// Everything else is still zero.
	assert.Equal(t, make([]byte, 64), raw[:64])
	assert.Equal(t, make([]byte, BlockSize-96), raw[96:])
}

// A 31-byte name fills the field completely and has no terminator.
func TestWriteEntry__FullLengthName(t *testing.T) {
	store, _ := newFormattedStore(t)
	rootBlock, err := ReadRootPointer(store)
	require.NoError(t, err)

	longName := strings.Repeat("n", 45)
	require.NoError(t, WriteEntry(store, rootBlock, 0, 1, longName))

	entries, err := ReadEntries(store, rootBlock)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, longName[:31], entries[0].Name)
}

func TestWriteEntry__PreservesOtherSlots(t *testing.T) {
	store, _ := newFormattedStore(t)
	rootBlock, err := ReadRootPointer(store)
	require.NoError(t, err)

	require.NoError(t, WriteEntry(store, rootBlock, 0, 1, "first"))
	require.NoError(t, WriteEntry(store, rootBlock, 15, 2, "last"))
	require.NoError(t, WriteEntry(store, rootBlock, 7, 3, "middle"))

	entries, err := ReadEntries(store, rootBlock)
	require.NoError(t, err)
	assert.Equal(
		t,
		[]Dirent{
			{Slot: 0, Inumber: 1, Name: "first"},
			{Slot: 7, Inumber: 3, Name: "middle"},
			{Slot: 15, Inumber: 2, Name: "last"},
		},
		entries,
	)

	slot, err := FindFreeSlot(store, rootBlock)
	require.NoError(t, err)
	assert.EqualValues(t, 1, slot)
}

func TestWriteEntry__BadArguments(t *testing.T) {
	store, _ := newFormattedStore(t)
	rootBlock, err := ReadRootPointer(store)
	require.NoError(t, err)

	err = WriteEntry(store, rootBlock, DirentsPerBlock, 1, "x")
	assert.ErrorIs(t, err, errors.ErrArgumentOutOfRange)

	err = WriteEntry(store, rootBlock, 0, RootInumber, "x")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	err = WriteEntry(store, rootBlock, 0, 1, "a/b")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestFindFreeSlot__Full(t *testing.T) {
	store, _ := newFormattedStore(t)
	rootBlock, err := ReadRootPointer(store)
	require.NoError(t, err)

	for slot := uint(0); slot < DirentsPerBlock; slot++ {
		require.NoError(t, WriteEntry(store, rootBlock, slot, Inumber(slot+1), "f"))
	}

	_, err = FindFreeSlot(store, rootBlock)
	assert.ErrorIs(t, err, ErrDirectoryFull)
	assert.ErrorIs(t, err, errors.ErrNoSpaceOnDevice)
}

func TestLookupEntry(t *testing.T) {
	store, _ := newFormattedStore(t)
	rootBlock, err := ReadRootPointer(store)
	require.NoError(t, err)
	require.NoError(t, WriteEntry(store, rootBlock, 3, 12, "/notes"))

	entry, err := LookupEntry(store, rootBlock, "notes")
	require.NoError(t, err)
	assert.EqualValues(t, 12, entry.Inumber)
	assert.EqualValues(t, 3, entry.Slot)

	entry, err = LookupEntry(store, rootBlock, "/notes")
	require.NoError(t, err)
	assert.EqualValues(t, 12, entry.Inumber)

	_, err = LookupEntry(store, rootBlock, "missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestReadRootPointer__Corrupted(t *testing.T) {
	store, _ := newBlankStore(t)
	_, err := ReadRootPointer(store)
	assert.ErrorIs(t, err, errors.ErrFileSystemCorrupted)
}
