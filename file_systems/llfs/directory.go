package llfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/dargueta/llfs/errors"
	c "github.com/dargueta/llfs/file_systems/common"
	"github.com/noxer/bytewriter"
)

// RawDirent is a directory entry as stored on disk. An Inumber of 0 marks the
// slot as free; this is safe because inode 0 is always the root directory.
type RawDirent struct {
	Inumber uint8
	Name    [MaxNameLength]byte
}

// Dirent is a decoded, occupied directory entry.
type Dirent struct {
	Slot    uint
	Inumber Inumber
	Name    string
}

// NormalizeName applies the LLFS naming rules to `name` and returns the name
// as it will be stored:
//
//   - One leading "/" is removed, so "/foo" and "foo" are the same file.
//   - The name can't be empty, and can't contain any other "/" since there are
//     no subdirectories. It also can't contain a NUL byte.
//   - Names longer than [MaxNameLength] bytes are silently truncated.
func NormalizeName(name string) (string, error) {
	stripped := strings.TrimPrefix(name, "/")

	if stripped == "" {
		return "", errors.ErrInvalidArgument.WithMessage("file name can't be empty")
	}
	if strings.ContainsRune(stripped, '/') {
		return "", errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("%q: subdirectories are not supported", name))
	}
	if strings.ContainsRune(stripped, 0) {
		return "", errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("%q: file names can't contain NUL", name))
	}

	if len(stripped) > MaxNameLength {
		stripped = stripped[:MaxNameLength]
	}
	return stripped, nil
}

func readRawDirents(store *Store, dirBlock c.PhysicalBlock) ([DirentsPerBlock]RawDirent, error) {
	var dirents [DirentsPerBlock]RawDirent

	data, err := store.ReadBlock(dirBlock)
	if err != nil {
		return dirents, err
	}

	err = binary.Read(bytes.NewReader(data), binary.LittleEndian, &dirents)
	if err != nil {
		return dirents, errors.ErrIOFailed.Wrap(err)
	}
	return dirents, nil
}

func decodeName(raw [MaxNameLength]byte) string {
	end := bytes.IndexByte(raw[:], 0)
	if end < 0 {
		end = MaxNameLength
	}
	return string(raw[:end])
}

// FindFreeSlot returns the index of the first free entry in the directory
// block. If all of them are taken, it returns [ErrDirectoryFull].
func FindFreeSlot(store *Store, dirBlock c.PhysicalBlock) (uint, error) {
	dirents, err := readRawDirents(store, dirBlock)
	if err != nil {
		return 0, err
	}

	for i, dirent := range dirents {
		if dirent.Inumber == 0 {
			return uint(i), nil
		}
	}
	return 0, ErrDirectoryFull
}

// WriteEntry stores an entry for `inumber` named `name` in slot `slot` of the
// directory block. The name goes through [NormalizeName] first. The whole block
// is rewritten, and every other entry in it is preserved.
func WriteEntry(
	store *Store, dirBlock c.PhysicalBlock, slot uint, inumber Inumber, name string,
) error {
	if slot >= DirentsPerBlock {
		return errors.ErrArgumentOutOfRange.WithMessage(
			fmt.Sprintf("directory slot %d not in range [0, %d)", slot, DirentsPerBlock))
	}
	if inumber == RootInumber {
		return errors.ErrInvalidArgument.WithMessage(
			"inode 0 can't be stored in a directory entry")
	}

	storedName, err := NormalizeName(name)
	if err != nil {
		return err
	}

	dirents, err := readRawDirents(store, dirBlock)
	if err != nil {
		return err
	}

	dirents[slot] = RawDirent{Inumber: uint8(inumber)}
	copy(dirents[slot].Name[:], storedName)

	encoded := make([]byte, BlockSize)
	err = binary.Write(bytewriter.New(encoded), binary.LittleEndian, &dirents)
	if err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}
	return store.WriteBlock(dirBlock, encoded)
}

// ReadEntries returns every occupied entry in the directory block, in slot
// order.
func ReadEntries(store *Store, dirBlock c.PhysicalBlock) ([]Dirent, error) {
	dirents, err := readRawDirents(store, dirBlock)
	if err != nil {
		return nil, err
	}

	result := make([]Dirent, 0, DirentsPerBlock)
	for i, raw := range dirents {
		if raw.Inumber == 0 {
			continue
		}
		result = append(result, Dirent{
			Slot:    uint(i),
			Inumber: Inumber(raw.Inumber),
			Name:    decodeName(raw.Name),
		})
	}
	return result, nil
}

// LookupEntry finds the entry named `name` (after normalization) in the
// directory block. It returns [errors.ErrNotFound] if there isn't one.
func LookupEntry(store *Store, dirBlock c.PhysicalBlock, name string) (Dirent, error) {
	storedName, err := NormalizeName(name)
	if err != nil {
		return Dirent{}, err
	}

	entries, err := ReadEntries(store, dirBlock)
	if err != nil {
		return Dirent{}, err
	}

	for _, entry := range entries {
		if entry.Name == storedName {
			return entry, nil
		}
	}
	return Dirent{}, errors.ErrNotFound.WithMessage(fmt.Sprintf("%q", name))
}

// ReadRootPointer returns the root directory's data block as recorded in the
// data bitmap block. The value must point into the data area.
func ReadRootPointer(store *Store) (c.PhysicalBlock, error) {
	raw, err := store.ReadBytes(DataBitmapBlock, 4, rootPointerOffset)
	if err != nil {
		return c.InvalidPhysicalBlock, err
	}

	block := c.PhysicalBlock(binary.LittleEndian.Uint32(raw))
	if !isDataBlock(block) {
		return c.InvalidPhysicalBlock, corruptionf(
			"root directory pointer %d not in data area [%d, %d)",
			block,
			FirstDataBlock,
			EndDataBlock,
		)
	}
	return block, nil
}

func writeRootPointer(store *Store, block c.PhysicalBlock) error {
	raw := make([]byte, 4)
	binary.LittleEndian.PutUint32(raw, uint32(block))
	return store.WriteBytes(DataBitmapBlock, raw, rootPointerOffset)
}
