package main

import (
	"fmt"
	"io"

	"github.com/dargueta/llfs/file_systems/llfs"
	"github.com/gocarina/gocsv"
)

type listingRow struct {
	Name   string `csv:"name"`
	Inode  uint8  `csv:"inode"`
	Size   int64  `csv:"size"`
	Blocks uint   `csv:"blocks"`
}

type usageRow struct {
	BlockSize          uint   `csv:"block_size"`
	TotalBlocks        uint64 `csv:"total_blocks"`
	BlocksFree         uint64 `csv:"blocks_free"`
	Files              uint64 `csv:"files"`
	FilesFree          uint64 `csv:"files_free"`
	DirectorySlotsFree uint   `csv:"directory_slots_free"`
}

func writeListing(w io.Writer, entries []llfs.DirectoryEntry, asCSV bool) error {
	rows := make([]listingRow, len(entries))
	for i := range entries {
		rows[i] = listingRow{
			Name:   entries[i].Name(),
			Inode:  uint8(entries[i].InodeNumber),
			Size:   entries[i].Size(),
			Blocks: entries[i].Nblocks,
		}
	}

	if asCSV {
		return gocsv.Marshal(&rows, w)
	}

	for _, row := range rows {
		_, err := fmt.Fprintf(w, "%3d %6d %2d  %s\n", row.Inode, row.Size, row.Blocks, row.Name)
		if err != nil {
			return err
		}
	}
	return nil
}

func writeUsage(w io.Writer, stat llfs.FSStat, asCSV bool) error {
	row := usageRow{
		BlockSize:          stat.BlockSize,
		TotalBlocks:        stat.TotalBlocks,
		BlocksFree:         stat.BlocksFree,
		Files:              stat.Files,
		FilesFree:          stat.FilesFree,
		DirectorySlotsFree: stat.DirectorySlotsFree,
	}

	if asCSV {
		return gocsv.Marshal([]usageRow{row}, w)
	}

	_, err := fmt.Fprintf(
		w,
		"blocks: %d free of %d (%d bytes each)\nfiles: %d used, %d free, %d directory slots free\n",
		row.BlocksFree,
		row.TotalBlocks,
		row.BlockSize,
		row.Files,
		row.FilesFree,
		row.DirectorySlotsFree,
	)
	return err
}
