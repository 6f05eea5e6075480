package main

import (
	"log"
	"os"

	"github.com/dargueta/llfs/utilities/debug"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:  "llfs",
		Usage: "Create and manage LLFS disk images",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "debug output level: 1 for allocations, 2 to add block I/O",
			},
		},
		Before: func(context *cli.Context) error {
			debug.SetLevel(uint32(context.Uint("verbose")))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "Create or wipe an image",
				Action:    formatImage,
				ArgsUsage: "IMAGE",
			},
			{
				Name:      "put",
				Usage:     "Copy a file from the host into the image",
				Action:    putFile,
				ArgsUsage: "IMAGE  HOST_FILE  [NAME]",
			},
			{
				Name:      "ls",
				Usage:     "List the files in the image",
				Action:    listFiles,
				ArgsUsage: "IMAGE",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "csv", Usage: "write the listing as CSV"},
				},
			},
			{
				Name:      "cat",
				Usage:     "Write a file's contents to stdout",
				Action:    catFile,
				ArgsUsage: "IMAGE  NAME",
			},
			{
				Name:      "stat",
				Usage:     "Show how much of the image is in use",
				Action:    statImage,
				ArgsUsage: "IMAGE",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "csv", Usage: "write the report as CSV"},
				},
			},
			{
				Name:      "compress",
				Usage:     "Compress an image with RLE8 and gzip",
				Action:    compressImage,
				ArgsUsage: "INPUT  OUTPUT",
			},
			{
				Name:      "decompress",
				Usage:     "Expand an image compressed with `compress`",
				Action:    decompressImage,
				ArgsUsage: "INPUT  OUTPUT",
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}
