package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dargueta/llfs/errors"
	"github.com/dargueta/llfs/file_systems/llfs"
	"github.com/dargueta/llfs/utilities/compression"
	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"
)

func requireArgs(context *cli.Context, min, max int) error {
	n := context.NArg()
	if n < min || n > max {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"%s: expected %s, got %d argument(s)",
				context.Command.Name,
				context.Command.ArgsUsage,
				n,
			),
		)
	}
	return nil
}

// withMountedImage mounts the image at `path`, runs `action` on it, then
// unmounts it and closes the file. Errors from all three are reported.
func withMountedImage(path string, writable bool, action func(*llfs.Driver) error) (err error) {
	flags := os.O_RDONLY
	if writable {
		flags = os.O_RDWR
	}

	file, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := file.Close()
		if closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
	}()

	driver := llfs.NewDriverFromStream(file)
	err = driver.Mount()
	if err != nil {
		return fmt.Errorf("can't mount %s: %w", path, err)
	}

	err = action(driver)
	if writable {
		unmountErr := driver.Unmount()
		if unmountErr != nil {
			err = multierror.Append(err, unmountErr)
		}
	}
	return err
}

func formatImage(context *cli.Context) (err error) {
	err = requireArgs(context, 1, 1)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(context.Args().First(), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := file.Close()
		if closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
	}()

	driver := llfs.NewDriverFromStream(file)
	err = driver.Format()
	if err != nil {
		return err
	}
	return driver.Unmount()
}

func putFile(context *cli.Context) error {
	err := requireArgs(context, 2, 3)
	if err != nil {
		return err
	}

	hostPath := context.Args().Get(1)
	name := context.Args().Get(2)
	if name == "" {
		name = filepath.Base(hostPath)
	}

	hostFile, err := os.Open(hostPath)
	if err != nil {
		return err
	}
	defer hostFile.Close()

	source, err := llfs.SourceFromFile(hostFile)
	if err != nil {
		return err
	}

	return withMountedImage(
		context.Args().First(),
		true,
		func(driver *llfs.Driver) error {
			inumber, err := driver.CreateFile(name, source)
			if err != nil {
				return err
			}
			fmt.Fprintf(context.App.Writer, "%s: inode %d, %d bytes\n", name, inumber, source.Size())
			return nil
		},
	)
}

func listFiles(context *cli.Context) error {
	err := requireArgs(context, 1, 1)
	if err != nil {
		return err
	}

	return withMountedImage(
		context.Args().First(),
		false,
		func(driver *llfs.Driver) error {
			entries, err := driver.ReadDir()
			if err != nil {
				return err
			}
			return writeListing(context.App.Writer, entries, context.Bool("csv"))
		},
	)
}

func catFile(context *cli.Context) error {
	err := requireArgs(context, 2, 2)
	if err != nil {
		return err
	}

	return withMountedImage(
		context.Args().First(),
		false,
		func(driver *llfs.Driver) error {
			stream, err := driver.Open(context.Args().Get(1))
			if err != nil {
				return err
			}
			defer stream.Close()

			_, err = stream.WriteTo(context.App.Writer)
			return err
		},
	)
}

func statImage(context *cli.Context) error {
	err := requireArgs(context, 1, 1)
	if err != nil {
		return err
	}

	return withMountedImage(
		context.Args().First(),
		false,
		func(driver *llfs.Driver) error {
			stat, err := driver.FSStat()
			if err != nil {
				return err
			}
			return writeUsage(context.App.Writer, stat, context.Bool("csv"))
		},
	)
}

// transcode opens `inputPath` for reading and `outputPath` for writing, then
// passes both to `convert`.
func transcode(
	inputPath, outputPath string, convert func(*os.File, *os.File) (int64, error),
) (written int64, err error) {
	input, err := os.Open(inputPath)
	if err != nil {
		return 0, err
	}
	defer input.Close()

	output, err := os.Create(outputPath)
	if err != nil {
		return 0, err
	}
	defer func() {
		closeErr := output.Close()
		if closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
	}()

	return convert(input, output)
}

func compressImage(context *cli.Context) error {
	err := requireArgs(context, 2, 2)
	if err != nil {
		return err
	}

	written, err := transcode(
		context.Args().Get(0),
		context.Args().Get(1),
		func(in, out *os.File) (int64, error) {
			return compression.CompressImage(in, out)
		},
	)
	if err != nil {
		return err
	}
	fmt.Fprintf(context.App.Writer, "Compressed input file to %d bytes.\n", written)
	return nil
}

func decompressImage(context *cli.Context) error {
	err := requireArgs(context, 2, 2)
	if err != nil {
		return err
	}

	written, err := transcode(
		context.Args().Get(0),
		context.Args().Get(1),
		func(in, out *os.File) (int64, error) {
			return compression.DecompressImage(in, out)
		},
	)
	if err != nil {
		return err
	}
	fmt.Fprintf(context.App.Writer, "Expanded input file to %d bytes.\n", written)
	return nil
}
