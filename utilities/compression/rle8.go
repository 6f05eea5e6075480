package compression

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// maxRunPerTriple is the longest run a single `B B n` triple can encode.
const maxRunPerTriple = 257

// CompressRLE8 reads bytes from the input and writes RLE8-encoded data to the
// output until the input is exhausted. The return value is the number of bytes
// written, only valid if no error occurred.
func CompressRLE8(input io.Reader, output io.Writer) (int64, error) {
	grouper := NewRLEGrouper(input)
	totalBytesWritten := int64(0)

	emit := func(chunk ...byte) error {
		n, err := output.Write(chunk)
		totalBytesWritten += int64(n)
		return err
	}

	for {
		run, err := grouper.GetNextRun()
		if errors.Is(err, io.EOF) {
			return totalBytesWritten, nil
		} else if err != nil {
			return totalBytesWritten, err
		}

		for run.RunLength >= 2 {
			chunkLength := run.RunLength
			if chunkLength > maxRunPerTriple {
				chunkLength = maxRunPerTriple
			}

			err = emit(run.Byte, run.Byte, byte(chunkLength-2))
			if err != nil {
				return totalBytesWritten, err
			}
			run.RunLength -= chunkLength
		}

		if run.RunLength == 1 {
			err = emit(run.Byte)
			if err != nil {
				return totalBytesWritten, err
			}
		}
	}
}

// DecompressRLE8 is the inverse of [CompressRLE8]. A pair of identical bytes at
// the very end of the input, with no repeat count after it, is an error wrapping
// [io.ErrUnexpectedEOF].
func DecompressRLE8(input io.Reader, output io.Writer) (int64, error) {
	source := bufio.NewReader(input)
	previousByte := -1
	totalBytesWritten := int64(0)

	for {
		currentByte, err := source.ReadByte()
		if errors.Is(err, io.EOF) {
			return totalBytesWritten, nil
		} else if err != nil {
			return totalBytesWritten, fmt.Errorf("error reading input: %w", err)
		}

		var chunk []byte
		if int(currentByte) != previousByte {
			previousByte = int(currentByte)
			chunk = []byte{currentByte}
		} else {
			repeatCount, err := source.ReadByte()
			if errors.Is(err, io.EOF) {
				return totalBytesWritten, fmt.Errorf(
					"%w: missing repeat count after two %02x bytes",
					io.ErrUnexpectedEOF,
					currentByte,
				)
			} else if err != nil {
				return totalBytesWritten, fmt.Errorf("error reading input: %w", err)
			}

			// The first byte of the pair was already written on the previous
			// iteration, so only the second one and the repeats are left.
			chunk = bytes.Repeat([]byte{currentByte}, int(repeatCount)+1)

			// A triple ends the group. Without this reset, a run longer than
			// 257 bytes would pair the next triple's first byte with this one.
			previousByte = -1
		}

		n, err := output.Write(chunk)
		totalBytesWritten += int64(n)
		if err != nil {
			return totalBytesWritten, fmt.Errorf("failed to write to output: %w", err)
		}
	}
}
