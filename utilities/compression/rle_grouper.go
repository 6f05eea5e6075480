package compression

import (
	"bufio"
	"io"
)

// ByteRun represents a single run of a particular byte value.
type ByteRun struct {
	// Byte is the byte value for this run.
	Byte byte
	// RunLength gives the number of times the byte occurs in the run (not the
	// number of times it's repeated). A valid run always has a length of at
	// least 1.
	RunLength int
}

// InvalidRLERun is returned by [RLEGrouper.GetNextRun] when no run could be
// read, either because the input is exhausted or because of an error.
var InvalidRLERun = ByteRun{Byte: 0, RunLength: 0}

// RLEGrouper splits a byte stream into runs of identical bytes.
type RLEGrouper struct {
	rd *bufio.Reader
}

func NewRLEGrouper(rd io.Reader) RLEGrouper {
	return RLEGrouper{rd: bufio.NewReader(rd)}
}

// GetNextRun returns the next run of identical bytes in the stream. Once the
// input is exhausted it returns [InvalidRLERun] and [io.EOF].
func (grouper RLEGrouper) GetNextRun() (ByteRun, error) {
	firstByte, err := grouper.rd.ReadByte()
	if err != nil {
		return InvalidRLERun, err
	}

	run := ByteRun{Byte: firstByte, RunLength: 1}
	for {
		currentByte, err := grouper.rd.ReadByte()
		if err == io.EOF {
			return run, nil
		} else if err != nil {
			return InvalidRLERun, err
		}

		if currentByte != firstByte {
			// Start of the next run. Push it back for the next call.
			return run, grouper.rd.UnreadByte()
		}
		run.RunLength++
	}
}
