package compression

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/hashicorp/go-multierror"
)

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// CompressImage compresses a disk image using RLE8 and gzip. The gzip stream is
// closed (and its footer written) before this returns.
//
// The returned int64 gives the number of bytes written to `output`, i.e. the
// final compressed size.
func CompressImage(input io.Reader, output io.Writer) (int64, error) {
	counter := &countingWriter{w: output}
	gzWriter, err := gzip.NewWriterLevel(counter, gzip.BestCompression)
	if err != nil {
		return 0, err
	}

	var result *multierror.Error
	_, err = CompressRLE8(input, gzWriter)
	if err != nil {
		result = multierror.Append(result, err)
	}
	err = gzWriter.Close()
	if err != nil {
		result = multierror.Append(result, err)
	}
	return counter.n, result.ErrorOrNil()
}

// DecompressImage takes a gzipped, RLE8-encoded disk image and decompresses it
// to the original raw bytes.
//
// The returned int64 gives the number of bytes written to the output (i.e. the
// decompressed size of the image). If an error occurred, the value is undefined
// and should not be used.
func DecompressImage(input io.Reader, output io.Writer) (int64, error) {
	gzReader, err := gzip.NewReader(input)
	if err != nil {
		return 0, err
	}
	defer gzReader.Close()
	return DecompressRLE8(gzReader, output)
}

// DecompressImageToBytes is a convenience wrapper around [DecompressImage] that
// returns the decompressed image as a new byte slice.
func DecompressImageToBytes(input io.Reader) ([]byte, error) {
	var buffer bytes.Buffer
	_, err := DecompressImage(input, &buffer)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
