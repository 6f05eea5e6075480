// Package compression shrinks LLFS disk images for storage and transport.
//
// A freshly formatted LLFS image is 2 MiB, and almost all of it is null bytes:
// the two bitmaps hold a handful of set bits, the inode table holds one record
// per file, and the data area holds at most a few kilobytes per file. Storing
// test fixtures or snapshots raw would waste nearly all of that space.
//
// Images are compressed in two stages. First the raw bytes are run-length
// encoded with RLE8, then the result is gzipped. Run-length encoding alone turns
// an empty image into a few kilobytes of repeated `00 00 FF` triples, which gzip
// then folds down to well under a hundred bytes.
//
// RLE8 is the scheme used by the BMP file format. If a byte B occurs N times in
// a row where N >= 2, B is written twice, followed by a third (unsigned) byte
// giving how many *additional* times B occurred. For example:
//
//	WXXXXXXXXXXXXXXXYZZ
//	W XX 13 Y ZZ 0
//
// One triple covers at most 257 bytes, so longer runs are split. A run of 300
// "X" is stored as `XX 255 XX 41`. Because a byte acts as its own escape
// sequence, a pair of identical bytes costs three bytes of output.
package compression
