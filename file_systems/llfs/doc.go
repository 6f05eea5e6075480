/*
Package llfs implements LLFS, a tiny inode-based file system living in a single
2 MiB image of 4096 blocks, 512 bytes each.

The image is divided into fixed zones:

	block 0          inode allocation bitmap
	block 1          data block allocation bitmap (bytes 0-3 double as the root
	                 directory pointer)
	blocks 2-257     inode table, one inode per block; inode N lives in block N+2
	blocks 258-4095  file and directory data

Both bitmaps are indexed by absolute block number, most significant bit first
within each byte, and a set bit means "in use". Each inode holds the file's size,
a type byte, and ten direct block pointers, which caps files at 5120 bytes. The
single and double indirect pointer fields exist in the on-disk record but are
never used.

There is exactly one directory, the root, which occupies one data block and can
therefore hold 16 entries of 32 bytes: a one-byte inode number (0 marks a free
slot) followed by a NUL-padded name of up to 31 bytes.

Files can be created and read back. Nothing is ever freed; there is no delete,
truncate, or rename.

All multi-byte integers are little-endian.
*/
package llfs
