package llfs

// File type and permission bits reported in [FileStat.Mode], with the same
// values as stat(2).
const (
	S_IFMT  = 0o170000
	S_IFDIR = 0o040000
	S_IFREG = 0o100000

	S_IRWXU = 0o700
	S_IRWXG = 0o070
	S_IRWXO = 0o007
	S_IPERM = S_IRWXU | S_IRWXG | S_IRWXO
)

const fileMode = S_IFREG | S_IPERM
const directoryMode = S_IFDIR | S_IPERM
