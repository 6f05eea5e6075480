// Package debug provides leveled trace logging for the file system internals.
//
// Messages at or below the current level are written through the standard
// library's default logger. The level is 0 (silent) unless a caller raises it,
// which the command line tool does for `--verbose`.
package debug

import (
	"log"
	"sync/atomic"
)

const (
	// LevelAlloc traces inode and data block allocation.
	LevelAlloc uint32 = 1
	// LevelIO traces every block transfer.
	LevelIO uint32 = 2
)

var level uint32

// SetLevel changes the verbosity and returns the previous level.
func SetLevel(newLevel uint32) uint32 {
	return atomic.SwapUint32(&level, newLevel)
}

// Level returns the current verbosity.
func Level() uint32 {
	return atomic.LoadUint32(&level)
}

func DPrintf(msgLevel uint32, format string, a ...interface{}) {
	if msgLevel <= Level() {
		log.Printf(format, a...)
	}
}
