package fuse

import (
	"encoding/binary"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/zeebo/blake3"
)

// inodeFor derives a stable inode number from a virtual path so the same
// entry keeps its number across lookups and remounts. The root is always
// [fuse.FUSE_ROOT_ID].
func inodeFor(p string) uint64 {
	if p == "" || p == "/" {
		return fuse.FUSE_ROOT_ID
	}
	sum := blake3.Sum256([]byte(p))
	ino := binary.LittleEndian.Uint64(sum[:8])
	if ino <= fuse.FUSE_ROOT_ID {
		// 0 is invalid and 1 is the root
		ino += 2
	}
	return ino
}
