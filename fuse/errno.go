package fuse

import (
	"context"
	"errors"
	"syscall"

	"github.com/brettbedarf/zkfs"
)

// ToErrno maps zkfs errors onto the errno the kernel reports to callers
func ToErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, zkfs.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, zkfs.ErrPermissionDenied):
		return syscall.EACCES
	case errors.Is(err, zkfs.ErrExists):
		return syscall.EEXIST
	case errors.Is(err, zkfs.ErrNotEmpty):
		return syscall.ENOTEMPTY
	case errors.Is(err, zkfs.ErrNoParent):
		return syscall.ENOENT
	case errors.Is(err, zkfs.ErrNotLeaf):
		return syscall.EISDIR
	case errors.Is(err, zkfs.ErrInvalidOperation):
		return syscall.EPERM
	case errors.Is(err, context.Canceled):
		return syscall.EINTR
	default:
		// includes ErrBackingStoreUnavailable
		return syscall.EIO
	}
}
