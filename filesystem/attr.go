package filesystem

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brettbedarf/zkfs"
	"github.com/brettbedarf/zkfs/internal/util"
)

// Directory permission bits. A directory is reported writable when its write
// probe could be created or written.
const (
	DirModePermissive  uint32 = 0o755
	DirModeRestrictive uint32 = 0o555

	fileModeRead  uint32 = 0o444
	fileModeWrite uint32 = 0o222
	fileModeExec  uint32 = 0o111
)

// AttributesOf synthesizes metadata for path from its store node. Leaf paths
// with no node yet fall back to a placeholder recorded by [FileSystem.CreateFile];
// the placeholder is dropped as soon as the real node is observed.
func (fs *FileSystem) AttributesOf(ctx context.Context, path string) (*zkfs.Attr, error) {
	logger := util.GetLogger("FS.AttributesOf")
	path = cleanPath(path)

	if isRoot(path) {
		st, err := fs.statRoot(ctx)
		if err != nil {
			return nil, err
		}
		return fs.dirAttr(ctx, path, st), nil
	}

	st, err := fs.store.Stat(ctx, ToStorePath(path))
	if err != nil && !errors.Is(err, zkfs.ErrNotFound) {
		logger.Warn().Err(err).Str("path", path).Msg("Store stat failed")
		return nil, err
	}

	if !IsLeafKind(path) {
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, zkfs.ErrNotFound)
		}
		return fs.dirAttr(ctx, path, st), nil
	}

	if err == nil {
		if fs.placeholders.Drop(path) {
			logger.Debug().Str("path", path).Msg("Store node observed, dropped placeholder")
		}
		return fs.fileAttr(ctx, path, st), nil
	}
	if attr, ok := fs.placeholders.Get(path); ok {
		return &attr, nil
	}
	return nil, fmt.Errorf("stat %s: %w", path, zkfs.ErrNotFound)
}

func (fs *FileSystem) dirAttr(ctx context.Context, path string, st *zkfs.NodeStat) *zkfs.Attr {
	probe := joinPath(path, zkfs.WriteProbeName)
	mode := DirModeRestrictive
	if fs.CanWrite(ctx, probe) || fs.CanMakeDirectory(ctx, probe) {
		mode = DirModePermissive
	}
	attr := fs.baseAttr(st)
	attr.Dir = true
	attr.Mode = mode
	return attr
}

func (fs *FileSystem) fileAttr(ctx context.Context, path string, st *zkfs.NodeStat) *zkfs.Attr {
	mode := fileModeRead
	if fs.CanWrite(ctx, path) {
		mode |= fileModeWrite
	}
	if fs.IsExecutable(ctx, path) {
		mode |= fileModeExec
	}
	attr := fs.baseAttr(st)
	attr.Mode = mode
	attr.Size = uint64(max(st.PayloadLength, 0))
	return attr
}

// baseAttr fills the fields shared by directories and files. The store keeps
// no access time, so atime mirrors mtime. Nlink is pinned to 1 because
// traversal tools such as find treat other counts as subdirectory hints.
func (fs *FileSystem) baseAttr(st *zkfs.NodeStat) *zkfs.Attr {
	mtime := uint64(max(st.ModifyTimeMillis/1000, 0))
	return &zkfs.Attr{
		Nlink: 1,
		Uid:   fs.uid,
		Gid:   fs.gid,
		Atime: mtime,
		Mtime: mtime,
		Ctime: uint64(max(st.CreateTimeMillis/1000, 0)),
	}
}

// placeholderAttr synthesizes attributes for a leaf entry with no store node
func (fs *FileSystem) placeholderAttr(ctx context.Context, path string, now time.Time) zkfs.Attr {
	millis := now.UnixMilli()
	return *fs.fileAttr(ctx, path, &zkfs.NodeStat{ModifyTimeMillis: millis, CreateTimeMillis: millis})
}
