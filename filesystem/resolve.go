package filesystem

import (
	"context"
	"fmt"

	"github.com/brettbedarf/zkfs"
	"github.com/brettbedarf/zkfs/internal/util"
)

// IsDirectory reports whether path is directory-kind and its node exists
func (fs *FileSystem) IsDirectory(ctx context.Context, path string) bool {
	if IsLeafKind(path) {
		return false
	}
	ok, err := fs.exists(ctx, ToStorePath(path))
	return err == nil && ok
}

// IsFile reports whether path is leaf-kind and the node it unmangles to exists
func (fs *FileSystem) IsFile(ctx context.Context, path string) bool {
	if !IsLeafKind(path) {
		return false
	}
	ok, err := fs.exists(ctx, ToStorePath(path))
	return err == nil && ok
}

// CanWrite is always true; no access control is modeled.
func (fs *FileSystem) CanWrite(ctx context.Context, path string) bool {
	return true
}

// IsExecutable is always false; payloads are never executable.
func (fs *FileSystem) IsExecutable(ctx context.Context, path string) bool {
	return false
}

// CanMakeDirectory reports whether path is directory-kind, missing, and its
// immediate parent exists. Only one new level may be created at a time.
func (fs *FileSystem) CanMakeDirectory(ctx context.Context, path string) bool {
	return fs.checkMakeDirectory(ctx, path) == nil
}

// CanRemoveDirectory reports whether path is directory-kind, exists and has no
// children. A payload on the node does not block removal.
func (fs *FileSystem) CanRemoveDirectory(ctx context.Context, path string) bool {
	return fs.checkRemoveDirectory(ctx, path) == nil
}

func (fs *FileSystem) checkMakeDirectory(ctx context.Context, path string) error {
	path = cleanPath(path)
	if IsLeafKind(path) {
		return fmt.Errorf("%w: mkdir %s: names file content", zkfs.ErrInvalidOperation, path)
	}
	storePath := ToStorePath(path)
	ok, err := fs.exists(ctx, storePath)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("mkdir %s: %w", path, zkfs.ErrExists)
	}
	ok, err = fs.exists(ctx, parentPath(storePath))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("mkdir %s: %w", path, zkfs.ErrNoParent)
	}
	return nil
}

func (fs *FileSystem) checkRemoveDirectory(ctx context.Context, path string) error {
	path = cleanPath(path)
	if isRoot(path) {
		return fmt.Errorf("%w: rmdir %s: root", zkfs.ErrInvalidOperation, path)
	}
	if IsLeafKind(path) {
		return fmt.Errorf("%w: rmdir %s: names file content", zkfs.ErrInvalidOperation, path)
	}
	st, err := fs.store.Stat(ctx, ToStorePath(path))
	if err != nil {
		return fmt.Errorf("rmdir %s: %w", path, err)
	}
	if st.ChildCount > 0 {
		return fmt.Errorf("rmdir %s: %w", path, zkfs.ErrNotEmpty)
	}
	return nil
}

// GetXattr answers every extended attribute lookup with an empty value
func (fs *FileSystem) GetXattr(ctx context.Context, path, name string) []byte {
	return []byte{}
}

// ListXattr reports no extended attributes
func (fs *FileSystem) ListXattr(ctx context.Context, path string) []string {
	return nil
}

// SetXattr stores nothing and echoes value back
func (fs *FileSystem) SetXattr(ctx context.Context, path, name string, value []byte) []byte {
	logger := util.GetLogger("FS.SetXattr")
	logger.Trace().Str("path", path).Str("name", name).Msg("Ignoring extended attribute")
	return value
}
