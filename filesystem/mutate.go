package filesystem

import (
	"context"
	"fmt"
	"time"

	"github.com/brettbedarf/zkfs"
	"github.com/brettbedarf/zkfs/internal/util"
)

// ReadPayload returns the full payload exposed by leaf path
func (fs *FileSystem) ReadPayload(ctx context.Context, path string) ([]byte, error) {
	path = cleanPath(path)
	if !IsLeafKind(path) {
		return nil, fmt.Errorf("read %s: %w", path, zkfs.ErrNotLeaf)
	}
	data, err := fs.store.Get(ctx, ToStorePath(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	fs.placeholders.Drop(path)
	return data, nil
}

// WritePayload replaces the payload exposed by leaf path, creating the store
// node and any missing ancestors first. This is the only operation that
// creates more than one level at once.
func (fs *FileSystem) WritePayload(ctx context.Context, path string, data []byte) error {
	logger := util.GetLogger("FS.WritePayload")
	path = cleanPath(path)
	if !IsLeafKind(path) {
		return fmt.Errorf("write %s: %w", path, zkfs.ErrNotLeaf)
	}
	storePath := ToStorePath(path)

	ok, err := fs.exists(ctx, storePath)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if !ok {
		if err := fs.store.CreatePath(ctx, storePath); err != nil {
			logger.Warn().Err(err).Str("path", storePath).Msg("Failed to create store node")
			return fmt.Errorf("write %s: %w", path, err)
		}
		logger.Debug().Str("path", storePath).Msg("Created store node for write")
	}
	if err := fs.store.Set(ctx, storePath, data); err != nil {
		logger.Warn().Err(err).Str("path", storePath).Msg("Failed to set payload")
		return fmt.Errorf("write %s: %w", path, err)
	}
	fs.placeholders.Drop(path)
	logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("Wrote payload")
	return nil
}

// CreateFile records a placeholder for a just-created leaf entry and returns
// its attributes. Nothing reaches the store until the first write; if the
// node already exists its real attributes are returned instead.
func (fs *FileSystem) CreateFile(ctx context.Context, path string) (*zkfs.Attr, error) {
	logger := util.GetLogger("FS.CreateFile")
	path = cleanPath(path)
	if !IsLeafKind(path) {
		return nil, fmt.Errorf("create %s: %w", path, zkfs.ErrNotLeaf)
	}
	ok, err := fs.exists(ctx, ToStorePath(path))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	if ok {
		return fs.AttributesOf(ctx, path)
	}
	attr := fs.placeholderAttr(ctx, path, time.Now())
	fs.placeholders.Put(path, attr)
	logger.Debug().Str("path", path).Msg("Recorded placeholder for created file")
	return &attr, nil
}

// MakeDirectory creates the single store node for directory path. It is
// refused unless [FileSystem.CanMakeDirectory] holds.
func (fs *FileSystem) MakeDirectory(ctx context.Context, path string) error {
	logger := util.GetLogger("FS.MakeDirectory")
	path = cleanPath(path)
	if err := fs.checkMakeDirectory(ctx, path); err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("Refusing mkdir")
		return err
	}
	if err := fs.store.CreatePath(ctx, ToStorePath(path)); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	logger.Debug().Str("path", path).Msg("Created directory")
	return nil
}

// RemoveDirectory deletes the store node for directory path. It is refused
// unless [FileSystem.CanRemoveDirectory] holds, so no delete reaches the store
// for a node with children.
func (fs *FileSystem) RemoveDirectory(ctx context.Context, path string) error {
	logger := util.GetLogger("FS.RemoveDirectory")
	path = cleanPath(path)
	if err := fs.checkRemoveDirectory(ctx, path); err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("Refusing rmdir")
		return err
	}
	if err := fs.store.Delete(ctx, ToStorePath(path)); err != nil {
		return fmt.Errorf("rmdir %s: %w", path, err)
	}
	logger.Debug().Str("path", path).Msg("Removed directory")
	return nil
}
