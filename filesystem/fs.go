package filesystem

import (
	"context"
	"errors"
	"os"

	"github.com/brettbedarf/zkfs"
	"github.com/brettbedarf/zkfs/config"
	"github.com/brettbedarf/zkfs/internal/util"
)

// FileSystem translates virtual filesystem paths and operations onto a
// [zkfs.Store]. It holds no store state between calls: every predicate,
// attribute lookup and listing re-queries the store. The only local state is
// the placeholder table for just-created files.
type FileSystem struct {
	cfg          *config.Config
	store        zkfs.Store
	placeholders *placeholderTable
	uid          uint32
	gid          uint32
}

var _ zkfs.Capabilities = (*FileSystem)(nil)

func NewFS(cfg *config.Config, store zkfs.Store) *FileSystem {
	return &FileSystem{
		cfg:          cfg,
		store:        store,
		placeholders: newPlaceholderTable(cfg.MaxPlaceholders, config.Seconds(cfg.PlaceholderTTL)),
		uid:          uint32(os.Getuid()),
		gid:          uint32(os.Getgid()),
	}
}

// Store returns the backing store the filesystem was built on
func (fs *FileSystem) Store() zkfs.Store {
	return fs.store
}

// exists reports whether the store node at storePath exists. The root always
// exists, even when a chroot node has not been created yet.
func (fs *FileSystem) exists(ctx context.Context, storePath string) (bool, error) {
	if isRoot(storePath) {
		return true, nil
	}
	ok, err := fs.store.Exists(ctx, storePath)
	if err != nil {
		logger := util.GetLogger("FS.exists")
		logger.Warn().Err(err).Str("path", storePath).Msg("Store exists check failed")
		return false, err
	}
	return ok, nil
}

// statRoot stats the root, substituting an empty stat when the chroot node
// is missing.
func (fs *FileSystem) statRoot(ctx context.Context) (*zkfs.NodeStat, error) {
	st, err := fs.store.Stat(ctx, rootPath)
	if errors.Is(err, zkfs.ErrNotFound) {
		return &zkfs.NodeStat{}, nil
	}
	return st, err
}
