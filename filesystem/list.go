package filesystem

import (
	"context"
	"errors"
	"fmt"

	"github.com/brettbedarf/zkfs"
	"github.com/brettbedarf/zkfs/internal/util"
	"golang.org/x/sync/errgroup"
)

// ListEntries returns the virtual entry names immediately beneath directory
// path. Each store child yields its bare name when it has children and
// name+[zkfs.LeafSuffix] when it has a payload; a child with neither is
// omitted. Order follows the store's child order.
func (fs *FileSystem) ListEntries(ctx context.Context, path string) ([]string, error) {
	logger := util.GetLogger("FS.ListEntries")
	path = cleanPath(path)
	if IsLeafKind(path) {
		return nil, fmt.Errorf("%w: list %s: names file content", zkfs.ErrInvalidOperation, path)
	}
	storePath := ToStorePath(path)

	names, err := fs.store.Children(ctx, storePath)
	if err != nil {
		if isRoot(storePath) && errors.Is(err, zkfs.ErrNotFound) {
			// chroot node not created yet
			return []string{}, nil
		}
		logger.Debug().Err(err).Str("path", path).Msg("Failed to list children")
		return nil, fmt.Errorf("list %s: %w", path, err)
	}

	perChild := make([][]string, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(fs.cfg.ListConcurrency, 1))
	for i, name := range names {
		g.Go(func() error {
			st, err := fs.store.Stat(gctx, joinPath(storePath, name))
			if errors.Is(err, zkfs.ErrNotFound) {
				// deleted between Children and Stat
				return nil
			}
			if err != nil {
				return err
			}
			perChild[i] = entriesFor(name, st)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Failed to stat children")
		return nil, fmt.Errorf("list %s: %w", path, err)
	}

	entries := make([]string, 0, len(names))
	for _, e := range perChild {
		entries = append(entries, e...)
	}
	logger.Trace().Str("path", path).Int("children", len(names)).Int("entries", len(entries)).Msg("Listed directory")
	return entries, nil
}

func entriesFor(name string, st *zkfs.NodeStat) []string {
	var out []string
	if st.ChildCount > 0 {
		out = append(out, name)
	}
	if st.PayloadLength > 0 {
		out = append(out, LeafName(name))
	}
	return out
}
