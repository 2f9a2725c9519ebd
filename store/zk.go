package store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/brettbedarf/zkfs"
	"github.com/brettbedarf/zkfs/config"
	"github.com/brettbedarf/zkfs/internal/util"
	"github.com/go-zookeeper/zk"
)

// ZKStore implements [zkfs.Store] on ZooKeeper. Every call goes through the
// [Keeper] so a lost session is replaced on the next call. The chroot of the
// target is applied client-side.
type ZKStore struct {
	target *Target
	keeper *Keeper
	acl    []zk.ACL
}

var _ zkfs.Store = (*ZKStore)(nil)

// NewZKStore prepares a store for target. No session is opened until the
// first call.
func NewZKStore(target *Target, cfg *config.Config, metrics *Metrics) *ZKStore {
	return &ZKStore{
		target: target,
		keeper: NewKeeper(target, config.Seconds(cfg.SessionTimeout), config.Seconds(cfg.ConnectTimeout), metrics),
		acl:    zk.WorldACL(zk.PermAll),
	}
}

// Keeper exposes the session keeper, mainly for liveness checks
func (s *ZKStore) Keeper() *Keeper {
	return s.keeper
}

func (s *ZKStore) Exists(ctx context.Context, p string) (bool, error) {
	conn, err := s.keeper.Conn(ctx)
	if err != nil {
		return false, err
	}
	ok, _, err := conn.Exists(s.target.Resolve(p))
	if err != nil {
		return false, mapErr(err, p)
	}
	return ok, nil
}

func (s *ZKStore) Stat(ctx context.Context, p string) (*zkfs.NodeStat, error) {
	conn, err := s.keeper.Conn(ctx)
	if err != nil {
		return nil, err
	}
	ok, st, err := conn.Exists(s.target.Resolve(p))
	if err != nil {
		return nil, mapErr(err, p)
	}
	if !ok || st == nil {
		return nil, fmt.Errorf("%w: %s", zkfs.ErrNotFound, p)
	}
	return toNodeStat(st), nil
}

func (s *ZKStore) Children(ctx context.Context, p string) ([]string, error) {
	conn, err := s.keeper.Conn(ctx)
	if err != nil {
		return nil, err
	}
	names, _, err := conn.Children(s.target.Resolve(p))
	if err != nil {
		return nil, mapErr(err, p)
	}
	return names, nil
}

func (s *ZKStore) Get(ctx context.Context, p string) ([]byte, error) {
	conn, err := s.keeper.Conn(ctx)
	if err != nil {
		return nil, err
	}
	data, _, err := conn.Get(s.target.Resolve(p))
	if err != nil {
		return nil, mapErr(err, p)
	}
	return data, nil
}

func (s *ZKStore) Set(ctx context.Context, p string, data []byte) error {
	conn, err := s.keeper.Conn(ctx)
	if err != nil {
		return err
	}
	if _, err := conn.Set(s.target.Resolve(p), data, -1); err != nil {
		return mapErr(err, p)
	}
	return nil
}

// CreatePath creates p and every missing ancestor, chroot included, with
// empty payloads. Nodes created concurrently by someone else are tolerated.
func (s *ZKStore) CreatePath(ctx context.Context, p string) error {
	logger := util.GetLogger("ZKStore.CreatePath")
	conn, err := s.keeper.Conn(ctx)
	if err != nil {
		return err
	}
	full := s.target.Resolve(p)
	if full == "/" {
		return nil
	}
	cur := ""
	for _, seg := range strings.Split(strings.TrimPrefix(full, "/"), "/") {
		cur = path.Join("/", cur, seg)
		_, err := conn.Create(cur, nil, 0, s.acl)
		switch {
		case err == nil:
			logger.Trace().Str("node", cur).Msg("Created node")
		case errors.Is(err, zk.ErrNodeExists):
		default:
			return mapErr(err, p)
		}
	}
	return nil
}

// Delete removes a single node at any version. ZooKeeper refuses to delete
// nodes with children, which surfaces as [zkfs.ErrNotEmpty].
func (s *ZKStore) Delete(ctx context.Context, p string) error {
	conn, err := s.keeper.Conn(ctx)
	if err != nil {
		return err
	}
	if err := conn.Delete(s.target.Resolve(p), -1); err != nil {
		return mapErr(err, p)
	}
	return nil
}

func (s *ZKStore) Close() error {
	return s.keeper.Close()
}

func toNodeStat(st *zk.Stat) *zkfs.NodeStat {
	return &zkfs.NodeStat{
		PayloadLength:    int64(st.DataLength),
		ChildCount:       st.NumChildren,
		ModifyTimeMillis: st.Mtime,
		CreateTimeMillis: st.Ctime,
	}
}

// mapErr translates client errors into the zkfs taxonomy
func mapErr(err error, p string) error {
	switch {
	case errors.Is(err, zk.ErrNoNode):
		return fmt.Errorf("%w: %s", zkfs.ErrNotFound, p)
	case errors.Is(err, zk.ErrNodeExists):
		return fmt.Errorf("%s: %w", p, zkfs.ErrExists)
	case errors.Is(err, zk.ErrNotEmpty):
		return fmt.Errorf("%s: %w", p, zkfs.ErrNotEmpty)
	case errors.Is(err, zk.ErrNoAuth), errors.Is(err, zk.ErrAuthFailed):
		return fmt.Errorf("%w: %s", zkfs.ErrPermissionDenied, p)
	case errors.Is(err, zk.ErrConnectionClosed),
		errors.Is(err, zk.ErrSessionExpired),
		errors.Is(err, zk.ErrSessionMoved),
		errors.Is(err, zk.ErrNoServer),
		errors.Is(err, zk.ErrClosing):
		return fmt.Errorf("%w: %s: %v", zkfs.ErrBackingStoreUnavailable, p, err)
	default:
		return fmt.Errorf("zk %s: %w", p, err)
	}
}
