package store

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/brettbedarf/zkfs"
)

type memNode struct {
	data     []byte
	children []string // creation order
	ctime    int64
	mtime    int64
}

// MemStore is an in-process [zkfs.Store] with the same node model as
// ZooKeeper: every node has a payload and ordered children. It backs the
// "mem" scheme and the filesystem tests.
type MemStore struct {
	mu    sync.RWMutex
	nodes map[string]*memNode
	now   func() time.Time
}

var _ zkfs.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return NewMemStoreWithClock(time.Now)
}

func NewMemStoreWithClock(now func() time.Time) *MemStore {
	ms := now().UnixMilli()
	return &MemStore{
		nodes: map[string]*memNode{"/": {ctime: ms, mtime: ms}},
		now:   now,
	}
}

func memClean(p string) string {
	return path.Clean("/" + p)
}

func (m *MemStore) Exists(ctx context.Context, p string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nodes[memClean(p)]
	return ok, nil
}

func (m *MemStore) Stat(ctx context.Context, p string) (*zkfs.NodeStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[memClean(p)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", zkfs.ErrNotFound, p)
	}
	return &zkfs.NodeStat{
		PayloadLength:    int64(len(n.data)),
		ChildCount:       int32(len(n.children)),
		ModifyTimeMillis: n.mtime,
		CreateTimeMillis: n.ctime,
	}, nil
}

func (m *MemStore) Children(ctx context.Context, p string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[memClean(p)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", zkfs.ErrNotFound, p)
	}
	return slices.Clone(n.children), nil
}

func (m *MemStore) Get(ctx context.Context, p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[memClean(p)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", zkfs.ErrNotFound, p)
	}
	return slices.Clone(n.data), nil
}

func (m *MemStore) Set(ctx context.Context, p string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[memClean(p)]
	if !ok {
		return fmt.Errorf("%w: %s", zkfs.ErrNotFound, p)
	}
	n.data = slices.Clone(data)
	n.mtime = m.now().UnixMilli()
	return nil
}

func (m *MemStore) CreatePath(ctx context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = memClean(p)
	if p == "/" {
		return nil
	}
	cur := "/"
	for _, seg := range strings.Split(strings.TrimPrefix(p, "/"), "/") {
		next := path.Join(cur, seg)
		if _, ok := m.nodes[next]; !ok {
			ms := m.now().UnixMilli()
			m.nodes[next] = &memNode{ctime: ms, mtime: ms}
			parent := m.nodes[cur]
			parent.children = append(parent.children, seg)
		}
		cur = next
	}
	return nil
}

func (m *MemStore) Delete(ctx context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = memClean(p)
	if p == "/" {
		return fmt.Errorf("%w: delete /", zkfs.ErrInvalidOperation)
	}
	n, ok := m.nodes[p]
	if !ok {
		return fmt.Errorf("%w: %s", zkfs.ErrNotFound, p)
	}
	if len(n.children) > 0 {
		return fmt.Errorf("delete %s: %w", p, zkfs.ErrNotEmpty)
	}
	delete(m.nodes, p)
	parent := m.nodes[path.Dir(p)]
	parent.children = slices.DeleteFunc(parent.children, func(c string) bool { return c == path.Base(p) })
	return nil
}

func (m *MemStore) Close() error {
	return nil
}
