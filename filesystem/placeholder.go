package filesystem

import (
	"sync"
	"time"

	"github.com/brettbedarf/zkfs"
	"github.com/puzpuzpuz/xsync/v4"
)

type placeholder struct {
	attr    zkfs.Attr
	created time.Time
}

// placeholderTable holds synthesized attributes for leaf entries that were
// created but whose store node is not observable yet. It is bounded by size
// and age; reads are lock-free and inserts are serialized so the bound holds.
type placeholderTable struct {
	entries *xsync.Map[string, placeholder]
	insMu   sync.Mutex
	max     int
	ttl     time.Duration
	now     func() time.Time
}

func newPlaceholderTable(limit int, ttl time.Duration) *placeholderTable {
	if limit < 1 {
		limit = 1
	}
	return &placeholderTable{
		entries: xsync.NewMap[string, placeholder](),
		max:     limit,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put records attr for path, evicting expired entries and then the oldest
// one when the table is full.
func (t *placeholderTable) Put(path string, attr zkfs.Attr) {
	t.insMu.Lock()
	defer t.insMu.Unlock()

	if _, ok := t.entries.Load(path); !ok && t.entries.Size() >= t.max {
		t.evictLocked()
	}
	t.entries.Store(path, placeholder{attr: attr, created: t.now()})
}

func (t *placeholderTable) evictLocked() {
	now := t.now()
	var (
		oldestPath string
		oldest     time.Time
	)
	t.entries.Range(func(p string, ph placeholder) bool {
		if t.expired(ph, now) {
			t.entries.Delete(p)
			return true
		}
		if oldestPath == "" || ph.created.Before(oldest) {
			oldestPath, oldest = p, ph.created
		}
		return true
	})
	if t.entries.Size() >= t.max && oldestPath != "" {
		t.entries.Delete(oldestPath)
	}
}

func (t *placeholderTable) expired(ph placeholder, now time.Time) bool {
	return t.ttl > 0 && now.Sub(ph.created) > t.ttl
}

// Get returns the placeholder attributes for path if present and not expired
func (t *placeholderTable) Get(path string) (zkfs.Attr, bool) {
	ph, ok := t.entries.Load(path)
	if !ok {
		return zkfs.Attr{}, false
	}
	if t.expired(ph, t.now()) {
		t.entries.Delete(path)
		return zkfs.Attr{}, false
	}
	return ph.attr, true
}

// Drop invalidates the placeholder for path; reports whether one was held
func (t *placeholderTable) Drop(path string) bool {
	_, ok := t.entries.LoadAndDelete(path)
	return ok
}

func (t *placeholderTable) Len() int {
	return t.entries.Size()
}
