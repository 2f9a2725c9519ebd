package filesystem

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/brettbedarf/zkfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(d)
}

func newTestTable(max int, ttl time.Duration) (*placeholderTable, *fakeClock) {
	clk := &fakeClock{cur: time.Unix(1_700_000_000, 0)}
	tbl := newPlaceholderTable(max, ttl)
	tbl.now = clk.Now
	return tbl, clk
}

func TestPlaceholderTable_PutGetDrop(t *testing.T) {
	t.Parallel()

	tbl, _ := newTestTable(4, time.Minute)
	attr := zkfs.Attr{Mode: 0o666, Nlink: 1}

	tbl.Put("/a.contents", attr)
	got, ok := tbl.Get("/a.contents")
	require.True(t, ok)
	assert.Equal(t, attr, got)

	assert.True(t, tbl.Drop("/a.contents"))
	assert.False(t, tbl.Drop("/a.contents"), "second drop must report nothing held")
	_, ok = tbl.Get("/a.contents")
	assert.False(t, ok)
}

func TestPlaceholderTable_Expiry(t *testing.T) {
	t.Parallel()

	tbl, clk := newTestTable(4, time.Minute)
	tbl.Put("/a.contents", zkfs.Attr{})

	clk.Advance(59 * time.Second)
	_, ok := tbl.Get("/a.contents")
	assert.True(t, ok)

	clk.Advance(2 * time.Second)
	_, ok = tbl.Get("/a.contents")
	assert.False(t, ok, "expired placeholder must not be returned")
	assert.Equal(t, 0, tbl.Len(), "expired placeholder must be removed on read")
}

func TestPlaceholderTable_Bounded(t *testing.T) {
	t.Parallel()

	tbl, clk := newTestTable(3, time.Hour)
	for i := range 3 {
		tbl.Put(fmt.Sprintf("/f%d.contents", i), zkfs.Attr{})
		clk.Advance(time.Second)
	}
	tbl.Put("/f3.contents", zkfs.Attr{})

	assert.Equal(t, 3, tbl.Len())
	_, ok := tbl.Get("/f0.contents")
	assert.False(t, ok, "oldest placeholder must be evicted when full")
	_, ok = tbl.Get("/f3.contents")
	assert.True(t, ok)
}

func TestPlaceholderTable_EvictsExpiredFirst(t *testing.T) {
	t.Parallel()

	tbl, clk := newTestTable(2, time.Minute)
	tbl.Put("/old.contents", zkfs.Attr{})
	clk.Advance(2 * time.Minute)
	tbl.Put("/new.contents", zkfs.Attr{})
	tbl.Put("/newer.contents", zkfs.Attr{})

	assert.Equal(t, 2, tbl.Len())
	_, ok := tbl.Get("/new.contents")
	assert.True(t, ok, "live entries must survive while expired ones can be evicted")
}

func TestPlaceholderTable_OverwriteDoesNotEvict(t *testing.T) {
	t.Parallel()

	tbl, _ := newTestTable(1, time.Minute)
	tbl.Put("/a.contents", zkfs.Attr{Size: 1})
	tbl.Put("/a.contents", zkfs.Attr{Size: 2})

	got, ok := tbl.Get("/a.contents")
	require.True(t, ok)
	assert.Equal(t, uint64(2), got.Size)
}

func TestPlaceholderTable_Concurrent(t *testing.T) {
	t.Parallel()

	tbl, _ := newTestTable(16, time.Minute)
	var wg sync.WaitGroup
	for i := range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := fmt.Sprintf("/f%d.contents", i)
			tbl.Put(p, zkfs.Attr{})
			tbl.Get(p)
			tbl.Drop(p)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, tbl.Len(), 16)
}
