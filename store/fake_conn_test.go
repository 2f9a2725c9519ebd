package store

import (
	"path"
	"slices"
	"sync"
	"time"

	"github.com/go-zookeeper/zk"
)

// fakeConn is an in-memory stand-in for *zk.Conn that speaks the client's
// error values
type fakeConn struct {
	mu      sync.Mutex
	state   zk.State
	closed  bool
	nodes   map[string][]byte
	kids    map[string][]string
	failErr error // returned by every call when set
	creates []string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		state: zk.StateHasSession,
		nodes: map[string][]byte{"/": nil},
		kids:  map[string][]string{},
	}
}

func (c *fakeConn) State() zk.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeConn) setState(s zk.State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.state = zk.StateDisconnected
	c.mu.Unlock()
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) stat(p string) *zk.Stat {
	return &zk.Stat{
		DataLength:  int32(len(c.nodes[p])),
		NumChildren: int32(len(c.kids[p])),
		Mtime:       2_000,
		Ctime:       1_000,
	}
}

func (c *fakeConn) Exists(p string) (bool, *zk.Stat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return false, nil, c.failErr
	}
	if _, ok := c.nodes[p]; !ok {
		return false, nil, nil
	}
	return true, c.stat(p), nil
}

func (c *fakeConn) Get(p string) ([]byte, *zk.Stat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return nil, nil, c.failErr
	}
	data, ok := c.nodes[p]
	if !ok {
		return nil, nil, zk.ErrNoNode
	}
	return slices.Clone(data), c.stat(p), nil
}

func (c *fakeConn) Children(p string) ([]string, *zk.Stat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return nil, nil, c.failErr
	}
	if _, ok := c.nodes[p]; !ok {
		return nil, nil, zk.ErrNoNode
	}
	return slices.Clone(c.kids[p]), c.stat(p), nil
}

func (c *fakeConn) Set(p string, data []byte, _ int32) (*zk.Stat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return nil, c.failErr
	}
	if _, ok := c.nodes[p]; !ok {
		return nil, zk.ErrNoNode
	}
	c.nodes[p] = slices.Clone(data)
	return c.stat(p), nil
}

func (c *fakeConn) Create(p string, data []byte, _ int32, _ []zk.ACL) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return "", c.failErr
	}
	if _, ok := c.nodes[p]; ok {
		return "", zk.ErrNodeExists
	}
	parent := path.Dir(p)
	if _, ok := c.nodes[parent]; !ok {
		return "", zk.ErrNoNode
	}
	c.nodes[p] = slices.Clone(data)
	c.kids[parent] = append(c.kids[parent], path.Base(p))
	c.creates = append(c.creates, p)
	return p, nil
}

func (c *fakeConn) Delete(p string, _ int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return c.failErr
	}
	if _, ok := c.nodes[p]; !ok {
		return zk.ErrNoNode
	}
	if len(c.kids[p]) > 0 {
		return zk.ErrNotEmpty
	}
	delete(c.nodes, p)
	parent := path.Dir(p)
	c.kids[parent] = slices.DeleteFunc(c.kids[parent], func(k string) bool { return k == path.Base(p) })
	return nil
}

// fakeDialer hands out conns in order and counts dials
type fakeDialer struct {
	mu     sync.Mutex
	conns  []*fakeConn
	states []zk.State // initial session event per dial, StateHasSession when unset
	err    error
	dials  int
}

func (d *fakeDialer) dial(_ []string, _ time.Duration) (zkConn, <-chan zk.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		d.dials++
		return nil, nil, d.err
	}
	i := d.dials
	d.dials++
	conn := newFakeConn()
	if i < len(d.conns) {
		conn = d.conns[i]
	}
	state := zk.StateHasSession
	if i < len(d.states) {
		state = d.states[i]
	}
	events := make(chan zk.Event, 2)
	events <- zk.Event{Type: zk.EventSession, State: zk.StateConnecting}
	if state != zk.StateUnknown {
		events <- zk.Event{Type: zk.EventSession, State: state}
	}
	return conn, events, nil
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// newTestZKStore wires a ZKStore to a fake dialer
func newTestZKStore(t *Target, d *fakeDialer, m *Metrics) *ZKStore {
	k := NewKeeper(t, time.Second, 200*time.Millisecond, m)
	k.dial = d.dial
	return &ZKStore{target: t, keeper: k, acl: zk.WorldACL(zk.PermAll)}
}
