package store

import (
	"context"
	"errors"
	"testing"

	"github.com/brettbedarf/zkfs"
	"github.com/go-zookeeper/zk"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTarget(t *testing.T, raw string) *Target {
	t.Helper()
	tgt, err := ParseTarget(raw)
	require.NoError(t, err)
	return tgt
}

func TestKeeper_ReusesLiveSession(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	s := newTestZKStore(testTarget(t, "localhost:2181"), d, nil)

	assert.False(t, s.Keeper().Connected())
	c1, err := s.keeper.Conn(context.Background())
	require.NoError(t, err)
	c2, err := s.keeper.Conn(context.Background())
	require.NoError(t, err)

	assert.Same(t, c1, c2)
	assert.Equal(t, 1, d.count())
	assert.True(t, s.Keeper().Connected())
}

func TestKeeper_ReconnectsAfterSessionLoss(t *testing.T) {
	t.Parallel()
	first, second := newFakeConn(), newFakeConn()
	d := &fakeDialer{conns: []*fakeConn{first, second}}
	m := NewMetrics(prometheus.NewRegistry())
	s := newTestZKStore(testTarget(t, "localhost:2181"), d, m)

	c, err := s.keeper.Conn(context.Background())
	require.NoError(t, err)
	assert.Same(t, zkConn(first), c)

	first.setState(zk.StateExpired)
	assert.False(t, s.Keeper().Connected())

	c, err = s.keeper.Conn(context.Background())
	require.NoError(t, err)
	assert.Same(t, zkConn(second), c)
	assert.True(t, first.isClosed())
	assert.Equal(t, 2, d.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReconnectsTotal))
}

func TestKeeper_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialer  *fakeDialer
		wantErr error
	}{
		{"dial error", &fakeDialer{err: errors.New("refused")}, zkfs.ErrBackingStoreUnavailable},
		{"auth failed", &fakeDialer{states: []zk.State{zk.StateAuthFailed}}, zkfs.ErrPermissionDenied},
		{"no session before timeout", &fakeDialer{states: []zk.State{zk.StateUnknown}}, zkfs.ErrBackingStoreUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newTestZKStore(testTarget(t, "localhost:2181"), tt.dialer, nil)
			_, err := s.keeper.Conn(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, s.Keeper().Connected())
		})
	}
}

func TestKeeper_FailedDialIsRetriedOnNextCall(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{err: errors.New("refused")}
	s := newTestZKStore(testTarget(t, "localhost:2181"), d, nil)

	_, err := s.Exists(context.Background(), "/")
	require.ErrorIs(t, err, zkfs.ErrBackingStoreUnavailable)

	d.mu.Lock()
	d.err = nil
	d.mu.Unlock()

	ok, err := s.Exists(context.Background(), "/")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, d.count())
}

func TestKeeper_ContextCanceled(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{states: []zk.State{zk.StateUnknown}}
	s := newTestZKStore(testTarget(t, "localhost:2181"), d, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.keeper.Conn(ctx)
	assert.ErrorIs(t, err, zkfs.ErrBackingStoreUnavailable)
}

func TestKeeper_Close(t *testing.T) {
	t.Parallel()
	conn := newFakeConn()
	d := &fakeDialer{conns: []*fakeConn{conn}}
	s := newTestZKStore(testTarget(t, "localhost:2181"), d, nil)

	_, err := s.keeper.Conn(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.True(t, conn.isClosed())
	assert.False(t, s.Keeper().Connected())
	// Closing twice is harmless
	require.NoError(t, s.Close())
}
