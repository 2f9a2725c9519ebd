package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brettbedarf/zkfs"
	"github.com/brettbedarf/zkfs/internal/util"
	"github.com/go-zookeeper/zk"
	"github.com/google/uuid"
)

// zkConn is the subset of *zk.Conn the store uses
type zkConn interface {
	State() zk.State
	Close()
	Exists(path string) (bool, *zk.Stat, error)
	Get(path string) ([]byte, *zk.Stat, error)
	Children(path string) ([]string, *zk.Stat, error)
	Set(path string, data []byte, version int32) (*zk.Stat, error)
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	Delete(path string, version int32) error
}

type dialFunc func(servers []string, sessionTimeout time.Duration) (zkConn, <-chan zk.Event, error)

func dialZK(servers []string, sessionTimeout time.Duration) (zkConn, <-chan zk.Event, error) {
	conn, events, err := zk.Connect(servers, sessionTimeout,
		zk.WithLogger(util.NewLogLogger("ZKClient", util.DebugLevel)))
	if err != nil {
		return nil, nil, err
	}
	return conn, events, nil
}

// Keeper owns the single session to ZooKeeper. Conn hands out the live
// session, replacing it when it is absent or has lost its session. There is
// no retry or backoff: a failed reconnect is returned to the caller and the
// next call tries again.
type Keeper struct {
	target         *Target
	sessionTimeout time.Duration
	connectTimeout time.Duration
	dial           dialFunc
	metrics        *Metrics

	mu        sync.Mutex
	conn      zkConn
	sessionID string // local correlation id for logs
}

func NewKeeper(target *Target, sessionTimeout, connectTimeout time.Duration, metrics *Metrics) *Keeper {
	return &Keeper{
		target:         target,
		sessionTimeout: sessionTimeout,
		connectTimeout: connectTimeout,
		dial:           dialZK,
		metrics:        metrics,
	}
}

// Connected reports whether the current session is live
func (k *Keeper) Connected() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.connectedLocked()
}

func (k *Keeper) connectedLocked() bool {
	return k.conn != nil && k.conn.State() == zk.StateHasSession
}

// Conn returns a connected session, establishing a new one if needed
func (k *Keeper) Conn(ctx context.Context) (zkConn, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.connectedLocked() {
		return k.conn, nil
	}

	logger := util.GetLogger("Keeper.Conn")
	if k.conn != nil {
		logger.Info().Str("session", k.sessionID).Str("state", k.conn.State().String()).
			Msg("Session lost, reconnecting")
		k.conn.Close()
		k.conn = nil
		k.metrics.recordReconnect()
	}

	conn, events, err := k.dial(k.target.Servers, k.sessionTimeout)
	if err != nil {
		logger.Error().Err(err).Strs("servers", k.target.Servers).Msg("Failed to dial")
		return nil, fmt.Errorf("%w: dial %s: %v", zkfs.ErrBackingStoreUnavailable, k.target, err)
	}
	if err := k.awaitSession(ctx, events); err != nil {
		conn.Close()
		logger.Error().Err(err).Strs("servers", k.target.Servers).Msg("Failed to establish session")
		return nil, err
	}

	k.conn = conn
	k.sessionID = uuid.NewString()
	go watchEvents(k.sessionID, events)
	logger.Info().Str("session", k.sessionID).Str("target", k.target.String()).Msg("Session established")
	return conn, nil
}

func (k *Keeper) awaitSession(ctx context.Context, events <-chan zk.Event) error {
	timer := time.NewTimer(k.connectTimeout)
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("%w: connection to %s closed", zkfs.ErrBackingStoreUnavailable, k.target)
			}
			switch ev.State {
			case zk.StateHasSession:
				return nil
			case zk.StateAuthFailed:
				return fmt.Errorf("%w: %s: authentication failed", zkfs.ErrPermissionDenied, k.target)
			}
		case <-timer.C:
			return fmt.Errorf("%w: no session with %s after %s", zkfs.ErrBackingStoreUnavailable, k.target, k.connectTimeout)
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", zkfs.ErrBackingStoreUnavailable, ctx.Err())
		}
	}
}

// watchEvents drains a session's event channel until the client closes it
func watchEvents(sessionID string, events <-chan zk.Event) {
	logger := util.GetLogger("Keeper.events").With().Str("session", sessionID).Logger()
	for ev := range events {
		if ev.Type != zk.EventSession {
			continue
		}
		logger.Debug().Str("state", ev.State.String()).Str("server", ev.Server).Msg("Session state changed")
	}
}

// Close ends the current session, if any
func (k *Keeper) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.conn != nil {
		k.conn.Close()
		k.conn = nil
	}
	return nil
}
