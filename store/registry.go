package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/brettbedarf/zkfs"
	"github.com/brettbedarf/zkfs/config"
)

// Factory opens a store for the scheme-stripped target
type Factory func(ctx context.Context, target string, cfg *config.Config, m *Metrics) (zkfs.Store, error)

// DefaultScheme is used for targets given without a "scheme://" prefix
const DefaultScheme = ZKScheme

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register ties a factory to a scheme and should be called for each store
// type during app init
func Register(scheme string, f Factory) {
	mu.Lock()
	factories[scheme] = f
	mu.Unlock()
}

// SplitScheme splits "scheme://rest" and falls back to [DefaultScheme]
func SplitScheme(target string) (scheme, rest string) {
	if i := strings.Index(target, "://"); i >= 0 {
		return target[:i], target[i+3:]
	}
	return DefaultScheme, target
}

// Open picks the factory registered for the target's scheme. All expected
// schemes should be registered with [Register] before calling this function.
// The returned store is instrumented when m is non-nil.
func Open(ctx context.Context, target string, cfg *config.Config, m *Metrics) (zkfs.Store, error) {
	scheme, rest := SplitScheme(target)
	mu.RLock()
	f, ok := factories[scheme]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no store registered for scheme %q", scheme)
	}
	s, err := f(ctx, rest, cfg, m)
	if err != nil {
		return nil, err
	}
	return Instrument(s, m), nil
}
