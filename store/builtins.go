package store

import (
	"context"

	"github.com/brettbedarf/zkfs"
	"github.com/brettbedarf/zkfs/config"
)

type BuiltInScheme = string

const (
	ZKScheme  BuiltInScheme = "zk"
	MemScheme BuiltInScheme = "mem"
)

// RegisterBuiltins registers all built-in stores by default
// or only the specific ones if schemes are provided
func RegisterBuiltins(schemes ...BuiltInScheme) {
	if len(schemes) == 0 {
		schemes = append(schemes, ZKScheme, MemScheme)
	}

	for _, key := range schemes {
		switch key {
		case ZKScheme:
			Register(ZKScheme, openZK)
		case MemScheme:
			Register(MemScheme, openMem)
		}
	}
}

func openZK(_ context.Context, target string, cfg *config.Config, m *Metrics) (zkfs.Store, error) {
	t, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	return NewZKStore(t, cfg, m), nil
}

// openMem ignores the target; every mount gets a fresh empty tree
func openMem(_ context.Context, _ string, _ *config.Config, _ *Metrics) (zkfs.Store, error) {
	return NewMemStore(), nil
}
