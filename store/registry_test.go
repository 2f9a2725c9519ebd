package store

import (
	"context"
	"testing"

	"github.com/brettbedarf/zkfs"
	"github.com/brettbedarf/zkfs/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitScheme(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, scheme, rest string
	}{
		{"zk://localhost:2181/app", "zk", "localhost:2181/app"},
		{"mem://", "mem", ""},
		{"localhost:2181", DefaultScheme, "localhost:2181"},
		{"a:1,b:2/x", DefaultScheme, "a:1,b:2/x"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			scheme, rest := SplitScheme(tt.in)
			assert.Equal(t, tt.scheme, scheme)
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestOpen_Builtins(t *testing.T) {
	t.Parallel()
	RegisterBuiltins()
	cfg := config.NewDefaultConfig()

	s, err := Open(context.Background(), "mem://", cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemStore{}, s)

	// zk opens lazily so no server is needed here
	s, err = Open(context.Background(), "localhost:2181/app", cfg, nil)
	require.NoError(t, err)
	zs, ok := s.(*ZKStore)
	require.True(t, ok)
	assert.Equal(t, "/app", zs.target.Chroot)
	assert.False(t, zs.Keeper().Connected())

	_, err = Open(context.Background(), "zk://", cfg, nil)
	assert.Error(t, err)
}

func TestOpen_UnknownScheme(t *testing.T) {
	t.Parallel()
	_, err := Open(context.Background(), "etcd://localhost:2379", config.NewDefaultConfig(), nil)
	assert.ErrorContains(t, err, `"etcd"`)
}

func TestOpen_InstrumentsWithMetrics(t *testing.T) {
	t.Parallel()
	Register("test-instrumented", func(context.Context, string, *config.Config, *Metrics) (zkfs.Store, error) {
		return NewMemStore(), nil
	})

	s, err := Open(context.Background(), "test-instrumented://", config.NewDefaultConfig(), NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, err)
	assert.IsType(t, &instrumentedStore{}, s)
}
