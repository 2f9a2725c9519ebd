package mocks

import (
	"context"

	"github.com/brettbedarf/zkfs"
	"github.com/stretchr/testify/mock"
)

// MockStore implements zkfs.Store for testing across packages
type MockStore struct {
	mock.Mock
}

var _ zkfs.Store = (*MockStore)(nil)

func (m *MockStore) Exists(ctx context.Context, path string) (bool, error) {
	args := m.Called(ctx, path)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Stat(ctx context.Context, path string) (*zkfs.NodeStat, error) {
	args := m.Called(ctx, path)

	// Handle function return types (for path-dependent tests)
	if fn, ok := args.Get(0).(func(context.Context, string) *zkfs.NodeStat); ok {
		return fn(ctx, path), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*zkfs.NodeStat), args.Error(1)
}

func (m *MockStore) Children(ctx context.Context, path string) ([]string, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStore) Set(ctx context.Context, path string, data []byte) error {
	args := m.Called(ctx, path, data)
	return args.Error(0)
}

func (m *MockStore) CreatePath(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
