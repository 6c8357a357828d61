package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/giantswarm/chronosphere-sync/pkg/chronosphere"
	"github.com/giantswarm/chronosphere-sync/pkg/domain/asset"
)

// MockAPI is a testify mock for the chronosphere.API interface
type MockAPI struct {
	mock.Mock
}

var _ chronosphere.API = (*MockAPI)(nil)

func (m *MockAPI) Get(ctx context.Context, kind asset.Kind, slug string) (chronosphere.Object, error) {
	args := m.Called(ctx, kind, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(chronosphere.Object), args.Error(1)
}

func (m *MockAPI) Create(ctx context.Context, kind asset.Kind, obj chronosphere.Object) (chronosphere.Object, error) {
	args := m.Called(ctx, kind, obj)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(chronosphere.Object), args.Error(1)
}

func (m *MockAPI) Update(ctx context.Context, kind asset.Kind, slug string, obj chronosphere.Object) (chronosphere.Object, error) {
	args := m.Called(ctx, kind, slug, obj)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(chronosphere.Object), args.Error(1)
}

func (m *MockAPI) List(ctx context.Context, kind asset.Kind) ([]string, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAPI) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
