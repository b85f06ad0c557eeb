package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invoicestore/internal/domain"
)

// MockFilterStateRepo is a mock implementation of port.FilterStateRepository.
type MockFilterStateRepo struct {
	mock.Mock
}

func (m *MockFilterStateRepo) Load(ctx context.Context) (*domain.FilterState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FilterState), args.Error(1)
}

func (m *MockFilterStateRepo) Save(ctx context.Context, state domain.FilterState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockFilterStateRepo) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
