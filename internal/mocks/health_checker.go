package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// HealthChecker is a mock implementation of fallback.HealthChecker
type HealthChecker struct {
	mock.Mock
}

func (m *HealthChecker) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
