package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"
)

// EventPublisher is a mock implementation of services.EventPublisher
type EventPublisher struct {
	mock.Mock
}

func (m *EventPublisher) PublishJSON(topic string, qos byte, payload any, timeout time.Duration) error {
	args := m.Called(topic, qos, payload, timeout)
	return args.Error(0)
}
