package mocks

import (
	"github.com/stretchr/testify/mock"

	"scenarioflow/internal/domain"
)

// MockResponseExtractor is a mock implementation of port.ResponseExtractor.
type MockResponseExtractor struct {
	mock.Mock
}

func (m *MockResponseExtractor) Extract(raw interface{}) (*domain.Extraction, error) {
	args := m.Called(raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Extraction), args.Error(1)
}
