package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"board-service/internal/mocks"
	"board-service/internal/telemetry"
)

func TestAuditEmitterPublishesEnvelope(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, "audit_log.boards", mock.Anything).Return(nil).Once()

	emitter := telemetry.NewAuditEmitter(publisher, "audit_log.boards", "board-service", "test")
	userID := "user-1"
	emitter.Emit(context.Background(), "INFO", "board created", "req-1", &userID)

	publisher.AssertExpectations(t)
	envelope, ok := publisher.Calls[0].Arguments.Get(2).(telemetry.AuditEnvelope)
	require.True(t, ok)
	assert.Equal(t, 1, envelope.SchemaVersion)
	assert.Equal(t, "audit_log", envelope.EventType)
	assert.Equal(t, "req-1", envelope.RequestID)
	require.NotNil(t, envelope.UserID)
	assert.Equal(t, "user-1", *envelope.UserID)
	assert.Equal(t, "INFO", envelope.Payload.Level)
	assert.Equal(t, "board created", envelope.Payload.Text)
}

func TestAuditEmitterNilSafe(t *testing.T) {
	var emitter *telemetry.AuditEmitter
	emitter.Emit(context.Background(), "INFO", "ignored", "req-1", nil)

	emitter = telemetry.NewAuditEmitter(nil, "audit_log.boards", "board-service", "test")
	emitter.Emit(context.Background(), "INFO", "ignored", "req-1", nil)
}

func TestAuditEmitterSwallowsPublishError(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, "audit_log.boards", mock.Anything).Return(assert.AnError).Once()

	emitter := telemetry.NewAuditEmitter(publisher, "audit_log.boards", "board-service", "test")
	emitter.Emit(context.Background(), "ERROR", "still fine", "req-2", nil)
	publisher.AssertExpectations(t)
}
