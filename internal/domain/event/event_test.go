package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanops/oms/internal/domain/entity"
	"github.com/scanops/oms/internal/domain/workflow"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"job created", TypeJobCreated, true},
		{"job updated", TypeJobUpdated, true},
		{"status changed", TypeJobStatusChanged, true},
		{"step completed", TypeStepCompleted, true},
		{"payment matched", TypePaymentMatched, true},
		{"payment unmatched", TypePaymentUnmatched, true},
		{"unknown", Type("unknown.type"), false},
		{"empty", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.eventType.IsValid())
		})
	}
}

func TestNewEvent(t *testing.T) {
	ev := NewEvent(TypeJobUpdated, 42, map[string]interface{}{"actor": "ops@x"})

	require.NotNil(t, ev)
	assert.NotEmpty(t, ev.ID)
	assert.NotEmpty(t, ev.CorrelationID)
	assert.NotEqual(t, ev.ID, ev.CorrelationID)
	assert.Equal(t, int64(42), ev.JobID)
	assert.Equal(t, "ops@x", ev.GetPayloadString("actor"))
	assert.WithinDuration(t, time.Now(), ev.Timestamp, time.Second)

	empty := NewEvent(TypeJobCreated, 1, nil)
	assert.NotNil(t, empty.Payload)
}

func TestNewStepCompleted(t *testing.T) {
	job := &entity.Job{ID: 7, JobID: "JOB-00007"}
	completion := workflow.StepCompletionEvent{Index: 1, StepName: "QC"}

	ev := NewStepCompleted(job, completion, "tech@x", "corr-1")

	assert.Equal(t, TypeStepCompleted, ev.Type)
	assert.Equal(t, int64(7), ev.JobID)
	assert.Equal(t, "corr-1", ev.CorrelationID)
	assert.Same(t, job, ev.Job())
	got, ok := ev.Completion()
	require.True(t, ok)
	assert.Equal(t, "QC", got.StepName)
	assert.Nil(t, ev.Payment())
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeJobCreated, 1, map[string]interface{}{"key1": "value1"})
	modified := original.WithPayload("key2", "value2")

	_, exists := original.Payload["key2"]
	assert.False(t, exists)
	assert.Equal(t, "value1", modified.GetPayloadString("key1"))
	assert.Equal(t, "value2", modified.GetPayloadString("key2"))
	assert.Equal(t, original.ID, modified.ID)
	assert.Equal(t, original.CorrelationID, modified.CorrelationID)
}

func TestEvent_GetPayloadInt(t *testing.T) {
	ev := NewEvent(TypeJobCreated, 1, map[string]interface{}{
		"int64":   int64(100),
		"int":     50,
		"float64": 75.5,
		"string":  "not a number",
	})

	assert.Equal(t, int64(100), ev.GetPayloadInt("int64"))
	assert.Equal(t, int64(50), ev.GetPayloadInt("int"))
	assert.Equal(t, int64(75), ev.GetPayloadInt("float64"))
	assert.Equal(t, int64(0), ev.GetPayloadInt("string"))
	assert.Equal(t, int64(0), ev.GetPayloadInt("missing"))
}

func TestEvent_GetPayloadStringAcceptsJobStatus(t *testing.T) {
	ev := NewEvent(TypeJobStatusChanged, 1, map[string]interface{}{KeyNewStatus: entity.JobStatusQC})
	assert.Equal(t, "qc", ev.GetPayloadString(KeyNewStatus))
}
