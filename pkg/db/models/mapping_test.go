package models

import (
	"testing"

	"github.com/mwantia/godeid/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExportMessage() *api.ExportRequestDataMessage {
	return &api.ExportRequestDataMessage{
		WorkflowInstanceID: "W1",
		ExportTaskID:       "E1",
		CorrelationID:      "C1",
	}
}

func TestNewExecutionMappingFreshProxies(t *testing.T) {
	mapping := NewExecutionMapping(testExportMessage(), "1.2.3", "1.2.3.4", "1.2.3.4.5", nil)

	assert.NotEmpty(t, mapping.ID)
	assert.False(t, mapping.RequestTime.IsZero())
	assert.Equal(t, "W1", mapping.WorkflowInstanceID)
	assert.Equal(t, "E1", mapping.ExportTaskID)
	assert.Equal(t, "C1", mapping.CorrelationID)

	assert.Equal(t, "1.2.3", mapping.SourceStudyUID)
	assert.Equal(t, "1.2.3.4", mapping.SourceSeriesUID)

	assert.NotEqual(t, "1.2.3", mapping.StudyInstanceUID)
	assert.NotEqual(t, "1.2.3.4", mapping.SeriesInstanceUID)
	assert.NotEqual(t, "1.2.3.4.5", mapping.SopInstanceUID)

	for _, name := range []string{"StudyInstanceUID", "SeriesInstanceUID", "SOPInstanceUID"} {
		_, ok := mapping.OriginalValues.Get(name)
		assert.True(t, ok, "expected original value for %s", name)
	}
}

func TestNewExecutionMappingReusesExistingProxies(t *testing.T) {
	first := NewExecutionMapping(testExportMessage(), "1.2.3", "1.2.3.4", "1.2.3.4.5", nil)
	second := NewExecutionMapping(testExportMessage(), "1.2.3", "1.2.3.4", "1.2.3.4.6", first)

	// Study and series proxies are copied, never regenerated.
	assert.Equal(t, first.StudyInstanceUID, second.StudyInstanceUID)
	assert.Equal(t, first.SeriesInstanceUID, second.SeriesInstanceUID)

	// Every instance still gets its own proxy SOP instance UID.
	require.NotEqual(t, first.SopInstanceUID, second.SopInstanceUID)
}
