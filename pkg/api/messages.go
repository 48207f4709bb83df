package api

import "github.com/mwantia/godeid/pkg/log"

// ExportRequestDataMessage carries the identity of the export request a file
// belongs to while it travels through the outgoing plugin chain.
type ExportRequestDataMessage struct {
	WorkflowInstanceID string `json:"workflow_instance_id"`
	ExportTaskID       string `json:"export_task_id"`
	CorrelationID      string `json:"correlation_id"`
	Filename           string `json:"filename,omitempty"`
}

// FileStorageMetadata describes a file received back from a remote execution
// target before it re-enters the storage pipeline.
type FileStorageMetadata struct {
	ID                 string `json:"id"`
	WorkflowInstanceID string `json:"workflow_instance_id"`
	TaskID             string `json:"task_id"`
	CorrelationID      string `json:"correlation_id"`
	Source             string `json:"source,omitempty"`
}

// ChangeCorrelationID swaps the correlation ID and logs the transition so a
// file can be traced across its pre- and post-execution identities.
func (m *FileStorageMetadata) ChangeCorrelationID(logger log.LoggerService, correlationID string) {
	if m.CorrelationID == correlationID {
		return
	}
	logger.Info("Correlation ID changed from '%s' to '%s'", m.CorrelationID, correlationID)
	m.CorrelationID = correlationID
}
