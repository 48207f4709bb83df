package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mwantia/godeid/pkg/api"
	"github.com/mwantia/godeid/pkg/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// ExecutionMapping records the real↔proxy identifier correspondence for one
// exported SOP instance. The source columns hold the real study/series UIDs
// and drive the hierarchy lookup; the proxy columns hold the synthetic values
// written into the outbound dataset. Every instance of an already-seen
// study/series reuses the earlier proxy study/series values, never regenerates
// them.
type ExecutionMapping struct {
	ID          string    `gorm:"primaryKey;type:text"        json:"id"`
	RequestTime time.Time `gorm:"not null;index:idx_mapping_request_time" json:"request_time"`

	WorkflowInstanceID string `gorm:"type:text;not null;index:idx_mapping_series,priority:1;index:idx_mapping_study,priority:1" json:"workflow_instance_id"`
	ExportTaskID       string `gorm:"type:text;not null;index:idx_mapping_series,priority:2;index:idx_mapping_study,priority:2" json:"export_task_id"`
	CorrelationID      string `gorm:"type:text;not null" json:"correlation_id"`

	SourceStudyUID  string `gorm:"type:text;not null;index:idx_mapping_series,priority:3;index:idx_mapping_study,priority:3" json:"source_study_uid"`
	SourceSeriesUID string `gorm:"type:text;not null;index:idx_mapping_series,priority:4" json:"source_series_uid"`

	StudyInstanceUID  string `gorm:"type:text;not null" json:"study_instance_uid"`
	SeriesInstanceUID string `gorm:"type:text;not null" json:"series_instance_uid"`
	SopInstanceUID    string `gorm:"type:text;not null;uniqueIndex:idx_mapping_instance" json:"sop_instance_uid"`

	OriginalValues TagValues `gorm:"type:text" json:"original_values"`
}

func (ExecutionMapping) TableName() string {
	return "execution_mappings"
}

// NewExecutionMapping builds the mapping record for one outbound instance.
// Proxy study/series UIDs are copied from an existing record of the same
// hierarchy when one is passed, otherwise synthesized fresh; the proxy SOP
// instance UID is always fresh. The real identity values are seeded into
// OriginalValues under their dictionary names.
func NewExecutionMapping(msg *api.ExportRequestDataMessage, studyUID, seriesUID, sopUID string, existing *ExecutionMapping) *ExecutionMapping {
	mapping := &ExecutionMapping{
		ID:          uuid.NewString(),
		RequestTime: time.Now().UTC(),

		WorkflowInstanceID: msg.WorkflowInstanceID,
		ExportTaskID:       msg.ExportTaskID,
		CorrelationID:      msg.CorrelationID,

		SourceStudyUID:  studyUID,
		SourceSeriesUID: seriesUID,

		SopInstanceUID: dicom.NewUID(),
	}

	if existing != nil {
		mapping.StudyInstanceUID = existing.StudyInstanceUID
		mapping.SeriesInstanceUID = existing.SeriesInstanceUID
	} else {
		mapping.StudyInstanceUID = dicom.NewUID()
		mapping.SeriesInstanceUID = dicom.NewUID()
	}

	mapping.OriginalValues.Set(dicom.TagName(tag.StudyInstanceUID), studyUID)
	mapping.OriginalValues.Set(dicom.TagName(tag.SeriesInstanceUID), seriesUID)
	mapping.OriginalValues.Set(dicom.TagName(tag.SOPInstanceUID), sopUID)

	return mapping
}
