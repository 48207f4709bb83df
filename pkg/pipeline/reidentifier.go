package pipeline

import (
	"context"
	"fmt"

	"github.com/mwantia/godeid/pkg/api"
	"github.com/mwantia/godeid/pkg/db/store"
	"github.com/mwantia/godeid/pkg/dicom"
	"github.com/mwantia/godeid/pkg/log"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const ReidentifierName = "dicom-reidentifier"

func init() {
	RegisterInput(ReidentifierName, NewReidentifier)
}

// Reidentifier restores the original tag values of a dataset returning from
// a remote execution target, using the mapping persisted at export time. A
// dataset without a mapping passes through unchanged; files are never
// dropped here.
type Reidentifier struct {
	store store.MappingStore
	log   log.LoggerService
}

func NewReidentifier(deps Dependencies) (InputDataPlugin, error) {
	return &Reidentifier{
		store: deps.Store,
		log:   deps.Log.Named("reidentifier"),
	}, nil
}

func (p *Reidentifier) Name() string {
	return ReidentifierName
}

func (p *Reidentifier) Execute(ctx context.Context, dataset *dicom.Dataset, metadata *api.FileStorageMetadata) (*dicom.Dataset, *api.FileStorageMetadata, error) {
	sopInstanceUID, ok := dataset.GetString(tag.SOPInstanceUID)
	if !ok {
		return dataset, metadata, fmt.Errorf("dataset has no SOPInstanceUID")
	}

	mapping, err := p.store.GetByInstance(ctx, sopInstanceUID)
	if err != nil {
		return dataset, metadata, fmt.Errorf("instance lookup failed for '%s': %w", sopInstanceUID, err)
	}
	if mapping == nil {
		p.log.Warn("No mapping found for incoming instance '%s', passing through unchanged", sopInstanceUID)
		return dataset, metadata, nil
	}

	for _, original := range mapping.OriginalValues {
		t, err := dicom.ResolveTag(original.Name)
		if err != nil {
			p.log.Warn("Cannot restore recorded tag '%s': %v", original.Name, err)
			continue
		}
		dataset.Upsert(t, original.Value)
	}

	metadata.WorkflowInstanceID = mapping.WorkflowInstanceID
	metadata.TaskID = mapping.ExportTaskID
	metadata.ChangeCorrelationID(p.log, mapping.CorrelationID)

	return dataset, metadata, nil
}
