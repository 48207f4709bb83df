package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/mwantia/godeid/pkg/api"
	"github.com/mwantia/godeid/pkg/db/models"
	"github.com/mwantia/godeid/pkg/db/store"
	"github.com/mwantia/godeid/pkg/dicom"
	"github.com/mwantia/godeid/pkg/log"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const DeidentifierName = "dicom-deidentifier"

func init() {
	RegisterOutput(DeidentifierName, NewDeidentifier)
}

// Deidentifier replaces the study/series/SOP identifiers and every configured
// tag of an outbound dataset with proxy values, and persists the mapping so
// the incoming plugin can restore the original values later.
type Deidentifier struct {
	store store.MappingStore
	log   log.LoggerService
	tags  []tag.Tag
	locks *keyedMutex
}

// NewDeidentifier validates the configured tag list and builds the plugin.
// Pseudonymization without a configured tag set is a configuration error, so
// a missing or unresolvable list fails construction, not execution.
func NewDeidentifier(deps Dependencies) (OutputDataPlugin, error) {
	if strings.TrimSpace(deps.Config.ReplaceTags) == "" {
		return nil, fmt.Errorf("plugin '%s' requires the replace_tags configuration value", DeidentifierName)
	}

	tags, err := dicom.ResolveTagList(deps.Config.ReplaceTags)
	if err != nil {
		return nil, fmt.Errorf("plugin '%s' has an invalid replace_tags value: %w", DeidentifierName, err)
	}

	return &Deidentifier{
		store: deps.Store,
		log:   deps.Log.Named("deidentifier"),
		tags:  tags,
		locks: newKeyedMutex(),
	}, nil
}

func (p *Deidentifier) Name() string {
	return DeidentifierName
}

func (p *Deidentifier) Execute(ctx context.Context, dataset *dicom.Dataset, msg *api.ExportRequestDataMessage) (*dicom.Dataset, *api.ExportRequestDataMessage, error) {
	studyUID, ok := dataset.GetString(tag.StudyInstanceUID)
	if !ok {
		return dataset, msg, fmt.Errorf("dataset has no StudyInstanceUID")
	}
	seriesUID, ok := dataset.GetString(tag.SeriesInstanceUID)
	if !ok {
		return dataset, msg, fmt.Errorf("dataset has no SeriesInstanceUID")
	}
	sopUID, ok := dataset.GetString(tag.SOPInstanceUID)
	if !ok {
		return dataset, msg, fmt.Errorf("dataset has no SOPInstanceUID")
	}

	// Hold the series key across lookup and insert so concurrent instances
	// of a new series cannot each mint their own proxy study/series.
	unlock := p.locks.Lock(fmt.Sprintf("%s|%s|%s|%s", msg.WorkflowInstanceID, msg.ExportTaskID, studyUID, seriesUID))
	defer unlock()

	existing, err := p.store.GetByHierarchy(ctx, msg.WorkflowInstanceID, msg.ExportTaskID, studyUID, seriesUID)
	if err != nil {
		return dataset, msg, fmt.Errorf("hierarchy lookup failed for workflow '%s' task '%s': %w",
			msg.WorkflowInstanceID, msg.ExportTaskID, err)
	}

	mapping := models.NewExecutionMapping(msg, studyUID, seriesUID, sopUID, existing)

	for _, t := range p.tags {
		if t == tag.StudyInstanceUID || t == tag.SeriesInstanceUID || t == tag.SOPInstanceUID {
			continue
		}

		value, ok := dataset.GetString(t)
		if !ok {
			continue
		}

		mapping.OriginalValues.Set(dicom.TagName(t), value)

		proxy, ok := dicom.NewProxyValueForTag(t)
		if !ok {
			// Unsupported VR: the real value intentionally stays in the
			// outbound dataset.
			p.log.Debug("No proxy value for tag %s, passing through unchanged", dicom.TagName(t))
			continue
		}

		dataset.Upsert(t, proxy)
		p.log.Info("Replaced tag %s value '%s' with '%s' (correlation '%s')",
			dicom.TagName(t), value, proxy, msg.CorrelationID)
	}

	dataset.Upsert(tag.StudyInstanceUID, mapping.StudyInstanceUID)
	dataset.Upsert(tag.SeriesInstanceUID, mapping.SeriesInstanceUID)
	dataset.Upsert(tag.SOPInstanceUID, mapping.SopInstanceUID)

	if err := p.store.Add(ctx, mapping); err != nil {
		return dataset, msg, fmt.Errorf("failed to persist mapping for workflow '%s' task '%s' correlation '%s': %w",
			msg.WorkflowInstanceID, msg.ExportTaskID, msg.CorrelationID, err)
	}

	return dataset, msg, nil
}
