package store

import (
	"context"
	"errors"
	"time"

	"github.com/mwantia/godeid/pkg/db/models"
)

var (
	// ErrNotFound is returned by Remove when no record matches the identity.
	// Both backends return this uniformly.
	ErrNotFound = errors.New("mapping record not found")
	// ErrDuplicate is returned by Add when a record with the same proxy SOP
	// instance UID or identity already exists.
	ErrDuplicate = errors.New("mapping record already exists")
	// ErrAmbiguous is returned by GetByInstance when more than one record
	// matches a proxy SOP instance UID that must be unique.
	ErrAmbiguous = errors.New("multiple mapping records match")
)

// MappingStore persists the real↔proxy identifier mappings created during
// export. Lookups that find nothing return (nil, nil); errors are reserved
// for failures and integrity violations.
type MappingStore interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
	Health(ctx context.Context) error

	// Add inserts a new mapping record. No upsert semantics.
	Add(ctx context.Context, mapping *models.ExecutionMapping) error

	// Remove deletes a record by identity and returns it, or ErrNotFound.
	Remove(ctx context.Context, mapping *models.ExecutionMapping) (*models.ExecutionMapping, error)

	// GetByInstance resolves a record by its proxy SOP instance UID.
	GetByInstance(ctx context.Context, sopInstanceUID string) (*models.ExecutionMapping, error)

	// GetByHierarchy resolves a record by the real study/series identifiers
	// of one export task. An exact series-level match is attempted first,
	// falling back to a study-level match so a new series of an already
	// exported study still picks up the study's proxy identifiers.
	GetByHierarchy(ctx context.Context, workflowInstanceID, exportTaskID, studyUID, seriesUID string) (*models.ExecutionMapping, error)

	// Purge removes records created before the cutoff and reports how many
	// were deleted. Backends with native expiry may implement this as a
	// no-op.
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}
