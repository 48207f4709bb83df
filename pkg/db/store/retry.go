package store

import (
	"context"
	"errors"
	"time"

	"github.com/mwantia/godeid/pkg/db/models"
	"github.com/mwantia/godeid/pkg/log"
)

// DefaultRetryDelays mirrors the configuration default.
var DefaultRetryDelays = []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, time.Second}

// retryStore decorates a MappingStore with a fixed ladder of retry delays.
// Every failed attempt is logged with its attempt count; once the ladder is
// exhausted the final failure propagates to the caller. Domain sentinels
// (not found, duplicate, ambiguous) and context cancellation are terminal.
type retryStore struct {
	next   MappingStore
	delays []time.Duration
	log    log.LoggerService
}

// WithRetry wraps the data operations of a MappingStore in the retry policy.
// Lifecycle operations pass through untouched.
func WithRetry(next MappingStore, delays []time.Duration, logService log.LoggerService) MappingStore {
	if len(delays) == 0 {
		delays = DefaultRetryDelays
	}
	return &retryStore{
		next:   next,
		delays: delays,
		log:    logService,
	}
}

func (s *retryStore) Connect(ctx context.Context) error { return s.next.Connect(ctx) }
func (s *retryStore) Close() error                      { return s.next.Close() }
func (s *retryStore) Migrate(ctx context.Context) error { return s.next.Migrate(ctx) }
func (s *retryStore) Health(ctx context.Context) error  { return s.next.Health(ctx) }

func (s *retryStore) Add(ctx context.Context, mapping *models.ExecutionMapping) error {
	return s.retry(ctx, "add", func() error {
		return s.next.Add(ctx, mapping)
	})
}

func (s *retryStore) Remove(ctx context.Context, mapping *models.ExecutionMapping) (*models.ExecutionMapping, error) {
	var removed *models.ExecutionMapping
	err := s.retry(ctx, "remove", func() error {
		var err error
		removed, err = s.next.Remove(ctx, mapping)
		return err
	})
	return removed, err
}

func (s *retryStore) GetByInstance(ctx context.Context, sopInstanceUID string) (*models.ExecutionMapping, error) {
	var mapping *models.ExecutionMapping
	err := s.retry(ctx, "get-by-instance", func() error {
		var err error
		mapping, err = s.next.GetByInstance(ctx, sopInstanceUID)
		return err
	})
	return mapping, err
}

func (s *retryStore) GetByHierarchy(ctx context.Context, workflowInstanceID, exportTaskID, studyUID, seriesUID string) (*models.ExecutionMapping, error) {
	var mapping *models.ExecutionMapping
	err := s.retry(ctx, "get-by-hierarchy", func() error {
		var err error
		mapping, err = s.next.GetByHierarchy(ctx, workflowInstanceID, exportTaskID, studyUID, seriesUID)
		return err
	})
	return mapping, err
}

func (s *retryStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	var purged int64
	err := s.retry(ctx, "purge", func() error {
		var err error
		purged, err = s.next.Purge(ctx, olderThan)
		return err
	})
	return purged, err
}

func (s *retryStore) retry(ctx context.Context, operation string, fn func() error) error {
	err := fn()
	for attempt, delay := range s.delays {
		if err == nil || terminal(err) {
			return err
		}

		s.log.Warn("Database operation '%s' failed, retry %d/%d in %s: %v",
			operation, attempt+1, len(s.delays), delay, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		err = fn()
	}
	return err
}

func terminal(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrAmbiguous) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
