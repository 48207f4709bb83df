package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mwantia/godeid/pkg/db/models"
	"github.com/mwantia/godeid/pkg/log"
)

const (
	keyMapping = "godeid:mapping:" // proxy sop uid -> record document
	keyIdent   = "godeid:id:"      // record id -> proxy sop uid
	keySeries  = "godeid:series:"  // wf:task:study:series -> proxy sop uid
	keyStudy   = "godeid:study:"   // wf:task:study -> zset of proxy sop uids
)

// RedisStore implements MappingStore as a document store. Every key carries
// the retention TTL, so expiry is native and Purge is a no-op.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
	log       log.LoggerService
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Retention time.Duration
}

// NewRedisStore creates a new Redis-backed mapping store
func NewRedisStore(cfg RedisConfig, logService log.LoggerService) *RedisStore {
	retention := cfg.Retention
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}

	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		retention: retention,
		log:       logService,
	}
}

func (s *RedisStore) Connect(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Migrate is a no-op; the document layout needs no schema setup.
func (s *RedisStore) Migrate(ctx context.Context) error {
	return nil
}

func (s *RedisStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Add(ctx context.Context, mapping *models.ExecutionMapping) error {
	doc, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to serialize mapping record: %w", err)
	}

	// The document key doubles as the uniqueness constraint on the proxy
	// SOP instance UID.
	created, err := s.client.SetNX(ctx, keyMapping+mapping.SopInstanceUID, doc, s.retention).Result()
	if err != nil {
		return err
	}
	if !created {
		// An earlier attempt may have written the document and failed on
		// the index keys; resume our own record instead of reporting a
		// duplicate.
		stored, err := s.GetByInstance(ctx, mapping.SopInstanceUID)
		if err != nil {
			return err
		}
		if stored == nil || stored.ID != mapping.ID {
			return fmt.Errorf("%w: sop instance uid %s", ErrDuplicate, mapping.SopInstanceUID)
		}
	}

	return s.writeIndexKeys(ctx, mapping)
}

// writeIndexKeys writes the secondary keys of a record in one transaction so
// a retried Add never leaves a document without its id and series pointers.
func (s *RedisStore) writeIndexKeys(ctx context.Context, mapping *models.ExecutionMapping) error {
	studyKey := s.studyKey(mapping.WorkflowInstanceID, mapping.ExportTaskID, mapping.SourceStudyUID)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keyIdent+mapping.ID, mapping.SopInstanceUID, s.retention)
		// First record of a series wins the series pointer; later instances
		// of the same series keep pointing at it.
		pipe.SetNX(ctx, s.seriesKey(mapping.WorkflowInstanceID, mapping.ExportTaskID, mapping.SourceStudyUID, mapping.SourceSeriesUID),
			mapping.SopInstanceUID, s.retention)
		pipe.ZAdd(ctx, studyKey, &redis.Z{
			Score:  float64(mapping.RequestTime.UnixNano()),
			Member: mapping.SopInstanceUID,
		})
		pipe.Expire(ctx, studyKey, s.retention)
		return nil
	})
	return err
}

func (s *RedisStore) Remove(ctx context.Context, mapping *models.ExecutionMapping) (*models.ExecutionMapping, error) {
	sopInstanceUID, err := s.client.Get(ctx, keyIdent+mapping.ID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: id %s", ErrNotFound, mapping.ID)
		}
		return nil, err
	}

	removed, err := s.GetByInstance(ctx, sopInstanceUID)
	if err != nil {
		return nil, err
	}
	if removed == nil {
		s.client.Del(ctx, keyIdent+mapping.ID)
		return nil, fmt.Errorf("%w: id %s", ErrNotFound, mapping.ID)
	}

	seriesKey := s.seriesKey(removed.WorkflowInstanceID, removed.ExportTaskID, removed.SourceStudyUID, removed.SourceSeriesUID)
	studyKey := s.studyKey(removed.WorkflowInstanceID, removed.ExportTaskID, removed.SourceStudyUID)

	if err := s.client.Del(ctx, keyMapping+sopInstanceUID, keyIdent+mapping.ID).Err(); err != nil {
		return nil, err
	}
	if pointer, err := s.client.Get(ctx, seriesKey).Result(); err == nil && pointer == sopInstanceUID {
		s.client.Del(ctx, seriesKey)
	}
	s.client.ZRem(ctx, studyKey, sopInstanceUID)

	return removed, nil
}

func (s *RedisStore) GetByInstance(ctx context.Context, sopInstanceUID string) (*models.ExecutionMapping, error) {
	doc, err := s.client.Get(ctx, keyMapping+sopInstanceUID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var mapping models.ExecutionMapping
	if err := json.Unmarshal([]byte(doc), &mapping); err != nil {
		return nil, fmt.Errorf("failed to decode mapping record: %w", err)
	}
	return &mapping, nil
}

func (s *RedisStore) GetByHierarchy(ctx context.Context, workflowInstanceID, exportTaskID, studyUID, seriesUID string) (*models.ExecutionMapping, error) {
	pointer, err := s.client.Get(ctx, s.seriesKey(workflowInstanceID, exportTaskID, studyUID, seriesUID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	if err == nil {
		mapping, err := s.GetByInstance(ctx, pointer)
		if err != nil {
			return nil, err
		}
		if mapping != nil {
			return mapping, nil
		}
		// Pointer outlived its document; fall through to the study level.
	}

	studyKey := s.studyKey(workflowInstanceID, exportTaskID, studyUID)
	members, err := s.client.ZRevRange(ctx, studyKey, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	if len(members) > 1 {
		s.log.Warn("Ambiguous study-level fallback for workflow '%s' task '%s' study '%s', using most recent record",
			workflowInstanceID, exportTaskID, studyUID)
	}

	for _, member := range members {
		mapping, err := s.GetByInstance(ctx, member)
		if err != nil {
			return nil, err
		}
		if mapping != nil {
			return mapping, nil
		}
		// Expired document, drop the stale member.
		s.client.ZRem(ctx, studyKey, member)
	}
	return nil, nil
}

// Purge relies on the per-key TTL applied at write time.
func (s *RedisStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	return 0, nil
}

func (s *RedisStore) seriesKey(workflowInstanceID, exportTaskID, studyUID, seriesUID string) string {
	return fmt.Sprintf("%s%s:%s:%s:%s", keySeries, workflowInstanceID, exportTaskID, studyUID, seriesUID)
}

func (s *RedisStore) studyKey(workflowInstanceID, exportTaskID, studyUID string) string {
	return fmt.Sprintf("%s%s:%s:%s", keyStudy, workflowInstanceID, exportTaskID, studyUID)
}
