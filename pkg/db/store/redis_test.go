package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests against a local Redis. They skip when no server is
// reachable, so `go test ./...` stays green on machines without one.
func newRedisTestStore(t *testing.T) *RedisStore {
	t.Helper()

	s := NewRedisStore(RedisConfig{
		Addr:      "localhost:6379",
		DB:        9,
		Retention: time.Hour,
	}, testLogger())

	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	require.NoError(t, s.client.FlushDB(ctx).Err())

	t.Cleanup(func() {
		s.client.FlushDB(context.Background())
		s.Close()
	})
	return s
}

func TestRedisAddAndGetByInstance(t *testing.T) {
	s := newRedisTestStore(t)
	ctx := context.Background()

	mapping := newTestMapping("W1", "E1", "1.2.3", "1.2.3.4")
	mapping.OriginalValues.Set("PatientID", "P123")
	require.NoError(t, s.Add(ctx, mapping))

	found, err := s.GetByInstance(ctx, mapping.SopInstanceUID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, mapping.ID, found.ID)

	value, ok := found.OriginalValues.Get("PatientID")
	require.True(t, ok)
	assert.Equal(t, "P123", value)

	missing, err := s.GetByInstance(ctx, "1.9.9.9")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRedisAddResumesHalfWrittenRecord(t *testing.T) {
	s := newRedisTestStore(t)
	ctx := context.Background()

	mapping := newTestMapping("W1", "E1", "1.2.3", "1.2.3.4")

	// Simulate an Add that wrote the document but died before the index
	// keys: only the document exists.
	doc, err := json.Marshal(mapping)
	require.NoError(t, err)
	require.NoError(t, s.client.Set(ctx, keyMapping+mapping.SopInstanceUID, doc, time.Hour).Err())

	// A retried Add of the same record completes the missing keys instead
	// of reporting a duplicate.
	require.NoError(t, s.Add(ctx, mapping))

	found, err := s.GetByHierarchy(ctx, "W1", "E1", "1.2.3", "1.2.3.4")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, mapping.ID, found.ID)

	removed, err := s.Remove(ctx, mapping)
	require.NoError(t, err)
	assert.Equal(t, mapping.ID, removed.ID)
}

func TestRedisAddDuplicateSopInstanceUID(t *testing.T) {
	s := newRedisTestStore(t)
	ctx := context.Background()

	first := newTestMapping("W1", "E1", "1.2.3", "1.2.3.4")
	require.NoError(t, s.Add(ctx, first))

	second := newTestMapping("W1", "E1", "1.2.3", "1.2.3.5")
	second.SopInstanceUID = first.SopInstanceUID
	assert.ErrorIs(t, s.Add(ctx, second), ErrDuplicate)
}

func TestRedisRemove(t *testing.T) {
	s := newRedisTestStore(t)
	ctx := context.Background()

	mapping := newTestMapping("W1", "E1", "1.2.3", "1.2.3.4")
	require.NoError(t, s.Add(ctx, mapping))

	removed, err := s.Remove(ctx, mapping)
	require.NoError(t, err)
	assert.Equal(t, mapping.ID, removed.ID)

	found, err := s.GetByInstance(ctx, mapping.SopInstanceUID)
	require.NoError(t, err)
	assert.Nil(t, found)

	_, err = s.Remove(ctx, mapping)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisGetByHierarchy(t *testing.T) {
	s := newRedisTestStore(t)
	ctx := context.Background()

	mapping := newTestMapping("W1", "E1", "1.2.3", "1.2.3.4")
	require.NoError(t, s.Add(ctx, mapping))

	// Exact series match.
	found, err := s.GetByHierarchy(ctx, "W1", "E1", "1.2.3", "1.2.3.4")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, mapping.ID, found.ID)

	// Study-level fallback for a series not seen before.
	found, err = s.GetByHierarchy(ctx, "W1", "E1", "1.2.3", "1.2.3.99")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, mapping.StudyInstanceUID, found.StudyInstanceUID)

	// A different export task shares nothing.
	found, err = s.GetByHierarchy(ctx, "W1", "E2", "1.2.3", "1.2.3.4")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRedisGetByHierarchyFallbackPicksMostRecent(t *testing.T) {
	s := newRedisTestStore(t)
	ctx := context.Background()

	older := newTestMapping("W1", "E1", "1.2.3", "1.2.3.4")
	older.RequestTime = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.Add(ctx, older))

	newer := newTestMapping("W1", "E1", "1.2.3", "1.2.3.5")
	newer.RequestTime = time.Now().UTC()
	require.NoError(t, s.Add(ctx, newer))

	found, err := s.GetByHierarchy(ctx, "W1", "E1", "1.2.3", "1.2.3.99")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, newer.ID, found.ID)
}
