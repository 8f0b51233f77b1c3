package checkpoint

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	store, err := NewRedisStore(context.Background(), RedisConfig{Addr: mr.Addr(), TTL: time.Minute})
	require.NoError(t, err)
	return mr, store
}

func sample(runID string, node int, completed ...int) *Checkpoint {
	return &Checkpoint{
		RunID:     runID,
		Node:      node,
		Completed: completed,
		Total:     3,
		Outputs:   []PortValue{{Port: 0, Value: json.RawMessage(`15`)}},
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Latest(ctx, "run-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, sample("run-1", 0, 0)))
	require.NoError(t, s.Save(ctx, sample("run-1", 1, 0, 1)))
	require.NoError(t, s.Save(ctx, sample("run-2", 0, 0)))

	latest, err := s.Latest(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, latest.Node)
	assert.Equal(t, []int{0, 1}, latest.Completed)
	assert.JSONEq(t, `15`, string(latest.Outputs[0].Value))
	assert.False(t, latest.Done())

	all, err := s.List(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 0, all[0].Node)

	none, err := s.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	mr, store := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	exerciseStore(t, store)
	assert.True(t, mr.Exists("burstflow:checkpoint:run-1"))
	assert.Equal(t, time.Minute, mr.TTL("burstflow:checkpoint:run-1"))
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisStore(context.Background(), RedisConfig{Addr: addr})
	assert.ErrorContains(t, err, "failed to connect to Redis")
}

func TestMemoryStore_SaveCopies(t *testing.T) {
	s := NewMemoryStore()
	cp := sample("r", 0, 0)
	require.NoError(t, s.Save(context.Background(), cp))
	cp.Completed[0] = 99

	got, err := s.Latest(context.Background(), "r")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, got.Completed)
}
