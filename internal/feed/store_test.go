package feed

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sansad-av/talktime/gen/queries"
	"github.com/sansad-av/talktime/internal/broadcast"
	"github.com/sansad-av/talktime/internal/timecodec"
)

var t0 = time.Date(2024, 3, 6, 11, 0, 0, 0, time.UTC)

func zeroHourState(version int64, displaySeconds int) broadcast.State {
	return broadcast.State{
		Mode: broadcast.ModeZeroHour,
		Payload: &broadcast.ZeroHourPayload{
			Member:               &broadcast.Member{SeatNo: "12", Name: "Smt. A. Rao", Party: "IND"},
			TimerDurationMinutes: 3,
			Chair:                broadcast.Chair{Name: "Shri B. Iyer", Position: "Chairman"},
		},
		DisplayTimeSeconds: displaySeconds,
		TimerTimestampMs:   timecodec.UnixMillis(t0),
		Version:            version,
	}
}

func Test_MemoryStore(t *testing.T) {
	clock := timecodec.NewFakeClock(t0)
	changes := make([]broadcast.State, 0)
	s := NewMemoryStore(clock, func(state broadcast.State) {
		changes = append(changes, state)
	})
	ctx := context.Background()

	initial, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, broadcast.ModeIdle, initial.Mode)
	assert.False(t, initial.IsActive())

	clock.Advance(time.Second)
	stored, err := s.Put(ctx, zeroHourState(10, 42))
	require.NoError(t, err)
	assert.Equal(t, int64(10), stored.Version)
	assert.True(t, stored.UpdatedAt.Equal(t0.Add(time.Second)))

	_, err = s.Put(ctx, zeroHourState(5, 7))
	assert.ErrorIs(t, err, ErrStaleVersion)

	current, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, current.DisplayTimeSeconds)

	_, err = s.Put(ctx, zeroHourState(10, 43))
	assert.NoError(t, err, "an equal version is accepted")

	_, err = s.Put(ctx, broadcast.IdleState(broadcast.Chair{}))
	assert.NoError(t, err, "unversioned writes always win")

	_, err = s.Put(ctx, zeroHourState(1, 0))
	assert.NoError(t, err)

	require.Len(t, changes, 4)
	assert.Equal(t, 43, changes[1].DisplayTimeSeconds)
	assert.Equal(t, broadcast.ModeIdle, changes[2].Mode)
}

func Test_PostgresStore(t *testing.T) {
	ctx := context.Background()

	t.Run("empty table reads as Idle", func(t *testing.T) {
		s := NewPostgresStore(&mockQueries{})
		state, err := s.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, broadcast.ModeIdle, state.Mode)
	})
	t.Run("written state is read back with row version and timestamp", func(t *testing.T) {
		q := &mockQueries{now: t0}
		s := NewPostgresStore(q)

		stored, err := s.Put(ctx, zeroHourState(10, 42))
		require.NoError(t, err)
		assert.Equal(t, broadcast.ModeZeroHour, stored.Mode)
		assert.Equal(t, int64(10), stored.Version)
		assert.Equal(t, 42, stored.DisplayTimeSeconds)
		assert.True(t, stored.UpdatedAt.Equal(t0))

		payload, ok := stored.Payload.(*broadcast.ZeroHourPayload)
		require.True(t, ok)
		assert.Equal(t, "Smt. A. Rao", payload.Member.Name)
		assert.Equal(t, "Chairman", payload.Position)
	})
	t.Run("stale version is refused", func(t *testing.T) {
		q := &mockQueries{now: t0}
		s := NewPostgresStore(q)
		_, err := s.Put(ctx, zeroHourState(10, 42))
		require.NoError(t, err)

		_, err = s.Put(ctx, zeroHourState(9, 1))
		assert.ErrorIs(t, err, ErrStaleVersion)
		assert.Equal(t, int64(10), q.row.Version)
	})
	t.Run("corrupt documents are reported", func(t *testing.T) {
		q := &mockQueries{row: &queries.GetBroadcastFeedRow{Document: json.RawMessage(`{"is_active":true,"mode":"Recess"}`)}}
		s := NewPostgresStore(q)
		_, err := s.Get(ctx)
		assert.ErrorIs(t, err, broadcast.ErrInvalidMode)
	})
	t.Run("clear returns the slot to Idle", func(t *testing.T) {
		q := &mockQueries{now: t0}
		s := NewPostgresStore(q)
		_, err := s.Put(ctx, zeroHourState(10, 42))
		require.NoError(t, err)
		require.NoError(t, s.Clear(ctx))

		state, err := s.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, broadcast.ModeIdle, state.Mode)
	})
}

// mockQueries emulates the single-row upsert, including its version guard
type mockQueries struct {
	now time.Time
	row *queries.GetBroadcastFeedRow
}

func (m *mockQueries) GetBroadcastFeed(ctx context.Context) (queries.GetBroadcastFeedRow, error) {
	if m.row == nil {
		return queries.GetBroadcastFeedRow{}, sql.ErrNoRows
	}
	return *m.row, nil
}

func (m *mockQueries) UpsertBroadcastFeed(ctx context.Context, arg queries.UpsertBroadcastFeedParams) (int64, error) {
	if m.row != nil && isStale(m.row.Version, arg.Version) {
		return 0, nil
	}
	m.row = &queries.GetBroadcastFeedRow{
		Document:  arg.Document,
		Version:   arg.Version,
		UpdatedAt: m.now,
	}
	return 1, nil
}

func (m *mockQueries) ClearBroadcastFeed(ctx context.Context) error {
	m.row = nil
	return nil
}

var _ Queries = (*mockQueries)(nil)
