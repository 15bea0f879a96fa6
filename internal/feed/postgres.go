package feed

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sansad-av/talktime/gen/queries"
	"github.com/sansad-av/talktime/internal/broadcast"
)

type Queries interface {
	GetBroadcastFeed(ctx context.Context) (queries.GetBroadcastFeedRow, error)
	UpsertBroadcastFeed(ctx context.Context, arg queries.UpsertBroadcastFeedParams) (int64, error)
	ClearBroadcastFeed(ctx context.Context) error
}

// PostgresStore keeps the feed slot in the talktime.broadcast_feed table, so that
// several server replicas share one slot. Changes are announced by a database
// trigger and picked up by a ChangeListener.
type PostgresStore struct {
	q Queries
}

func NewPostgresStore(q Queries) *PostgresStore {
	return &PostgresStore{q: q}
}

func (s *PostgresStore) Get(ctx context.Context) (broadcast.State, error) {
	row, err := s.q.GetBroadcastFeed(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return broadcast.IdleState(broadcast.Chair{}), nil
	}
	if err != nil {
		return broadcast.State{}, err
	}

	var state broadcast.State
	if err := json.Unmarshal(row.Document, &state); err != nil {
		return broadcast.State{}, fmt.Errorf("failed to decode stored broadcast feed: %w", err)
	}
	state.Version = row.Version
	state.UpdatedAt = row.UpdatedAt.UTC()
	return state, nil
}

func (s *PostgresStore) Put(ctx context.Context, state broadcast.State) (broadcast.State, error) {
	state.UpdatedAt = state.UpdatedAt.UTC()
	document, err := json.Marshal(state)
	if err != nil {
		return broadcast.State{}, err
	}
	n, err := s.q.UpsertBroadcastFeed(ctx, queries.UpsertBroadcastFeedParams{
		Document: document,
		Version:  state.Version,
	})
	if err != nil {
		return broadcast.State{}, err
	}
	if n == 0 {
		return broadcast.State{}, ErrStaleVersion
	}
	return s.Get(ctx)
}

// Clear removes the stored state entirely, so that readers see Idle
func (s *PostgresStore) Clear(ctx context.Context) error {
	return s.q.ClearBroadcastFeed(ctx)
}

var _ Store = (*PostgresStore)(nil)
