package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/sansad-av/talktime/internal/broadcast"
	"github.com/sansad-av/talktime/internal/timecodec"
)

// ErrStaleVersion is returned when a write carries a lower version than the state
// already held in the feed slot
var ErrStaleVersion = errors.New("a newer broadcast state has already been published")

// Store holds the single, global broadcast feed slot
type Store interface {
	// Get returns the current state, or an Idle state if nothing has been published
	Get(ctx context.Context) (broadcast.State, error)
	// Put replaces the current state and returns it as stored. A nonzero version
	// lower than the stored one is refused with ErrStaleVersion.
	Put(ctx context.Context, state broadcast.State) (broadcast.State, error)
}

// ChangeFunc is called with every state accepted into the slot
type ChangeFunc func(state broadcast.State)

// isStale applies last-write-wins by version; version 0 is unversioned and always
// accepted
func isStale(current, next int64) bool {
	return next != 0 && next < current
}

// MemoryStore keeps the feed slot in process memory
type MemoryStore struct {
	clock    timecodec.Clock
	onChange ChangeFunc

	mu    sync.RWMutex
	state broadcast.State
}

func NewMemoryStore(clock timecodec.Clock, onChange ChangeFunc) *MemoryStore {
	return &MemoryStore{
		clock:    clock,
		onChange: onChange,
		state:    broadcast.IdleState(broadcast.Chair{}),
	}
}

func (s *MemoryStore) Get(ctx context.Context) (broadcast.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, nil
}

func (s *MemoryStore) Put(ctx context.Context, state broadcast.State) (broadcast.State, error) {
	s.mu.Lock()
	if isStale(s.state.Version, state.Version) {
		s.mu.Unlock()
		return broadcast.State{}, ErrStaleVersion
	}
	state.UpdatedAt = s.clock.Now().UTC()
	s.state = state
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(state)
	}
	return state, nil
}

var _ Store = (*MemoryStore)(nil)
