package viewer

import (
	"time"

	"github.com/sansad-av/talktime/internal/broadcast"
	"github.com/sansad-av/talktime/internal/timecodec"
)

// Snapshot is a polled state together with the timer base derived from it
type Snapshot struct {
	State broadcast.State
	// AdjustedBaseSeconds is the timer value as of PolledAt, accounting for the time
	// that passed between the publisher stamping the state and the poll completing
	AdjustedBaseSeconds int
	PolledAt            time.Time
}

// Reconstruct derives a Snapshot from a state received at polledAt
func Reconstruct(state broadcast.State, polledAt time.Time) Snapshot {
	lag := 0
	if !state.IsPaused && state.TimerTimestampMs != 0 {
		lag = floorSeconds(timecodec.UnixMillis(polledAt) - state.TimerTimestampMs)
	}
	return Snapshot{
		State:               state,
		AdjustedBaseSeconds: state.DisplayTimeSeconds + lag,
		PolledAt:            polledAt,
	}
}

// Shown is the timer value to display at now
func (s Snapshot) Shown(now time.Time) int {
	if s.State.IsPaused {
		return s.AdjustedBaseSeconds
	}
	return s.AdjustedBaseSeconds + floorSeconds(now.Sub(s.PolledAt).Milliseconds())
}

// Current returns the polled state with its timer fixed at the value shown at now
func (s Snapshot) Current(now time.Time) broadcast.State {
	state := s.State
	state.DisplayTimeSeconds = s.Shown(now)
	state.TimerTimestampMs = 0
	return state
}

func floorSeconds(ms int64) int {
	if ms <= 0 {
		return 0
	}
	return int(ms / 1000)
}
