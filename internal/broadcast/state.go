package broadcast

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sansad-av/talktime/internal/timecodec"
)

// State is the complete description of what is currently on air
type State struct {
	// Mode is the kind of broadcast on air; Idle between sessions
	Mode Mode
	// Payload carries the mode-specific data, and is always the type that belongs to
	// Mode
	Payload Payload
	// DisplayTimeSeconds is the speaking timer's value as of TimerTimestampMs
	DisplayTimeSeconds int
	// IsPaused freezes the timer at DisplayTimeSeconds
	IsPaused bool
	// TimerTimestampMs is the wall-clock instant, in Unix milliseconds, at which
	// DisplayTimeSeconds was last known to be accurate; zero if unknown
	TimerTimestampMs int64
	// Version increases with every change made by a Model, so that the feed slot can
	// refuse updates that arrive out of order
	Version int64
	// UpdatedAt records when the state was last changed
	UpdatedAt time.Time
}

// IdleState returns the state shown between sessions
func IdleState(chair Chair) State {
	return State{
		Mode:    ModeIdle,
		Payload: &IdlePayload{Chair: chair},
	}
}

// IsActive is true while any broadcast other than Idle is on air
func (s State) IsActive() bool {
	return s.Mode != ModeIdle
}

// Elapsed extrapolates the timer value at the given instant. A paused timer, or one
// with no known timestamp, is frozen at DisplayTimeSeconds.
func (s State) Elapsed(now time.Time) int {
	if s.IsPaused || s.TimerTimestampMs == 0 {
		return s.DisplayTimeSeconds
	}
	lagMs := timecodec.UnixMillis(now) - s.TimerTimestampMs
	if lagMs <= 0 {
		return s.DisplayTimeSeconds
	}
	return s.DisplayTimeSeconds + int(lagMs/1000)
}

// DisplayTime returns DisplayTimeSeconds as a TimeValue
func (s State) DisplayTime() timecodec.TimeValue {
	return timecodec.FromSeconds(s.DisplayTimeSeconds)
}

// Chairperson returns the presiding officer shown in the current payload
func (s State) Chairperson() Chair {
	if s.Payload == nil {
		return Chair{}
	}
	return s.Payload.Chairperson()
}

// stateJSON is the wire representation of State, as stored in the broadcast feed
type stateJSON struct {
	IsActive           bool                `json:"is_active"`
	Mode               Mode                `json:"mode"`
	Payload            json.RawMessage     `json:"payload"`
	DisplayTime        timecodec.TimeValue `json:"displayTime"`
	DisplayTimeSeconds *int                `json:"displayTimeSeconds,omitempty"`
	TimerTimestamp     *int64              `json:"timerTimestamp"`
	IsPaused           bool                `json:"isPaused"`
	Version            int64               `json:"version,omitempty"`
	UpdatedAt          *time.Time          `json:"updated_at,omitempty"`
}

func (s State) MarshalJSON() ([]byte, error) {
	payload := s.Payload
	if payload == nil {
		payload = NewPayload(s.Mode)
	}
	payloadData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	seconds := s.DisplayTimeSeconds
	wire := stateJSON{
		IsActive:           s.IsActive(),
		Mode:               s.Mode,
		Payload:            payloadData,
		DisplayTime:        s.DisplayTime(),
		DisplayTimeSeconds: &seconds,
		IsPaused:           s.IsPaused,
		Version:            s.Version,
	}
	if s.TimerTimestampMs != 0 {
		ts := s.TimerTimestampMs
		wire.TimerTimestamp = &ts
	}
	if !s.UpdatedAt.IsZero() {
		updatedAt := s.UpdatedAt.UTC()
		wire.UpdatedAt = &updatedAt
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes a feed document. A document that isn't active is always
// treated as Idle, whatever mode it names.
func (s *State) UnmarshalJSON(data []byte) error {
	var wire stateJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	mode := ModeIdle
	if wire.IsActive {
		parsed, err := ParseMode(string(wire.Mode))
		if err != nil {
			return err
		}
		mode = parsed
	}
	payload, err := DecodePayload(mode, wire.Payload)
	if err != nil {
		return err
	}

	seconds := timecodec.ToSeconds(wire.DisplayTime)
	if wire.DisplayTimeSeconds != nil {
		seconds = *wire.DisplayTimeSeconds
	}
	if seconds < 0 {
		return fmt.Errorf("displayTimeSeconds must not be negative; got %d", seconds)
	}

	*s = State{
		Mode:               mode,
		Payload:            payload,
		DisplayTimeSeconds: seconds,
		IsPaused:           wire.IsPaused,
		Version:            wire.Version,
	}
	if wire.TimerTimestamp != nil {
		s.TimerTimestampMs = *wire.TimerTimestamp
	}
	if wire.UpdatedAt != nil {
		s.UpdatedAt = *wire.UpdatedAt
	}
	if !s.IsActive() {
		s.DisplayTimeSeconds = 0
		s.IsPaused = false
	}
	return nil
}
