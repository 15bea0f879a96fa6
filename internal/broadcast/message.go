package broadcast

import (
	"encoding/json"
	"fmt"

	"github.com/sansad-av/talktime/internal/timecodec"
)

// MessageType discriminates the messages pushed to display windows
type MessageType string

const (
	MessageTypeStartBroadcast    MessageType = "START_BROADCAST"
	MessageTypeDataUpdate        MessageType = "DATA_UPDATE"
	MessageTypeTimerUpdate       MessageType = "TIMER_UPDATE"
	MessageTypeTimerSync         MessageType = "TIMER_SYNC"
	MessageTypeTimerPaused       MessageType = "TIMER_PAUSED"
	MessageTypeBroadcastEnd      MessageType = "BROADCAST_END"
	MessageTypeRequestFullscreen MessageType = "REQUEST_FULLSCREEN"

	// MessageTypeReady is sent by a display window, not to it, once it has loaded and
	// is able to receive messages
	MessageTypeReady MessageType = "READY"
)

// Message is a state change delivered to a display window. Every field besides Type
// is optional: START_BROADCAST and BROADCAST_END reinitialize the display, while all
// other messages merge whatever fields they carry into the existing display state.
type Message struct {
	Type MessageType
	// Mode is the mode being started, for START_BROADCAST
	Mode Mode
	// Payload is the full payload, for START_BROADCAST and BROADCAST_END
	Payload Payload
	// Patch is the partial payload update, for DATA_UPDATE
	Patch *Patch

	DisplayTimeSeconds *int
	TimerTimestampMs   *int64
	IsPaused           *bool
}

// messageJSON is the wire representation of Message
type messageJSON struct {
	Type               MessageType          `json:"type"`
	Mode               Mode                 `json:"broadcastType,omitempty"`
	Payload            json.RawMessage      `json:"payload,omitempty"`
	Data               *Patch               `json:"data,omitempty"`
	Time               *timecodec.TimeValue `json:"time,omitempty"`
	DisplayTimeSeconds *int                 `json:"displayTimeSeconds,omitempty"`
	TimerTimestamp     *int64               `json:"timerTimestamp,omitempty"`
	IsPaused           *bool                `json:"isPaused,omitempty"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	wire := messageJSON{
		Type:               m.Type,
		Mode:               m.Mode,
		Data:               m.Patch,
		DisplayTimeSeconds: m.DisplayTimeSeconds,
		TimerTimestamp:     m.TimerTimestampMs,
		IsPaused:           m.IsPaused,
	}
	if m.Payload != nil {
		data, err := json.Marshal(m.Payload)
		if err != nil {
			return nil, err
		}
		wire.Payload = data
	}
	if m.DisplayTimeSeconds != nil {
		t := timecodec.FromSeconds(*m.DisplayTimeSeconds)
		wire.Time = &t
	}
	return json.Marshal(wire)
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var wire messageJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Type == "" {
		return fmt.Errorf("message has no type")
	}

	*m = Message{
		Type:               wire.Type,
		Mode:               wire.Mode,
		Patch:              wire.Data,
		DisplayTimeSeconds: wire.DisplayTimeSeconds,
		TimerTimestampMs:   wire.TimerTimestamp,
		IsPaused:           wire.IsPaused,
	}
	if m.DisplayTimeSeconds == nil && wire.Time != nil {
		seconds := timecodec.ToSeconds(*wire.Time)
		m.DisplayTimeSeconds = &seconds
	}

	payloadMode := wire.Mode
	switch wire.Type {
	case MessageTypeStartBroadcast:
		if payloadMode == "" {
			payloadMode = ModeZeroHour
		}
	case MessageTypeBroadcastEnd:
		payloadMode = ModeIdle
	default:
		return nil
	}
	if _, err := ParseMode(string(payloadMode)); err != nil {
		return err
	}
	m.Mode = payloadMode
	if len(wire.Payload) > 0 {
		payload, err := DecodePayload(payloadMode, wire.Payload)
		if err != nil {
			return err
		}
		m.Payload = payload
	}
	return nil
}

// SnapshotMessage describes the full state as a single message that reinitializes a
// display window
func SnapshotMessage(s State) Message {
	if !s.IsActive() {
		return Message{
			Type:    MessageTypeBroadcastEnd,
			Mode:    ModeIdle,
			Payload: s.Payload,
		}
	}
	seconds := s.DisplayTimeSeconds
	paused := s.IsPaused
	msg := Message{
		Type:               MessageTypeStartBroadcast,
		Mode:               s.Mode,
		Payload:            s.Payload,
		DisplayTimeSeconds: &seconds,
		IsPaused:           &paused,
	}
	if s.TimerTimestampMs != 0 {
		ts := s.TimerTimestampMs
		msg.TimerTimestampMs = &ts
	}
	return msg
}

// Apply computes the display state that results from receiving msg. It never fails:
// fields that are absent or don't fit the current mode leave the existing state as it
// was.
func Apply(s State, msg Message) State {
	switch msg.Type {
	case MessageTypeStartBroadcast:
		mode := msg.Mode
		if mode == "" {
			mode = ModeZeroHour
		}
		if _, err := ParseMode(string(mode)); err != nil || mode == ModeIdle {
			return s
		}
		payload := msg.Payload
		if payload == nil || CheckPayload(mode, payload) != nil {
			payload = NewPayload(mode)
		}
		next := State{
			Mode:      mode,
			Payload:   clonePayload(payload),
			Version:   s.Version,
			UpdatedAt: s.UpdatedAt,
		}
		applyTimerFields(&next, msg)
		return next

	case MessageTypeBroadcastEnd:
		chair := s.Chairperson()
		if msg.Payload != nil && !msg.Payload.Chairperson().IsZero() {
			chair = msg.Payload.Chairperson()
		}
		next := IdleState(chair)
		next.Version = s.Version
		next.UpdatedAt = s.UpdatedAt
		return next

	case MessageTypeDataUpdate:
		next := s
		if msg.Patch != nil && next.Payload != nil {
			next.Payload = msg.Patch.Merge(next.Payload)
		}
		applyTimerFields(&next, msg)
		return next

	case MessageTypeTimerUpdate, MessageTypeTimerSync:
		next := s
		applyTimerFields(&next, msg)
		return next

	case MessageTypeTimerPaused:
		next := s
		applyTimerFields(&next, msg)
		if msg.IsPaused == nil {
			next.IsPaused = true
		}
		return next
	}
	return s
}

func applyTimerFields(s *State, msg Message) {
	if msg.DisplayTimeSeconds != nil && *msg.DisplayTimeSeconds >= 0 {
		s.DisplayTimeSeconds = *msg.DisplayTimeSeconds
	}
	if msg.TimerTimestampMs != nil {
		s.TimerTimestampMs = *msg.TimerTimestampMs
	}
	if msg.IsPaused != nil {
		s.IsPaused = *msg.IsPaused
	}
}
