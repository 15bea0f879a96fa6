package broadcast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sansad-av/talktime/internal/timecodec"
)

// Pusher delivers messages to locally-opened display windows. Push must not block on
// the display, and must not fail into the caller.
type Pusher interface {
	Push(msg Message)
}

// Publisher makes the latest state available to remote viewers. Publish must not
// block on the network.
type Publisher interface {
	Publish(state State)
}

// DefaultTimerPublishInterval is the minimum spacing between publishes that only
// advance the running timer
const DefaultTimerPublishInterval = 900 * time.Millisecond

// DefaultTickInterval is how often Run advances a live timer
const DefaultTickInterval = 250 * time.Millisecond

// Model owns the state that's currently on air. Every change goes through one of its
// operations, each of which updates mode and payload together and then notifies both
// transports.
type Model struct {
	clock     timecodec.Clock
	pusher    Pusher
	publisher Publisher

	// TimerPublishInterval throttles publishes caused by timer ticks alone
	TimerPublishInterval time.Duration

	mu              sync.Mutex
	state           State
	chair           Chair
	lastPublishedAt time.Time
}

// NewModel initializes a model in the Idle state. Either transport may be nil.
func NewModel(clock timecodec.Clock, pusher Pusher, publisher Publisher) *Model {
	if clock == nil {
		clock = timecodec.RealClock{}
	}
	if pusher == nil {
		pusher = nopTransport{}
	}
	if publisher == nil {
		publisher = nopTransport{}
	}
	return &Model{
		clock:                clock,
		pusher:               pusher,
		publisher:            publisher,
		TimerPublishInterval: DefaultTimerPublishInterval,
		state:                IdleState(Chair{}),
	}
}

// State returns a copy of the current state
func (m *Model) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns a message that reinitializes a display window to the current state
func (m *Model) Snapshot() Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return SnapshotMessage(m.state)
}

// Chair returns the most recently selected chairperson
func (m *Model) Chair() Chair {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chair
}

// SetChair records the presiding officer. The chairperson is remembered across
// sessions, and is shown immediately by any payload that displays one.
func (m *Model) SetChair(c Chair) error {
	name, position, photo := c.Name, c.Position, c.Photo
	return m.UpdateData(Patch{
		Chairperson:         &name,
		ChairpersonPosition: &position,
		ChairpersonPhoto:    &photo,
	})
}

// StartBroadcast puts a new broadcast on air, with its timer starting from initial.
// Starting the mode that's already on air restarts it (e.g. for the next speaker);
// starting any other mode while a broadcast is on air is refused with
// ErrTransitionNotAllowed.
func (m *Model) StartBroadcast(mode Mode, payload Payload, initial timecodec.TimeValue, timerDurationMinutes *int) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	if mode == ModeIdle {
		return fmt.Errorf("%w: use EndBroadcast to return to Idle", ErrInvalidMode)
	}
	if payload == nil {
		payload = NewPayload(mode)
	}
	if err := CheckPayload(mode, payload); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Mode != ModeIdle && m.state.Mode != mode {
		return fmt.Errorf("%w: '%s' must end before '%s' can start", ErrTransitionNotAllowed, m.state.Mode, mode)
	}

	payload = clonePayload(payload)
	if c := payload.Chairperson(); !c.IsZero() {
		m.chair = c
	} else if !m.chair.IsZero() {
		payload = withChair(payload, m.chair)
	}
	switch p := payload.(type) {
	case *ZeroHourPayload:
		if timerDurationMinutes != nil {
			p.TimerDurationMinutes = *timerDurationMinutes
		}
		if p.TimerDurationMinutes <= 0 {
			p.TimerDurationMinutes = DefaultZeroHourMinutes
		}
	case *MessagePayload:
		if p.Entry == nil && len(p.Entries) > 0 {
			p.CurrentIndex = wrapIndex(p.CurrentIndex, len(p.Entries))
			p.Entry = &p.Entries[p.CurrentIndex]
		}
	}

	now := m.clock.Now()
	m.state = State{
		Mode:               mode,
		Payload:            payload,
		DisplayTimeSeconds: timecodec.ToSeconds(initial),
		IsPaused:           false,
		TimerTimestampMs:   timecodec.UnixMillis(now),
		Version:            m.state.Version,
	}
	m.commit(now)
	m.pusher.Push(SnapshotMessage(m.state))
	m.publish(now)
	return nil
}

// UpdateData merges a partial payload into the broadcast on air without changing its
// mode. While Idle, only the chairperson may be changed: any other field is refused
// with ErrNoActiveBroadcast and nothing is applied.
func (m *Model) UpdateData(patch Patch) error {
	if patch.IsEmpty() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateDataLocked(patch)
}

// updateDataLocked is UpdateData for callers that already hold m.mu
func (m *Model) updateDataLocked(patch Patch) error {
	if m.state.Mode == ModeIdle && patch.hasContent() {
		return ErrNoActiveBroadcast
	}
	if patch.hasChair() {
		m.chair = patch.mergeChair(m.chair)
	}

	now := m.clock.Now()
	m.state.Payload = patch.Merge(m.state.Payload)
	m.commit(now)
	m.pusher.Push(Message{Type: MessageTypeDataUpdate, Patch: &patch})
	m.publish(now)
	return nil
}

// UpdateTimer sets the timer to the given number of seconds. A running timer
// continues from the new value.
func (m *Model) UpdateTimer(elapsedSeconds int) error {
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Mode == ModeIdle {
		return ErrNoActiveBroadcast
	}

	now := m.clock.Now()
	m.state.DisplayTimeSeconds = elapsedSeconds
	if !m.state.IsPaused {
		m.state.TimerTimestampMs = timecodec.UnixMillis(now)
	}
	m.commit(now)
	m.pusher.Push(m.timerMessage(MessageTypeTimerSync))
	m.publish(now)
	return nil
}

// SetPaused stops or resumes the timer. Pausing first freezes the timer at the value
// it has reached.
func (m *Model) SetPaused(paused bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Mode == ModeIdle {
		return ErrNoActiveBroadcast
	}
	if m.state.IsPaused == paused {
		return nil
	}

	now := m.clock.Now()
	if paused {
		m.state.DisplayTimeSeconds = m.state.Elapsed(now)
	}
	m.state.IsPaused = paused
	m.state.TimerTimestampMs = timecodec.UnixMillis(now)
	m.commit(now)
	m.pusher.Push(m.timerMessage(MessageTypeTimerPaused))
	m.publish(now)
	return nil
}

// EndBroadcast returns to Idle with the timer reset. If next names no chairperson, the
// most recently selected chairperson is shown.
func (m *Model) EndBroadcast(next *IdlePayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	chair := m.chair
	if next != nil && !next.Chair.IsZero() {
		chair = next.Chair
		m.chair = chair
	}

	now := m.clock.Now()
	version := m.state.Version
	m.state = IdleState(chair)
	m.state.Version = version
	m.commit(now)
	m.pusher.Push(SnapshotMessage(m.state))
	m.publish(now)
	return nil
}

// StepMessage moves an obituary or birthday broadcast forward (positive delta) or
// back (negative delta) through its entries, wrapping at either end
func (m *Model) StepMessage(delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.state.Payload.(*MessagePayload)
	if !ok || !m.state.Mode.IsMessage() {
		return fmt.Errorf("%w: '%s' has no message entries", ErrPayloadMismatch, m.state.Mode)
	}
	if len(p.Entries) == 0 {
		return ErrNoMessageEntries
	}
	index := wrapIndex(p.CurrentIndex+delta, len(p.Entries))
	entry := p.Entries[index]
	return m.updateDataLocked(Patch{MessageEntry: &entry, CurrentIndex: &index})
}

// Tick advances a running timer to the current time. Each whole-second change is
// pushed to display windows; publishes are throttled to TimerPublishInterval.
func (m *Model) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.Mode.IsTimed() || m.state.IsPaused || m.state.TimerTimestampMs == 0 {
		return
	}
	now := m.clock.Now()
	elapsed := m.state.Elapsed(now)
	advanced := elapsed - m.state.DisplayTimeSeconds
	if advanced <= 0 {
		return
	}

	// Carry the timestamp forward by whole seconds only, so that the fraction of a
	// second already elapsed isn't lost on every tick
	m.state.DisplayTimeSeconds = elapsed
	m.state.TimerTimestampMs += int64(advanced) * 1000
	m.commit(now)
	m.pusher.Push(m.timerMessage(MessageTypeTimerUpdate))
	if now.Sub(m.lastPublishedAt) >= m.TimerPublishInterval {
		m.publish(now)
	}
}

// Run ticks the model at the given interval until ctx is canceled
func (m *Model) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			m.Tick()
		}
	}
}

// commit stamps the state with a new version. Versions are derived from the clock so
// that they keep increasing across restarts.
func (m *Model) commit(now time.Time) {
	version := timecodec.UnixMillis(now)
	if version <= m.state.Version {
		version = m.state.Version + 1
	}
	m.state.Version = version
	m.state.UpdatedAt = now
}

func (m *Model) publish(now time.Time) {
	m.lastPublishedAt = now
	m.publisher.Publish(m.state)
}

func (m *Model) timerMessage(t MessageType) Message {
	seconds := m.state.DisplayTimeSeconds
	ts := m.state.TimerTimestampMs
	paused := m.state.IsPaused
	return Message{
		Type:               t,
		DisplayTimeSeconds: &seconds,
		TimerTimestampMs:   &ts,
		IsPaused:           &paused,
	}
}

func wrapIndex(i, n int) int {
	return ((i % n) + n) % n
}

type nopTransport struct{}

func (nopTransport) Push(Message)  {}
func (nopTransport) Publish(State) {}
