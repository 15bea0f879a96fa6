package display

import (
	"sync"

	"github.com/sansad-av/talktime/internal/broadcast"
	"github.com/sansad-av/talktime/internal/timecodec"
)

// Source supplies the state a display should show right now, with its timer already
// brought up to date
type Source interface {
	Current() broadcast.State
}

// Display holds the state a display window has received, applying each incoming
// message the way a window would
type Display struct {
	clock timecodec.Clock

	mu    sync.RWMutex
	state broadcast.State
}

func New(clock timecodec.Clock) *Display {
	if clock == nil {
		clock = timecodec.RealClock{}
	}
	return &Display{
		clock: clock,
		state: broadcast.IdleState(broadcast.Chair{}),
	}
}

// Receive applies a message to the display state
func (d *Display) Receive(msg broadcast.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = broadcast.Apply(d.state, msg)
}

// Replace discards the display state in favor of s
func (d *Display) Replace(s broadcast.State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = s
}

// State returns the state as received
func (d *Display) State() broadcast.State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Current returns the received state with the timer extrapolated to now
func (d *Display) Current() broadcast.State {
	s := d.State()
	s.DisplayTimeSeconds = s.Elapsed(d.clock.Now())
	return s
}

// View renders the current state
func (d *Display) View() View {
	return Render(d.Current(), d.clock.Now())
}

var _ Source = (*Display)(nil)
