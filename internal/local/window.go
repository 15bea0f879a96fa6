package local

import (
	"time"

	"github.com/sansad-av/talktime/internal/display"
)

// Window is a handle to a display window opened by the transport
type Window struct {
	// ID identifies the window in its URL and socket path
	ID string
	// URL is the address the window was opened at
	URL string
	// Features carries the window features requested by the operator (size, position)
	Features string
	// OpenedAt is when the window was opened
	OpenedAt time.Time

	mirror *display.Display

	// guarded by Transport.mu
	closed   bool
	lastSeen time.Time
	seq      uint64
	conns    map[*conn]struct{}
	warned   bool
}

// Mirror returns the state the window has been sent
func (w *Window) Mirror() *display.Display {
	return w.mirror
}
