package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sansad-av/talktime/internal/broadcast"
	"github.com/sansad-av/talktime/internal/display"
	"github.com/sansad-av/talktime/internal/metrics"
	"github.com/sansad-av/talktime/internal/timecodec"
)

// ErrOpenFailed is returned when a display window could not be opened
var ErrOpenFailed = errors.New("failed to open display window")

const (
	// DefaultHeartbeatTimeout is how long a window with no socket stays alive after it
	// was last heard from
	DefaultHeartbeatTimeout = 3 * time.Second
	// DefaultLoadGrace is how long a newly-opened window is assumed alive while it
	// loads
	DefaultLoadGrace = 10 * time.Second
	// FullscreenDelay is how long after opening a window it's asked to go fullscreen
	FullscreenDelay = 500 * time.Millisecond
	// EndFullscreenDelay is how long after a broadcast ends the window is asked to go
	// fullscreen again
	EndFullscreenDelay = 300 * time.Millisecond
)

// DefaultRetryDelays are the delays at which messages that reinitialize or update a
// window are sent again, to cover a window that was still loading the first time
var DefaultRetryDelays = []time.Duration{200 * time.Millisecond, 500 * time.Millisecond}

// SnapshotFunc returns a message that brings a newly-ready window up to date
type SnapshotFunc func() broadcast.Message

// ScheduleFunc runs f after d
type ScheduleFunc func(d time.Duration, f func())

// Transport holds at most one display window at a time and pushes broadcast messages
// to it. Delivery is best-effort: messages to a window that has gone away are logged
// and dropped.
type Transport struct {
	clock    timecodec.Clock
	opener   Opener
	snapshot SnapshotFunc
	schedule ScheduleFunc

	HeartbeatTimeout time.Duration
	LoadGrace        time.Duration
	RetryDelays      []time.Duration

	mu      sync.Mutex
	current *Window
}

// NewTransport initializes a transport that opens windows with opener. snapshot is
// used to answer windows that announce they're ready; it may be set later with
// SetSnapshotFunc.
func NewTransport(clock timecodec.Clock, opener Opener, snapshot SnapshotFunc) *Transport {
	if clock == nil {
		clock = timecodec.RealClock{}
	}
	if opener == nil {
		opener = LogOpener{}
	}
	return &Transport{
		clock:    clock,
		opener:   opener,
		snapshot: snapshot,
		schedule: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
		HeartbeatTimeout: DefaultHeartbeatTimeout,
		LoadGrace:        DefaultLoadGrace,
		RetryDelays:      DefaultRetryDelays,
	}
}

// SetSnapshotFunc sets the function used to answer READY messages
func (t *Transport) SetSnapshotFunc(f SnapshotFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snapshot = f
}

// Open opens a display window at rawURL, or returns the current window if it's still
// alive. A window that has been closed is replaced with a fresh one.
func (t *Transport) Open(rawURL, features string) (*Window, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %v", ErrOpenFailed, err)
	}

	t.mu.Lock()
	if w := t.current; w != nil && t.isAlive(w) {
		t.mu.Unlock()
		fmt.Printf("LOCAL | Display window %s is already open\n", w.ID)
		t.Send(w, broadcast.Message{Type: broadcast.MessageTypeRequestFullscreen})
		return w, nil
	}
	if t.current != nil {
		t.retire(t.current)
	}

	id := uuid.NewString()
	q := u.Query()
	q.Set("window", id)
	u.RawQuery = q.Encode()
	now := t.clock.Now()
	w := &Window{
		ID:       id,
		URL:      u.String(),
		Features: features,
		OpenedAt: now,
		mirror:   display.New(t.clock),
		lastSeen: now,
		conns:    make(map[*conn]struct{}),
	}
	t.current = w
	snapshot := t.snapshot
	t.mu.Unlock()

	if err := t.opener.Open(w.URL); err != nil {
		t.Close(w)
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	fmt.Printf("LOCAL | Opened display window %s\n", w.ID)

	if snapshot != nil {
		t.Send(w, snapshot())
	}
	t.schedule(FullscreenDelay, func() {
		t.Send(w, broadcast.Message{Type: broadcast.MessageTypeRequestFullscreen})
	})
	return w, nil
}

// Current returns the current window, if one has been opened and is still alive
func (t *Transport) Current() (*Window, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil || !t.isAlive(t.current) {
		return nil, false
	}
	return t.current, true
}

// IsAlive reports whether w can still receive messages
func (t *Transport) IsAlive(w *Window) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isAlive(w)
}

// Close marks w as closed and disconnects its sockets
func (t *Transport) Close(w *Window) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.retire(w)
}

// Send delivers msg to w. Messages that reinitialize or update the window are sent
// again after each of RetryDelays, unless a newer message has been sent in the
// meantime. Sending to a window that's gone is logged and otherwise ignored.
func (t *Transport) Send(w *Window, msg broadcast.Message) {
	if w == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		fmt.Printf("LOCAL | Failed to encode %s message: %v\n", msg.Type, err)
		return
	}

	t.mu.Lock()
	if !t.isAlive(w) {
		if !w.warned {
			w.warned = true
			fmt.Printf("LOCAL | Display window %s is gone; dropping %s\n", w.ID, msg.Type)
		}
		t.mu.Unlock()
		metrics.LocalSends.WithLabelValues(string(msg.Type), "dropped").Inc()
		return
	}
	// Fullscreen requests carry no state, so they don't supersede pending retries
	if msg.Type != broadcast.MessageTypeRequestFullscreen {
		w.seq++
	}
	seq := w.seq
	t.deliver(w, data)
	t.mu.Unlock()
	metrics.LocalSends.WithLabelValues(string(msg.Type), "ok").Inc()

	w.mirror.Receive(msg)
	if isRedundant(msg.Type) {
		for _, d := range t.RetryDelays {
			t.schedule(d, func() {
				t.resend(w, seq, data)
			})
		}
	}
	if msg.Type == broadcast.MessageTypeBroadcastEnd {
		t.schedule(EndFullscreenDelay, func() {
			t.Send(w, broadcast.Message{Type: broadcast.MessageTypeRequestFullscreen})
		})
	}
}

// Push sends msg to the current window, if any
func (t *Transport) Push(msg broadcast.Message) {
	t.mu.Lock()
	w := t.current
	t.mu.Unlock()
	t.Send(w, msg)
}

// Mirror returns the received state of the current window, if id names it
func (t *Transport) Mirror(id string) (display.Source, bool) {
	w, ok := t.lookup(id)
	if !ok {
		return nil, false
	}
	return w.mirror, true
}

// Touch records that the window named by id is still loaded
func (t *Transport) Touch(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if w := t.current; w != nil && w.ID == id && !w.closed {
		w.lastSeen = t.clock.Now()
	}
}

// Status returns an error if no display window is currently open
func (t *Transport) Status() error {
	if _, ok := t.Current(); !ok {
		return fmt.Errorf("no local display window is open")
	}
	return nil
}

func (t *Transport) lookup(id string) (*Window, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := t.current
	if w == nil || w.ID != id || w.closed {
		return nil, false
	}
	return w, true
}

func (t *Transport) resend(w *Window, seq uint64, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if w.seq != seq || !t.isAlive(w) {
		return
	}
	t.deliver(w, data)
}

// isAlive is true while a window has a connected socket, has been heard from within
// HeartbeatTimeout, or is still within LoadGrace of being opened
func (t *Transport) isAlive(w *Window) bool {
	if w.closed {
		return false
	}
	if len(w.conns) > 0 {
		return true
	}
	now := t.clock.Now()
	return now.Sub(w.lastSeen) < t.HeartbeatTimeout || now.Sub(w.OpenedAt) < t.LoadGrace
}

func (t *Transport) deliver(w *Window, data []byte) {
	for c := range w.conns {
		c.enqueue(data)
	}
}

func (t *Transport) retire(w *Window) {
	w.closed = true
	for c := range w.conns {
		c.close()
		delete(w.conns, c)
	}
}

func isRedundant(t broadcast.MessageType) bool {
	switch t {
	case broadcast.MessageTypeStartBroadcast, broadcast.MessageTypeDataUpdate, broadcast.MessageTypeBroadcastEnd:
		return true
	}
	return false
}

var _ broadcast.Pusher = (*Transport)(nil)
var _ display.Windows = (*Transport)(nil)
