package viewer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sansad-av/talktime/internal/broadcast"
	"github.com/sansad-av/talktime/internal/metrics"
	"github.com/sansad-av/talktime/internal/timecodec"
)

const (
	DefaultPollInterval = time.Second
	DefaultTickInterval = 300 * time.Millisecond
	DefaultPollTimeout  = 5 * time.Second
)

// Poller keeps a viewer's copy of the broadcast state current by polling the feed,
// and extrapolates the timer locally between polls
type Poller struct {
	feed  Feed
	clock timecodec.Clock

	PollInterval time.Duration
	TickInterval time.Duration
	PollTimeout  time.Duration
	// OnTick, if set, receives the extrapolated state on every tick
	OnTick func(state broadcast.State)

	mu       sync.Mutex
	issued   uint64
	applied  uint64
	snapshot *Snapshot
	failing  bool
	ticking  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewPoller(feed Feed, clock timecodec.Clock) *Poller {
	return &Poller{
		feed:         feed,
		clock:        clock,
		PollInterval: DefaultPollInterval,
		TickInterval: DefaultTickInterval,
		PollTimeout:  DefaultPollTimeout,
	}
}

// Start begins polling immediately and then on every PollInterval, until Stop is
// called or ctx is canceled
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	onTick := p.OnTick
	p.ticking = onTick != nil
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.pollLoop(ctx)
	}()

	// Without OnTick, callers read Current() on demand and nothing needs to tick
	if onTick != nil {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.tickLoop(ctx, onTick)
		}()
	}
}

// Stop cancels all polling and ticking and waits for in-flight polls to finish
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.ticking = false
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

// Current returns the last polled state with its timer extrapolated to now, or Idle
// if no poll has succeeded yet
func (p *Poller) Current() broadcast.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snapshot == nil {
		return broadcast.IdleState(broadcast.Chair{})
	}
	return p.snapshot.Current(p.clock.Now())
}

func (p *Poller) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(p.PollInterval)
	defer ticker.Stop()

	p.spawnPoll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.spawnPoll(ctx)
		}
	}
}

// spawnPoll does not wait for earlier polls, so a slow response never delays the
// cadence; responses that resolve out of order are discarded by sequence
func (p *Poller) spawnPoll(ctx context.Context) {
	seq := p.nextSeq()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		pollCtx, cancel := context.WithTimeout(ctx, p.PollTimeout)
		defer cancel()
		state, err := p.feed.Poll(pollCtx)
		if ctx.Err() != nil {
			return
		}
		p.apply(seq, state, err)
	}()
}

func (p *Poller) tickLoop(ctx context.Context, onTick func(state broadcast.State)) {
	ticker := time.NewTicker(p.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			onTick(p.Current())
		}
	}
}

func (p *Poller) nextSeq() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issued++
	return p.issued
}

// apply records the result of poll number seq. A failure keeps the last known
// state so that extrapolation carries on.
func (p *Poller) apply(seq uint64, state broadcast.State, err error) bool {
	metrics.Polls.WithLabelValues(metrics.Result(err)).Inc()

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		if !p.failing {
			fmt.Printf("POLL | %v; keeping last known state\n", err)
		}
		p.failing = true
		return false
	}
	if p.failing {
		fmt.Printf("POLL | Feed recovered\n")
		p.failing = false
	}
	if seq <= p.applied {
		return false
	}
	p.applied = seq
	snapshot := Reconstruct(state, p.clock.Now())
	p.snapshot = &snapshot
	return true
}
