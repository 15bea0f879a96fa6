package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sansad-av/talktime/internal/broadcast"
	"github.com/sansad-av/talktime/internal/metrics"
)

// DefaultWriteTimeout bounds a single write to the feed slot
const DefaultWriteTimeout = 5 * time.Second

// WriteFunc delivers one state to the feed slot
type WriteFunc func(ctx context.Context, state broadcast.State) error

// Publisher writes states to the feed slot from a single background goroutine.
// Publish never blocks: if a write is in flight, only the most recent state waiting
// behind it is kept.
type Publisher struct {
	name  string
	write WriteFunc

	WriteTimeout time.Duration

	pending chan broadcast.State
}

func NewPublisher(name string, write WriteFunc) *Publisher {
	return &Publisher{
		name:         name,
		write:        write,
		WriteTimeout: DefaultWriteTimeout,
		pending:      make(chan broadcast.State, 1),
	}
}

// NewStorePublisher publishes directly into a Store held by the same process
func NewStorePublisher(store Store) *Publisher {
	return NewPublisher("store", func(ctx context.Context, state broadcast.State) error {
		_, err := store.Put(ctx, state)
		return err
	})
}

// NewHTTPPublisher publishes by PUTting each state to a feed slot URL
func NewHTTPPublisher(feedURL string, client *http.Client) *Publisher {
	if client == nil {
		client = http.DefaultClient
	}
	id := uuid.NewString()
	return NewPublisher("http", func(ctx context.Context, state broadcast.State) error {
		body, err := json.Marshal(state)
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, feedURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("content-type", "application/json")
		req.Header.Set(PublisherHeader, id)
		res, err := client.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.StatusCode == http.StatusConflict {
			return ErrStaleVersion
		}
		if res.StatusCode < 200 || res.StatusCode > 299 {
			return fmt.Errorf("feed slot responded with status %d", res.StatusCode)
		}
		return nil
	})
}

func (p *Publisher) Publish(state broadcast.State) {
	for {
		select {
		case p.pending <- state:
			return
		default:
		}
		// Discard whatever is waiting so the newer state takes its place
		select {
		case <-p.pending:
		default:
		}
	}
}

// Run performs writes until ctx is canceled. Failures are logged and the state is
// not retried: the next change, or the next timer publish, supersedes it.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case state := <-p.pending:
			p.deliver(ctx, state)
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, state broadcast.State) {
	timer := prometheus.NewTimer(metrics.PublishDuration.WithLabelValues(p.name))
	writeCtx, cancel := context.WithTimeout(ctx, p.WriteTimeout)
	err := p.write(writeCtx, state)
	cancel()
	timer.ObserveDuration()

	metrics.FeedPublishes.WithLabelValues(p.name, metrics.Result(err)).Inc()
	if err != nil {
		fmt.Printf("FEED | Failed to publish %s state (version %d): %v\n", state.Mode, state.Version, err)
	}
}

var _ broadcast.Publisher = (*Publisher)(nil)
