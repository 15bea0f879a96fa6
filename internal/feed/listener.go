package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// NotifyChannel is the Postgres channel the broadcast_feed trigger notifies
const NotifyChannel = "talktime"

// EventType identifies the kind of change announced in a ChangeEvent
type EventType string

const EventTypeFeed EventType = "feed"

// ChangeEvent is the JSON payload sent with each notification
type ChangeEvent struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// FeedEventData describes a write to the feed slot; the document itself is re-read
// from the store since notification payloads are size-limited
type FeedEventData struct {
	Version int64 `json:"version"`
}

type notifier interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Close() error
}

// ChangeListener relays writes made by any replica to onChange
type ChangeListener struct {
	pql      notifier
	store    Store
	onChange ChangeFunc

	lastKnownVersion int64
}

func NewChangeListener(ctx context.Context, pql *pq.Listener, store Store, onChange ChangeFunc) (*ChangeListener, error) {
	return newChangeListener(ctx, pql, store, onChange)
}

func newChangeListener(ctx context.Context, pql notifier, store Store, onChange ChangeFunc) (*ChangeListener, error) {
	if err := pql.Listen(NotifyChannel); err != nil {
		return nil, err
	}
	state, err := store.Get(ctx)
	if err != nil {
		return nil, err
	}
	fmt.Printf("FEED | Initial state: %s (version %d)\n", state.Mode, state.Version)
	return &ChangeListener{
		pql:              pql,
		store:            store,
		onChange:         onChange,
		lastKnownVersion: state.Version,
	}, nil
}

func (l *ChangeListener) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return l.pql.Close()
		case notification := <-l.pql.NotificationChannel():
			// pq delivers nil after re-establishing a lost connection, in which case
			// any number of changes may have been missed
			if notification == nil {
				if err := l.refresh(ctx, 0); err != nil {
					return err
				}
				continue
			}
			if notification.Channel != NotifyChannel {
				continue
			}
			var event ChangeEvent
			if err := json.Unmarshal([]byte(notification.Extra), &event); err != nil {
				return fmt.Errorf("failed to decode JSON payload from pg event in channel '%s': %w", notification.Channel, err)
			}
			switch event.Type {
			case EventTypeFeed:
				var data FeedEventData
				if err := json.Unmarshal(event.Data, &data); err != nil {
					return fmt.Errorf("failed to decode JSON data for '%s' event in channel '%s': %w", event.Type, notification.Channel, err)
				}
				if isStale(l.lastKnownVersion, data.Version) {
					continue
				}
				if err := l.refresh(ctx, data.Version); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unrecognized event type '%s' in channel '%s'", event.Type, notification.Channel)
			}
		}
	}
}

func (l *ChangeListener) refresh(ctx context.Context, version int64) error {
	state, err := l.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to read broadcast feed after change to version %d: %w", version, err)
	}
	l.lastKnownVersion = state.Version
	fmt.Printf("FEED | State change: %s (version %d)\n", state.Mode, state.Version)
	if l.onChange != nil {
		l.onChange(state)
	}
	return nil
}
