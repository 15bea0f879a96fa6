package sse

import "sync"

// bus tracks one buffered channel per connected client; a client whose buffer is
// full misses the message rather than stalling everyone else
type bus[T any] struct {
	chs     map[chan T]struct{}
	mu      sync.RWMutex
	dropped int
}

func newBus[T any]() bus[T] {
	return bus[T]{chs: make(map[chan T]struct{})}
}

func (b *bus[T]) register(ch chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.chs[ch] = struct{}{}
}

func (b *bus[T]) unregister(ch chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.chs, ch)
}

// clear drops every registered client
func (b *bus[T]) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.chs = make(map[chan T]struct{})
}

func (b *bus[T]) count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.chs)
}

// publish fans a message out to all registered channels, returning the number of
// clients that could not accept it
func (b *bus[T]) publish(message T) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	missed := 0
	for ch := range b.chs {
		select {
		case ch <- message:
		default:
			missed++
		}
	}
	b.dropped += missed
	return missed
}
