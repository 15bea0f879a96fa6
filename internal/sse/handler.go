package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultKeepaliveInterval is how often an idle stream receives a comment line
const DefaultKeepaliveInterval = 30 * time.Second

// Handler serves a stream of JSON-encoded values as Server-Sent Events
type Handler[T any] struct {
	ctx context.Context
	b   bus[T]

	// OnConnectEventFunc, if set, resolves a value sent to each client as soon as
	// it connects
	OnConnectEventFunc func() T
	// EventName, if set, names each event with an 'event:' line
	EventName string
	// KeepaliveInterval defaults to DefaultKeepaliveInterval
	KeepaliveInterval time.Duration
}

// NewHandler initializes an SSE handler that reads values from ch and fans them out
// to every open connection until ctx is canceled
func NewHandler[T any](ctx context.Context, ch <-chan T) *Handler[T] {
	h := &Handler[T]{
		ctx:               ctx,
		b:                 newBus[T](),
		KeepaliveInterval: DefaultKeepaliveInterval,
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				h.b.clear()
				return
			case message := <-ch:
				if missed := h.b.publish(message); missed > 0 {
					fmt.Printf("SSE | %d slow client(s) missed an event\n", missed)
				}
			}
		}
	}()
	return h
}

// Connections reports how many clients are currently streaming
func (h *Handler[T]) Connections() int {
	return h.b.count()
}

func (h *Handler[T]) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	accept := req.Header.Get("accept")
	if accept != "" && accept != "*/*" && !strings.HasPrefix(accept, "text/event-stream") {
		message := fmt.Sprintf("content-type %s is not supported", accept)
		http.Error(res, message, http.StatusBadRequest)
		return
	}
	flusher, ok := res.(http.Flusher)
	if !ok {
		http.Error(res, "streaming is not supported", http.StatusInternalServerError)
		return
	}

	res.Header().Set("content-type", "text/event-stream")
	res.Header().Set("cache-control", "no-cache")
	res.Header().Set("connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Send something immediately so that proxies start streaming without waiting
	// on the first real event
	if h.OnConnectEventFunc != nil {
		h.write(res, h.OnConnectEventFunc())
	} else {
		res.Write([]byte(":\n\n"))
	}
	flusher.Flush()

	ch := make(chan T, 32)
	h.b.register(ch)
	defer h.b.unregister(ch)

	interval := h.KeepaliveInterval
	if interval <= 0 {
		interval = DefaultKeepaliveInterval
	}
	keepalive := time.NewTicker(interval)
	defer keepalive.Stop()

	fmt.Printf("SSE | Opened connection to %s\n", req.RemoteAddr)
	for {
		select {
		case <-keepalive.C:
			res.Write([]byte(":\n\n"))
			flusher.Flush()
		case message := <-ch:
			h.write(res, message)
			flusher.Flush()
		case <-h.ctx.Done():
			fmt.Printf("SSE | Shutting down; abandoning connection to %s\n", req.RemoteAddr)
			return
		case <-req.Context().Done():
			fmt.Printf("SSE | Connection to %s closed\n", req.RemoteAddr)
			return
		}
	}
}

func (h *Handler[T]) write(res http.ResponseWriter, message T) {
	data, err := json.Marshal(message)
	if err != nil {
		fmt.Printf("SSE | Failed to serialize message as JSON: %v\n", err)
		return
	}
	if h.EventName != "" {
		fmt.Fprintf(res, "event: %s\n", h.EventName)
	}
	fmt.Fprintf(res, "data: %s\n\n", data)
}
