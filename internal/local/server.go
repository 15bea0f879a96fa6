package local

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/sansad-av/talktime/internal/broadcast"
)

const (
	// MessageTypeHeartbeat is sent periodically by a display window to show it's still
	// loaded
	MessageTypeHeartbeat broadcast.MessageType = "HEARTBEAT"
	// MessageTypeClosing is sent by a display window as it unloads
	MessageTypeClosing broadcast.MessageType = "CLOSING"
)

// inbound is a message received from a display window
type inbound struct {
	Type broadcast.MessageType `json:"type"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (t *Transport) RegisterRoutes(r *mux.Router) {
	r.Path("/display/{window}/ws").Methods("GET").HandlerFunc(t.handleSocket)
	r.Path("/display/{window}/heartbeat").Methods("POST").HandlerFunc(t.handleHeartbeat)
	r.Path("/display/{window}/state").Methods("GET").HandlerFunc(t.handleGetState)
}

func (t *Transport) handleSocket(res http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["window"]
	w, ok := t.lookup(id)
	if !ok {
		http.Error(res, "no such display window", http.StatusNotFound)
		return
	}

	ws, err := upgrader.Upgrade(res, req, nil)
	if err != nil {
		fmt.Printf("LOCAL | Failed to upgrade display socket for window %s: %v\n", id, err)
		return
	}
	c := newConn(ws)
	if !t.attach(w, c) {
		ws.Close()
		return
	}
	go c.writeLoop()
	defer t.detach(w, c)

	fmt.Printf("LOCAL | Display window %s connected from %s\n", id, req.RemoteAddr)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			fmt.Printf("LOCAL | Display window %s disconnected: %v\n", id, err)
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			fmt.Printf("LOCAL | Ignoring malformed message from display window %s: %v\n", id, err)
			continue
		}
		switch msg.Type {
		case broadcast.MessageTypeReady:
			t.answerReady(w, c)
		case MessageTypeHeartbeat:
			t.Touch(id)
		case MessageTypeClosing:
			fmt.Printf("LOCAL | Display window %s is closing\n", id)
			t.Close(w)
			return
		}
	}
}

func (t *Transport) handleHeartbeat(res http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["window"]
	if _, ok := t.lookup(id); !ok {
		http.Error(res, "no such display window", http.StatusNotFound)
		return
	}
	t.Touch(id)
	res.WriteHeader(http.StatusNoContent)
}

func (t *Transport) handleGetState(res http.ResponseWriter, req *http.Request) {
	w, ok := t.lookup(mux.Vars(req)["window"])
	if !ok {
		http.Error(res, "no such display window", http.StatusNotFound)
		return
	}
	res.Header().Set("content-type", "application/json")
	if err := json.NewEncoder(res).Encode(w.mirror.Current()); err != nil {
		http.Error(res, err.Error(), http.StatusInternalServerError)
	}
}

// answerReady sends a full snapshot to a window that has just finished loading
func (t *Transport) answerReady(w *Window, c *conn) {
	t.mu.Lock()
	snapshot := t.snapshot
	t.mu.Unlock()
	if snapshot == nil {
		return
	}
	msg := snapshot()
	data, err := json.Marshal(msg)
	if err != nil {
		fmt.Printf("LOCAL | Failed to encode snapshot: %v\n", err)
		return
	}

	t.mu.Lock()
	if _, ok := w.conns[c]; ok {
		c.enqueue(data)
	}
	t.mu.Unlock()
	w.mirror.Receive(msg)
}

func (t *Transport) attach(w *Window, c *conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if w.closed {
		return false
	}
	w.conns[c] = struct{}{}
	w.lastSeen = t.clock.Now()
	return true
}

func (t *Transport) detach(w *Window, c *conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := w.conns[c]; ok {
		delete(w.conns, c)
		c.close()
	}
	w.lastSeen = t.clock.Now()
}
