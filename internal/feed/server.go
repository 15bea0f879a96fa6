package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sansad-av/talktime/internal/broadcast"
	"github.com/sansad-av/talktime/internal/metrics"
)

// PublisherHeader identifies the process that wrote a state, for logging
const PublisherHeader = "X-Talktime-Publisher"

const maxDocumentBytes = 4 << 20

// Document is the response body for every feed slot request
type Document struct {
	Success bool             `json:"success"`
	State   *broadcast.State `json:"state,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Server exposes the feed slot over HTTP
type Server struct {
	store Store

	// Events, if set, is served as a push stream of accepted states
	Events http.Handler
}

func NewServer(store Store) *Server {
	return &Server{store: store}
}

func (s *Server) RegisterRoutes(r *mux.Router) {
	r.Path("/api/broadcast-feed").Methods("GET").HandlerFunc(s.handleGet)
	r.Path("/api/broadcast-feed").Methods("PUT", "POST").HandlerFunc(s.handlePut)
	if s.Events != nil {
		r.Path("/api/broadcast-feed/events").Methods("GET").Handler(s.Events)
	}
}

func (s *Server) handleGet(res http.ResponseWriter, req *http.Request) {
	state, err := s.store.Get(req.Context())
	metrics.FeedRequests.WithLabelValues(req.Method, metrics.Result(err)).Inc()
	if err != nil {
		writeDocument(res, http.StatusInternalServerError, Document{Error: err.Error()})
		return
	}
	res.Header().Set("cache-control", "no-store")
	writeDocument(res, http.StatusOK, Document{Success: true, State: &state})
}

func (s *Server) handlePut(res http.ResponseWriter, req *http.Request) {
	var state broadcast.State
	body := http.MaxBytesReader(res, req.Body, maxDocumentBytes)
	if err := json.NewDecoder(body).Decode(&state); err != nil {
		metrics.FeedRequests.WithLabelValues(req.Method, "invalid").Inc()
		writeDocument(res, http.StatusBadRequest, Document{Error: fmt.Sprintf("invalid broadcast state: %v", err)})
		return
	}

	stored, err := s.store.Put(req.Context(), state)
	if errors.Is(err, ErrStaleVersion) {
		metrics.FeedRequests.WithLabelValues(req.Method, "stale").Inc()
		fmt.Printf("FEED | Refused stale version %d from %s\n", state.Version, publisherName(req))
		writeDocument(res, http.StatusConflict, Document{Error: err.Error()})
		return
	}
	metrics.FeedRequests.WithLabelValues(req.Method, metrics.Result(err)).Inc()
	if err != nil {
		writeDocument(res, http.StatusInternalServerError, Document{Error: err.Error()})
		return
	}
	writeDocument(res, http.StatusOK, Document{Success: true, State: &stored})
}

func publisherName(req *http.Request) string {
	if id := req.Header.Get(PublisherHeader); id != "" {
		return id
	}
	return req.RemoteAddr
}

func writeDocument(res http.ResponseWriter, status int, doc Document) {
	res.Header().Set("content-type", "application/json")
	res.WriteHeader(status)
	if err := json.NewEncoder(res).Encode(doc); err != nil {
		fmt.Printf("FEED | Failed to write response: %v\n", err)
	}
}
