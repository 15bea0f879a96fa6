package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sansad-av/talktime/internal/broadcast"
	"github.com/sansad-av/talktime/internal/directory"
	"github.com/sansad-av/talktime/internal/feed"
	"github.com/sansad-av/talktime/internal/local"
	"github.com/sansad-av/talktime/internal/metrics"
	"github.com/sansad-av/talktime/internal/photos"
	"github.com/sansad-av/talktime/internal/timecodec"
)

const maxRequestBytes = 8 << 20

// Windows opens the projector window
type Windows interface {
	Open(rawURL, features string) (*local.Window, error)
}

// Directory resolves the members and bills named in bill discussion requests
type Directory interface {
	Member(ctx context.Context, seatNo broadcast.SeatNo) (broadcast.Member, error)
	Bill(ctx context.Context, id int) (directory.Bill, error)
	ConsumedTime(ctx context.Context, billID int) (directory.ConsumedTime, error)
	MemberTotals(ctx context.Context, billID int) (directory.MemberTotals, error)
}

// PhotoResolver replaces inline photos with hosted URLs
type PhotoResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// Server is the operator API: each route maps onto one Model operation
type Server struct {
	model      *broadcast.Model
	windows    Windows
	directory  Directory
	photos     PhotoResolver
	displayURL string
	clock      timecodec.Clock
}

// NewServer builds the operator API. windows, dir and resolver may be nil, in which
// case the routes that need them report 503 and photos are left inline.
func NewServer(model *broadcast.Model, windows Windows, dir Directory, resolver PhotoResolver, displayURL string, clock timecodec.Clock) *Server {
	return &Server{
		model:      model,
		windows:    windows,
		directory:  dir,
		photos:     resolver,
		displayURL: displayURL,
		clock:      clock,
	}
}

func (s *Server) RegisterRoutes(r *mux.Router) {
	r.Path("/api/control/window").Methods("POST").HandlerFunc(s.handleOpenWindow)
	r.Path("/api/control/start").Methods("POST").HandlerFunc(s.handleStart)
	r.Path("/api/control/data").Methods("PATCH").HandlerFunc(s.handleUpdateData)
	r.Path("/api/control/timer").Methods("POST").HandlerFunc(s.handleUpdateTimer)
	r.Path("/api/control/pause").Methods("POST").HandlerFunc(s.handlePause)
	r.Path("/api/control/end").Methods("POST").HandlerFunc(s.handleEnd)
	r.Path("/api/control/chairperson").Methods("POST").HandlerFunc(s.handleChairperson)
	r.Path("/api/control/message/{direction}").Methods("POST").HandlerFunc(s.handleStepMessage)
	r.Path("/api/control/bill-discussion").Methods("POST").HandlerFunc(s.handleBillDiscussion)
	r.Path("/api/control/state").Methods("GET").HandlerFunc(s.handleGetState)
}

// StartRequest is the body of POST /api/control/start
type StartRequest struct {
	Mode          broadcast.Mode       `json:"mode"`
	Payload       json.RawMessage      `json:"payload,omitempty"`
	InitialTime   *timecodec.TimeValue `json:"initialTime,omitempty"`
	TimerDuration *int                 `json:"timerDuration,omitempty"`
}

type pauseRequest struct {
	Paused *bool `json:"paused"`
}

type chairpersonRequest struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	Picture  string `json:"picture,omitempty"`
}

// BillDiscussionRequest is the body of POST /api/control/bill-discussion
type BillDiscussionRequest struct {
	SeatNo broadcast.SeatNo `json:"seatNo"`
	BillID int              `json:"billId"`
}

type windowRequest struct {
	Features string `json:"features,omitempty"`
}

type windowResponse struct {
	WindowID string `json:"windowId"`
	URL      string `json:"url"`
}

// StateResponse reports the state on air with its timer extrapolated to now
type StateResponse struct {
	Success        bool            `json:"success"`
	State          broadcast.State `json:"state"`
	ElapsedSeconds int             `json:"elapsedSeconds"`
	Elapsed        string          `json:"elapsed"`
}

func (s *Server) handleOpenWindow(res http.ResponseWriter, req *http.Request) {
	if s.windows == nil {
		http.Error(res, "local display is not available", http.StatusServiceUnavailable)
		return
	}
	var body windowRequest
	if !decodeOptional(res, req, &body) {
		return
	}
	w, err := s.windows.Open(s.displayURL, body.Features)
	s.count("window", err)
	if err != nil {
		writeError(res, err)
		return
	}
	writeJSON(res, windowResponse{WindowID: w.ID, URL: w.URL})
}

func (s *Server) handleStart(res http.ResponseWriter, req *http.Request) {
	var body StartRequest
	if !decode(res, req, &body) {
		return
	}
	mode, err := broadcast.ParseMode(string(body.Mode))
	if err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}
	payload, err := broadcast.DecodePayload(mode, body.Payload)
	if err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.offloadPayload(req.Context(), payload); err != nil {
		writeError(res, err)
		return
	}
	var initial timecodec.TimeValue
	if body.InitialTime != nil {
		initial = *body.InitialTime
	}
	err = s.model.StartBroadcast(mode, payload, initial, body.TimerDuration)
	s.respond(res, "start", err)
}

func (s *Server) handleUpdateData(res http.ResponseWriter, req *http.Request) {
	var patch broadcast.Patch
	if !decode(res, req, &patch) {
		return
	}
	if err := s.offloadPatch(req.Context(), &patch); err != nil {
		writeError(res, err)
		return
	}
	s.respond(res, "data", s.model.UpdateData(patch))
}

func (s *Server) handleUpdateTimer(res http.ResponseWriter, req *http.Request) {
	var body timecodec.TimeValue
	if !decode(res, req, &body) {
		return
	}
	s.respond(res, "timer", s.model.UpdateTimer(timecodec.ToSeconds(body)))
}

func (s *Server) handlePause(res http.ResponseWriter, req *http.Request) {
	var body pauseRequest
	if !decode(res, req, &body) {
		return
	}
	if body.Paused == nil {
		http.Error(res, "'paused' is required", http.StatusBadRequest)
		return
	}
	s.respond(res, "pause", s.model.SetPaused(*body.Paused))
}

func (s *Server) handleEnd(res http.ResponseWriter, req *http.Request) {
	var next broadcast.IdlePayload
	if !decodeOptional(res, req, &next) {
		return
	}
	if err := s.offloadChair(req.Context(), &next.Chair); err != nil {
		writeError(res, err)
		return
	}
	s.respond(res, "end", s.model.EndBroadcast(&next))
}

func (s *Server) handleChairperson(res http.ResponseWriter, req *http.Request) {
	var body chairpersonRequest
	if !decode(res, req, &body) {
		return
	}
	if body.Name == "" {
		http.Error(res, "'name' is required", http.StatusBadRequest)
		return
	}
	chair := broadcast.Chair{Name: body.Name, Position: body.Position, Photo: body.Picture}
	if err := s.offloadChair(req.Context(), &chair); err != nil {
		writeError(res, err)
		return
	}
	s.respond(res, "chairperson", s.model.SetChair(chair))
}

func (s *Server) handleStepMessage(res http.ResponseWriter, req *http.Request) {
	var delta int
	switch mux.Vars(req)["direction"] {
	case "next":
		delta = 1
	case "prev", "previous":
		delta = -1
	default:
		http.Error(res, "direction must be 'next' or 'prev'", http.StatusNotFound)
		return
	}
	s.respond(res, "message", s.model.StepMessage(delta))
}

// handleBillDiscussion puts a member on air for a bill. Their timer starts from what
// they've already spoken on the bill, and both allocation rows are rebuilt from the
// directory's totals.
func (s *Server) handleBillDiscussion(res http.ResponseWriter, req *http.Request) {
	if s.directory == nil {
		http.Error(res, "directory is not configured", http.StatusServiceUnavailable)
		return
	}
	var body BillDiscussionRequest
	if !decode(res, req, &body) {
		return
	}
	if body.SeatNo.Normalized() == "" || body.BillID <= 0 {
		http.Error(res, "'seatNo' and 'billId' are required", http.StatusBadRequest)
		return
	}

	ctx := req.Context()
	payload, base, err := s.resolveBillDiscussion(ctx, body)
	if err != nil {
		s.count("bill-discussion", err)
		writeError(res, err)
		return
	}
	if err := s.offloadPayload(ctx, payload); err != nil {
		writeError(res, err)
		return
	}
	err = s.model.StartBroadcast(broadcast.ModeBillDiscussion, payload, timecodec.FromSeconds(base), nil)
	s.respond(res, "bill-discussion", err)
}

func (s *Server) resolveBillDiscussion(ctx context.Context, body BillDiscussionRequest) (*broadcast.BillDiscussionPayload, int, error) {
	member, err := s.directory.Member(ctx, body.SeatNo)
	if err != nil {
		return nil, 0, fmt.Errorf("member %s: %w", body.SeatNo, err)
	}
	bill, err := s.directory.Bill(ctx, body.BillID)
	if err != nil {
		return nil, 0, err
	}
	consumed, err := s.directory.ConsumedTime(ctx, bill.ID)
	if err != nil {
		return nil, 0, err
	}
	totals, err := s.directory.MemberTotals(ctx, bill.ID)
	if err != nil {
		return nil, 0, err
	}

	// The timer starts from base, so neither row may count it a second time: the
	// party's consumed time excludes it and the member row's spoken base is zero
	base := totals.For(body.SeatNo)
	party := directory.PartyAllocationFor(bill, member.Party, consumed, base)
	memberTime := directory.MemberAllocationFor(bill, body.SeatNo, 0)
	return &broadcast.BillDiscussionPayload{
		Member:     &member,
		BillID:     bill.ID,
		BillName:   bill.Name,
		PartyTime:  &party,
		MemberTime: &memberTime,
	}, base, nil
}

func (s *Server) handleGetState(res http.ResponseWriter, req *http.Request) {
	state := s.model.State()
	elapsed := state.Elapsed(s.clock.Now())
	writeJSON(res, StateResponse{
		Success:        true,
		State:          state,
		ElapsedSeconds: elapsed,
		Elapsed:        timecodec.FormatSeconds(elapsed),
	})
}

func (s *Server) respond(res http.ResponseWriter, command string, err error) {
	s.count(command, err)
	if err != nil {
		writeError(res, err)
		return
	}
	state := s.model.State()
	writeJSON(res, feed.Document{Success: true, State: &state})
}

func (s *Server) count(command string, err error) {
	metrics.Commands.WithLabelValues(command, metrics.Result(err)).Inc()
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, broadcast.ErrTransitionNotAllowed), errors.Is(err, broadcast.ErrNoActiveBroadcast):
		return http.StatusConflict
	case errors.Is(err, broadcast.ErrInvalidMode),
		errors.Is(err, broadcast.ErrPayloadMismatch),
		errors.Is(err, broadcast.ErrNoMessageEntries),
		errors.Is(err, photos.ErrInvalidDataURL):
		return http.StatusBadRequest
	case errors.Is(err, directory.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, directory.ErrRequestFailed), errors.Is(err, local.ErrOpenFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(res http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		fmt.Printf("CONTROL | %v\n", err)
	}
	http.Error(res, err.Error(), status)
}

func writeJSON(res http.ResponseWriter, v interface{}) {
	res.Header().Set("content-type", "application/json")
	if err := json.NewEncoder(res).Encode(v); err != nil {
		http.Error(res, err.Error(), http.StatusInternalServerError)
	}
}

func decode(res http.ResponseWriter, req *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(res, req.Body, maxRequestBytes)).Decode(v); err != nil {
		http.Error(res, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

// decodeOptional is decode for routes whose body may be omitted entirely
func decodeOptional(res http.ResponseWriter, req *http.Request, v interface{}) bool {
	err := json.NewDecoder(http.MaxBytesReader(res, req.Body, maxRequestBytes)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		http.Error(res, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}
