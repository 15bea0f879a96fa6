package display

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/sansad-av/talktime/internal/broadcast"
	"github.com/sansad-av/talktime/internal/timecodec"
)

// Windows resolves the display windows opened by the local transport
type Windows interface {
	// Mirror returns the received state of an open window
	Mirror(id string) (Source, bool)
	// Touch records that a window is still loaded
	Touch(id string)
}

// ChairSource looks up the selected chairperson, for Idle pages that haven't been told
// who is in the chair
type ChairSource interface {
	SelectedChairperson(ctx context.Context) (broadcast.Chair, error)
}

// ChairRefreshInterval is how long a chairperson looked up from the directory is
// reused before it's fetched again
const ChairRefreshInterval = 30 * time.Second

// PageServer serves the projector page. A page follows one of three sources: a
// window opened by the local transport (?window=<id>), the remote broadcast feed
// (?remote=1), or the state encoded in its own query parameters.
type PageServer struct {
	clock   timecodec.Clock
	windows Windows
	remote  Source
	chairs  ChairSource

	mu            sync.Mutex
	chair         broadcast.Chair
	chairLookedUp time.Time
}

// NewPageServer initializes a page server. Any of windows, remote and chairs may be
// nil if that source isn't available.
func NewPageServer(clock timecodec.Clock, windows Windows, remote Source, chairs ChairSource) *PageServer {
	if clock == nil {
		clock = timecodec.RealClock{}
	}
	return &PageServer{
		clock:   clock,
		windows: windows,
		remote:  remote,
		chairs:  chairs,
	}
}

func (s *PageServer) RegisterRoutes(r *mux.Router) {
	r.Path("/broadcast").Methods("GET").HandlerFunc(s.handleGetPage)
	r.Path("/broadcast/view").Methods("GET").HandlerFunc(s.handleGetView)
}

func (s *PageServer) handleGetPage(res http.ResponseWriter, req *http.Request) {
	view, refreshQuery := s.resolve(req)
	res.Header().Set("content-type", "text/html; charset=utf-8")
	res.Header().Set("cache-control", "no-store")
	data := pageData{
		View:       view,
		RefreshURL: req.URL.Path + "?" + refreshQuery.Encode(),
	}
	if err := pageTemplate.Execute(res, data); err != nil {
		fmt.Printf("DISPLAY | Failed to render page: %v\n", err)
	}
}

func (s *PageServer) handleGetView(res http.ResponseWriter, req *http.Request) {
	view, _ := s.resolve(req)
	res.Header().Set("content-type", "application/json")
	res.Header().Set("cache-control", "no-store")
	if err := json.NewEncoder(res).Encode(view); err != nil {
		http.Error(res, err.Error(), http.StatusInternalServerError)
	}
}

// resolve picks the state a request should see and renders it, returning the query
// that a reload of the page should use
func (s *PageServer) resolve(req *http.Request) (View, url.Values) {
	now := s.clock.Now()
	q := req.URL.Query()

	var state broadcast.State
	switch {
	case q.Get("window") != "" && s.windows != nil:
		id := q.Get("window")
		if mirror, ok := s.windows.Mirror(id); ok {
			s.windows.Touch(id)
			state = mirror.Current()
		} else {
			state = broadcast.IdleState(broadcast.Chair{})
		}
	case IsRemote(q) && s.remote != nil:
		state = s.remote.Current()
	default:
		state = FromQuery(q, now)
		if state.IsActive() && !q.Has(StartedAtParam) {
			q.Set(StartedAtParam, strconv.FormatInt(state.TimerTimestampMs, 10))
		}
		state.DisplayTimeSeconds = state.Elapsed(now)
	}

	if !state.IsActive() && state.Chairperson().IsZero() {
		if chair, ok := s.fallbackChair(req.Context(), now); ok {
			state = broadcast.IdleState(chair)
		}
	}
	return Render(state, now), q
}

// fallbackChair returns the directory's selected chairperson, looking it up at most
// once per ChairRefreshInterval
func (s *PageServer) fallbackChair(ctx context.Context, now time.Time) (broadcast.Chair, bool) {
	if s.chairs == nil {
		return broadcast.Chair{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chairLookedUp.IsZero() || now.Sub(s.chairLookedUp) >= ChairRefreshInterval {
		s.chairLookedUp = now
		chair, err := s.chairs.SelectedChairperson(ctx)
		if err != nil {
			fmt.Printf("DISPLAY | Failed to look up chairperson: %v\n", err)
		} else {
			s.chair = chair
		}
	}
	return s.chair, !s.chair.IsZero()
}

type pageData struct {
	View       View
	RefreshURL string
}

var pageTemplate = template.Must(template.New("broadcast").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="1;url={{.RefreshURL}}">
<title>{{.View.Mode}}</title>
</head>
<body>
<header><span class="clock">{{.View.Clock}}</span> <span class="date">{{.View.Date}}</span></header>
{{with .View.Idle}}
<section class="idle">
  {{if $.View.ChairPhoto}}<img src="{{$.View.ChairPhoto}}" alt="">{{end}}
  <h1>{{.ChairName}}</h1>
  <h2>{{.ChairPosition}}</h2>
</section>
{{end}}
{{with .View.ZeroHour}}
<section class="zero-hour{{if .IsOver}} over{{else if .TimeUp}} time-up{{end}}">
  <h1>ZERO HOUR</h1>
  <h2>{{.Speaker.Name}} ({{.Speaker.SeatNo}}) {{.Speaker.Party}}</h2>
  <table>
    <tr><th>Allotted</th><td>{{.Allotted}}</td></tr>
    <tr><th>Elapsed</th><td>{{.Elapsed}}</td></tr>
    <tr><th>Remaining</th><td>{{.Remaining}}</td></tr>
  </table>
  {{if .TimeUp}}<p class="time-up">TIME UP</p>{{end}}
</section>
{{end}}
{{with .View.MemberSpeaking}}
<section class="member-speaking">
  <h1>{{.Heading}}</h1>
  <h2>{{.Speaker.Name}} ({{.Speaker.SeatNo}}) {{.Speaker.PartyFull}}</h2>
  <p class="timer">{{.Elapsed}}</p>
</section>
{{end}}
{{with .View.BillDiscussion}}
<section class="bill-discussion">
  <h1>{{.BillName}}</h1>
  <h2>{{.Speaker.Name}} ({{.Speaker.SeatNo}})</h2>
  <p class="timer">{{.Elapsed}}</p>
  <table>
    <tr><th></th><th>Allotted</th><th>Spoken</th><th>Remaining</th></tr>
    <tr{{if .Member.Overtime}} class="over"{{end}}><th>{{.Member.Label}}</th><td>{{.Member.Allotted}}</td><td>{{.Member.Spoken}}</td><td>{{.Member.Remaining}}</td></tr>
    <tr{{if .Party.Overtime}} class="over"{{end}}><th>Party '{{.Party.Label}}'</th><td>{{.Party.Allotted}}</td><td>{{.Party.Spoken}}</td><td>{{.Party.Remaining}}</td></tr>
  </table>
</section>
{{end}}
{{with .View.Message}}
<section class="message">
  <h1>{{.Title}}</h1>
  {{if .Photo}}<img src="{{.Photo}}" alt="">{{end}}
  <h2>{{.NameEnglish}}</h2>
  <h3>{{.NameHindi}}</h3>
  <p>{{.BirthDate}}{{if .DeathDate}} – {{.DeathDate}}{{end}}</p>
  {{range .Terms}}<p class="term">{{.}}</p>{{end}}
  <p class="position">{{.Position}}</p>
</section>
{{end}}
{{if .View.Paused}}<div class="overlay">PAUSE</div>{{end}}
<footer>IN THE CHAIR: {{.View.Chair}}</footer>
</body>
</html>
`))
