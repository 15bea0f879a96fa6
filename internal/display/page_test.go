package display

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sansad-av/talktime/internal/broadcast"
	"github.com/sansad-av/talktime/internal/timecodec"
)

func Test_PageServer_window(t *testing.T) {
	clock := timecodec.NewFakeClock(now)
	d := New(clock)
	d.Receive(broadcast.Message{
		Type:    broadcast.MessageTypeStartBroadcast,
		Mode:    broadcast.ModeMemberSpeaking,
		Payload: &broadcast.MemberSpeakingPayload{CustomHeading: "Special Mention"},
	})
	windows := &mockWindows{mirrors: map[string]Source{"abc": d}}
	s := NewPageServer(clock, windows, nil, nil)

	v := getView(t, s, "/broadcast/view?window=abc")
	assert.Equal(t, broadcast.ModeMemberSpeaking, v.Mode)
	assert.Equal(t, "Special Mention", v.MemberSpeaking.Heading)
	assert.Equal(t, []string{"abc"}, windows.touched)

	v = getView(t, s, "/broadcast/view?window=gone")
	assert.Equal(t, broadcast.ModeIdle, v.Mode)
}

func Test_PageServer_remote(t *testing.T) {
	remote := staticSource{broadcast.State{
		Mode:               broadcast.ModeZeroHour,
		Payload:            &broadcast.ZeroHourPayload{TimerDurationMinutes: 3},
		DisplayTimeSeconds: 170,
	}}
	s := NewPageServer(timecodec.NewFakeClock(now), nil, remote, nil)
	v := getView(t, s, "/broadcast/view?remote=1")
	require.NotNil(t, v.ZeroHour)
	assert.Equal(t, "00:00:10", v.ZeroHour.Remaining)
}

func Test_PageServer_coldStart(t *testing.T) {
	clock := timecodec.NewFakeClock(now)
	s := NewPageServer(clock, nil, nil, nil)

	q := url.Values{}
	q.Set("type", "Bill Discussion")
	q.Set("billName", "The Finance Bill")
	q.Set("memberData", `{"seat_no":44,"name":"Shri A","party":"INC"}`)
	q.Set("memberTimeData", `{"allocated":600,"isAllocated":true,"spokenBase":500}`)
	q.Set("partyTimeData", `not json`)
	q.Set("initialTime", `{"hours":0,"minutes":2,"seconds":0}`)

	r := mux.NewRouter()
	s.RegisterRoutes(r)
	req := httptest.NewRequest(http.MethodGet, "/broadcast?"+q.Encode(), nil)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "The Finance Bill")
	assert.Contains(t, body, "00:02:00")
	assert.Contains(t, body, fmt.Sprintf("startedAt=%d", timecodec.UnixMillis(now)))

	// A reload a few seconds later keeps counting from the original load
	q.Set(StartedAtParam, fmt.Sprintf("%d", timecodec.UnixMillis(now)))
	clock.Advance(5 * time.Second)
	v := getView(t, s, "/broadcast/view?"+q.Encode())
	require.NotNil(t, v.BillDiscussion)
	assert.Equal(t, "00:02:05", v.BillDiscussion.Elapsed)
	assert.Equal(t, "00:10:25", v.BillDiscussion.Member.Spoken)
	assert.Equal(t, Placeholder, v.BillDiscussion.Party.Allotted)
}

func Test_PageServer_idleChairFallback(t *testing.T) {
	clock := timecodec.NewFakeClock(now)
	chairs := &mockChairs{chair: broadcast.Chair{Name: "Shri X", Position: "Chairman"}}
	s := NewPageServer(clock, nil, nil, chairs)

	v := getView(t, s, "/broadcast/view")
	assert.Equal(t, "HON'BLE CHAIRMAN", v.Chair)
	getView(t, s, "/broadcast/view")
	assert.Equal(t, 1, chairs.calls)

	clock.Advance(ChairRefreshInterval)
	getView(t, s, "/broadcast/view")
	assert.Equal(t, 2, chairs.calls)

	// A chairperson named in the query wins over the directory
	v = getView(t, s, "/broadcast/view?chairperson=Smt+Y")
	assert.Equal(t, "Smt Y", v.Chair)

	chairs.err = fmt.Errorf("directory is down")
	clock.Advance(ChairRefreshInterval)
	v = getView(t, s, "/broadcast/view")
	assert.Equal(t, "HON'BLE CHAIRMAN", v.Chair)
}

func Test_PageServer_pausedOverlay(t *testing.T) {
	remote := staticSource{broadcast.State{
		Mode:     broadcast.ModeMemberSpeaking,
		Payload:  &broadcast.MemberSpeakingPayload{},
		IsPaused: true,
	}}
	s := NewPageServer(timecodec.NewFakeClock(now), nil, remote, nil)
	req := httptest.NewRequest(http.MethodGet, "/broadcast?remote=1", nil)
	res := httptest.NewRecorder()
	s.handleGetPage(res, req)
	assert.True(t, strings.Contains(res.Body.String(), `<div class="overlay">PAUSE</div>`))
	assert.Contains(t, res.Body.String(), `url=/broadcast?remote=1`)
}

func getView(t *testing.T, s *PageServer, target string) View {
	r := mux.NewRouter()
	s.RegisterRoutes(r)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	var v View
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	return v
}

type mockWindows struct {
	mirrors map[string]Source
	touched []string
}

func (m *mockWindows) Mirror(id string) (Source, bool) {
	s, ok := m.mirrors[id]
	return s, ok
}

func (m *mockWindows) Touch(id string) {
	m.touched = append(m.touched, id)
}

type mockChairs struct {
	chair broadcast.Chair
	err   error
	calls int
}

func (m *mockChairs) SelectedChairperson(ctx context.Context) (broadcast.Chair, error) {
	m.calls++
	if m.err != nil {
		return broadcast.Chair{}, m.err
	}
	return m.chair, nil
}

type staticSource struct {
	state broadcast.State
}

func (s staticSource) Current() broadcast.State {
	return s.state
}

var _ Windows = (*mockWindows)(nil)
var _ ChairSource = (*mockChairs)(nil)
var _ Source = staticSource{}
