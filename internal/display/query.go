package display

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sansad-av/talktime/internal/broadcast"
	"github.com/sansad-av/talktime/internal/timecodec"
)

// StartedAtParam records when a cold-started page first loaded, so that reloads keep
// counting from the same instant
const StartedAtParam = "startedAt"

// IsRemote is true if the page was asked to follow the broadcast feed
func IsRemote(q url.Values) bool {
	return q.Get("remote") == "1"
}

// FromQuery builds the initial state for a page loaded directly, without a controller
// pushing to it. Parameters that are missing or malformed are ignored. The timer runs
// from initialTime as of the startedAt parameter, or as of now if there is none.
func FromQuery(q url.Values, now time.Time) broadcast.State {
	mode, err := broadcast.ParseMode(q.Get("type"))
	if err != nil {
		mode = broadcast.ModeIdle
	}

	patch := broadcast.Patch{
		Chairperson:         optionalString(q, "chairperson"),
		ChairpersonPosition: optionalString(q, "chairpersonPosition"),
		ChairpersonPhoto:    optionalString(q, "chairpersonPhoto"),
		BillName:            optionalString(q, "billName"),
		CustomHeading:       optionalString(q, "customHeading"),
	}
	var member broadcast.Member
	if decodeParam(q, "memberData", &member) {
		patch.Member = &member
	}
	var party broadcast.PartyAllocation
	if decodeParam(q, "partyTimeData", &party) {
		patch.PartyTime = &party
	}
	var memberTime broadcast.MemberAllocation
	if decodeParam(q, "memberTimeData", &memberTime) {
		patch.MemberTime = &memberTime
	}
	if minutes, err := strconv.Atoi(q.Get("zhTimerDuration")); err == nil && minutes > 0 {
		patch.TimerDurationMinutes = &minutes
	}

	s := broadcast.State{
		Mode:    mode,
		Payload: patch.Merge(broadcast.NewPayload(mode)),
	}
	if mode == broadcast.ModeIdle {
		return s
	}

	s.DisplayTimeSeconds = parseInitialTime(q.Get("initialTime"))
	startedAt := now
	if ms, err := strconv.ParseInt(q.Get(StartedAtParam), 10, 64); err == nil && ms > 0 {
		startedAt = timecodec.FromUnixMillis(ms)
	}
	s.TimerTimestampMs = timecodec.UnixMillis(startedAt)
	return s
}

func optionalString(q url.Values, key string) *string {
	if !q.Has(key) {
		return nil
	}
	value := q.Get(key)
	return &value
}

func decodeParam(q url.Values, key string, v interface{}) bool {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), v) == nil
}

// parseInitialTime accepts either a JSON-encoded TimeValue or a plain number of
// seconds
func parseInitialTime(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds >= 0 {
		return seconds
	}
	var t timecodec.TimeValue
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return 0
	}
	return timecodec.ToSeconds(t)
}
