package directory

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sansad-av/talktime/internal/broadcast"
)

// Chairperson is a presiding officer who may be selected to occupy the chair
type Chairperson struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Position   string `json:"position"`
	Picture    string `json:"picture,omitempty"`
	IsSelected bool   `json:"is_selected"`
}

// Chair converts a Chairperson to the form shown on the display
func (c Chairperson) Chair() broadcast.Chair {
	return broadcast.Chair{
		Name:     c.Name,
		Position: c.Position,
		Photo:    c.Picture,
	}
}

// Bill is a bill under discussion, with the speaking time allotted to each party
type Bill struct {
	ID               int               `json:"id"`
	Name             string            `json:"bill_name"`
	Status           string            `json:"status,omitempty"`
	PartyAllocations []PartyAllocation `json:"party_allocations"`
	OthersTime       OthersTime        `json:"others_time"`
}

// PartyAllocation is the time allotted to a party, with optional per-member shares
type PartyAllocation struct {
	Party   string       `json:"party"`
	Hours   int          `json:"hours"`
	Minutes int          `json:"minutes"`
	Members []MemberTime `json:"members,omitempty"`
}

func (a PartyAllocation) Seconds() int {
	return a.Hours*3600 + a.Minutes*60
}

// OthersTime is the time pooled for every party without an allocation of its own
type OthersTime struct {
	Hours   int          `json:"hours"`
	Minutes int          `json:"minutes"`
	Members []MemberTime `json:"members,omitempty"`
}

func (o OthersTime) Seconds() int {
	return o.Hours*3600 + o.Minutes*60
}

// MemberTime is the time allotted to a single member
type MemberTime struct {
	SeatNo  broadcast.SeatNo `json:"seat_no"`
	Hours   int              `json:"hours"`
	Minutes int              `json:"minutes"`
}

func (m MemberTime) Seconds() int {
	return m.Hours*3600 + m.Minutes*60
}

// Seconds is a duration reported by the directory, which sends either numbers or
// numeric strings
type Seconds int

func (s *Seconds) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*s = 0
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid duration %s: %w", data, err)
	}
	*s = Seconds(math.Floor(f))
	return nil
}

// ConsumedTime maps a party name (or "member_<seat>") to the seconds consumed on a
// bill across all sittings
type ConsumedTime map[string]Seconds

// MemberTotals maps a normalized seat number to the seconds that member has spoken on
// a bill across all sittings
type MemberTotals map[string]int

// normalizeTotals merges entries such as "7" and "007", which name the same seat
func normalizeTotals(raw map[string]Seconds) MemberTotals {
	totals := make(MemberTotals, len(raw))
	for seat, seconds := range raw {
		key := broadcast.SeatNo(seat).Normalized()
		totals[key] += int(seconds)
	}
	return totals
}

// For returns the total spoken by the member in the given seat
func (t MemberTotals) For(seatNo broadcast.SeatNo) int {
	return t[seatNo.Normalized()]
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}
