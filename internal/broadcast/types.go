package broadcast

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mode identifies which kind of broadcast is currently on air
type Mode string

const (
	ModeIdle           Mode = "Idle"
	ModeZeroHour       Mode = "Zero Hour"
	ModeMemberSpeaking Mode = "Member Speaking"
	ModeBillDiscussion Mode = "Bill Discussion"
	ModeObituary       Mode = "Obituary"
	ModeBirthday       Mode = "Birthday"
)

// Modes lists every mode in the order they're presented to operators
var Modes = []Mode{
	ModeIdle,
	ModeZeroHour,
	ModeMemberSpeaking,
	ModeBillDiscussion,
	ModeObituary,
	ModeBirthday,
}

// ParseMode resolves a wire value to a Mode
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: '%s'", ErrInvalidMode, s)
}

// IsTimed is true for modes that show a running speaking timer
func (m Mode) IsTimed() bool {
	return m == ModeZeroHour || m == ModeMemberSpeaking || m == ModeBillDiscussion
}

// IsMessage is true for the static card modes that page through message entries
func (m Mode) IsMessage() bool {
	return m == ModeObituary || m == ModeBirthday
}

// DefaultZeroHourMinutes is the length of a Zero Hour slot when none is given
const DefaultZeroHourMinutes = 3

// SeatNo identifies a member by seat. The directory serves seat numbers as either JSON
// numbers or strings, so both are accepted.
type SeatNo string

func (s *SeatNo) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = SeatNo(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("seat number must be a string or number: %w", err)
	}
	*s = SeatNo(n.String())
	return nil
}

// Normalized strips leading zeros so that "007" and "7" compare equal
func (s SeatNo) Normalized() string {
	trimmed := strings.TrimLeft(strings.TrimSpace(string(s)), "0")
	if trimmed == "" && strings.TrimSpace(string(s)) != "" {
		return "0"
	}
	return trimmed
}

// Matches reports whether two seat numbers refer to the same seat
func (s SeatNo) Matches(other SeatNo) bool {
	return s.Normalized() == other.Normalized()
}

// Member describes the member who currently has the floor
type Member struct {
	SeatNo  SeatNo `json:"seat_no"`
	Name    string `json:"name"`
	Party   string `json:"party,omitempty"`
	State   string `json:"state,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// Chair identifies the presiding officer. Its fields are flattened into the payloads
// that show the chairperson.
type Chair struct {
	Name     string `json:"chairperson,omitempty"`
	Position string `json:"chairpersonPosition,omitempty"`
	Photo    string `json:"chairpersonPhoto,omitempty"`
}

// IsZero is true if no chairperson has been selected
func (c Chair) IsZero() bool {
	return c.Name == "" && c.Position == "" && c.Photo == ""
}

// PartyAllocation is a party's speaking budget for a bill, along with the time its
// members have already consumed in earlier sessions
type PartyAllocation struct {
	PartyName        string `json:"partyName,omitempty"`
	AllocatedSeconds int    `json:"allocated"`
	ConsumedSeconds  int    `json:"consumed"`
	EffectiveParty   string `json:"effectiveParty,omitempty"`
}

// MemberAllocation is an individual member's speaking budget for a bill
type MemberAllocation struct {
	SeatNo            SeatNo `json:"seatNo,omitempty"`
	AllocatedSeconds  int    `json:"allocated"`
	IsAllocated       bool   `json:"isAllocated"`
	SpokenBaseSeconds int    `json:"spokenBase"`
}

// Term is a period during which a member served
type Term struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// MessageEntry is a single obituary or birthday card
type MessageEntry struct {
	ID          string `json:"id,omitempty"`
	NameEnglish string `json:"nameEnglish,omitempty"`
	NameHindi   string `json:"nameHindi,omitempty"`
	Photo       string `json:"photo,omitempty"`
	BirthDate   string `json:"birthDate,omitempty"`
	DeathDate   string `json:"deathDate,omitempty"`
	SeatNo      SeatNo `json:"seatNo,omitempty"`
	Terms       []Term `json:"terms,omitempty"`
}
