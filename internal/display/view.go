package display

import (
	"fmt"
	"time"

	"github.com/sansad-av/talktime/internal/broadcast"
	"github.com/sansad-av/talktime/internal/timecodec"
)

// View is everything the projector shows for a given state. Exactly one of the
// mode-specific fields is set, matching Mode.
type View struct {
	Mode broadcast.Mode `json:"mode"`
	// Paused is true when a PAUSE overlay should cover a non-Idle view
	Paused bool `json:"paused"`
	// Clock and Date are the IST wall clock, independent of the speaking timer
	Clock string `json:"clock"`
	Date  string `json:"date"`
	// Chair is the formatted "In The Chair" line
	Chair      string `json:"chair"`
	ChairPhoto string `json:"chairPhoto,omitempty"`

	Idle           *IdleView           `json:"idle,omitempty"`
	ZeroHour       *ZeroHourView       `json:"zeroHour,omitempty"`
	MemberSpeaking *MemberSpeakingView `json:"memberSpeaking,omitempty"`
	BillDiscussion *BillDiscussionView `json:"billDiscussion,omitempty"`
	Message        *MessageView        `json:"message,omitempty"`
}

type IdleView struct {
	ChairName     string `json:"chairName"`
	ChairPosition string `json:"chairPosition"`
}

// Speaker describes the member who has the floor
type Speaker struct {
	Name      string `json:"name"`
	SeatNo    string `json:"seatNo"`
	Party     string `json:"party"`
	PartyFull string `json:"partyFull"`
	State     string `json:"state"`
	Picture   string `json:"picture,omitempty"`
}

type ZeroHourView struct {
	Speaker          Speaker `json:"speaker"`
	Allotted         string  `json:"allotted"`
	Elapsed          string  `json:"elapsed"`
	Remaining        string  `json:"remaining"`
	RemainingSeconds int     `json:"remainingSeconds"`
	// TimeUp is set once the slot has been used in full; IsOver once it's exceeded
	TimeUp bool `json:"timeUp"`
	IsOver bool `json:"isOver"`
}

type MemberSpeakingView struct {
	Speaker        Speaker `json:"speaker"`
	Heading        string  `json:"heading"`
	Elapsed        string  `json:"elapsed"`
	ElapsedSeconds int     `json:"elapsedSeconds"`
}

// AllocationRow is one line of the Bill Discussion table
type AllocationRow struct {
	Label            string `json:"label"`
	Allotted         string `json:"allotted"`
	Spoken           string `json:"spoken"`
	Remaining        string `json:"remaining"`
	RemainingSeconds int    `json:"remainingSeconds"`
	Overtime         bool   `json:"overtime"`
}

type BillDiscussionView struct {
	Speaker  Speaker       `json:"speaker"`
	BillName string        `json:"billName"`
	Elapsed  string        `json:"elapsed"`
	Member   AllocationRow `json:"member"`
	Party    AllocationRow `json:"party"`
}

type MessageView struct {
	Title       string   `json:"title"`
	NameEnglish string   `json:"nameEnglish"`
	NameHindi   string   `json:"nameHindi"`
	Photo       string   `json:"photo,omitempty"`
	BirthDate   string   `json:"birthDate"`
	DeathDate   string   `json:"deathDate,omitempty"`
	Terms       []string `json:"terms,omitempty"`
	Position    string   `json:"position"`
}

// Render produces the view for a state, showing DisplayTimeSeconds as the timer value:
// callers extrapolate the timer before rendering. now only drives the wall clock.
func Render(s broadcast.State, now time.Time) View {
	chair := s.Chairperson()
	v := View{
		Mode:       s.Mode,
		Paused:     s.IsPaused && s.IsActive(),
		Clock:      timecodec.FormatWallClock(now),
		Date:       timecodec.FormatDate(now),
		Chair:      ChairLine(chair),
		ChairPhoto: chair.Photo,
	}
	elapsed := s.DisplayTimeSeconds
	if elapsed < 0 {
		elapsed = 0
	}

	switch p := s.Payload.(type) {
	case *broadcast.ZeroHourPayload:
		v.ZeroHour = renderZeroHour(p, elapsed)
	case *broadcast.MemberSpeakingPayload:
		v.MemberSpeaking = &MemberSpeakingView{
			Speaker:        renderSpeaker(p.Member),
			Heading:        orPlaceholder(p.CustomHeading),
			Elapsed:        timecodec.FormatSeconds(elapsed),
			ElapsedSeconds: elapsed,
		}
	case *broadcast.BillDiscussionPayload:
		v.BillDiscussion = renderBillDiscussion(p, elapsed)
	case *broadcast.MessagePayload:
		v.Message = renderMessage(s.Mode, p)
	default:
		v.Mode = broadcast.ModeIdle
		v.Paused = false
		v.Idle = &IdleView{
			ChairName:     orPlaceholder(chair.Name),
			ChairPosition: orPlaceholder(chair.Position),
		}
	}
	return v
}

func renderSpeaker(m *broadcast.Member) Speaker {
	if m == nil {
		return Speaker{
			Name:      Placeholder,
			SeatNo:    UnknownSeat,
			Party:     Placeholder,
			PartyFull: Placeholder,
			State:     Placeholder,
		}
	}
	seat := string(m.SeatNo)
	if seat == "" {
		seat = UnknownSeat
	}
	return Speaker{
		Name:      orPlaceholder(m.Name),
		SeatNo:    seat,
		Party:     ShortPartyName(m.Party),
		PartyFull: FullPartyName(m.Party),
		State:     orPlaceholder(m.State),
		Picture:   m.Picture,
	}
}

func renderZeroHour(p *broadcast.ZeroHourPayload, elapsed int) *ZeroHourView {
	minutes := p.TimerDurationMinutes
	if minutes <= 0 {
		minutes = broadcast.DefaultZeroHourMinutes
	}
	total := minutes * 60
	remaining := total - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return &ZeroHourView{
		Speaker:          renderSpeaker(p.Member),
		Allotted:         timecodec.FormatShort(total),
		Elapsed:          timecodec.FormatSeconds(elapsed),
		Remaining:        timecodec.FormatShort(remaining),
		RemainingSeconds: remaining,
		TimeUp:           elapsed >= total,
		IsOver:           elapsed > total,
	}
}

func renderBillDiscussion(p *broadcast.BillDiscussionPayload, elapsed int) *BillDiscussionView {
	v := &BillDiscussionView{
		Speaker:  renderSpeaker(p.Member),
		BillName: orPlaceholder(p.BillName),
		Elapsed:  timecodec.FormatSeconds(elapsed),
	}

	memberLabel := Placeholder
	if p.Member != nil {
		memberLabel = orPlaceholder(p.Member.Name)
	}
	if a := p.MemberTime; a != nil && a.IsAllocated {
		v.Member = allocationRow(memberLabel, a.AllocatedSeconds, a.SpokenBaseSeconds+elapsed)
	} else {
		base := 0
		if a != nil {
			base = a.SpokenBaseSeconds
		}
		v.Member = AllocationRow{
			Label:     memberLabel,
			Allotted:  Placeholder,
			Spoken:    timecodec.FormatSeconds(base + elapsed),
			Remaining: Placeholder,
		}
	}

	if a := p.PartyTime; a != nil {
		party := a.EffectiveParty
		if party == "" {
			party = a.PartyName
		}
		if party == "" && p.Member != nil {
			party = p.Member.Party
		}
		v.Party = allocationRow(ShortPartyName(party), a.AllocatedSeconds, a.ConsumedSeconds+elapsed)
	} else {
		label := Placeholder
		if p.Member != nil {
			label = ShortPartyName(p.Member.Party)
		}
		v.Party = AllocationRow{
			Label:     label,
			Allotted:  Placeholder,
			Spoken:    Placeholder,
			Remaining: Placeholder,
		}
	}
	return v
}

func allocationRow(label string, allocated, spoken int) AllocationRow {
	remaining := allocated - spoken
	return AllocationRow{
		Label:            label,
		Allotted:         timecodec.FormatSeconds(allocated),
		Spoken:           timecodec.FormatSeconds(spoken),
		Remaining:        timecodec.FormatSigned(remaining),
		RemainingSeconds: remaining,
		Overtime:         remaining < 0,
	}
}

func renderMessage(mode broadcast.Mode, p *broadcast.MessagePayload) *MessageView {
	title := "OBITUARY REFERENCE"
	if mode == broadcast.ModeBirthday {
		title = "BIRTHDAY GREETINGS"
	}
	v := &MessageView{
		Title:       title,
		NameEnglish: Placeholder,
		NameHindi:   Placeholder,
		BirthDate:   Placeholder,
		Position:    Placeholder,
	}
	if len(p.Entries) > 0 {
		v.Position = fmt.Sprintf("%d / %d", p.CurrentIndex+1, len(p.Entries))
	}
	e := p.Entry
	if e == nil {
		return v
	}
	v.NameEnglish = orPlaceholder(e.NameEnglish)
	v.NameHindi = orPlaceholder(e.NameHindi)
	v.Photo = e.Photo
	v.BirthDate = orPlaceholder(e.BirthDate)
	if mode == broadcast.ModeObituary {
		v.DeathDate = orPlaceholder(e.DeathDate)
	}
	for _, term := range e.Terms {
		end := term.End
		if end == "" {
			end = "present"
		}
		v.Terms = append(v.Terms, fmt.Sprintf("%s – %s", orPlaceholder(term.Start), end))
	}
	return v
}
