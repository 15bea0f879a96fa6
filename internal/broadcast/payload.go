package broadcast

import (
	"encoding/json"
	"fmt"
)

// Payload carries the mode-specific data for a broadcast. Exactly one concrete type
// belongs to each Mode: see NewPayload.
type Payload interface {
	// Chairperson returns the presiding officer shown alongside this payload, if any
	Chairperson() Chair

	isPayload()
}

// IdlePayload is shown between sessions
type IdlePayload struct {
	Chair
}

// ZeroHourPayload is shown during a fixed-length Zero Hour slot
type ZeroHourPayload struct {
	Member               *Member `json:"memberData,omitempty"`
	TimerDurationMinutes int     `json:"zhTimerDuration"`
	Chair
}

// MemberSpeakingPayload is shown while a member speaks without an allocation
type MemberSpeakingPayload struct {
	Member        *Member `json:"memberData,omitempty"`
	CustomHeading string  `json:"customHeading,omitempty"`
	Chair
}

// BillDiscussionPayload is shown while a member speaks on a bill, against both their
// own and their party's allocation
type BillDiscussionPayload struct {
	Member     *Member           `json:"memberData,omitempty"`
	BillID     int               `json:"billId,omitempty"`
	BillName   string            `json:"billName,omitempty"`
	PartyTime  *PartyAllocation  `json:"partyTimeData,omitempty"`
	MemberTime *MemberAllocation `json:"memberTimeData,omitempty"`
	Chair
}

// MessagePayload is shown for obituary and birthday cards
type MessagePayload struct {
	Entry        *MessageEntry  `json:"messageData,omitempty"`
	Entries      []MessageEntry `json:"messageEntries,omitempty"`
	CurrentIndex int            `json:"currentIndex"`
}

func (p *IdlePayload) Chairperson() Chair           { return p.Chair }
func (p *ZeroHourPayload) Chairperson() Chair       { return p.Chair }
func (p *MemberSpeakingPayload) Chairperson() Chair { return p.Chair }
func (p *BillDiscussionPayload) Chairperson() Chair { return p.Chair }
func (p *MessagePayload) Chairperson() Chair        { return Chair{} }

func (*IdlePayload) isPayload()           {}
func (*ZeroHourPayload) isPayload()       {}
func (*MemberSpeakingPayload) isPayload() {}
func (*BillDiscussionPayload) isPayload() {}
func (*MessagePayload) isPayload()        {}

// NewPayload returns an empty payload of the type that belongs to the given mode
func NewPayload(mode Mode) Payload {
	switch mode {
	case ModeZeroHour:
		return &ZeroHourPayload{TimerDurationMinutes: DefaultZeroHourMinutes}
	case ModeMemberSpeaking:
		return &MemberSpeakingPayload{}
	case ModeBillDiscussion:
		return &BillDiscussionPayload{}
	case ModeObituary, ModeBirthday:
		return &MessagePayload{}
	default:
		return &IdlePayload{}
	}
}

// CheckPayload verifies that p is the payload type that belongs to mode
func CheckPayload(mode Mode, p Payload) error {
	ok := false
	switch p.(type) {
	case *IdlePayload:
		ok = mode == ModeIdle
	case *ZeroHourPayload:
		ok = mode == ModeZeroHour
	case *MemberSpeakingPayload:
		ok = mode == ModeMemberSpeaking
	case *BillDiscussionPayload:
		ok = mode == ModeBillDiscussion
	case *MessagePayload:
		ok = mode.IsMessage()
	}
	if !ok {
		return fmt.Errorf("%w: %T given for '%s'", ErrPayloadMismatch, p, mode)
	}
	return nil
}

// DecodePayload parses a JSON payload into the type that belongs to mode. An absent
// payload decodes to the mode's empty payload.
func DecodePayload(mode Mode, data json.RawMessage) (Payload, error) {
	p := NewPayload(mode)
	if len(data) == 0 || string(data) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to decode '%s' payload: %w", mode, err)
	}
	return p, nil
}

// clonePayload returns a shallow copy of p, so that stored payloads are never mutated
// in place once they've been handed to a transport
func clonePayload(p Payload) Payload {
	switch v := p.(type) {
	case *IdlePayload:
		cp := *v
		return &cp
	case *ZeroHourPayload:
		cp := *v
		return &cp
	case *MemberSpeakingPayload:
		cp := *v
		return &cp
	case *BillDiscussionPayload:
		cp := *v
		return &cp
	case *MessagePayload:
		cp := *v
		return &cp
	}
	return p
}

// withChair returns a copy of p showing the given chairperson. Payloads that don't
// show a chairperson are returned unchanged.
func withChair(p Payload, c Chair) Payload {
	switch v := clonePayload(p).(type) {
	case *IdlePayload:
		v.Chair = c
		return v
	case *ZeroHourPayload:
		v.Chair = c
		return v
	case *MemberSpeakingPayload:
		v.Chair = c
		return v
	case *BillDiscussionPayload:
		v.Chair = c
		return v
	}
	return p
}

// Patch is a partial payload update. Nil fields are left untouched; fields that
// don't apply to the current mode are ignored.
type Patch struct {
	Member               *Member           `json:"memberData,omitempty"`
	Chairperson          *string           `json:"chairperson,omitempty"`
	ChairpersonPosition  *string           `json:"chairpersonPosition,omitempty"`
	ChairpersonPhoto     *string           `json:"chairpersonPhoto,omitempty"`
	CustomHeading        *string           `json:"customHeading,omitempty"`
	BillID               *int              `json:"billId,omitempty"`
	BillName             *string           `json:"billName,omitempty"`
	PartyTime            *PartyAllocation  `json:"partyTimeData,omitempty"`
	MemberTime           *MemberAllocation `json:"memberTimeData,omitempty"`
	TimerDurationMinutes *int              `json:"zhTimerDuration,omitempty"`
	MessageEntry         *MessageEntry     `json:"messageData,omitempty"`
	MessageEntries       []MessageEntry    `json:"messageEntries,omitempty"`
	CurrentIndex         *int              `json:"currentIndex,omitempty"`
}

// IsEmpty is true if the patch changes nothing
func (p *Patch) IsEmpty() bool {
	return !p.hasChair() && !p.hasContent()
}

func (p *Patch) hasChair() bool {
	return p.Chairperson != nil || p.ChairpersonPosition != nil || p.ChairpersonPhoto != nil
}

func (p *Patch) hasContent() bool {
	return p.Member != nil ||
		p.CustomHeading != nil ||
		p.BillID != nil ||
		p.BillName != nil ||
		p.PartyTime != nil ||
		p.MemberTime != nil ||
		p.TimerDurationMinutes != nil ||
		p.MessageEntry != nil ||
		p.MessageEntries != nil ||
		p.CurrentIndex != nil
}

// mergeChair applies the patch's chairperson fields to c
func (p *Patch) mergeChair(c Chair) Chair {
	if p.Chairperson != nil {
		c.Name = *p.Chairperson
	}
	if p.ChairpersonPosition != nil {
		c.Position = *p.ChairpersonPosition
	}
	if p.ChairpersonPhoto != nil {
		c.Photo = *p.ChairpersonPhoto
	}
	return c
}

// Merge returns a copy of payload with the patch applied
func (p *Patch) Merge(payload Payload) Payload {
	switch v := clonePayload(payload).(type) {
	case *IdlePayload:
		v.Chair = p.mergeChair(v.Chair)
		return v
	case *ZeroHourPayload:
		v.Chair = p.mergeChair(v.Chair)
		if p.Member != nil {
			v.Member = p.Member
		}
		if p.TimerDurationMinutes != nil && *p.TimerDurationMinutes > 0 {
			v.TimerDurationMinutes = *p.TimerDurationMinutes
		}
		return v
	case *MemberSpeakingPayload:
		v.Chair = p.mergeChair(v.Chair)
		if p.Member != nil {
			v.Member = p.Member
		}
		if p.CustomHeading != nil {
			v.CustomHeading = *p.CustomHeading
		}
		return v
	case *BillDiscussionPayload:
		v.Chair = p.mergeChair(v.Chair)
		if p.Member != nil {
			v.Member = p.Member
		}
		if p.BillID != nil {
			v.BillID = *p.BillID
		}
		if p.BillName != nil {
			v.BillName = *p.BillName
		}
		if p.PartyTime != nil {
			v.PartyTime = p.PartyTime
		}
		if p.MemberTime != nil {
			v.MemberTime = p.MemberTime
		}
		return v
	case *MessagePayload:
		if p.MessageEntries != nil {
			v.Entries = p.MessageEntries
		}
		if p.CurrentIndex != nil {
			v.CurrentIndex = *p.CurrentIndex
		}
		if p.MessageEntry != nil {
			v.Entry = p.MessageEntry
		} else if p.CurrentIndex != nil && v.CurrentIndex >= 0 && v.CurrentIndex < len(v.Entries) {
			v.Entry = &v.Entries[v.CurrentIndex]
		}
		return v
	}
	return payload
}
