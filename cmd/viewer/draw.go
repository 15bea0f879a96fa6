package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/sansad-av/talktime/internal/display"
)

const clearScreen = "\033[H\033[2J"

// draw renders a view as plain text, replacing whatever was last drawn
func draw(w io.Writer, v display.View) {
	var b strings.Builder
	b.WriteString(clearScreen)
	fmt.Fprintf(&b, "%s  %s\n", v.Date, v.Clock)
	fmt.Fprintf(&b, "%s\n\n", v.Chair)

	switch {
	case v.ZeroHour != nil:
		z := v.ZeroHour
		b.WriteString("ZERO HOUR\n")
		drawSpeaker(&b, z.Speaker)
		fmt.Fprintf(&b, "Allotted:  %s\n", z.Allotted)
		fmt.Fprintf(&b, "Elapsed:   %s\n", z.Elapsed)
		fmt.Fprintf(&b, "Remaining: %s\n", z.Remaining)
		if z.IsOver {
			b.WriteString("** TIME EXCEEDED **\n")
		} else if z.TimeUp {
			b.WriteString("** TIME UP **\n")
		}
	case v.MemberSpeaking != nil:
		m := v.MemberSpeaking
		fmt.Fprintf(&b, "%s\n", strings.ToUpper(m.Heading))
		drawSpeaker(&b, m.Speaker)
		fmt.Fprintf(&b, "Elapsed: %s\n", m.Elapsed)
	case v.BillDiscussion != nil:
		bd := v.BillDiscussion
		fmt.Fprintf(&b, "%s\n", bd.BillName)
		drawSpeaker(&b, bd.Speaker)
		fmt.Fprintf(&b, "Elapsed: %s\n\n", bd.Elapsed)
		fmt.Fprintf(&b, "%-10s %-10s %-10s %-10s\n", "", "Allotted", "Spoken", "Remaining")
		for _, row := range []display.AllocationRow{bd.Member, bd.Party} {
			remaining := row.Remaining
			if row.Overtime {
				remaining += " (over)"
			}
			fmt.Fprintf(&b, "%-10s %-10s %-10s %-10s\n", row.Label, row.Allotted, row.Spoken, remaining)
		}
	case v.Message != nil:
		m := v.Message
		fmt.Fprintf(&b, "%s\n\n", m.Title)
		fmt.Fprintf(&b, "%s\n%s\n", m.NameEnglish, m.NameHindi)
		if m.DeathDate != "" {
			fmt.Fprintf(&b, "%s - %s\n", m.BirthDate, m.DeathDate)
		} else {
			fmt.Fprintf(&b, "%s\n", m.BirthDate)
		}
		for _, term := range m.Terms {
			fmt.Fprintf(&b, "  %s\n", term)
		}
		fmt.Fprintf(&b, "%s\n", m.Position)
	case v.Idle != nil:
		fmt.Fprintf(&b, "%s\n%s\n", v.Idle.ChairName, v.Idle.ChairPosition)
	}

	if v.Paused {
		b.WriteString("\n[ PAUSED ]\n")
	}
	io.WriteString(w, b.String())
}

func drawSpeaker(b *strings.Builder, s display.Speaker) {
	fmt.Fprintf(b, "%s (Seat %s)\n", s.Name, s.SeatNo)
	fmt.Fprintf(b, "%s, %s\n\n", s.PartyFull, s.State)
}
