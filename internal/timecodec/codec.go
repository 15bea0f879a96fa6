package timecodec

import (
	"fmt"
	"time"
)

// TimeValue is a duration broken down into hours, minutes and seconds, in the form
// accepted by operators and shown on the projector
type TimeValue struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// ToSeconds returns the total number of seconds represented by t. Negative fields are
// treated as zero.
func ToSeconds(t TimeValue) int {
	return nonNegative(t.Hours)*3600 + nonNegative(t.Minutes)*60 + nonNegative(t.Seconds)
}

// FromSeconds decomposes a total number of seconds into a TimeValue. Minutes and
// seconds are always in [0,59]; hours are not wrapped at 24, since allocations for a
// bill can run longer than a day. A negative total yields the zero value: signed
// values are formatted with FormatSigned.
func FromSeconds(total int) TimeValue {
	total = nonNegative(total)
	return TimeValue{
		Hours:   total / 3600,
		Minutes: (total % 3600) / 60,
		Seconds: total % 60,
	}
}

// Normalize carries overflowing seconds and minutes into the larger fields
func Normalize(t TimeValue) TimeValue {
	return FromSeconds(ToSeconds(t))
}

// FormatClock renders t as zero-padded HH:MM:SS
func FormatClock(t TimeValue) string {
	n := Normalize(t)
	return fmt.Sprintf("%02d:%02d:%02d", n.Hours, n.Minutes, n.Seconds)
}

// FormatSeconds renders a non-negative total as HH:MM:SS
func FormatSeconds(total int) string {
	return FormatClock(FromSeconds(total))
}

// FormatSigned renders a possibly-negative total as HH:MM:SS, prefixed with '-' when
// the value is below zero (e.g. a member who has overrun their allocation)
func FormatSigned(total int) string {
	if total < 0 {
		return "-" + FormatSeconds(-total)
	}
	return FormatSeconds(total)
}

// FormatShort renders a Zero Hour countdown as 00:MM:SS. The hours field is always
// zero and minutes are not carried into it, so a 90 minute slot reads 00:90:00.
func FormatShort(total int) string {
	total = nonNegative(total)
	return fmt.Sprintf("00:%02d:%02d", total/60, total%60)
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// Parliament sits on Indian Standard Time; wall-clock displays are always rendered in
// IST regardless of the host's local zone
var IST = time.FixedZone("IST", 5*60*60+30*60)

// FormatWallClock renders the time of day in IST using a 24-hour clock
func FormatWallClock(t time.Time) string {
	return t.In(IST).Format("15:04:05")
}

// FormatDate renders the calendar date in IST as DD-MM-YYYY
func FormatDate(t time.Time) string {
	return t.In(IST).Format("02-01-2006")
}
