package broadcast

import "errors"

// ErrInvalidMode is returned when a mode string is unrecognized, or when Idle is given
// where a broadcast mode is required
var ErrInvalidMode = errors.New("invalid broadcast mode")

// ErrTransitionNotAllowed is returned when starting a broadcast while a broadcast of a
// different mode is still on air: the operator must end it first
var ErrTransitionNotAllowed = errors.New("another broadcast is already on air")

// ErrPayloadMismatch is returned when a payload's shape doesn't belong to the mode it
// was supplied for
var ErrPayloadMismatch = errors.New("payload does not match broadcast mode")

// ErrNoActiveBroadcast is returned by operations that only make sense while a
// broadcast is on air
var ErrNoActiveBroadcast = errors.New("no broadcast is on air")

// ErrNoMessageEntries is returned when paging through an obituary or birthday
// broadcast that has no entries
var ErrNoMessageEntries = errors.New("no message entries to show")
