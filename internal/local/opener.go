package local

import (
	"fmt"

	"github.com/pkg/browser"
)

// Opener opens a URL in a new display surface
type Opener interface {
	Open(url string) error
}

// BrowserOpener opens display windows in the system's default web browser
type BrowserOpener struct{}

func (BrowserOpener) Open(url string) error {
	return browser.OpenURL(url)
}

// LogOpener doesn't open anything: it prints the URL so that an operator can open it
// on the projector machine themselves
type LogOpener struct{}

func (LogOpener) Open(url string) error {
	fmt.Printf("LOCAL | Open the display window at: %s\n", url)
	return nil
}
