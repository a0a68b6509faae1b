// Package browser loads pages and performs single user actions on them.
//
// Every call is independent: a session is opened for the call, used, and
// released before the call returns, whether it succeeded or not. Nothing is
// shared between calls.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Defaults taken from the interaction contract of the tools.
const (
	DefaultNavigationTimeout = 30 * time.Second
	clickTimeout             = 5 * time.Second
	postClickIdleTimeout     = 10 * time.Second
	scrollSettle             = 500 * time.Millisecond
)

var (
	// ErrInteractionUnsupported is returned by loaders that cannot run scripts.
	ErrInteractionUnsupported = errors.New("interaction requires a headless browser")
	errNetworkIdleTimeout     = errors.New("timed out waiting for network idle")
)

// Page is the rendered state of a document after a load or an action.
type Page struct {
	URL   string
	Title string
	HTML  string
}

// Summary is the short confirmation handed to callers that only need text.
func (p *Page) Summary() string {
	return fmt.Sprintf("Page loaded successfully. Title: '%s'. HTML content length: %d characters.", p.Title, len(p.HTML))
}

// Browser is implemented by ChromeLoader and HTTPLoader.
type Browser interface {
	// Load navigates to url and returns the rendered page.
	Load(ctx context.Context, url string) (*Page, error)
	// Click loads url, clicks the first element matching the CSS selector,
	// and returns the page state afterwards.
	Click(ctx context.Context, url, selector string) (*Page, error)
	// Scroll loads url, scrolls vertically by pixels, and returns the page
	// state afterwards.
	Scroll(ctx context.Context, url string, pixels int) (*Page, error)
}

// Observer is notified once per opened session.
type Observer func(action string, err error)

func (o Observer) observe(action string, err error) {
	if o != nil {
		o(action, err)
	}
}
