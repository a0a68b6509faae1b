package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	maxRedirects    = 5
	maxResponseBody = 10 << 20
	userAgent       = "PageAgentBot/1.0"
)

var (
	errTooManyRedirects = errors.New("too many redirects")
	errBlockedRedirect  = errors.New("redirect to non-http(s) scheme blocked")
	errUpstreamStatus   = errors.New("target returned an error status")
)

// HTTPLoader fetches raw HTML without executing scripts. It is meant for
// hosts where no Chrome binary is available; it cannot click or scroll.
type HTTPLoader struct {
	client   *http.Client
	observer Observer
}

// NewHTTPLoader returns a loader backed by an http.Client with the given
// timeout, a dedicated transport that blocks connections to
// private/reserved IP ranges when blockPrivate is set, and redirect
// validation that prevents SSRF via redirect chains.
func NewHTTPLoader(timeout time.Duration, blockPrivate bool, observer Observer) *HTTPLoader {
	transport := &http.Transport{
		MaxConnsPerHost:     10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if blockPrivate {
		transport.DialContext = safeDialer().DialContext
	}

	return newHTTPLoader(&http.Client{
		Timeout:       timeout,
		Transport:     transport,
		CheckRedirect: safeRedirectPolicy,
	}, observer)
}

func newHTTPLoader(client *http.Client, observer Observer) *HTTPLoader {
	return &HTTPLoader{client: client, observer: observer}
}

// safeRedirectPolicy validates redirect targets and limits the redirect chain length.
func safeRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("%w: %s", errBlockedRedirect, req.URL.Scheme)
	}
	return nil
}

// Load retrieves the document at targetURL.
func (l *HTTPLoader) Load(ctx context.Context, targetURL string) (page *Page, err error) {
	defer func() { l.observer.observe("load", err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %d", errUpstreamStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, err
	}

	doc := string(body)
	return &Page{
		URL:   resp.Request.URL.String(),
		Title: documentTitle(doc),
		HTML:  doc,
	}, nil
}

// Click is not supported without a browser.
func (l *HTTPLoader) Click(context.Context, string, string) (*Page, error) {
	return nil, ErrInteractionUnsupported
}

// Scroll is not supported without a browser.
func (l *HTTPLoader) Scroll(context.Context, string, int) (*Page, error) {
	return nil, ErrInteractionUnsupported
}

// documentTitle returns the text of the first <title> element.
func documentTitle(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var inTitle bool
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := z.TagName()
			inTitle = string(tn) == "title"
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(z.Text()))
			}
		case html.EndTagToken:
			inTitle = false
		}
	}
}
