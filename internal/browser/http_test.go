package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestHTTPLoader_Load(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != userAgent {
			t.Errorf("User-Agent = %q, want %q", r.Header.Get("User-Agent"), userAgent)
		}
		_, _ = fmt.Fprint(w, "<html><head><title> Hello page </title></head><body>Hi</body></html>")
	}))
	defer ts.Close()

	var observed []string
	l := newHTTPLoader(ts.Client(), func(action string, err error) {
		observed = append(observed, fmt.Sprintf("%s:%v", action, err))
	})

	p, err := l.Load(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Title != "Hello page" {
		t.Errorf("Title = %q, want %q", p.Title, "Hello page")
	}
	if p.URL != ts.URL {
		t.Errorf("URL = %q, want %q", p.URL, ts.URL)
	}
	if len(observed) != 1 || observed[0] != "load:<nil>" {
		t.Errorf("observer calls = %v", observed)
	}

	want := "Page loaded successfully. Title: 'Hello page'. HTML content length: 68 characters."
	if got := p.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestHTTPLoader_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	l := newHTTPLoader(ts.Client(), nil)
	_, err := l.Load(context.Background(), ts.URL)
	if !errors.Is(err, errUpstreamStatus) {
		t.Fatalf("error = %v, want %v", err, errUpstreamStatus)
	}
}

func TestHTTPLoader_BlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	l := NewHTTPLoader(DefaultNavigationTimeout, true, nil)
	_, err := l.Load(context.Background(), ts.URL)
	if !errors.Is(err, errBlockedAddress) {
		t.Fatalf("error = %v, want %v", err, errBlockedAddress)
	}
}

func TestHTTPLoader_InteractionsUnsupported(t *testing.T) {
	l := NewHTTPLoader(DefaultNavigationTimeout, true, nil)
	if _, err := l.Click(context.Background(), "https://example.com", "a"); !errors.Is(err, ErrInteractionUnsupported) {
		t.Errorf("Click error = %v", err)
	}
	if _, err := l.Scroll(context.Background(), "https://example.com", 500); !errors.Is(err, ErrInteractionUnsupported) {
		t.Errorf("Scroll error = %v", err)
	}
}

func TestSafeRedirectPolicy(t *testing.T) {
	tests := []struct {
		name    string
		scheme  string
		via     int
		wantErr bool
	}{
		{name: "within limit", scheme: "https", via: 3, wantErr: false},
		{name: "too many redirects", scheme: "https", via: 5, wantErr: true},
		{name: "file scheme", scheme: "file", via: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &http.Request{URL: &url.URL{Scheme: tt.scheme, Host: "example.com"}}
			err := safeRedirectPolicy(req, make([]*http.Request, tt.via))
			if (err != nil) != tt.wantErr {
				t.Errorf("safeRedirectPolicy() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDocumentTitle(t *testing.T) {
	tests := map[string]string{
		"<html><head><title>A</title></head></html>":  "A",
		"<html><head></head><body>none</body></html>": "",
		"": "",
	}
	for doc, want := range tests {
		if got := documentTitle(doc); got != want {
			t.Errorf("documentTitle(%q) = %q, want %q", doc, got, want)
		}
	}
}
