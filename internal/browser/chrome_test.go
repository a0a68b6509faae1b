package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/Bahjat/page-agent/backend/internal/platform/logger"
)

// chromePath returns a Chrome executable or skips the test. CHROME_PATH
// takes precedence over the PATH lookup.
func chromePath(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("browser tests are skipped in -short mode")
	}
	if p := os.Getenv("CHROME_PATH"); p != "" {
		return p
	}
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("no Chrome executable found")
	return ""
}

func testSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `<!DOCTYPE html><html><head><title>Home</title></head><body>
			<nav><a id="next" href="/next">Next</a></nav>
			<div style="height:5000px">tall</div>
		</body></html>`)
	})
	mux.HandleFunc("/next", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `<html><head><title>Next page</title></head><body>there</body></html>`)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newTestChrome(t *testing.T, observer Observer) *ChromeLoader {
	return NewChromeLoader(ChromeOptions{
		NavigationTimeout: 20 * time.Second,
		ExecPath:          chromePath(t),
		Observer:          observer,
	}, logger.Discard())
}

func TestChromeLoader_Load(t *testing.T) {
	ts := testSite(t)
	var sessions int
	l := newTestChrome(t, func(string, error) { sessions++ })

	p, err := l.Load(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Title != "Home" {
		t.Errorf("Title = %q, want %q", p.Title, "Home")
	}
	if !strings.Contains(p.HTML, `id="next"`) {
		t.Errorf("HTML does not contain the link: %q", p.HTML)
	}
	if sessions != 1 {
		t.Errorf("sessions = %d, want 1", sessions)
	}
}

func TestChromeLoader_Click(t *testing.T) {
	ts := testSite(t)
	l := newTestChrome(t, nil)

	p, err := l.Click(context.Background(), ts.URL, "#next")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Title != "Next page" {
		t.Errorf("Title = %q, want %q", p.Title, "Next page")
	}
}

func TestChromeLoader_ClickMissingSelector(t *testing.T) {
	ts := testSite(t)
	l := newTestChrome(t, nil)

	start := time.Now()
	_, err := l.Click(context.Background(), ts.URL, "#does-not-exist")
	if err == nil {
		t.Fatal("expected error for missing selector")
	}
	if elapsed := time.Since(start); elapsed > 20*time.Second+clickTimeout+time.Second {
		t.Errorf("missing selector took %s", elapsed)
	}
}

func TestChromeLoader_Scroll(t *testing.T) {
	ts := testSite(t)
	l := newTestChrome(t, nil)

	p, err := l.Scroll(context.Background(), ts.URL, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.HTML == "" {
		t.Error("empty HTML after scroll")
	}
}

func TestChromeLoader_UnreachableHostFailsWithinTimeout(t *testing.T) {
	l := NewChromeLoader(ChromeOptions{
		NavigationTimeout: 5 * time.Second,
		ExecPath:          chromePath(t),
	}, logger.Discard())

	start := time.Now()
	_, err := l.Load(context.Background(), "http://does-not-exist.invalid/")
	if err == nil {
		t.Fatal("expected error for unreachable host")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("unreachable host took %s", elapsed)
	}
}

func TestChromeLoader_GuardRejectsBeforeLaunch(t *testing.T) {
	var sessions int
	l := NewChromeLoader(ChromeOptions{
		ExecPath: "/nonexistent/chrome",
		Guard:    NewGuard(true),
		Observer: func(string, error) { sessions++ },
	}, logger.Discard())

	_, err := l.Load(context.Background(), "http://127.0.0.1:9/")
	if !errors.Is(err, errBlockedAddress) {
		t.Fatalf("error = %v, want %v", err, errBlockedAddress)
	}
	if _, err := l.Click(context.Background(), "http://[::1]/", "a"); !errors.Is(err, errBlockedAddress) {
		t.Fatalf("click error = %v, want %v", err, errBlockedAddress)
	}
	if sessions != 0 {
		t.Errorf("sessions = %d, want 0", sessions)
	}
}

// stallingResolver blocks until the lookup context ends.
type stallingResolver struct{}

func (stallingResolver) LookupNetIP(ctx context.Context, _, _ string) ([]netip.Addr, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestChromeLoader_GuardLookupBoundedByNavigationTimeout(t *testing.T) {
	l := NewChromeLoader(ChromeOptions{
		NavigationTimeout: 50 * time.Millisecond,
		ExecPath:          "/nonexistent/chrome",
		Guard:             &Guard{resolver: stallingResolver{}, enabled: true},
	}, logger.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	_, err := l.Scroll(ctx, "https://slow-dns.example", 100)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want %v", err, context.DeadlineExceeded)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("guard lookup took %s, want it bounded by the navigation timeout", elapsed)
	}
}
