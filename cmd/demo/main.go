package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/Bahjat/page-agent/backend/internal/app"
	"github.com/Bahjat/page-agent/backend/internal/model"
	"github.com/Bahjat/page-agent/backend/internal/platform/config"
	"github.com/Bahjat/page-agent/backend/internal/platform/logger"
)

// CLIFlags are the demo's command line options. Anything not set here
// comes from the environment, as for the API server.
type CLIFlags struct {
	URL      string `help:"Website to analyze." short:"u" default:"https://example.com"`
	MaxSteps int    `help:"Agent step limit; 0 keeps MAX_AGENT_STEPS." short:"s" default:"0"`
	Browser  string `help:"Override BROWSER_MODE (chrome or http)."`
	JSON     bool   `help:"Print the raw API response instead of a report." name:"json"`
	Verbose  bool   `help:"Log every pipeline and agent step to stderr." short:"v"`
}

func main() {
	var flags CLIFlags
	kong.Parse(&flags,
		kong.Name("demo"),
		kong.Description("Run the behavior pattern agent against one page without the HTTP server."),
	)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if flags.MaxSteps > 0 {
		cfg.MaxAgentSteps = flags.MaxSteps
	}
	switch flags.Browser {
	case "":
	case config.BrowserChrome, config.BrowserHTTP:
		cfg.BrowserMode = flags.Browser
	default:
		fmt.Fprintf(os.Stderr, "--browser must be %q or %q\n", config.BrowserChrome, config.BrowserHTTP)
		os.Exit(2)
	}

	level := "WARN"
	if flags.Verbose {
		level = "DEBUG"
	}
	log := logger.NewWithWriter(os.Stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
	defer cancel()

	if !flags.JSON {
		printBanner(os.Stdout, flags.URL)
	}

	resp, err := app.NewService(cfg, log, nil).Analyze(ctx, flags.URL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if flags.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			fmt.Fprintf(os.Stderr, "encode: %v\n", err)
			os.Exit(1)
		}
		return
	}
	printReport(os.Stdout, resp)
}

var rule = strings.Repeat("=", 70)

func printBanner(w io.Writer, url string) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "AI AGENT DEMO: Browser Automation & Pattern Generation")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "\nTarget URL: %s\n\n", url)
	fmt.Fprintln(w, "Agent will:")
	fmt.Fprintln(w, "1. Load and analyze the webpage")
	fmt.Fprintln(w, "2. Extract structure information")
	fmt.Fprintln(w, "3. Generate realistic user behavior patterns")
	fmt.Fprintln(w)
}

func printReport(w io.Writer, resp *model.AnalyzeResponse) {
	facts := resp.Analysis
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "STRUCTURE:")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Title:        %s\n", facts.Title)
	fmt.Fprintf(w, "Links:        %d\n", facts.LinksCount)
	fmt.Fprintf(w, "Navigation:   %t\n", facts.HasNavigation)
	fmt.Fprintf(w, "Main content: %t\n", facts.HasMainContent)
	fmt.Fprintf(w, "Page type:    %s\n\n", facts.PageType)

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "PATTERNS (agent %s after %d steps):\n", resp.AgentStatus, resp.AgentSteps)
	fmt.Fprintln(w, rule)
	if len(resp.Patterns) == 0 {
		fmt.Fprintln(w, "No structured patterns.")
		for _, problem := range resp.PatternErrors {
			fmt.Fprintf(w, "  - %s\n", problem)
		}
	}
	for i, p := range resp.Patterns {
		fmt.Fprintf(w, "%d. %s\n", i+1, p.Label)
		for _, s := range p.Steps {
			line := s.Action
			if s.Target != "" {
				line += " " + s.Target
			}
			if s.Value != "" {
				line += " (" + s.Value + ")"
			}
			if s.DelayMS > 0 {
				line += fmt.Sprintf(" after %d ms", s.DelayMS)
			}
			fmt.Fprintf(w, "   - %s\n", line)
		}
		if p.ExpectedOutcome != "" {
			fmt.Fprintf(w, "   Expected: %s\n", p.ExpectedOutcome)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "FINAL RESULT:")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, resp.FullResponse)
}
