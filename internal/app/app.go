// Package app wires configuration into a ready-to-use analysis service.
package app

import (
	"log/slog"

	"github.com/Bahjat/page-agent/backend/internal/agent"
	"github.com/Bahjat/page-agent/backend/internal/analyzer"
	"github.com/Bahjat/page-agent/backend/internal/browser"
	"github.com/Bahjat/page-agent/backend/internal/platform/config"
	"github.com/Bahjat/page-agent/backend/internal/platform/metrics"
)

// NewBrowser returns the loader selected by cfg.BrowserMode. m may be nil.
func NewBrowser(cfg config.Config, logger *slog.Logger, m *metrics.Metrics) browser.Browser {
	var observer browser.Observer
	if m != nil {
		observer = func(action string, err error) {
			m.BrowserSessions.WithLabelValues(action, metrics.Outcome(err)).Inc()
		}
	}

	if cfg.BrowserMode == config.BrowserHTTP {
		return browser.NewHTTPLoader(cfg.NavigationTimeout(), cfg.BlockPrivateNetworks, observer)
	}
	return browser.NewChromeLoader(browser.ChromeOptions{
		NavigationTimeout: cfg.NavigationTimeout(),
		ExecPath:          cfg.ChromePath,
		Guard:             browser.NewGuard(cfg.BlockPrivateNetworks),
		Observer:          observer,
	}, logger)
}

// NewAgent builds the pattern agent over b using model. m may be nil.
func NewAgent(cfg config.Config, b browser.Browser, model agent.Model, logger *slog.Logger, m *metrics.Metrics) *agent.Agent {
	opts := agent.Options{MaxSteps: cfg.MaxAgentSteps}
	if m != nil {
		opts.OnToolCall = func(tool string, err error) {
			m.ToolCalls.WithLabelValues(tool, metrics.Outcome(err)).Inc()
		}
	}
	return agent.New(model, agent.BrowserTools(b), opts, logger)
}

// NewService assembles the full pipeline against the OpenAI API.
func NewService(cfg config.Config, logger *slog.Logger, m *metrics.Metrics) *analyzer.Service {
	b := NewBrowser(cfg, logger, m)
	model := agent.NewOpenAIModel(cfg.APIKey, cfg.BaseURL, cfg.Model)
	return analyzer.NewService(b, NewAgent(cfg, b, model, logger, m), analyzer.Options{
		StrictPatterns: cfg.StrictPatterns,
		Metrics:        m,
	}, logger)
}
