package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Bahjat/page-agent/backend/internal/agent"
	"github.com/Bahjat/page-agent/backend/internal/model"
	"github.com/Bahjat/page-agent/backend/internal/pageinsight"
	"github.com/Bahjat/page-agent/backend/internal/patterns"
	"github.com/Bahjat/page-agent/backend/internal/platform/errs"
	"github.com/Bahjat/page-agent/backend/internal/platform/metrics"
	"github.com/Bahjat/page-agent/backend/internal/platform/requestid"
)

// Options tunes a Service.
type Options struct {
	// StrictPatterns fails the analysis when the answer does not match the
	// pattern schema instead of returning an empty pattern list.
	StrictPatterns bool
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Service runs the load, extract and agent pipeline for one URL.
type Service struct {
	loader PageLoader
	runner AgentRunner
	opts   Options
	logger *slog.Logger
}

// NewService creates a Service.
func NewService(loader PageLoader, runner AgentRunner, opts Options, logger *slog.Logger) *Service {
	return &Service{loader: loader, runner: runner, opts: opts, logger: logger}
}

// NormalizeURL trims raw, defaults a missing scheme to https, and rejects
// anything that is not an absolute http(s) URL.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errs.New(errs.InvalidInput, "URL is required", nil)
	}
	if !hasScheme(raw) {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", errs.New(errs.InvalidInput, "The URL could not be parsed.", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errs.New(errs.InvalidInput, "Only http and https URLs can be analyzed.", nil)
	}
	if u.Hostname() == "" {
		return "", errs.New(errs.InvalidInput, "The URL must include a host.", nil)
	}
	return u.String(), nil
}

// hasScheme reports whether raw starts with "scheme://". A "://" later in
// the string, such as in a query parameter, does not count.
func hasScheme(raw string) bool {
	i := strings.Index(raw, "://")
	if i <= 0 {
		return false
	}
	for j, c := range raw[:i] {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case j > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

// Analyze loads rawURL, extracts its structure facts, asks the agent for
// behavior patterns, and validates them.
func (s *Service) Analyze(ctx context.Context, rawURL string) (resp *model.AnalyzeResponse, err error) {
	start := time.Now()
	logger := s.logger.With("request_id", requestid.FromContext(ctx))
	defer func() { s.record(start, err) }()

	targetURL, err := NormalizeURL(rawURL)
	if err != nil {
		logger.Info("analysis rejected", "url", rawURL, "error", err)
		return nil, err
	}
	logger = logger.With("url", targetURL)
	logger.Info("analysis received")

	page, err := s.loader.Load(ctx, targetURL)
	if err != nil {
		err = classify(ctx, err, errs.Unreachable, "Could not load the target page.")
		logger.Error("analysis failed", "stage", "load", "error", err)
		return nil, err
	}

	facts := pageinsight.Extract(page.HTML, targetURL)
	logger.Info("running agent", "title", facts.Title, "links_count", facts.LinksCount)

	result, err := s.runner.Run(ctx, agent.TaskPrompt(targetURL, facts))
	if err != nil {
		err = classify(ctx, err, errs.AgentFailed, "The language model request failed.")
		logger.Error("analysis failed", "stage", "agent", "error", err)
		return nil, err
	}
	s.recordSteps(result)

	found, parseErr := patterns.Parse(result.Answer)
	if parseErr != nil && s.opts.StrictPatterns {
		err = errs.New(errs.ParsingFailed, "The model answer did not match the pattern schema.", parseErr)
		logger.Error("analysis failed", "stage", "patterns", "error", err)
		return nil, err
	}
	if found == nil {
		found = []model.Pattern{}
	}

	resp = &model.AnalyzeResponse{
		Success:       true,
		Analysis:      facts,
		FullResponse:  result.Answer,
		Patterns:      found,
		PatternErrors: patterns.Problems(parseErr),
		AgentStatus:   string(result.Status),
		AgentSteps:    result.Steps,
	}

	logger.Info("analysis complete",
		"agent_status", result.Status,
		"agent_steps", result.Steps,
		"patterns", len(found),
		"pattern_errors", len(resp.PatternErrors),
		"duration", time.Since(start),
	)
	return resp, nil
}

// classify wraps err as kind unless the deadline on ctx caused it.
func classify(ctx context.Context, err error, kind errs.Kind, message string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return errs.New(errs.Timeout, "Analysis timed out. The target URL may be slow to respond.", err)
	}
	return errs.New(kind, message, err)
}

func (s *Service) record(start time.Time, err error) {
	m := s.opts.Metrics
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = errs.Unknown.String()
		var appErr *errs.AppError
		if errors.As(err, &appErr) {
			outcome = appErr.Kind.String()
		}
	}
	m.Analyses.WithLabelValues(outcome).Inc()
	m.AnalysisDuration.Observe(time.Since(start).Seconds())
}

func (s *Service) recordSteps(result *agent.Result) {
	if m := s.opts.Metrics; m != nil {
		m.AgentSteps.WithLabelValues(string(result.Status)).Observe(float64(result.Steps))
	}
}
