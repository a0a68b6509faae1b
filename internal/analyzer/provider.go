package analyzer

import (
	"context"

	"github.com/Bahjat/page-agent/backend/internal/agent"
	"github.com/Bahjat/page-agent/backend/internal/browser"
)

// PageLoader fetches the rendered page the analysis starts from.
type PageLoader interface {
	Load(ctx context.Context, url string) (*browser.Page, error)
}

// AgentRunner runs the pattern agent for a task prompt.
type AgentRunner interface {
	Run(ctx context.Context, task string) (*agent.Result, error)
}
