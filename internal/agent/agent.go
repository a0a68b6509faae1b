// Package agent runs a bounded reason-act loop in which a language model
// chooses among a fixed set of tools until it produces a final answer.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// DefaultMaxSteps bounds the loop when no limit is configured.
const DefaultMaxSteps = 10

var (
	// ErrEmptyReply is returned when the model answers with neither text
	// nor tool calls.
	ErrEmptyReply  = errors.New("model returned an empty reply")
	errUnknownTool = errors.New("unknown tool")
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model request to run a tool with JSON arguments.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one entry of the running transcript.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolSpec describes a tool to the model.
type ToolSpec struct {
	Name        string
	Description string
	// Parameters is a JSON Schema object.
	Parameters map[string]any
}

// Model produces the next assistant message for a transcript.
type Model interface {
	Complete(ctx context.Context, messages []Message, tools []ToolSpec) (Message, error)
}

// Tool is an action the model may invoke. Call returns the observation
// handed back to the model. A non-nil error marks the call as failed; the
// observation is still used when it is not empty.
type Tool interface {
	Spec() ToolSpec
	Call(ctx context.Context, arguments json.RawMessage) (string, error)
}

// Status is the terminal state of a run.
type Status string

const (
	// StatusAnswered means the model produced a final answer.
	StatusAnswered Status = "answered"
	// StatusExhausted means the step limit was reached first.
	StatusExhausted Status = "exhausted"
)

// Result is the outcome of Run.
type Result struct {
	// Answer is the final answer, or the last text the model produced when
	// the run was exhausted.
	Answer     string
	Status     Status
	Steps      int
	Transcript []Message
}

// Options configures an Agent.
type Options struct {
	MaxSteps     int
	SystemPrompt string
	// OnToolCall, if set, is called after every tool invocation.
	OnToolCall func(tool string, err error)
}

// Agent drives a Model over a set of tools.
type Agent struct {
	model  Model
	tools  map[string]Tool
	specs  []ToolSpec
	opts   Options
	logger *slog.Logger
}

// New returns an Agent. Tools are offered to the model in the given order.
func New(model Model, tools []Tool, opts Options, logger *slog.Logger) *Agent {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = SystemPrompt
	}

	a := &Agent{
		model:  model,
		tools:  make(map[string]Tool, len(tools)),
		opts:   opts,
		logger: logger.With("component", "agent"),
	}
	for _, t := range tools {
		spec := t.Spec()
		a.tools[spec.Name] = t
		a.specs = append(a.specs, spec)
	}
	return a
}

// Run executes the loop for task. Each step is one model round trip. The
// run ends as StatusAnswered when the model replies without tool calls, or
// as StatusExhausted after MaxSteps. Model failures and context
// cancellation are returned as errors; tool failures are not.
func (a *Agent) Run(ctx context.Context, task string) (*Result, error) {
	messages := []Message{
		{Role: RoleSystem, Content: a.opts.SystemPrompt},
		{Role: RoleUser, Content: task},
	}
	var partial string

	for step := 1; step <= a.opts.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("agent stopped before step %d: %w", step, err)
		}

		reply, err := a.model.Complete(ctx, messages, a.specs)
		if err != nil {
			return nil, fmt.Errorf("model call failed at step %d: %w", step, err)
		}
		reply.Role = RoleAssistant
		messages = append(messages, reply)

		if strings.TrimSpace(reply.Content) != "" {
			partial = reply.Content
		}

		if len(reply.ToolCalls) == 0 {
			if partial == "" {
				return nil, fmt.Errorf("step %d: %w", step, ErrEmptyReply)
			}
			a.logger.Debug("agent answered", "steps", step)
			return &Result{Answer: reply.Content, Status: StatusAnswered, Steps: step, Transcript: messages}, nil
		}

		a.logger.Debug("executing tools", "step", step, "count", len(reply.ToolCalls))
		for _, call := range reply.ToolCalls {
			messages = append(messages, Message{
				Role:       RoleTool,
				Content:    a.invoke(ctx, call),
				ToolCallID: call.ID,
			})
		}
	}

	a.logger.Warn("agent step limit reached", "max_steps", a.opts.MaxSteps)
	return &Result{Answer: partial, Status: StatusExhausted, Steps: a.opts.MaxSteps, Transcript: messages}, nil
}

// invoke runs one tool call and always returns an observation.
func (a *Agent) invoke(ctx context.Context, call ToolCall) string {
	name := strings.TrimSpace(call.Name)
	tool, ok := a.tools[name]
	if !ok {
		a.notify(name, errUnknownTool)
		return fmt.Sprintf("Unknown tool '%s'. Available tools: %s.", name, strings.Join(a.toolNames(), ", "))
	}

	args := json.RawMessage(call.Arguments)
	if strings.TrimSpace(call.Arguments) == "" {
		args = json.RawMessage("{}")
	}

	observation, err := tool.Call(ctx, args)
	a.notify(name, err)
	if err != nil {
		a.logger.Warn("tool call failed", "tool", name, "error", err)
		if observation == "" {
			observation = "Error: " + err.Error()
		}
	}
	return observation
}

func (a *Agent) notify(tool string, err error) {
	if a.opts.OnToolCall != nil {
		a.opts.OnToolCall(tool, err)
	}
}

func (a *Agent) toolNames() []string {
	names := make([]string, len(a.specs))
	for i, s := range a.specs {
		names[i] = s.Name
	}
	return names
}
