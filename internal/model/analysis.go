package model

// AnalyzeRequest is the body accepted by POST /api/analyze.
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// Facts is the heuristic summary of a page's DOM used to seed the agent.
type Facts struct {
	URL            string         `json:"url"`
	Title          string         `json:"title,omitempty"`
	HTMLVersion    string         `json:"html_version"`
	LinksCount     int            `json:"links_count"`
	SampleLinks    []string       `json:"sample_links"`
	SampleButtons  []string       `json:"sample_buttons"`
	Headings       map[string]int `json:"headings"`
	HasNavigation  bool           `json:"has_navigation"`
	HasMainContent bool           `json:"has_main_content"`
	HasLoginForm   bool           `json:"has_login_form"`
	PageType       string         `json:"page_type"`
}

// Step is a single user action inside a behavior pattern.
type Step struct {
	Action  string `json:"action"`
	Target  string `json:"target,omitempty"`
	Value   string `json:"value,omitempty"`
	DelayMS int    `json:"delay_ms,omitempty"`
}

// Pattern is one plausible user interaction sequence.
type Pattern struct {
	Label           string `json:"label"`
	Steps           []Step `json:"steps"`
	ExpectedOutcome string `json:"expected_outcome,omitempty"`
}

// AnalyzeResponse is returned by POST /api/analyze on success.
type AnalyzeResponse struct {
	Success       bool      `json:"success"`
	Analysis      Facts     `json:"analysis"`
	FullResponse  string    `json:"full_response"`
	Patterns      []Pattern `json:"patterns"`
	PatternErrors []string  `json:"pattern_errors,omitempty"`
	AgentStatus   string    `json:"agent_status"`
	AgentSteps    int       `json:"agent_steps"`
}

// ErrorResponse is the JSON shape returned on failure.
type ErrorResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
}
