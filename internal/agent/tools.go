package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Bahjat/page-agent/backend/internal/browser"
	"github.com/Bahjat/page-agent/backend/internal/pageinsight"
)

// Tool names as seen by the model.
const (
	ToolLoadPage     = "load_page"
	ToolClickElement = "click_element"
	ToolScrollPage   = "scroll_page"
	ToolAnalyzePage  = "analyze_page"
)

const defaultScrollPixels = 500

var (
	errMissingURL      = errors.New("missing \"url\" argument")
	errMissingSelector = errors.New("missing \"selector\" argument")
)

// BrowserTools returns the four page tools backed by b, in the order they
// are offered to the model.
func BrowserTools(b browser.Browser) []Tool {
	return []Tool{
		loadPageTool{b},
		clickElementTool{b},
		scrollPageTool{b},
		analyzePageTool{b},
	}
}

func urlParameter() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Absolute http(s) URL of the page, e.g. https://example.com",
	}
}

// decodeArgs unmarshals tool arguments into v.
func decodeArgs(args json.RawMessage, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// cleanArg trims whitespace and stray quotes the model sometimes leaves
// around string values.
func cleanArg(s string) string {
	return strings.Trim(strings.TrimSpace(s), `'"`)
}

type loadPageTool struct{ browser browser.Browser }

func (loadPageTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        ToolLoadPage,
		Description: "Load a webpage and get basic information. Returns a confirmation with the page title and HTML length.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"url": urlParameter()},
			"required":   []string{"url"},
		},
	}
}

func (t loadPageTool) Call(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		URL string `json:"url"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.URL = cleanArg(in.URL); in.URL == "" {
		return "", errMissingURL
	}

	page, err := t.browser.Load(ctx, in.URL)
	if err != nil {
		return fmt.Sprintf("Error loading page: %v", err), err
	}
	return page.Summary(), nil
}

type clickElementTool struct{ browser browser.Browser }

func (clickElementTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        ToolClickElement,
		Description: "Click an element on a page using a CSS selector. Returns a confirmation with the resulting page title.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"selector": map[string]any{
					"type":        "string",
					"description": "CSS selector of the element to click, e.g. a.article-link",
				},
				"url": urlParameter(),
			},
			"required": []string{"selector", "url"},
		},
	}
}

func (t clickElementTool) Call(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Selector string `json:"selector"`
		URL      string `json:"url"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	in.Selector, in.URL = cleanArg(in.Selector), cleanArg(in.URL)
	if in.Selector == "" {
		return "", errMissingSelector
	}
	if in.URL == "" {
		return "", errMissingURL
	}

	page, err := t.browser.Click(ctx, in.URL, in.Selector)
	if err != nil {
		return fmt.Sprintf("Could not click '%s': %v", in.Selector, err), err
	}
	return fmt.Sprintf("Successfully clicked '%s'. New page title: '%s'. HTML length: %d characters.",
		in.Selector, page.Title, len(page.HTML)), nil
}

type scrollPageTool struct{ browser browser.Browser }

func (scrollPageTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        ToolScrollPage,
		Description: "Scroll the page down by a number of pixels. Returns a confirmation.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": urlParameter(),
				"pixels": map[string]any{
					"type":        "integer",
					"description": "Vertical scroll distance in pixels; negative scrolls up",
				},
			},
			"required": []string{"url"},
		},
	}
}

func (t scrollPageTool) Call(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		URL    string `json:"url"`
		Pixels *int   `json:"pixels"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.URL = cleanArg(in.URL); in.URL == "" {
		return "", errMissingURL
	}
	pixels := defaultScrollPixels
	if in.Pixels != nil {
		pixels = *in.Pixels
	}

	page, err := t.browser.Scroll(ctx, in.URL, pixels)
	if err != nil {
		return fmt.Sprintf("Error scrolling: %v", err), err
	}
	return fmt.Sprintf("Scrolled %d pixels. Page content length: %d characters.", pixels, len(page.HTML)), nil
}

type analyzePageTool struct{ browser browser.Browser }

func (analyzePageTool) Spec() ToolSpec {
	return ToolSpec{
		Name: ToolAnalyzePage,
		Description: "Analyze page structure and extract key information. Returns JSON with the title, links count, " +
			"sample links and buttons, heading counts, and whether navigation, main content or a login form are present.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"url": urlParameter()},
			"required":   []string{"url"},
		},
	}
}

func (t analyzePageTool) Call(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		URL string `json:"url"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.URL = cleanArg(in.URL); in.URL == "" {
		return "", errMissingURL
	}

	page, err := t.browser.Load(ctx, in.URL)
	if err != nil {
		return fmt.Sprintf("Error analyzing page: %v", err), err
	}

	facts := pageinsight.Extract(page.HTML, page.URL)
	out, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
