package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bahjat/page-agent/backend/internal/browser"
	"github.com/Bahjat/page-agent/backend/internal/model"
)

type fakeBrowser struct {
	page *browser.Page
	err  error

	loads    []string
	clicks   [][2]string
	scrolled []int
}

func (b *fakeBrowser) Load(_ context.Context, url string) (*browser.Page, error) {
	b.loads = append(b.loads, url)
	return b.page, b.err
}

func (b *fakeBrowser) Click(_ context.Context, url, selector string) (*browser.Page, error) {
	b.clicks = append(b.clicks, [2]string{url, selector})
	return b.page, b.err
}

func (b *fakeBrowser) Scroll(_ context.Context, url string, pixels int) (*browser.Page, error) {
	b.scrolled = append(b.scrolled, pixels)
	return b.page, b.err
}

const toolTestHTML = `<html><head><title>Shop</title></head><body><nav><a href="/a">A</a></nav><button>Buy</button></body></html>`

func newToolBrowser() *fakeBrowser {
	return &fakeBrowser{page: &browser.Page{URL: "https://shop.example", Title: "Shop", HTML: toolTestHTML}}
}

func toolByName(t *testing.T, tools []Tool, name string) Tool {
	t.Helper()
	for _, tool := range tools {
		if tool.Spec().Name == name {
			return tool
		}
	}
	t.Fatalf("tool %q not found", name)
	return nil
}

func TestBrowserTools_Specs(t *testing.T) {
	tools := BrowserTools(newToolBrowser())

	var names []string
	for _, tool := range tools {
		spec := tool.Spec()
		names = append(names, spec.Name)
		assert.NotEmpty(t, spec.Description, spec.Name)
		assert.Equal(t, "object", spec.Parameters["type"], spec.Name)
	}
	assert.Equal(t, []string{ToolLoadPage, ToolClickElement, ToolScrollPage, ToolAnalyzePage}, names)
}

func TestLoadPageTool(t *testing.T) {
	b := newToolBrowser()
	tool := toolByName(t, BrowserTools(b), ToolLoadPage)

	out, err := tool.Call(context.Background(), json.RawMessage(`{"url":" 'https://shop.example' "}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"https://shop.example"}, b.loads)
	assert.Equal(t, b.page.Summary(), out)
}

func TestLoadPageTool_Failure(t *testing.T) {
	b := newToolBrowser()
	b.err = errors.New("net::ERR_NAME_NOT_RESOLVED")
	tool := toolByName(t, BrowserTools(b), ToolLoadPage)

	out, err := tool.Call(context.Background(), json.RawMessage(`{"url":"https://nope.invalid"}`))
	require.Error(t, err)
	assert.Equal(t, "Error loading page: net::ERR_NAME_NOT_RESOLVED", out)
}

func TestClickElementTool(t *testing.T) {
	b := newToolBrowser()
	tool := toolByName(t, BrowserTools(b), ToolClickElement)

	out, err := tool.Call(context.Background(), json.RawMessage(`{"selector":"nav a","url":"https://shop.example"}`))
	require.NoError(t, err)

	assert.Equal(t, [][2]string{{"https://shop.example", "nav a"}}, b.clicks)
	assert.Contains(t, out, "Successfully clicked 'nav a'. New page title: 'Shop'.")
}

func TestClickElementTool_Failure(t *testing.T) {
	b := newToolBrowser()
	b.err = errors.New("context deadline exceeded")
	tool := toolByName(t, BrowserTools(b), ToolClickElement)

	out, err := tool.Call(context.Background(), json.RawMessage(`{"selector":"#missing","url":"https://shop.example"}`))
	require.Error(t, err)
	assert.Equal(t, "Could not click '#missing': context deadline exceeded", out)
}

func TestClickElementTool_MissingArguments(t *testing.T) {
	b := newToolBrowser()
	tool := toolByName(t, BrowserTools(b), ToolClickElement)

	_, err := tool.Call(context.Background(), json.RawMessage(`{"url":"https://shop.example"}`))
	assert.ErrorIs(t, err, errMissingSelector)

	_, err = tool.Call(context.Background(), json.RawMessage(`{"selector":"a"}`))
	assert.ErrorIs(t, err, errMissingURL)

	_, err = tool.Call(context.Background(), json.RawMessage(`"a|https://shop.example"`))
	assert.Error(t, err)

	assert.Empty(t, b.clicks)
}

func TestScrollPageTool(t *testing.T) {
	tests := []struct {
		name string
		args string
		want int
	}{
		{name: "explicit", args: `{"url":"https://shop.example","pixels":1200}`, want: 1200},
		{name: "default", args: `{"url":"https://shop.example"}`, want: defaultScrollPixels},
		{name: "zero is kept", args: `{"url":"https://shop.example","pixels":0}`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newToolBrowser()
			tool := toolByName(t, BrowserTools(b), ToolScrollPage)

			out, err := tool.Call(context.Background(), json.RawMessage(tt.args))
			require.NoError(t, err)
			assert.Equal(t, []int{tt.want}, b.scrolled)
			assert.Contains(t, out, "Page content length:")
		})
	}
}

func TestScrollPageTool_Unsupported(t *testing.T) {
	b := newToolBrowser()
	b.err = browser.ErrInteractionUnsupported
	tool := toolByName(t, BrowserTools(b), ToolScrollPage)

	out, err := tool.Call(context.Background(), json.RawMessage(`{"url":"https://shop.example","pixels":10}`))
	assert.ErrorIs(t, err, browser.ErrInteractionUnsupported)
	assert.Contains(t, out, "Error scrolling:")
}

func TestAnalyzePageTool(t *testing.T) {
	b := newToolBrowser()
	tool := toolByName(t, BrowserTools(b), ToolAnalyzePage)

	out, err := tool.Call(context.Background(), json.RawMessage(`{"url":"https://shop.example"}`))
	require.NoError(t, err)

	var facts model.Facts
	require.NoError(t, json.Unmarshal([]byte(out), &facts))
	assert.Equal(t, "Shop", facts.Title)
	assert.Equal(t, 1, facts.LinksCount)
	assert.True(t, facts.HasNavigation)
	assert.Equal(t, []string{"A", "Buy"}, facts.SampleButtons)
}
