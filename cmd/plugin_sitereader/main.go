package main

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/aymanh23/searchv2/aitools"
	"github.com/aymanh23/searchv2/plugin"
)

// whitespaceRegex matches multiple consecutive whitespace characters
var whitespaceRegex = regexp.MustCompile(`[ \t]+`)

// emptyLineRegex matches lines that are empty or contain only whitespace
var emptyLineRegex = regexp.MustCompile(`(?m)^\s*$[\r\n]*`)

const defaultTimeoutMs = 30000

// tools holds the metadata for each tool provided by this plugin
var tools = map[string]*plugin.ToolInfo{
	"read_page": {
		Name:        "read_page",
		Description: "Load a web page in a real browser and return its visible text. Useful for pages that render content with JavaScript.",
		Schema: aitools.Schema{
			Type: aitools.TypeObject,
			Properties: aitools.PropertyMap{
				"url": {
					Type:        aitools.TypeString,
					Description: "The URL to read",
				},
				"selector": {
					Type:        aitools.TypeString,
					Description: "CSS selector to read a specific element. Defaults to the page body",
				},
				"max_chars": {
					Type:        aitools.TypeInteger,
					Description: "Truncate the returned text to this many characters. 0 means no limit",
				},
				"wait_until": {
					Type:        aitools.TypeString,
					Description: "When to consider the page loaded: 'load', 'domcontentloaded', 'networkidle'. Defaults to 'load'",
				},
			},
			Required: []string{"url"},
		},
	},
	"read_links": {
		Name:        "read_links",
		Description: "Load a web page and return its links as 'text -> url' lines. Useful for finding the article behind a search or index page.",
		Schema: aitools.Schema{
			Type: aitools.TypeObject,
			Properties: aitools.PropertyMap{
				"url": {
					Type:        aitools.TypeString,
					Description: "The URL to read",
				},
				"selector": {
					Type:        aitools.TypeString,
					Description: "CSS selector scoping which part of the page to collect links from. Defaults to the whole document",
				},
				"max_chars": {
					Type:        aitools.TypeInteger,
					Description: "Truncate the returned list to this many characters. 0 means no limit",
				},
			},
			Required: []string{"url"},
		},
	},
}

// pluginSettings holds the configured settings for this plugin
type pluginSettings struct {
	headless    bool
	browserType string // "chromium", "firefox", "webkit"
	timeoutMs   int
}

// SiteReaderPlugin implements the ToolProvider interface. One browser is
// shared across calls; every call gets its own page so page state never
// leaks between reads.
type SiteReaderPlugin struct {
	mu       sync.Mutex
	pw       *playwright.Playwright
	browser  playwright.Browser
	settings pluginSettings
}

// Configure applies settings from HCL config
func (p *SiteReaderPlugin) Configure(settings map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Set defaults
	p.settings = pluginSettings{
		headless:    true,
		browserType: "chromium",
		timeoutMs:   defaultTimeoutMs,
	}

	if v, ok := settings["headless"]; ok {
		p.settings.headless = v == "true"
	}

	if v, ok := settings["browser_type"]; ok {
		if v != "chromium" && v != "firefox" && v != "webkit" {
			return fmt.Errorf("invalid browser_type '%s': must be 'chromium', 'firefox', or 'webkit'", v)
		}
		p.settings.browserType = v
	}

	if v, ok := settings["timeout_ms"]; ok {
		var ms int
		if _, err := fmt.Sscanf(v, "%d", &ms); err != nil || ms <= 0 {
			return fmt.Errorf("invalid timeout_ms '%s': must be a positive integer", v)
		}
		p.settings.timeoutMs = ms
	}

	return nil
}

// newPage starts playwright and the shared browser on first use and opens a
// fresh page. Callers close the page when done.
func (p *SiteReaderPlugin) newPage() (playwright.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pw == nil {
		pw, err := playwright.Run()
		if err != nil {
			return nil, fmt.Errorf("could not start playwright: %w", err)
		}
		p.pw = pw
	}

	if p.browser == nil || !p.browser.IsConnected() {
		launchOpts := playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(p.settings.headless),
		}

		var browser playwright.Browser
		var err error
		switch p.settings.browserType {
		case "firefox":
			browser, err = p.pw.Firefox.Launch(launchOpts)
		case "webkit":
			browser, err = p.pw.WebKit.Launch(launchOpts)
		default:
			browser, err = p.pw.Chromium.Launch(launchOpts)
		}
		if err != nil {
			return nil, fmt.Errorf("could not launch browser: %w", err)
		}
		p.browser = browser
	}

	return p.browser.NewPage()
}

func (p *SiteReaderPlugin) timeout() float64 {
	if p.settings.timeoutMs > 0 {
		return float64(p.settings.timeoutMs)
	}
	return float64(defaultTimeoutMs)
}

func (p *SiteReaderPlugin) Call(toolName string, payload string) (string, error) {
	switch toolName {
	case "read_page":
		return p.readPage(payload)
	case "read_links":
		return p.readLinks(payload)
	default:
		return "", fmt.Errorf("unknown tool: %s", toolName)
	}
}

func (p *SiteReaderPlugin) readPage(payload string) (string, error) {
	var params struct {
		URL       string `json:"url"`
		Selector  string `json:"selector"`
		MaxChars  int    `json:"max_chars"`
		WaitUntil string `json:"wait_until"`
	}
	if err := json.Unmarshal([]byte(payload), &params); err != nil {
		return "", fmt.Errorf("invalid payload: %w", err)
	}
	if params.URL == "" {
		return "", fmt.Errorf("url is required")
	}

	page, err := p.newPage()
	if err != nil {
		return "", err
	}
	defer page.Close()

	waitUntil := playwright.WaitUntilStateLoad
	switch params.WaitUntil {
	case "domcontentloaded":
		waitUntil = playwright.WaitUntilStateDomcontentloaded
	case "networkidle":
		waitUntil = playwright.WaitUntilStateNetworkidle
	}

	if _, err := page.Goto(params.URL, playwright.PageGotoOptions{
		WaitUntil: waitUntil,
		Timeout:   playwright.Float(p.timeout()),
	}); err != nil {
		return "", fmt.Errorf("navigation failed: %w", err)
	}

	selector := params.Selector
	if selector == "" {
		selector = "body"
	}

	text, err := page.TextContent(selector)
	if err != nil {
		return "", fmt.Errorf("get text failed: %w", err)
	}

	title, _ := page.Title()
	out := fmt.Sprintf("%s\n%s\n\n%s", title, params.URL, normalizeText(text))
	return truncate(out, params.MaxChars), nil
}

func (p *SiteReaderPlugin) readLinks(payload string) (string, error) {
	var params struct {
		URL      string `json:"url"`
		Selector string `json:"selector"`
		MaxChars int    `json:"max_chars"`
	}
	if err := json.Unmarshal([]byte(payload), &params); err != nil {
		return "", fmt.Errorf("invalid payload: %w", err)
	}
	if params.URL == "" {
		return "", fmt.Errorf("url is required")
	}

	page, err := p.newPage()
	if err != nil {
		return "", err
	}
	defer page.Close()

	if _, err := page.Goto(params.URL, playwright.PageGotoOptions{
		Timeout: playwright.Float(p.timeout()),
	}); err != nil {
		return "", fmt.Errorf("navigation failed: %w", err)
	}

	script := `(sel) => {
		const root = sel ? document.querySelector(sel) : document;
		if (!root) return [];
		return Array.from(root.querySelectorAll('a[href]')).map(a => ({
			text: (a.textContent || '').trim(),
			href: a.href,
		}));
	}`
	result, err := page.Evaluate(script, params.Selector)
	if err != nil {
		return "", fmt.Errorf("collect links failed: %w", err)
	}

	items, ok := result.([]any)
	if !ok {
		return "", fmt.Errorf("unexpected result collecting links")
	}

	var b strings.Builder
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		text, _ := m["text"].(string)
		href, _ := m["href"].(string)
		if text == "" || href == "" {
			continue
		}
		fmt.Fprintf(&b, "%s -> %s\n", text, href)
	}

	if b.Len() == 0 {
		return "No links found", nil
	}
	return truncate(b.String(), params.MaxChars), nil
}

// normalizeText collapses runs of whitespace and drops empty lines so the
// returned text stays compact
func normalizeText(text string) string {
	text = whitespaceRegex.ReplaceAllString(text, " ")
	text = emptyLineRegex.ReplaceAllString(text, "\n")

	lines := strings.Split(text, "\n")
	var cleanLines []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			cleanLines = append(cleanLines, trimmed)
		}
	}
	return strings.Join(cleanLines, "\n")
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	return s[:maxChars] + "\n[truncated]"
}

func (p *SiteReaderPlugin) GetToolInfo(toolName string) (*plugin.ToolInfo, error) {
	info, ok := tools[toolName]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", toolName)
	}
	return info, nil
}

func (p *SiteReaderPlugin) ListTools() ([]*plugin.ToolInfo, error) {
	result := make([]*plugin.ToolInfo, 0, len(tools))
	for _, info := range tools {
		result = append(result, info)
	}
	return result, nil
}

func main() {
	plugin.Serve(&SiteReaderPlugin{})
}
