package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultSerperEndpoint = "https://google.serper.dev/search"
	serperUserAgent       = "searchv2-cli"
)

// DefaultTrustedSites are the medical sources queries are pinned to when the
// config does not override them.
var DefaultTrustedSites = []string{
	"mayoclinic.org",
	"heart.org",
	"cdc.gov",
	"medlineplus.gov",
	"nhs.uk",
}

// SerperClient queries the Serper search API with every query pinned to a
// set of trusted medical sites.
type SerperClient struct {
	apiKey       string
	endpoint     string
	trustedSites []string
	maxResults   int
	httpClient   *http.Client
}

// SerperOption configures a SerperClient.
type SerperOption func(*SerperClient)

// WithTrustedSites overrides the default trusted site list. An empty list
// disables site pinning entirely.
func WithTrustedSites(sites []string) SerperOption {
	return func(c *SerperClient) {
		c.trustedSites = sites
	}
}

// WithMaxResults caps the number of organic results requested per query.
func WithMaxResults(n int) SerperOption {
	return func(c *SerperClient) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// WithEndpoint overrides the API endpoint. Used in tests.
func WithEndpoint(endpoint string) SerperOption {
	return func(c *SerperClient) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) SerperOption {
	return func(c *SerperClient) {
		c.httpClient = client
	}
}

// NewSerperClient creates a Serper-backed Searcher.
func NewSerperClient(apiKey string, opts ...SerperOption) *SerperClient {
	c := &SerperClient{
		apiKey:       apiKey,
		endpoint:     defaultSerperEndpoint,
		trustedSites: DefaultTrustedSites,
		maxResults:   5,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type serperRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num,omitempty"`
}

// serperResponse covers the fields needed to decide whether a response
// carries any results. The raw body is what callers receive.
type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
	PeopleAlsoAsk []struct {
		Question string `json:"question"`
	} `json:"peopleAlsoAsk"`
	AnswerBox *struct {
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
	} `json:"answerBox"`
	RelatedSearches []struct {
		Query string `json:"query"`
	} `json:"relatedSearches"`
}

// Search submits the query with site pinning applied and returns the raw
// response body. It returns "" when the provider reports no results.
func (c *SerperClient) Search(ctx context.Context, query string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("serper: api key is not configured")
	}

	payload, err := json.Marshal(serperRequest{
		Query: c.pinQuery(query),
		Num:   c.maxResults,
	})
	if err != nil {
		return "", fmt.Errorf("serper: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("serper: building request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", serperUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("serper: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("serper: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("serper: unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	// Decode only to detect an empty result set. The caller always gets the
	// raw body so nothing is lost between search and parse.
	var decoded serperResponse
	if err := json.Unmarshal(body, &decoded); err == nil && isEmptyResult(decoded) {
		return "", nil
	}

	return string(body), nil
}

// pinQuery appends the trusted-site restriction to the query expression.
func (c *SerperClient) pinQuery(query string) string {
	if len(c.trustedSites) == 0 {
		return query
	}
	clauses := make([]string, len(c.trustedSites))
	for i, site := range c.trustedSites {
		clauses[i] = "site:" + site
	}
	return query + " " + strings.Join(clauses, " OR ")
}

func isEmptyResult(r serperResponse) bool {
	return len(r.Organic) == 0 && len(r.PeopleAlsoAsk) == 0 && r.AnswerBox == nil && len(r.RelatedSearches) == 0
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
