package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/developmentseed/labs-gpt-stac/framework"
)

// DefaultWikipediaEndpoint is the English Wikipedia host.
const DefaultWikipediaEndpoint = "https://en.wikipedia.org"

// WikipediaTool searches Wikipedia and returns the first result's snippet.
type WikipediaTool struct {
	Endpoint string
	Client   *http.Client
}

func (t *WikipediaTool) Name() string        { return "wikipedia" }
func (t *WikipediaTool) Description() string { return "Returns a summary from searching Wikipedia" }
func (t *WikipediaTool) Example() string     { return "Mumbai" }

type wikipediaSearchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			PageID  int    `json:"pageid"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

func (t *WikipediaTool) Execute(ctx context.Context, argument string) (*framework.ToolResult, error) {
	query := strings.TrimSpace(argument)
	if query == "" {
		return nil, framework.NewToolError(t.Name(), fmt.Errorf("%w: empty search query", framework.ErrMalformedQuery))
	}
	endpoint := strings.TrimRight(t.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultWikipediaEndpoint
	}
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("format", "json")

	var resp wikipediaSearchResponse
	if err := doJSON(ctx, t.Client, http.MethodGet, endpoint+"/w/api.php?"+params.Encode(), nil, &resp); err != nil {
		return nil, framework.NewToolError(t.Name(), err)
	}
	if len(resp.Query.Search) == 0 {
		return nil, framework.NewToolError(t.Name(), fmt.Errorf("%w: no results for %q", framework.ErrNotFound, query))
	}
	first := resp.Query.Search[0]
	return &framework.ToolResult{
		Observation: StripMarkup(first.Snippet),
		Metadata: map[string]any{
			"title":   first.Title,
			"page_id": first.PageID,
		},
	}, nil
}

// StripMarkup drops HTML tags from a search snippet and decodes entities.
func StripMarkup(snippet string) string {
	var text strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(snippet))
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			if tokenizer.Err() == io.EOF {
				break
			}
			return snippet
		}
		if tt == html.TextToken {
			text.Write(tokenizer.Text())
		}
	}
	return strings.Join(strings.Fields(text.String()), " ")
}
