package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/developmentseed/labs-gpt-stac/framework"
)

const (
	// DefaultSTACEndpoint is the Microsoft Planetary Computer STAC API.
	DefaultSTACEndpoint = "https://planetarycomputer.microsoft.com/api/stac/v1"
	// DefaultMaxItems caps every catalog search.
	DefaultMaxItems = 10
	// maxSearchPages stops pagination even when the server keeps linking.
	maxSearchPages = 20
)

// Asset is one file attached to a STAC item.
type Asset struct {
	Href  string   `json:"href"`
	Type  string   `json:"type,omitempty"`
	Title string   `json:"title,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Link is a STAC hypermedia link. Body and Method are used by POST paging.
type Link struct {
	Rel    string          `json:"rel"`
	Href   string          `json:"href"`
	Type   string          `json:"type,omitempty"`
	Method string          `json:"method,omitempty"`
	Body   json.RawMessage `json:"body,omitempty"`
	Merge  bool            `json:"merge,omitempty"`
}

// Item is a single STAC feature. Decoded items remember their source bytes
// and re-encode them unchanged, so extension fields the typed view does not
// model (stac_extensions, eo:bands, proj:*) reach the caller intact.
type Item struct {
	Type        string           `json:"type"`
	STACVersion string           `json:"stac_version,omitempty"`
	ID          string           `json:"id"`
	Collection  string           `json:"collection,omitempty"`
	BBox        []float64        `json:"bbox,omitempty"`
	Geometry    json.RawMessage  `json:"geometry,omitempty"`
	Properties  map[string]any   `json:"properties,omitempty"`
	Assets      map[string]Asset `json:"assets,omitempty"`
	Links       []Link           `json:"links,omitempty"`

	raw json.RawMessage
}

type itemView Item

// UnmarshalJSON decodes the typed view and keeps a copy of data.
func (it *Item) UnmarshalJSON(data []byte) error {
	var view itemView
	if err := json.Unmarshal(data, &view); err != nil {
		return err
	}
	*it = Item(view)
	it.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the source document for decoded items and the typed
// fields for items built in code.
func (it Item) MarshalJSON() ([]byte, error) {
	if len(it.raw) > 0 {
		return it.raw, nil
	}
	return json.Marshal(itemView(it))
}

// Raw returns the document the item was decoded from, if any.
func (it Item) Raw() json.RawMessage { return it.raw }

// PreviewURL returns the rendered preview asset, falling back to any asset
// with an overview or thumbnail role.
func (it Item) PreviewURL() string {
	if a, ok := it.Assets["rendered_preview"]; ok && a.Href != "" {
		return a.Href
	}
	for _, role := range []string{"overview", "thumbnail"} {
		for _, a := range it.Assets {
			for _, r := range a.Roles {
				if r == role && a.Href != "" {
					return a.Href
				}
			}
		}
	}
	return ""
}

// Datetime returns the item's acquisition timestamp property, if any.
func (it Item) Datetime() string {
	if v, ok := it.Properties["datetime"].(string); ok {
		return v
	}
	return ""
}

// ItemCollection is a GeoJSON FeatureCollection of STAC items.
type ItemCollection struct {
	Type     string `json:"type"`
	Features []Item `json:"features"`
}

type searchPage struct {
	Type     string `json:"type"`
	Features []Item `json:"features"`
	Links    []Link `json:"links"`
}

// CatalogResult is returned directly to the caller when the stac action runs.
type CatalogResult struct {
	STAC     ItemCollection `json:"stac"`
	BBox     BoundingBox    `json:"bbox"`
	Datetime DateTimeRange  `json:"datetime"`
}

// STACTool runs bounded bbox + datetime searches against a STAC API.
type STACTool struct {
	Endpoint string
	MaxItems int
	Client   *http.Client
}

func (t *STACTool) Name() string { return "stac" }
func (t *STACTool) Description() string {
	return "Will query the Microsoft Planetary Computer STAC endpoint for STAC records for that bbox and datetime and return a JSON representation of the item assets returned from the STAC API. " +
		"Please ensure the STAC query is entered exactly as above, with a bbox representing the lat / lng extents of the area, and the datetime representing timestamps for start and end time to search the catalog within. " +
		"Always return the rendered preview URL from the items."
}
func (t *STACTool) Example() string {
	return "bbox=[-73.21, 43.99, -73.12, 44.05] && datetime=['2019-01-01T00:00:00Z', '2019-01-02T00:00:00Z']"
}

func (t *STACTool) Execute(ctx context.Context, argument string) (*framework.ToolResult, error) {
	query, err := ParseSTACQuery(argument)
	if err != nil {
		return nil, framework.NewToolError(t.Name(), err)
	}
	items, err := t.Search(ctx, query)
	if err != nil {
		return nil, framework.NewToolError(t.Name(), err)
	}
	return &framework.ToolResult{
		Observation: &CatalogResult{
			STAC:     ItemCollection{Type: "FeatureCollection", Features: items},
			BBox:     query.BBox,
			Datetime: query.Datetime,
		},
		Metadata: map[string]any{"items": len(items), "query": query.String()},
	}, nil
}

// Search pages through /search until MaxItems items are collected or the
// server stops returning next links.
func (t *STACTool) Search(ctx context.Context, query STACQuery) ([]Item, error) {
	maxItems := t.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	endpoint := strings.TrimRight(t.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultSTACEndpoint
	}

	bbox := make([]float64, len(query.BBox))
	for i, c := range query.BBox {
		bbox[i] = c.Float64()
	}
	var body any = map[string]any{
		"bbox":     bbox,
		"datetime": query.Datetime.Interval(),
		"limit":    maxItems,
	}
	method := http.MethodPost
	url := endpoint + "/search"

	items := make([]Item, 0, maxItems)
	for page := 0; page < maxSearchPages && len(items) < maxItems; page++ {
		var resp searchPage
		if err := doJSON(ctx, t.Client, method, url, body, &resp); err != nil {
			return nil, err
		}
		for _, it := range resp.Features {
			if len(items) == maxItems {
				break
			}
			items = append(items, it)
		}
		next, ok := nextLink(resp.Links)
		if !ok || len(resp.Features) == 0 {
			break
		}
		method, url, body = nextRequest(next, body)
	}
	return items, nil
}

func nextLink(links []Link) (Link, bool) {
	for _, l := range links {
		if l.Rel == "next" && l.Href != "" {
			return l, true
		}
	}
	return Link{}, false
}

// nextRequest follows a STAC API next link. POST links carry their own body,
// optionally merged over the previous one.
func nextRequest(link Link, previous any) (string, string, any) {
	method := strings.ToUpper(link.Method)
	if method == "" {
		method = http.MethodGet
	}
	if method == http.MethodGet {
		return method, link.Href, nil
	}
	if len(link.Body) == 0 {
		return method, link.Href, previous
	}
	var next map[string]any
	if err := json.Unmarshal(link.Body, &next); err != nil {
		return method, link.Href, previous
	}
	if link.Merge {
		if prev, ok := previous.(map[string]any); ok {
			merged := make(map[string]any, len(prev)+len(next))
			for k, v := range prev {
				merged[k] = v
			}
			for k, v := range next {
				merged[k] = v
			}
			next = merged
		}
	}
	return method, link.Href, next
}

// Summary renders a short text description of a catalog result.
func (r *CatalogResult) Summary() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d items for bbox %s between %s and %s", len(r.STAC.Features), r.BBox, r.Datetime[0], r.Datetime[1])
	for _, it := range r.STAC.Features {
		fmt.Fprintf(&b, "\n- %s (%s)", it.ID, it.Collection)
		if preview := it.PreviewURL(); preview != "" {
			fmt.Fprintf(&b, " %s", preview)
		}
	}
	return b.String()
}
