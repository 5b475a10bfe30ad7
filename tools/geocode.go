package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// DefaultGeocodeEndpoint is the OpenCage API host.
const DefaultGeocodeEndpoint = "https://api.opencagedata.com"

// LatLng is a single point.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds is the extent of a geocoding result.
type Bounds struct {
	Northeast LatLng `json:"northeast"`
	Southwest LatLng `json:"southwest"`
}

// BBox converts the bounds to (west, south, east, north).
func (b Bounds) BBox() BoundingBox {
	return BoundingBox{
		FloatCoordinate(b.Southwest.Lng),
		FloatCoordinate(b.Southwest.Lat),
		FloatCoordinate(b.Northeast.Lng),
		FloatCoordinate(b.Northeast.Lat),
	}
}

// Geocoder resolves place names to bounding boxes through OpenCage. It is not
// part of the model-facing vocabulary.
type Geocoder struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

type geocodeResponse struct {
	Results []struct {
		Formatted string  `json:"formatted"`
		Bounds    *Bounds `json:"bounds"`
	} `json:"results"`
}

// Geocode returns the bounds of the best match for place, or nil when the
// service has no result.
func (g *Geocoder) Geocode(ctx context.Context, place string) (*Bounds, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return nil, fmt.Errorf("place name required")
	}
	if g.APIKey == "" {
		return nil, fmt.Errorf("geocoder api key missing")
	}
	endpoint := strings.TrimRight(g.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultGeocodeEndpoint
	}
	params := url.Values{}
	params.Set("q", place)
	params.Set("key", g.APIKey)
	params.Set("no_annotations", "1")
	params.Set("limit", "1")

	var resp geocodeResponse
	if err := doJSON(ctx, g.Client, http.MethodGet, endpoint+"/geocode/v1/json?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 || resp.Results[0].Bounds == nil {
		return nil, nil
	}
	return resp.Results[0].Bounds, nil
}
