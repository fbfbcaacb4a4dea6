// Package geocode wraps the Mapbox geocoding API: city-center lookup,
// locality-constrained forward geocoding, and reverse geocoding.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cityscout-ai/event-discovery-platform/internal/model"
	"github.com/cityscout-ai/event-discovery-platform/pkg/metrics"
)

var (
	// ErrNotFound means the provider returned no match inside the
	// constraints. Never retried and never widened to a global search.
	ErrNotFound = errors.New("geocode: no match found")

	// ErrUpstream means a network or HTTP failure reaching the provider.
	// Geocoding is an interactive step, so this is surfaced immediately
	// without retry.
	ErrUpstream = errors.New("geocode: upstream failure")
)

const defaultBaseURL = "https://api.mapbox.com"

// Client calls the Mapbox geocoding v5 API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used in tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a geocoding client.
func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("geocode: access token is required")
	}

	c := &Client{
		baseURL:    defaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type feature struct {
	PlaceName string  `json:"place_name"`
	Relevance float64 `json:"relevance"`
	Geometry  struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat]
	} `json:"geometry"`
}

type geocodeResponse struct {
	Features []feature `json:"features"`
}

// ResolveCityCenter looks up the center coordinate of a city. Single
// attempt; ErrNotFound when the city is unknown, ErrUpstream on transport
// or HTTP failure.
func (c *Client) ResolveCityCenter(ctx context.Context, city, country string) (*model.CityCenter, error) {
	if city == "" || country == "" {
		return nil, fmt.Errorf("%w: city and country are required", ErrNotFound)
	}

	params := url.Values{}
	params.Set("access_token", c.token)
	params.Set("limit", "1")
	params.Set("types", "place")

	resp, err := c.query(ctx, fmt.Sprintf("%s, %s", city, country), params)
	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("city_center", "error").Inc()
		return nil, err
	}
	if len(resp.Features) == 0 {
		metrics.GeocodeRequestsTotal.WithLabelValues("city_center", "not_found").Inc()
		return nil, fmt.Errorf("%w: %s, %s", ErrNotFound, city, country)
	}

	f := resp.Features[0]
	if len(f.Geometry.Coordinates) < 2 {
		return nil, fmt.Errorf("%w: malformed coordinates", ErrUpstream)
	}

	metrics.GeocodeRequestsTotal.WithLabelValues("city_center", "ok").Inc()
	return model.NewCityCenter(f.Geometry.Coordinates[1], f.Geometry.Coordinates[0], city, country, f.PlaceName), nil
}

// GeocodeNear geocodes a free-text place constrained to the city center's
// bounding box with proximity-biased ranking. The query is enhanced with the
// city and country so a same-named venue in another country cannot match.
// There is no fallback to an unconstrained search.
func (c *Client) GeocodeNear(ctx context.Context, query string, center *model.CityCenter) (*model.GeocodeResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrNotFound)
	}
	if center == nil {
		return nil, errors.New("geocode: city center is required")
	}

	enhanced := fmt.Sprintf("%s, %s, %s", query, center.City, center.Country)

	params := url.Values{}
	params.Set("access_token", c.token)
	params.Set("limit", "1")
	params.Set("proximity", fmt.Sprintf("%s,%s",
		formatCoord(center.Longitude), formatCoord(center.Latitude)))
	params.Set("bbox", fmt.Sprintf("%s,%s,%s,%s",
		formatCoord(center.Box.MinLon), formatCoord(center.Box.MinLat),
		formatCoord(center.Box.MaxLon), formatCoord(center.Box.MaxLat)))

	resp, err := c.query(ctx, enhanced, params)
	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("near", "error").Inc()
		return nil, err
	}
	if len(resp.Features) == 0 {
		metrics.GeocodeRequestsTotal.WithLabelValues("near", "not_found").Inc()
		return nil, fmt.Errorf("%w: %q in %s, %s", ErrNotFound, query, center.City, center.Country)
	}

	f := resp.Features[0]
	if len(f.Geometry.Coordinates) < 2 {
		return nil, fmt.Errorf("%w: malformed coordinates", ErrUpstream)
	}

	lat, lon := f.Geometry.Coordinates[1], f.Geometry.Coordinates[0]
	// The provider applies the bbox; re-verify so a bad response can never
	// leak an out-of-region match.
	if !center.Box.Contains(lat, lon) {
		metrics.GeocodeRequestsTotal.WithLabelValues("near", "not_found").Inc()
		return nil, fmt.Errorf("%w: %q matched outside %s", ErrNotFound, query, center.City)
	}

	metrics.GeocodeRequestsTotal.WithLabelValues("near", "ok").Inc()
	return &model.GeocodeResult{
		Latitude:  lat,
		Longitude: lon,
		PlaceName: f.PlaceName,
		Relevance: f.Relevance,
	}, nil
}

// ReverseGeocode converts coordinates to a human-readable place name.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{}
	params.Set("access_token", c.token)

	resp, err := c.query(ctx, fmt.Sprintf("%s,%s", formatCoord(lon), formatCoord(lat)), params)
	if err != nil {
		return "", err
	}
	if len(resp.Features) == 0 {
		return "", ErrNotFound
	}
	return resp.Features[0].PlaceName, nil
}

func (c *Client) query(ctx context.Context, q string, params url.Values) (*geocodeResponse, error) {
	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?%s",
		c.baseURL, url.PathEscape(q), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var out geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return &out, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
