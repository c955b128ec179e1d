// Package google is a client for the Google Places web service
// (Nearby Search and Place Details).
package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// DefaultDetailFields are the Place Details fields stored for each place.
var DefaultDetailFields = []string{
	"name",
	"formatted_address",
	"geometry",
	"formatted_phone_number",
	"website",
	"rating",
	"user_ratings_total",
	"opening_hours",
}

// Client performs Google Places API operations.
type Client interface {
	NearbySearch(ctx context.Context, req NearbyRequest) (*NearbyResponse, error)
	PlaceDetails(ctx context.Context, placeID string, fields []string) (*PlaceDetails, error)
}

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String formats the coordinate the way the API expects ("lat,lng").
func (l LatLng) String() string {
	return strconv.FormatFloat(l.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(l.Lng, 'f', -1, 64)
}

// Geometry holds a place location.
type Geometry struct {
	Location LatLng `json:"location"`
}

// NearbyRequest describes one Nearby Search page. When PageToken is set
// the other fields are ignored by the API.
type NearbyRequest struct {
	Location  LatLng
	Radius    int
	Type      string
	PageToken string
}

// NearbyResponse is one page of Nearby Search results.
type NearbyResponse struct {
	Results       []NearbyResult `json:"results"`
	NextPageToken string         `json:"next_page_token"`
	Status        string         `json:"status"`
	ErrorMessage  string         `json:"error_message"`
}

// NearbyResult is a place summary from Nearby Search.
type NearbyResult struct {
	PlaceID  string   `json:"place_id"`
	Name     string   `json:"name"`
	Geometry Geometry `json:"geometry"`
	Types    []string `json:"types"`
	Vicinity string   `json:"vicinity"`
}

// PlaceDetails is the subset of a Place Details result we persist. Raw
// carries the full result object as returned.
type PlaceDetails struct {
	Name             string          `json:"name"`
	FormattedAddress string          `json:"formatted_address"`
	Geometry         Geometry        `json:"geometry"`
	PhoneNumber      string          `json:"formatted_phone_number"`
	Website          string          `json:"website"`
	Rating           *float64        `json:"rating"`
	UserRatingsTotal *int            `json:"user_ratings_total"`
	OpeningHours     json.RawMessage `json:"opening_hours"`
	Raw              json.RawMessage `json:"-"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second across all calls.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) NearbySearch(ctx context.Context, req NearbyRequest) (*NearbyResponse, error) {
	params := url.Values{"key": {c.apiKey}}
	if req.PageToken != "" {
		params.Set("pagetoken", req.PageToken)
	} else {
		params.Set("location", req.Location.String())
		params.Set("radius", strconv.Itoa(req.Radius))
		if req.Type != "" {
			params.Set("type", req.Type)
		}
	}

	var resp NearbyResponse
	if _, err := c.get(ctx, "/nearbysearch/json", params, &resp); err != nil {
		return nil, eris.Wrap(err, "google: nearby search")
	}

	if err := checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, eris.Wrap(err, "google: nearby search")
	}
	return &resp, nil
}

type detailsEnvelope struct {
	Result       json.RawMessage `json:"result"`
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message"`
}

func (c *httpClient) PlaceDetails(ctx context.Context, placeID string, fields []string) (*PlaceDetails, error) {
	if placeID == "" {
		return nil, eris.New("google: place details: place_id is required")
	}
	if len(fields) == 0 {
		fields = DefaultDetailFields
	}

	params := url.Values{
		"key":      {c.apiKey},
		"place_id": {placeID},
		"fields":   {strings.Join(fields, ",")},
	}

	var env detailsEnvelope
	if _, err := c.get(ctx, "/details/json", params, &env); err != nil {
		return nil, eris.Wrapf(err, "google: place details %s", placeID)
	}
	if err := checkStatus(env.Status, env.ErrorMessage); err != nil {
		return nil, eris.Wrapf(err, "google: place details %s", placeID)
	}

	var details PlaceDetails
	if err := json.Unmarshal(env.Result, &details); err != nil {
		return nil, eris.Wrapf(err, "google: decode place details %s", placeID)
	}
	details.Raw = env.Result
	return &details, nil
}

func (c *httpClient) get(ctx context.Context, path string, params url.Values, out any) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, eris.Wrap(err, "rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return 0, eris.Wrap(err, "create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, eris.Wrap(err, "read response")
	}

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, eris.Wrap(err, "unmarshal response")
	}
	return resp.StatusCode, nil
}

// checkStatus maps the API's in-body status to an error. ZERO_RESULTS is
// an empty success.
func checkStatus(status, message string) error {
	switch status {
	case "OK", "ZERO_RESULTS":
		return nil
	case "":
		return eris.New("missing status in response")
	default:
		if message != "" {
			return eris.Errorf("status %s: %s", status, message)
		}
		return eris.New("status " + status)
	}
}
