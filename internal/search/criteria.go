package search

import (
	"encoding/json"
	"math"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/aptscout/aptscout/internal/listing"
)

// ErrEmptyAnalysis is returned when the model produced no criteria.
var ErrEmptyAnalysis = eris.New("failed to analyze search query")

// Criteria is the structured form of a natural-language query.
type Criteria struct {
	Apartments ApartmentCriteria `json:"apartments"`
	Places     PlaceCriteria     `json:"places"`
}

// ApartmentCriteria wraps the listing filters.
type ApartmentCriteria struct {
	Filters Filters `json:"filters"`
}

// Filters are numeric listing constraints. Models sometimes emit 2.0 for
// 2, so everything decodes as float.
type Filters struct {
	Bedrooms  *float64 `json:"bedrooms"`
	Bathrooms *float64 `json:"bathrooms"`
	MaxPrice  *float64 `json:"maxPrice"`
	MinPrice  *float64 `json:"minPrice"`
}

// PlaceCriteria selects nearby points of interest.
type PlaceCriteria struct {
	Types       []string `json:"types"`
	MaxDistance *float64 `json:"maxDistance"`
}

// set reports whether a filter value should be applied.
func set(v *float64) bool {
	return v != nil && *v != 0
}

// ListingCriteria converts the filters for the listing store.
func (c *Criteria) ListingCriteria() listing.Criteria {
	f := c.Apartments.Filters
	var out listing.Criteria
	if set(f.Bedrooms) {
		n := int(math.Round(*f.Bedrooms))
		out.Bedrooms = &n
	}
	if set(f.Bathrooms) {
		n := int(math.Round(*f.Bathrooms))
		out.Bathrooms = &n
	}
	if set(f.MaxPrice) {
		v := *f.MaxPrice
		out.MaxPrice = &v
	}
	if set(f.MinPrice) {
		v := *f.MinPrice
		out.MinPrice = &v
	}
	return out
}

// ParseCriteria decodes model output. Surrounding prose is not accepted,
// but a markdown code fence is.
func ParseCriteria(text string) (*Criteria, error) {
	text = stripFence(strings.TrimSpace(text))
	if text == "" {
		return nil, ErrEmptyAnalysis
	}

	var c Criteria
	if err := json.Unmarshal([]byte(text), &c); err != nil {
		return nil, eris.Wrap(err, "search: decode criteria")
	}
	c.Places.Types = normalizeTypes(c.Places.Types)
	return &c, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop an info string such as "json".
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func normalizeTypes(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}
