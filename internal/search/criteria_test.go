package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCriteria_Full(t *testing.T) {
	c, err := ParseCriteria(`{
		"apartments": {"filters": {"bedrooms": 2, "bathrooms": null, "maxPrice": 3000, "minPrice": null}},
		"places": {"types": ["Bar", "restaurant", "bar"], "maxDistance": 500}
	}`)
	require.NoError(t, err)

	require.NotNil(t, c.Apartments.Filters.Bedrooms)
	assert.InDelta(t, 2, *c.Apartments.Filters.Bedrooms, 1e-9)
	assert.Nil(t, c.Apartments.Filters.Bathrooms)
	assert.Equal(t, []string{"bar", "restaurant"}, c.Places.Types)
	require.NotNil(t, c.Places.MaxDistance)
	assert.InDelta(t, 500, *c.Places.MaxDistance, 1e-9)
}

func TestParseCriteria_CodeFence(t *testing.T) {
	for _, in := range []string{
		"```json\n{\"places\":{\"types\":[\"bar\"]}}\n```",
		"```\n{\"places\":{\"types\":[\"bar\"]}}\n```",
		"  ```json{\"places\":{\"types\":[\"bar\"]}}```  ",
	} {
		c, err := ParseCriteria(in)
		require.NoError(t, err, in)
		assert.Equal(t, []string{"bar"}, c.Places.Types)
	}
}

func TestParseCriteria_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "```json\n```"} {
		_, err := ParseCriteria(in)
		assert.ErrorIs(t, err, ErrEmptyAnalysis, "%q", in)
	}
	assert.Equal(t, "failed to analyze search query", ErrEmptyAnalysis.Error())
}

func TestParseCriteria_InvalidJSON(t *testing.T) {
	_, err := ParseCriteria("Sure! Here are your criteria: bedrooms=2")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyAnalysis)
	assert.Contains(t, err.Error(), "decode criteria")
}

func TestParseCriteria_MissingSections(t *testing.T) {
	c, err := ParseCriteria(`{}`)
	require.NoError(t, err)
	assert.Empty(t, c.Places.Types)
	assert.Nil(t, c.Apartments.Filters.MaxPrice)
}

func TestListingCriteria_SkipsUnsetAndZero(t *testing.T) {
	zero, two, price := 0.0, 2.0, 2500.0
	c := &Criteria{Apartments: ApartmentCriteria{Filters: Filters{
		Bedrooms:  &two,
		Bathrooms: &zero,
		MaxPrice:  &price,
	}}}

	lc := c.ListingCriteria()
	require.NotNil(t, lc.Bedrooms)
	assert.Equal(t, 2, *lc.Bedrooms)
	assert.Nil(t, lc.Bathrooms)
	require.NotNil(t, lc.MaxPrice)
	assert.InDelta(t, 2500, *lc.MaxPrice, 1e-9)
	assert.Nil(t, lc.MinPrice)
}

func TestListingCriteria_RoundsFractionalCounts(t *testing.T) {
	v := 1.9999
	c := &Criteria{Apartments: ApartmentCriteria{Filters: Filters{Bathrooms: &v}}}
	lc := c.ListingCriteria()
	require.NotNil(t, lc.Bathrooms)
	assert.Equal(t, 2, *lc.Bathrooms)
}
