package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/aptscout/aptscout/internal/listing"
)

func TestFormatApartmentsList(t *testing.T) {
	beds := 2
	id := uuid.MustParse("6f1c1c1e-8d1a-4e55-9a55-0d6c1f0b2a11")
	var buf bytes.Buffer
	formatApartmentsList(&buf, []listing.Apartment{{
		ID:        id,
		Title:     "Sunny loft",
		Price:     1850,
		Bedrooms:  &beds,
		Status:    listing.StatusAvailable,
		CreatedAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}})

	out := buf.String()
	assert.Contains(t, out, "TITLE")
	assert.Contains(t, out, id.String())
	assert.Contains(t, out, "1850.00")
	assert.Contains(t, out, "Available")
	assert.Contains(t, out, "2026-03-14")
}

func TestOptInt(t *testing.T) {
	n := 3
	assert.Equal(t, "3", optInt(&n))
	assert.Equal(t, "-", optInt(nil))
}
