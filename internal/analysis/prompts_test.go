package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joelkehle/housing-analyst/internal/listing"
)

func TestWritePropertyKeepsZeroDaysOnMarket(t *testing.T) {
	listedToday := prop(1, "Sandy", 400000, 2600)
	listedToday.DaysOnMarket = listing.Int(0)
	unknown := prop(2, "Sandy", 410000, 2700)

	var b strings.Builder
	writeProperty(&b, "Property 1", listedToday)
	assert.Contains(t, b.String(), "Days on Market: 0\n")

	b.Reset()
	writeProperty(&b, "Property 2", unknown)
	assert.Contains(t, b.String(), "Days on Market: N/A\n")

	dom := computeDOMDistribution([]listing.Property{listedToday, unknown})
	assert.Equal(t, 1, dom.FastMoving)
	assert.Equal(t, 1, dom.TotalAnalyzed)
}

func TestWritePropertyMissingSizeIsNA(t *testing.T) {
	p := prop(1, "Sandy", 400000, 2600)
	p.Sqft = listing.Int(0)

	var b strings.Builder
	writeProperty(&b, "Property 1", p)
	assert.Contains(t, b.String(), "Size: N/A sqft\n")
}
