package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/housing-analyst/internal/analysis"
)

func TestReadListingsFromStdin(t *testing.T) {
	in := strings.NewReader(`[{"address":"1 Main St","city":"Sandy","price":400000,"sqft":2000}]`)
	props, err := readListings("-", in)
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "Sandy", props[0].City)
	require.NotNil(t, props[0].Sqft)
	assert.Equal(t, 2000, *props[0].Sqft)
}

func TestReadListingsRejectsObject(t *testing.T) {
	_, err := readListings("-", strings.NewReader(`{"address":"x"}`))
	assert.ErrorContains(t, err, "decode listings")
}

func TestReadListingsMissingFile(t *testing.T) {
	_, err := readListings(t.TempDir()+"/nope.json", nil)
	assert.Error(t, err)
}

func TestWriteResultFormats(t *testing.T) {
	res := &analysis.MarketResult{Analysis: "Steady market.", MarketTemperature: "warm"}

	var js bytes.Buffer
	require.NoError(t, writeResult(&js, "json", res, time.Now()))
	assert.Contains(t, js.String(), `"market_temperature": "warm"`)

	var md bytes.Buffer
	require.NoError(t, writeResult(&md, "markdown", res, time.Now()))
	assert.Contains(t, md.String(), "Steady market.")
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "analyze", "import"} {
		assert.True(t, names[want], want)
	}
}
