package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joelkehle/housing-analyst/internal/listing"
)

func TestComputeStatistics(t *testing.T) {
	props := []listing.Property{
		prop(1, "Draper", 300000, 2000),
		prop(2, "Sandy", 100000, 0),
		prop(3, "Sandy", 400000, 3000),
		prop(4, "Draper", 200000, 0),
		prop(5, "", 0, 0),
	}
	props[0].PricePerSqft = listing.Float(200)

	s := computeStatistics(props)
	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 250000, s.AvgPrice, 1e-9)
	assert.Equal(t, 300000.0, s.MedianPrice)
	assert.Equal(t, 100000.0, s.MinPrice)
	assert.Equal(t, 400000.0, s.MaxPrice)
	assert.InDelta(t, 2500, s.AvgMonthlyCost, 1e-9)
	assert.InDelta(t, 200, s.AvgPricePerSqft, 1e-9)
	assert.Equal(t, "Draper", s.MostCommonCity)
	assert.Equal(t, []string{"Draper", "Sandy"}, s.Cities)
}

func TestComputeStatisticsEmpty(t *testing.T) {
	s := computeStatistics(nil)
	assert.Zero(t, s.AvgPrice)
	assert.Zero(t, s.MedianPrice)
	assert.Empty(t, s.MostCommonCity)
}

func TestComputeMarketStatisticsUnknownCity(t *testing.T) {
	props := []listing.Property{prop(1, "", 1, 0), prop(2, "Lehi", 2, 0), prop(3, "", 3, 0)}
	s := computeMarketStatistics(props)
	assert.Equal(t, map[string]int{"Unknown": 2, "Lehi": 1}, s.CityDistribution)
	assert.Equal(t, 2.0, s.MedianPrice)
}

func TestDOMBucketBoundaries(t *testing.T) {
	var props []listing.Property
	for _, d := range []int{0, 14, 15, 45, 46} {
		p := prop(1, "x", 1, 0)
		p.DaysOnMarket = listing.Int(d)
		props = append(props, p)
	}
	props = append(props, prop(9, "x", 1, 0))

	d := computeDOMDistribution(props)
	assert.Equal(t, 2, d.FastMoving)
	assert.Equal(t, 2, d.Moderate)
	assert.Equal(t, 1, d.SlowMoving)
	assert.Equal(t, 5, d.TotalAnalyzed)
	assert.InDelta(t, 24, d.AvgDOM, 1e-9)
	assert.Equal(t, TemperatureCool, d.MarketTemperature)
}

func TestDOMWithoutData(t *testing.T) {
	d := computeDOMDistribution([]listing.Property{prop(1, "x", 1, 0)})
	assert.Equal(t, TemperatureUnknown, d.MarketTemperature)
	assert.Zero(t, d.TotalAnalyzed)
}

func TestTemperatureThresholds(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, TemperatureHot},
		{60.1, TemperatureHot},
		{60, TemperatureWarm},
		{40.1, TemperatureWarm},
		{40, TemperatureCool},
		{20.1, TemperatureCool},
		{20, TemperatureCold},
		{0, TemperatureCold},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, temperature(tc.pct), "pct=%v", tc.pct)
	}
}
