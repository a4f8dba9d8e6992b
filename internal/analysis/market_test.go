package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/housing-analyst/internal/listing"
)

// domPool returns ten listings, fast of which sold within 14 days.
func domPool(fast int) []listing.Property {
	var out []listing.Property
	for i := 0; i < 10; i++ {
		dom := 60
		if i < fast {
			dom = 7
		} else if i%2 == 0 {
			dom = 30
		}
		p := prop(int64(i+1), "Murray", 400000, 2500)
		p.DaysOnMarket = listing.Int(dom)
		out = append(out, p)
	}
	return out
}

func TestAnalyzeMarketFallbackHotMarket(t *testing.T) {
	h := newHarness(t, domPool(7), &scriptedModel{err: errors.New("down")})

	res, err := h.pipeline.AnalyzeMarket(context.Background(), MarketRequest{})
	require.NoError(t, err)
	assert.Equal(t, TemperatureHot, res.MarketTemperature)
	assert.Equal(t, ConfidenceLow, res.Confidence)
	assert.Equal(t, "Act quickly on new listings. Competition is moderate to high.", res.BuyerOpportunities)
	assert.Equal(t, "Good time to sell. Price competitively for quick sales.", res.SellerConsiderations)
	assert.Contains(t, res.Analysis, "The Salt Lake Valley market shows a strong seller's market with high demand with 10 properties available.")
	assert.Equal(t, "70% of properties selling quickly (14 days or less)", res.Trends[2])

	assert.Equal(t, 7, res.DOMDistribution.FastMoving)
	assert.Equal(t, 1, res.DOMDistribution.Moderate)
	assert.Equal(t, 2, res.DOMDistribution.SlowMoving)
	assert.InDelta(t, 70.0, res.DOMDistribution.FastMovingPct, 1e-9)
	assert.Equal(t, 10, res.DOMDistribution.TotalAnalyzed)
}

func TestAnalyzeMarketFallbackColdMarket(t *testing.T) {
	h := newHarness(t, domPool(1), &scriptedModel{err: errors.New("down")})

	res, err := h.pipeline.AnalyzeMarket(context.Background(), MarketRequest{Region: "Murray"})
	require.NoError(t, err)
	assert.Equal(t, TemperatureCold, res.MarketTemperature)
	assert.Equal(t, "Take time to negotiate. Inventory levels favor buyers.", res.BuyerOpportunities)
	assert.Contains(t, res.Analysis, "The Murray market shows a buyer's market with ample selection")
	assert.Equal(t, "Murray", h.store.lastFilter.CityContains)
	assert.Equal(t, marketPoolSize, h.store.lastLimit)
}

func TestAnalyzeMarketStructuredReply(t *testing.T) {
	reply := "```json\n" + `{"analysis":"Balanced.","trends":["steady"],"buyer_opportunities":"b","seller_considerations":"s","price_outlook":"flat"}` + "\n```"
	h := newHarness(t, domPool(5), &scriptedModel{reply: reply})

	res, err := h.pipeline.AnalyzeMarket(context.Background(), MarketRequest{TimePeriod: "7d", Focus: "condos"})
	require.NoError(t, err)
	assert.Equal(t, "Balanced.", res.Analysis)
	assert.Equal(t, []string{"steady"}, res.Trends)
	assert.Equal(t, "flat", res.PriceOutlook)
	assert.Equal(t, TemperatureWarm, res.MarketTemperature)
	assert.Equal(t, ConfidenceHigh, res.Confidence)
	assert.Contains(t, h.model.prompts[0], "over the last 7d, with special focus on condos")
}

func TestAnalyzeMarketUnstructuredReply(t *testing.T) {
	h := newHarness(t, domPool(3), &scriptedModel{reply: "Things are slow."})

	res, err := h.pipeline.AnalyzeMarket(context.Background(), MarketRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Things are slow.", res.Analysis)
	assert.Equal(t, TemperatureCool, res.MarketTemperature)
	assert.Equal(t, ConfidenceMedium, res.Confidence)
}

func TestAnalyzeMarketRejectsUnknownPeriod(t *testing.T) {
	h := newHarness(t, domPool(3), &scriptedModel{reply: "ok"})

	_, err := h.pipeline.AnalyzeMarket(context.Background(), MarketRequest{TimePeriod: "1y"})
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))
}

func TestAnalyzeMarketDefaultsShareCacheEntry(t *testing.T) {
	h := newHarness(t, domPool(3), &scriptedModel{reply: "ok"})
	ctx := context.Background()

	_, err := h.pipeline.AnalyzeMarket(ctx, MarketRequest{})
	require.NoError(t, err)
	res, err := h.pipeline.AnalyzeMarket(ctx, MarketRequest{TimePeriod: "30d"})
	require.NoError(t, err)
	assert.True(t, res.FromCache)
}

func TestAnalyzeMarketEmptyRegion(t *testing.T) {
	h := newHarness(t, domPool(3), &scriptedModel{reply: "ok"})

	res, err := h.pipeline.AnalyzeMarket(context.Background(), MarketRequest{Region: "Provo"})
	require.NoError(t, err)
	assert.Equal(t, "No properties found in the specified region.", res.Analysis)
	assert.Equal(t, TemperatureUnknown, res.MarketTemperature)
	assert.Equal(t, ConfidenceLow, res.Confidence)
	assert.Equal(t, 0, h.model.callCount())
}
