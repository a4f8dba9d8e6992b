package analysis

import (
	"context"

	"github.com/joelkehle/housing-analyst/internal/listing"
	"github.com/joelkehle/housing-analyst/internal/llm"
)

const (
	DefaultTimePeriod = "30d"
	marketPoolSize    = 200
)

var timePeriods = map[string]bool{"7d": true, "30d": true, "90d": true}

var temperatureDescriptions = map[string]string{
	TemperatureHot:  "a strong seller's market with high demand",
	TemperatureWarm: "a balanced market with moderate activity",
	TemperatureCool: "a buyer-friendly market with good inventory",
	TemperatureCold: "a buyer's market with ample selection",
}

// AnalyzeMarket describes pricing and sale velocity for a region, or for
// every listing when the region is empty.
func (p *Pipeline) AnalyzeMarket(ctx context.Context, req MarketRequest) (*MarketResult, error) {
	if req.TimePeriod == "" {
		req.TimePeriod = DefaultTimePeriod
	}
	if !timePeriods[req.TimePeriod] {
		return nil, invalidArgument("time_period must be one of 7d, 30d, 90d")
	}
	req.Region = llm.Sanitize(req.Region)
	req.Focus = llm.Sanitize(req.Focus)
	params := map[string]any{
		"region":      orDefault(req.Region, "all"),
		"time_period": req.TimePeriod,
		"focus":       orDefault(req.Focus, "general"),
	}

	return run[MarketResult](ctx, p, KindMarket, params, func(ctx context.Context) (*MarketResult, bool, error) {
		props, err := p.fetchCandidates(ctx, listing.Filters{CityContains: req.Region}, marketPoolSize)
		if err != nil {
			return nil, false, err
		}
		if len(props) == 0 {
			return &MarketResult{
				Analysis:          "No properties found in the specified region.",
				Trends:            []string{},
				Statistics:        MarketStatistics{CityDistribution: map[string]int{}},
				MarketTemperature: TemperatureUnknown,
				DOMDistribution:   DOMDistribution{MarketTemperature: TemperatureUnknown},
				Meta:              Meta{Confidence: ConfidenceLow},
			}, false, nil
		}

		stats := computeMarketStatistics(props)
		dom := computeDOMDistribution(props)
		reply, callErr, err := p.callModel(ctx, KindMarket, marketPrompt(req, stats, dom))
		if err != nil {
			return nil, false, err
		}
		if callErr != nil {
			res := fallbackMarket(req.Region, stats, dom)
			res.Error = callErr.Error()
			return res, true, nil
		}
		return parseMarket(reply, stats, dom), true, nil
	})
}

func parseMarket(reply llm.Reply, stats MarketStatistics, dom DOMDistribution) *MarketResult {
	res := &MarketResult{
		Trends:            []string{},
		Statistics:        stats,
		MarketTemperature: dom.MarketTemperature,
		DOMDistribution:   dom,
		Meta:              Meta{Confidence: ConfidenceMedium},
	}
	var body struct {
		Analysis             string   `json:"analysis"`
		Trends               []string `json:"trends"`
		BuyerOpportunities   string   `json:"buyer_opportunities"`
		SellerConsiderations string   `json:"seller_considerations"`
		PriceOutlook         string   `json:"price_outlook"`
	}
	s, ok := reply.(llm.Structured)
	if !ok || s.Decode(&body) != nil {
		res.Analysis = reply.Text()
		return res
	}
	res.Analysis = body.Analysis
	res.Trends = nonNil(body.Trends)
	res.BuyerOpportunities = body.BuyerOpportunities
	res.SellerConsiderations = body.SellerConsiderations
	res.PriceOutlook = body.PriceOutlook
	res.Confidence = ConfidenceHigh
	return res
}

func fallbackMarket(region string, stats MarketStatistics, dom DOMDistribution) *MarketResult {
	place := orDefault(region, defaultRegionName)
	temp := dom.MarketTemperature
	desc, ok := temperatureDescriptions[temp]
	if !ok {
		desc = "moderate activity"
	}

	res := &MarketResult{
		Analysis: printer.Sprintf("The %s market shows %s with %d properties available. Average price is %s with properties spending an average of %.0f days on market.",
			place, desc, stats.TotalProperties, money(stats.AvgPrice), stats.AvgDaysOnMarket),
		Trends: []string{
			"Average price: " + money(stats.AvgPrice),
			printer.Sprintf("Days on market: %.0f days average", stats.AvgDaysOnMarket),
			printer.Sprintf("%.0f%% of properties selling quickly (14 days or less)", dom.FastMovingPct),
		},
		PriceOutlook:      "Market conditions suggest stable pricing in the near term.",
		Statistics:        stats,
		MarketTemperature: temp,
		DOMDistribution:   dom,
		Meta:              Meta{Confidence: ConfidenceLow},
	}
	if temp == TemperatureHot || temp == TemperatureWarm {
		res.BuyerOpportunities = "Act quickly on new listings. Competition is moderate to high."
		res.SellerConsiderations = "Good time to sell. Price competitively for quick sales."
	} else {
		res.BuyerOpportunities = "Take time to negotiate. Inventory levels favor buyers."
		res.SellerConsiderations = "Price carefully and consider incentives to attract buyers."
	}
	return res
}
