package analysis

import (
	"context"

	"github.com/joelkehle/housing-analyst/internal/listing"
	"github.com/joelkehle/housing-analyst/internal/llm"
)

const (
	DefaultMaxProperties = 50
	MaxProperties        = 100
	highConfidencePool   = 10
)

// Summarize describes the cheapest listings that match the filters.
func (p *Pipeline) Summarize(ctx context.Context, req SummaryRequest) (*SummaryResult, error) {
	if req.MaxProperties == 0 {
		req.MaxProperties = DefaultMaxProperties
	}
	if req.MaxProperties < 1 || req.MaxProperties > MaxProperties {
		return nil, invalidArgument("max_properties must be between 1 and %d", MaxProperties)
	}
	if err := validateFilters(req.Filters); err != nil {
		return nil, err
	}
	params := map[string]any{"filters": req.Filters, "max_properties": req.MaxProperties}

	return run[SummaryResult](ctx, p, KindSummary, params, func(ctx context.Context) (*SummaryResult, bool, error) {
		props, err := p.fetchCandidates(ctx, req.Filters, req.MaxProperties)
		if err != nil {
			return nil, false, err
		}
		if len(props) == 0 {
			return &SummaryResult{
				Summary:     "No properties found matching your criteria.",
				KeyInsights: []string{},
				Statistics:  Statistics{Cities: []string{}},
				Meta:        Meta{Confidence: ConfidenceLow},
			}, false, nil
		}

		stats := computeStatistics(props)
		reply, callErr, err := p.callModel(ctx, KindSummary, summaryPrompt(props, stats))
		if err != nil {
			return nil, false, err
		}
		if callErr != nil {
			res := fallbackSummary(props, stats)
			res.Error = callErr.Error()
			return res, true, nil
		}
		return parseSummary(reply, stats, len(props)), true, nil
	})
}

func parseSummary(reply llm.Reply, stats Statistics, analysed int) *SummaryResult {
	res := &SummaryResult{
		KeyInsights:        []string{},
		Statistics:         stats,
		PropertiesAnalyzed: analysed,
	}
	s, ok := reply.(llm.Structured)
	if ok {
		var body struct {
			Summary              string               `json:"summary"`
			KeyInsights          []string             `json:"key_insights"`
			BuyerRecommendations BuyerRecommendations `json:"buyer_recommendations"`
		}
		if err := s.Decode(&body); err != nil {
			ok = false
		} else {
			res.Summary = body.Summary
			if res.Summary == "" {
				res.Summary = reply.Text()
			}
			if body.KeyInsights != nil {
				res.KeyInsights = body.KeyInsights
			}
			res.BuyerRecommendations = body.BuyerRecommendations
			res.Confidence = ConfidenceMedium
			if analysed >= highConfidencePool {
				res.Confidence = ConfidenceHigh
			}
		}
	}
	if !ok {
		res.Summary = reply.Text()
		res.Confidence = ConfidenceMedium
	}
	return res
}

func fallbackSummary(props []listing.Property, stats Statistics) *SummaryResult {
	city := stats.MostCommonCity
	if city == "" {
		city = "Various cities"
	}
	return &SummaryResult{
		Summary: printer.Sprintf("Found %d properties in the %s. Average price is %s with monthly costs averaging %s.",
			len(props), defaultRegionName, money(stats.AvgPrice), money(stats.AvgMonthlyCost)),
		KeyInsights: []string{
			printer.Sprintf("Price range: %s - %s", money(stats.MinPrice), money(stats.MaxPrice)),
			"Most properties in: " + city,
			printer.Sprintf("Average price per sqft: $%.2f", stats.AvgPricePerSqft),
		},
		Statistics:         stats,
		PropertiesAnalyzed: len(props),
		Meta:               Meta{Confidence: ConfidenceLow},
	}
}

func validateFilters(f listing.Filters) error {
	if f.PriceMin < 0 || f.PriceMax < 0 || f.BedsMin < 0 || f.BathsMin < 0 {
		return invalidArgument("filters must not be negative")
	}
	if f.PriceMax > 0 && f.PriceMin > f.PriceMax {
		return invalidArgument("price_min must not exceed price_max")
	}
	return nil
}
