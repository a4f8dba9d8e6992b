package analysis

import (
	"context"
	"fmt"

	"github.com/joelkehle/housing-analyst/internal/listing"
	"github.com/joelkehle/housing-analyst/internal/llm"
	"github.com/joelkehle/housing-analyst/internal/scoring"
)

const (
	DefaultMaxRecommendations   = 5
	recommendPoolSize           = 20
	fallbackRecommendationCount = 3
	highConfidenceMatches       = 3
)

// Recommend ranks listings that pass the buyer's hard filters and asks the
// model to explain the best matches.
func (p *Pipeline) Recommend(ctx context.Context, req RecommendRequest) (*RecommendResult, error) {
	if req.MaxRecommendations == 0 {
		req.MaxRecommendations = DefaultMaxRecommendations
	}
	if req.MaxRecommendations < 1 || req.MaxRecommendations > recommendPoolSize {
		return nil, invalidArgument("max_recommendations must be between 1 and %d", recommendPoolSize)
	}
	c := req.Criteria
	if c.BudgetMax < 0 || c.BedsMin < 0 || c.BathsMin < 0 {
		return nil, invalidArgument("criteria must not be negative")
	}
	c.Lifestyle = llm.Sanitize(c.Lifestyle)
	c.CityPreference = llm.Sanitize(c.CityPreference)
	params := map[string]any{"criteria": c, "max_recommendations": req.MaxRecommendations}

	return run[RecommendResult](ctx, p, KindRecommend, params, func(ctx context.Context) (*RecommendResult, bool, error) {
		filters := listing.Filters{
			PriceMax:     c.BudgetMax,
			BedsMin:      c.BedsMin,
			BathsMin:     c.BathsMin,
			CityContains: c.CityPreference,
		}
		props, err := p.fetchCandidates(ctx, filters, recommendPoolSize)
		if err != nil {
			return nil, false, err
		}
		if len(props) == 0 {
			return &RecommendResult{
				Message:               "No properties found matching your criteria.",
				Recommendations:       []Recommendation{},
				RecommendedProperties: []int64{},
				Meta:                  Meta{Confidence: ConfidenceLow},
			}, false, nil
		}

		weights := scoring.DefaultWeights()
		if c.Priorities != nil {
			weights = *c.Priorities
		}
		ranked := scoring.Rank(props, weights, c.CityPreference)
		top := ranked
		if len(top) > req.MaxRecommendations {
			top = top[:req.MaxRecommendations]
		}

		reply, callErr, err := p.callModel(ctx, KindRecommend, recommendPrompt(c, top, len(props)))
		if err != nil {
			return nil, false, err
		}
		if callErr != nil {
			res := fallbackRecommendations(top)
			res.Confidence = ConfidenceLow
			res.Error = callErr.Error()
			return res, true, nil
		}
		return parseRecommendations(reply, top), true, nil
	})
}

type modelRecommendation struct {
	PropertyNumber   int      `json:"property_number"`
	MatchExplanation string   `json:"match_explanation"`
	Pros             []string `json:"pros"`
	Cons             []string `json:"cons"`
}

// parseRecommendations attaches the model's explanations to the scored
// listings. property_number picks the listing when it is valid and unused,
// otherwise the entry's position does.
func parseRecommendations(reply llm.Reply, top []scoring.Scored) *RecommendResult {
	s, ok := reply.(llm.Structured)
	if !ok {
		return fallbackRecommendations(top)
	}
	var body struct {
		Recommendations []modelRecommendation `json:"recommendations"`
	}
	if err := s.Decode(&body); err != nil || len(body.Recommendations) == 0 {
		return fallbackRecommendations(top)
	}

	used := make([]bool, len(top))
	recs := []Recommendation{}
	for i, mr := range body.Recommendations {
		idx := mr.PropertyNumber - 1
		if idx < 0 || idx >= len(top) || used[idx] {
			idx = i
		}
		if idx >= len(top) || used[idx] {
			continue
		}
		used[idx] = true
		rec := baseRecommendation(top[idx])
		rec.MatchExplanation = mr.MatchExplanation
		rec.Pros = nonNil(mr.Pros)
		rec.Cons = nonNil(mr.Cons)
		recs = append(recs, rec)
	}

	res := &RecommendResult{
		Message:               fmt.Sprintf("Found %d great matches for you!", len(recs)),
		Recommendations:       recs,
		RecommendedProperties: idsOf(recs),
		Meta:                  Meta{Confidence: ConfidenceMedium},
	}
	if len(recs) >= highConfidenceMatches {
		res.Confidence = ConfidenceHigh
	}
	return res
}

func fallbackRecommendations(top []scoring.Scored) *RecommendResult {
	n := min(len(top), fallbackRecommendationCount)
	recs := make([]Recommendation, 0, n)
	for _, s := range top[:n] {
		p := s.Property
		rec := baseRecommendation(s)
		rec.MatchExplanation = printer.Sprintf("This property scored %.1f/100 based on your criteria.", s.TotalScore)

		pros := []string{"Affordable", "Good layout", "Spacious"}
		if p.TotalMonthlyCost != nil && *p.TotalMonthlyCost > 0 {
			pros[0] = "Monthly cost: " + money(*p.TotalMonthlyCost)
		}
		if p.Beds != nil && *p.Beds > 0 {
			pros[1] = fmt.Sprintf("%d bedrooms, %s bathrooms", *p.Beds, optDecimal(p.Baths, "%.1f"))
		}
		if p.Sqft != nil && *p.Sqft > 0 {
			pros[2] = printer.Sprintf("%d sqft of living space", *p.Sqft)
		}
		rec.Pros = pros
		rec.Cons = []string{"Limited details available for deeper analysis"}
		recs = append(recs, rec)
	}
	return &RecommendResult{
		Message:               fmt.Sprintf("Found %d properties matching your criteria.", len(recs)),
		Recommendations:       recs,
		RecommendedProperties: idsOf(recs),
		Meta:                  Meta{Confidence: ConfidenceMedium},
	}
}

func baseRecommendation(s scoring.Scored) Recommendation {
	return Recommendation{
		PropertyID: s.Property.ID,
		Address:    s.Property.Address,
		City:       s.Property.City,
		Price:      s.Property.Price,
		MatchScore: s.TotalScore,
		Pros:       []string{},
		Cons:       []string{},
	}
}

func idsOf(recs []Recommendation) []int64 {
	ids := make([]int64, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.PropertyID)
	}
	return ids
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
