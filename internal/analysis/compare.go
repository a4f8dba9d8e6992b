package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/joelkehle/housing-analyst/internal/listing"
	"github.com/joelkehle/housing-analyst/internal/llm"
)

const (
	MinCompare = 2
	MaxCompare = 5

	WinnerMonthlyBudget = "monthly_budget"
	WinnerSpaceValue    = "space_value"
)

// letter returns the label of the i-th requested property: A, B, C...
func letter(i int) string {
	return string(rune('A' + i))
}

// Compare contrasts 2 to 5 listings. Letters follow the order of
// req.PropertyIDs in every result, whatever order storage returns them in.
func (p *Pipeline) Compare(ctx context.Context, req CompareRequest) (*CompareResult, error) {
	if n := len(req.PropertyIDs); n < MinCompare || n > MaxCompare {
		return nil, invalidArgument("between %d and %d property ids are required, got %d", MinCompare, MaxCompare, n)
	}
	seen := map[int64]bool{}
	for _, id := range req.PropertyIDs {
		if seen[id] {
			return nil, invalidArgument("property id %d is listed more than once", id)
		}
		seen[id] = true
	}
	aspects := []string{}
	for _, a := range req.Aspects {
		if a = llm.Sanitize(a); a != "" {
			aspects = append(aspects, a)
		}
	}
	params := map[string]any{"property_ids": req.PropertyIDs, "aspects": aspects}

	return run[CompareResult](ctx, p, KindCompare, params, func(ctx context.Context) (*CompareResult, bool, error) {
		props, err := p.fetchOrdered(ctx, req.PropertyIDs)
		if err != nil {
			return nil, false, err
		}
		reply, callErr, err := p.callModel(ctx, KindCompare, comparePrompt(props, aspects))
		if err != nil {
			return nil, false, err
		}
		if callErr != nil {
			res := fallbackComparison(props)
			res.Error = callErr.Error()
			return res, true, nil
		}
		return parseComparison(reply, props), true, nil
	})
}

// fetchOrdered loads ids and returns them in the requested order. Any id the
// store does not know fails the whole request.
func (p *Pipeline) fetchOrdered(ctx context.Context, ids []int64) ([]listing.Property, error) {
	found, err := p.cfg.Store.FetchByIDs(ctx, ids)
	if err != nil {
		return nil, internal("fetch properties", err)
	}
	byID := make(map[int64]listing.Property, len(found))
	for _, prop := range found {
		byID[prop.ID] = prop
	}
	ordered := make([]listing.Property, 0, len(ids))
	var missing []string
	for _, id := range ids {
		prop, ok := byID[id]
		if !ok {
			missing = append(missing, fmt.Sprint(id))
			continue
		}
		ordered = append(ordered, prop)
	}
	if len(missing) > 0 {
		return nil, notFound("properties not found: %s", strings.Join(missing, ", "))
	}
	return ordered, nil
}

func comparedProperties(props []listing.Property) []ComparedProperty {
	out := make([]ComparedProperty, 0, len(props))
	for i, prop := range props {
		out = append(out, ComparedProperty{
			PropertyID:     prop.ID,
			PropertyLetter: letter(i),
			Address:        prop.Address,
			City:           prop.City,
			Price:          prop.Price,
			MonthlyCost:    prop.TotalMonthlyCost,
			Sqft:           prop.Sqft,
			PricePerSqft:   prop.PricePerSqft,
		})
	}
	return out
}

// validPick normalises the letter and reports whether it names one of the n
// compared properties.
func validPick(pk Pick, n int) (Pick, bool) {
	pk.PropertyLetter = strings.ToUpper(strings.TrimSpace(pk.PropertyLetter))
	if len(pk.PropertyLetter) != 1 {
		return pk, false
	}
	i := int(pk.PropertyLetter[0] - 'A')
	return pk, i >= 0 && i < n
}

func parseComparison(reply llm.Reply, props []listing.Property) *CompareResult {
	res := &CompareResult{
		Winners:    map[string]Pick{},
		Properties: comparedProperties(props),
		Meta:       Meta{Confidence: ConfidenceMedium},
	}
	s, ok := reply.(llm.Structured)
	var body struct {
		Summary               string          `json:"summary"`
		Winners               map[string]Pick `json:"winners"`
		OverallRecommendation *Pick           `json:"overall_recommendation"`
	}
	if ok && s.Decode(&body) != nil {
		ok = false
	}
	if !ok {
		res.Summary = reply.Text()
		return res
	}

	res.Summary = body.Summary
	if res.Summary == "" {
		res.Summary = "Comparison of selected properties"
	}
	for category, pk := range body.Winners {
		if pk, valid := validPick(pk, len(props)); valid {
			res.Winners[category] = pk
		}
	}
	if body.OverallRecommendation != nil {
		if pk, valid := validPick(*body.OverallRecommendation, len(props)); valid {
			res.OverallRecommendation = &pk
		}
	}
	if len(res.Winners) > 0 {
		res.Confidence = ConfidenceHigh
	}
	return res
}

// fallbackComparison picks winners on the two dimensions that need no
// judgement: lowest monthly cost and lowest price per square foot.
func fallbackComparison(props []listing.Property) *CompareResult {
	res := &CompareResult{
		Summary:    fmt.Sprintf("Comparing %d properties based on available data.", len(props)),
		Winners:    map[string]Pick{},
		Properties: comparedProperties(props),
		Meta:       Meta{Confidence: ConfidenceLow},
	}
	if i, v, ok := argmin(props, func(p listing.Property) *float64 { return p.TotalMonthlyCost }); ok {
		res.Winners[WinnerMonthlyBudget] = Pick{PropertyLetter: letter(i), Reason: "Lowest monthly cost at " + money(v)}
	}
	if i, v, ok := argmin(props, func(p listing.Property) *float64 { return p.PricePerSqft }); ok {
		res.Winners[WinnerSpaceValue] = Pick{PropertyLetter: letter(i), Reason: printer.Sprintf("Best value at $%.2f/sqft", v)}
	}
	if pk, ok := res.Winners[WinnerMonthlyBudget]; ok {
		res.OverallRecommendation = &pk
	}
	return res
}

// argmin returns the first property with the smallest positive field value.
func argmin(props []listing.Property, field func(listing.Property) *float64) (int, float64, bool) {
	best, bestV, found := -1, 0.0, false
	for i, p := range props {
		v := field(p)
		if v == nil || *v <= 0 {
			continue
		}
		if !found || *v < bestV {
			best, bestV, found = i, *v, true
		}
	}
	return best, bestV, found
}
