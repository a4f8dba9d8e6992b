// Package scoring ranks a candidate pool against weighted buyer priorities.
// Every function is pure: the same pool and weights always produce the same
// ranking.
package scoring

import (
	"math"
	"sort"
	"strings"

	"github.com/joelkehle/housing-analyst/internal/listing"
)

const (
	neutralScore      = 50.0
	otherCityScore    = 60.0
	matchedCityScore  = 100.0
	noVarianceScore   = 100.0
	defaultDimensionW = 25.0
)

// Weights are the relative importance of each dimension. They need not sum
// to 100; Rank normalises them.
type Weights struct {
	MonthlyCost float64 `json:"monthly_cost"`
	Location    float64 `json:"location"`
	Value       float64 `json:"value"`
	Space       float64 `json:"space"`
}

func DefaultWeights() Weights {
	return Weights{
		MonthlyCost: defaultDimensionW,
		Location:    defaultDimensionW,
		Value:       defaultDimensionW,
		Space:       defaultDimensionW,
	}
}

// normalized clamps negative weights to zero and scales the vector to sum to
// one. An all-zero vector is treated as uniform.
func (w Weights) normalized() Weights {
	w.MonthlyCost = math.Max(0, w.MonthlyCost)
	w.Location = math.Max(0, w.Location)
	w.Value = math.Max(0, w.Value)
	w.Space = math.Max(0, w.Space)
	sum := w.MonthlyCost + w.Location + w.Value + w.Space
	if sum == 0 {
		return Weights{0.25, 0.25, 0.25, 0.25}
	}
	return Weights{
		MonthlyCost: w.MonthlyCost / sum,
		Location:    w.Location / sum,
		Value:       w.Value / sum,
		Space:       w.Space / sum,
	}
}

type Subscores struct {
	MonthlyCost float64 `json:"monthly_cost"`
	Value       float64 `json:"value"`
	Space       float64 `json:"space"`
	Location    float64 `json:"location"`
}

type Scored struct {
	Property   listing.Property `json:"property"`
	TotalScore float64          `json:"total_score"`
	Subscores  Subscores        `json:"subscores"`
}

// bounds is the observed range of one dimension across the pool.
type bounds struct {
	min, max float64
	ok       bool
}

func (b *bounds) observe(v float64) {
	if !b.ok {
		b.min, b.max, b.ok = v, v, true
		return
	}
	b.min = math.Min(b.min, v)
	b.max = math.Max(b.max, v)
}

func (b bounds) lowerIsBetter(v float64) float64 {
	if b.max == b.min {
		return noVarianceScore
	}
	return 100 * (1 - (v-b.min)/(b.max-b.min))
}

func (b bounds) higherIsBetter(v float64) float64 {
	if b.max == b.min {
		return noVarianceScore
	}
	return 100 * (v - b.min) / (b.max - b.min)
}

// Rank scores every candidate and returns them best first. Candidates with
// equal totals keep their pool order.
func Rank(pool []listing.Property, w Weights, cityPreference string) []Scored {
	var cost, value, space bounds
	for _, p := range pool {
		if v, ok := present(p.TotalMonthlyCost); ok {
			cost.observe(v)
		}
		if v, ok := present(p.PricePerSqft); ok {
			value.observe(v)
		}
		if p.Sqft != nil && *p.Sqft > 0 {
			space.observe(float64(*p.Sqft))
		}
	}

	nw := w.normalized()
	pref := strings.ToLower(strings.TrimSpace(cityPreference))
	out := make([]Scored, 0, len(pool))
	for _, p := range pool {
		s := Subscores{
			MonthlyCost: neutralScore,
			Value:       neutralScore,
			Space:       neutralScore,
			Location:    locationScore(p.City, pref),
		}
		if v, ok := present(p.TotalMonthlyCost); ok {
			s.MonthlyCost = cost.lowerIsBetter(v)
		}
		if v, ok := present(p.PricePerSqft); ok {
			s.Value = value.lowerIsBetter(v)
		}
		if p.Sqft != nil && *p.Sqft > 0 {
			s.Space = space.higherIsBetter(float64(*p.Sqft))
		}
		total := s.MonthlyCost*nw.MonthlyCost + s.Value*nw.Value + s.Space*nw.Space + s.Location*nw.Location
		out = append(out, Scored{Property: p, TotalScore: round1(total), Subscores: s})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalScore > out[j].TotalScore })
	return out
}

func locationScore(city, pref string) float64 {
	if strings.TrimSpace(city) == "" {
		return neutralScore
	}
	if pref != "" && strings.Contains(strings.ToLower(city), pref) {
		return matchedCityScore
	}
	return otherCityScore
}

func present(v *float64) (float64, bool) {
	if v == nil || *v <= 0 {
		return 0, false
	}
	return *v, true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
