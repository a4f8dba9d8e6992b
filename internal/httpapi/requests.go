package httpapi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/joelkehle/housing-analyst/internal/analysis"
	"github.com/joelkehle/housing-analyst/internal/listing"
	"github.com/joelkehle/housing-analyst/internal/scoring"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := e.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must not be negative", field)
	case "gt":
		return fmt.Sprintf("%s must be positive", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "unique":
		return fmt.Sprintf("%s must not repeat values", field)
	case "gtefield":
		return fmt.Sprintf("%s must not be less than %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

type filtersBody struct {
	PriceMin float64 `json:"price_min" validate:"gte=0"`
	PriceMax float64 `json:"price_max" validate:"gte=0"`
	Beds     int     `json:"beds" validate:"gte=0"`
	Baths    float64 `json:"baths" validate:"gte=0"`
	City     string  `json:"city" validate:"max=500"`
}

func (f filtersBody) toFilters() listing.Filters {
	return listing.Filters{
		PriceMin:     f.PriceMin,
		PriceMax:     f.PriceMax,
		BedsMin:      f.Beds,
		BathsMin:     f.Baths,
		CityContains: strings.TrimSpace(f.City),
	}
}

type summarizeBody struct {
	Filters       filtersBody `json:"filters"`
	MaxProperties int         `json:"max_properties" validate:"omitempty,min=1,max=100"`
}

func (b summarizeBody) toRequest() analysis.SummaryRequest {
	return analysis.SummaryRequest{Filters: b.Filters.toFilters(), MaxProperties: b.MaxProperties}
}

type prioritiesBody struct {
	MonthlyCost float64 `json:"monthly_cost" validate:"gte=0"`
	Location    float64 `json:"location" validate:"gte=0"`
	Value       float64 `json:"value" validate:"gte=0"`
	Space       float64 `json:"space" validate:"gte=0"`
}

type criteriaBody struct {
	BudgetMax      float64         `json:"budget_max" validate:"gte=0"`
	BedsMin        int             `json:"beds_min" validate:"gte=0"`
	BathsMin       float64         `json:"baths_min" validate:"gte=0"`
	CityPreference string          `json:"city_preference"`
	Lifestyle      string          `json:"lifestyle"`
	Priorities     *prioritiesBody `json:"priorities"`
}

type recommendBody struct {
	Criteria           criteriaBody `json:"criteria"`
	MaxRecommendations int          `json:"max_recommendations" validate:"omitempty,min=1,max=20"`
}

func (b recommendBody) toRequest() analysis.RecommendRequest {
	c := b.Criteria
	req := analysis.RecommendRequest{
		Criteria: analysis.Criteria{
			BudgetMax:      c.BudgetMax,
			BedsMin:        c.BedsMin,
			BathsMin:       c.BathsMin,
			CityPreference: c.CityPreference,
			Lifestyle:      c.Lifestyle,
		},
		MaxRecommendations: b.MaxRecommendations,
	}
	if p := c.Priorities; p != nil {
		req.Criteria.Priorities = &scoring.Weights{
			MonthlyCost: p.MonthlyCost,
			Location:    p.Location,
			Value:       p.Value,
			Space:       p.Space,
		}
	}
	return req
}

type compareBody struct {
	PropertyIDs []int64  `json:"property_ids" validate:"required,min=2,max=5,unique,dive,gt=0"`
	Aspects     []string `json:"aspects" validate:"max=10"`
}

func (b compareBody) toRequest() analysis.CompareRequest {
	return analysis.CompareRequest{PropertyIDs: b.PropertyIDs, Aspects: b.Aspects}
}

type marketBody struct {
	Region     string `json:"region"`
	TimePeriod string `json:"time_period" validate:"omitempty,oneof=7d 30d 90d"`
	Focus      string `json:"focus"`
}

func (b marketBody) toRequest() analysis.MarketRequest {
	return analysis.MarketRequest{Region: b.Region, TimePeriod: b.TimePeriod, Focus: b.Focus}
}
