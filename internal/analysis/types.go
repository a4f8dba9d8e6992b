package analysis

import (
	"github.com/joelkehle/housing-analyst/internal/listing"
	"github.com/joelkehle/housing-analyst/internal/scoring"
)

type Kind string

const (
	KindSummary   Kind = "summary"
	KindRecommend Kind = "recommend"
	KindCompare   Kind = "compare"
	KindMarket    Kind = "market_analysis"
)

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Meta is shared by every result. Error is set only when the model call
// failed and the result was computed without it.
type Meta struct {
	Confidence Confidence `json:"confidence"`
	FromCache  bool       `json:"from_cache"`
	Error      string     `json:"error,omitempty"`
}

func (m *Meta) meta() *Meta { return m }

type Statistics struct {
	Count           int      `json:"count"`
	AvgPrice        float64  `json:"avg_price"`
	MedianPrice     float64  `json:"median_price"`
	MinPrice        float64  `json:"min_price"`
	MaxPrice        float64  `json:"max_price"`
	AvgMonthlyCost  float64  `json:"avg_monthly_cost"`
	AvgPricePerSqft float64  `json:"avg_price_per_sqft"`
	MostCommonCity  string   `json:"most_common_city,omitempty"`
	Cities          []string `json:"cities"`
}

type MarketStatistics struct {
	TotalProperties    int            `json:"total_properties"`
	AvgPrice           float64        `json:"avg_price"`
	MedianPrice        float64        `json:"median_price"`
	MinPrice           float64        `json:"min_price"`
	MaxPrice           float64        `json:"max_price"`
	AvgMonthlyCost     float64        `json:"avg_monthly_cost"`
	AvgPricePerSqft    float64        `json:"avg_price_per_sqft"`
	AvgDaysOnMarket    float64        `json:"avg_days_on_market"`
	MedianDaysOnMarket float64        `json:"median_days_on_market"`
	CityDistribution   map[string]int `json:"city_distribution"`
}

type DOMDistribution struct {
	AvgDOM            float64 `json:"avg_dom"`
	FastMoving        int     `json:"fast_moving"`
	Moderate          int     `json:"moderate"`
	SlowMoving        int     `json:"slow_moving"`
	FastMovingPct     float64 `json:"fast_moving_pct"`
	MarketTemperature string  `json:"market_temperature"`
	TotalAnalyzed     int     `json:"total_analyzed"`
}

type BuyerRecommendations struct {
	FirstTimeBuyer string `json:"first_time_buyer,omitempty"`
	Family         string `json:"family,omitempty"`
	Investor       string `json:"investor,omitempty"`
}

type SummaryRequest struct {
	Filters       listing.Filters `json:"filters"`
	MaxProperties int             `json:"max_properties"`
}

type SummaryResult struct {
	Summary              string               `json:"summary"`
	KeyInsights          []string             `json:"key_insights"`
	BuyerRecommendations BuyerRecommendations `json:"buyer_recommendations"`
	Statistics           Statistics           `json:"statistics"`
	PropertiesAnalyzed   int                  `json:"properties_analyzed"`
	Meta
}

// Criteria describe what a buyer is looking for. Priorities nil means equal
// weight on every dimension.
type Criteria struct {
	BudgetMax      float64          `json:"budget_max,omitempty"`
	BedsMin        int              `json:"beds_min,omitempty"`
	BathsMin       float64          `json:"baths_min,omitempty"`
	CityPreference string           `json:"city_preference,omitempty"`
	Lifestyle      string           `json:"lifestyle,omitempty"`
	Priorities     *scoring.Weights `json:"priorities,omitempty"`
}

type RecommendRequest struct {
	Criteria           Criteria `json:"criteria"`
	MaxRecommendations int      `json:"max_recommendations"`
}

type Recommendation struct {
	PropertyID       int64    `json:"property_id"`
	Address          string   `json:"address"`
	City             string   `json:"city"`
	Price            float64  `json:"price"`
	MatchScore       float64  `json:"match_score"`
	MatchExplanation string   `json:"match_explanation"`
	Pros             []string `json:"pros"`
	Cons             []string `json:"cons"`
}

type RecommendResult struct {
	Message               string           `json:"message"`
	Recommendations       []Recommendation `json:"recommendations"`
	RecommendedProperties []int64          `json:"recommended_properties"`
	Meta
}

type CompareRequest struct {
	PropertyIDs []int64  `json:"property_ids"`
	Aspects     []string `json:"aspects"`
}

// Pick names a compared property by its letter.
type Pick struct {
	PropertyLetter string `json:"property_letter"`
	Reason         string `json:"reason"`
}

type ComparedProperty struct {
	PropertyID     int64    `json:"property_id"`
	PropertyLetter string   `json:"property_letter"`
	Address        string   `json:"address"`
	City           string   `json:"city"`
	Price          float64  `json:"price"`
	MonthlyCost    *float64 `json:"monthly_cost"`
	Sqft           *int     `json:"sqft"`
	PricePerSqft   *float64 `json:"price_per_sqft"`
}

type CompareResult struct {
	Summary               string             `json:"summary"`
	Winners               map[string]Pick    `json:"winners"`
	OverallRecommendation *Pick              `json:"overall_recommendation"`
	Properties            []ComparedProperty `json:"properties"`
	Meta
}

type MarketRequest struct {
	Region     string `json:"region"`
	TimePeriod string `json:"time_period"`
	Focus      string `json:"focus"`
}

type MarketResult struct {
	Analysis             string           `json:"analysis"`
	Trends               []string         `json:"trends"`
	BuyerOpportunities   string           `json:"buyer_opportunities,omitempty"`
	SellerConsiderations string           `json:"seller_considerations,omitempty"`
	PriceOutlook         string           `json:"price_outlook,omitempty"`
	Statistics           MarketStatistics `json:"statistics"`
	MarketTemperature    string           `json:"market_temperature"`
	DOMDistribution      DOMDistribution  `json:"dom_distribution"`
	Meta
}
