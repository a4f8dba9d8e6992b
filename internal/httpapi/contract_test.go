package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/housing-analyst/internal/analysis"
	"github.com/joelkehle/housing-analyst/internal/listing"
	"github.com/joelkehle/housing-analyst/internal/ratelimit"
)

type memoryStore struct {
	props []listing.Property
}

func (m *memoryStore) FetchCandidates(_ context.Context, _ listing.Filters, limit int) ([]listing.Property, error) {
	if len(m.props) > limit {
		return m.props[:limit], nil
	}
	return m.props, nil
}

func (m *memoryStore) FetchByIDs(_ context.Context, ids []int64) ([]listing.Property, error) {
	var out []listing.Property
	for _, p := range m.props {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

type failingModel struct{}

func (failingModel) Generate(context.Context, string) (string, error) {
	return "", errors.New("service unavailable")
}

// newContractServer serves fallback results so every field is populated from
// listing data alone.
func newContractServer(t *testing.T) http.Handler {
	t.Helper()
	store := &memoryStore{}
	for i := int64(1); i <= 4; i++ {
		store.props = append(store.props, listing.Property{
			ID:               i,
			Address:          "addr",
			City:             "Murray",
			Price:            float64(300000 + i*50000),
			Sqft:             listing.Int(1500 + int(i)*100),
			PricePerSqft:     listing.Float(200 + float64(i)),
			TotalMonthlyCost: listing.Float(2000 + float64(i)*100),
			DaysOnMarket:     listing.Int(int(i) * 10),
		})
	}
	clock := func() time.Time { return testNow }
	p, err := analysis.NewPipeline(analysis.Config{
		Store:   store,
		Model:   failingModel{},
		Limiter: ratelimit.New(ratelimit.Config{Clock: clock}),
		Clock:   clock,
	})
	require.NoError(t, err)
	return NewServer(Config{Analyzer: p, Clock: clock})
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestContractResponseShapes(t *testing.T) {
	h := newContractServer(t)
	tests := []struct {
		path string
		body any
		want []string
	}{
		{"/v1/ai/summarize", nil, []string{
			"buyer_recommendations", "confidence", "error", "from_cache", "key_insights",
			"properties_analyzed", "statistics", "summary",
		}},
		{"/v1/ai/recommend", nil, []string{
			"confidence", "error", "from_cache", "message", "recommendations", "recommended_properties",
		}},
		{"/v1/ai/compare", map[string]any{"property_ids": []int{3, 1}}, []string{
			"confidence", "error", "from_cache", "overall_recommendation", "properties", "summary", "winners",
		}},
		{"/v1/ai/market-analysis", nil, []string{
			"analysis", "buyer_opportunities", "confidence", "dom_distribution", "error", "from_cache",
			"market_temperature", "price_outlook", "seller_considerations", "statistics", "trends",
		}},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, tc.path, tc.body)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			body := decodeBody(t, rr)
			assert.Equal(t, tc.want, keys(body))
			assert.Equal(t, "low", body["confidence"])
			assert.Equal(t, "model call failed: service unavailable", body["error"])
		})
	}
}

func TestContractCompareProperties(t *testing.T) {
	h := newContractServer(t)
	rr := do(t, h, http.MethodPost, "/v1/ai/compare", map[string]any{"property_ids": []int{3, 1}})
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)

	props := body["properties"].([]any)
	require.Len(t, props, 2)
	first := props[0].(map[string]any)
	assert.Equal(t, 3.0, first["property_id"])
	assert.Equal(t, "A", first["property_letter"])
	assert.Equal(t, []string{
		"address", "city", "monthly_cost", "price", "price_per_sqft", "property_id", "property_letter", "sqft",
	}, keys(first))

	winners := body["winners"].(map[string]any)
	budget := winners["monthly_budget"].(map[string]any)
	assert.Equal(t, "B", budget["property_letter"])
}

func TestContractErrorEnvelope(t *testing.T) {
	h := newContractServer(t)
	rr := do(t, h, http.MethodPost, "/v1/ai/compare", map[string]any{"property_ids": []int{1, 99}})
	require.Equal(t, http.StatusNotFound, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, []string{"error", "ok"}, keys(body))
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, []string{"code", "message"}, keys(body["error"].(map[string]any)))
}
