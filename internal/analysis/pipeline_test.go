package analysis

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/housing-analyst/internal/aicache"
	"github.com/joelkehle/housing-analyst/internal/listing"
	"github.com/joelkehle/housing-analyst/internal/ratelimit"
)

type fakeStore struct {
	props      []listing.Property
	err        error
	fetches    int
	lastLimit  int
	lastFilter listing.Filters
}

func (s *fakeStore) FetchCandidates(_ context.Context, f listing.Filters, limit int) ([]listing.Property, error) {
	s.fetches++
	s.lastLimit, s.lastFilter = limit, f
	if s.err != nil {
		return nil, s.err
	}
	var out []listing.Property
	for _, p := range s.props {
		if f.CityContains != "" && !strings.Contains(strings.ToLower(p.City), strings.ToLower(f.CityContains)) {
			continue
		}
		out = append(out, p)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FetchByIDs deliberately answers in ascending id order.
func (s *fakeStore) FetchByIDs(_ context.Context, ids []int64) ([]listing.Property, error) {
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []listing.Property
	for _, p := range s.props {
		if want[p.ID] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type scriptedModel struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	prompts []string
	gate    chan struct{}
}

func (m *scriptedModel) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return m.reply, m.err
}

func (m *scriptedModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type recordingRecorder struct {
	mu        sync.Mutex
	hits      int
	misses    int
	fallbacks int
	outcomes  []string
}

func (r *recordingRecorder) CacheLookup(_ string, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func (r *recordingRecorder) ModelCall(_ string, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingRecorder) Fallback(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks++
}

func (r *recordingRecorder) ObserveDuration(string, time.Duration) {}

type harness struct {
	pipeline *Pipeline
	store    *fakeStore
	model    *scriptedModel
	cache    *aicache.Cache
	recorder *recordingRecorder
	now      time.Time
}

func (h *harness) clock() time.Time { return h.now }

func newHarness(t *testing.T, props []listing.Property, model *scriptedModel, opts ...func(*Config)) *harness {
	t.Helper()
	h := &harness{
		store:    &fakeStore{props: props},
		model:    model,
		recorder: &recordingRecorder{},
		now:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	h.cache = aicache.New(aicache.Config{MaxSize: 100, Clock: h.clock})
	cfg := Config{
		Store:    h.store,
		Model:    model,
		Limiter:  ratelimit.New(ratelimit.Config{PerMinute: 1000, PerDay: 1000, Clock: h.clock}),
		Cache:    h.cache,
		Recorder: h.recorder,
		Clock:    h.clock,
	}
	for _, o := range opts {
		o(&cfg)
	}
	p, err := NewPipeline(cfg)
	require.NoError(t, err)
	h.pipeline = p
	return h
}

func prop(id int64, city string, price, monthly float64) listing.Property {
	p := listing.Property{ID: id, Address: "addr", City: city, Price: price}
	if monthly > 0 {
		p.TotalMonthlyCost = listing.Float(monthly)
	}
	return p
}

func samplePool() []listing.Property {
	return []listing.Property{
		prop(1, "Sandy", 450000, 2900),
		prop(2, "Draper", 520000, 3300),
		prop(3, "Sandy", 390000, 2500),
	}
}

const summaryReply = `Sure! {"summary":"Prices are steady.","key_insights":["Sandy is cheapest"],"buyer_recommendations":{"family":"Look in Draper"}}`

func TestNewPipelineRequiresStoreAndModel(t *testing.T) {
	_, err := NewPipeline(Config{Model: &scriptedModel{}})
	assert.Error(t, err)
	_, err = NewPipeline(Config{Store: &fakeStore{}})
	assert.Error(t, err)
}

func TestSummarizeIsIdempotentWithinTTL(t *testing.T) {
	h := newHarness(t, samplePool(), &scriptedModel{reply: summaryReply})
	ctx := context.Background()
	req := SummaryRequest{Filters: listing.Filters{PriceMax: 600000}}

	first, err := h.pipeline.Summarize(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, "Prices are steady.", first.Summary)
	assert.Equal(t, ConfidenceMedium, first.Confidence)

	second, err := h.pipeline.Summarize(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.FromCache)

	second.FromCache = false
	assert.Equal(t, first, second)
	assert.Equal(t, 1, h.model.callCount())
	assert.Equal(t, 1, h.store.fetches)
	assert.Equal(t, 1, h.recorder.hits)
}

func TestSummarizeCacheExpires(t *testing.T) {
	h := newHarness(t, samplePool(), &scriptedModel{reply: summaryReply})
	ctx := context.Background()

	_, err := h.pipeline.Summarize(ctx, SummaryRequest{})
	require.NoError(t, err)
	h.now = h.now.Add(time.Hour + time.Second)

	again, err := h.pipeline.Summarize(ctx, SummaryRequest{})
	require.NoError(t, err)
	assert.False(t, again.FromCache)
	assert.Equal(t, 2, h.model.callCount())
}

func TestSummarizeFallsBackWhenModelFails(t *testing.T) {
	h := newHarness(t, samplePool(), &scriptedModel{err: errors.New("upstream 503")})

	res, err := h.pipeline.Summarize(context.Background(), SummaryRequest{})
	require.NoError(t, err)
	assert.Contains(t, res.Error, "upstream 503")
	assert.Equal(t, ConfidenceLow, res.Confidence)
	assert.Equal(t, 3, res.PropertiesAnalyzed)
	assert.Equal(t, "Found 3 properties in the Salt Lake Valley. Average price is $453,333 with monthly costs averaging $2,900.", res.Summary)
	assert.Equal(t, []string{"Price range: $390,000 - $520,000", "Most properties in: Sandy", "Average price per sqft: $0.00"}, res.KeyInsights)
	assert.Equal(t, 1, h.recorder.fallbacks)

	cached, err := h.pipeline.Summarize(context.Background(), SummaryRequest{})
	require.NoError(t, err)
	assert.True(t, cached.FromCache)
	assert.Equal(t, res.Error, cached.Error)
}

func TestSummarizeUnstructuredReplyKeepsRawText(t *testing.T) {
	h := newHarness(t, samplePool(), &scriptedModel{reply: "The market is calm."})

	res, err := h.pipeline.Summarize(context.Background(), SummaryRequest{})
	require.NoError(t, err)
	assert.Equal(t, "The market is calm.", res.Summary)
	assert.Empty(t, res.KeyInsights)
	assert.Equal(t, ConfidenceMedium, res.Confidence)
	assert.Empty(t, res.Error)
	assert.Equal(t, []string{OutcomeUnstructured}, h.recorder.outcomes)
}

func TestSummarizeHighConfidenceForLargePools(t *testing.T) {
	var pool []listing.Property
	for i := int64(1); i <= 12; i++ {
		pool = append(pool, prop(i, "Lehi", float64(300000+i*1000), 0))
	}
	h := newHarness(t, pool, &scriptedModel{reply: summaryReply})
	res, err := h.pipeline.Summarize(context.Background(), SummaryRequest{MaxProperties: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, res.PropertiesAnalyzed)
	assert.Equal(t, 10, h.store.lastLimit)
	assert.Equal(t, ConfidenceHigh, res.Confidence)
}

func TestSummarizeEmptyPoolSkipsModelAndCache(t *testing.T) {
	h := newHarness(t, nil, &scriptedModel{reply: summaryReply})
	ctx := context.Background()

	res, err := h.pipeline.Summarize(ctx, SummaryRequest{})
	require.NoError(t, err)
	assert.Equal(t, "No properties found matching your criteria.", res.Summary)
	assert.Equal(t, ConfidenceLow, res.Confidence)

	res, err = h.pipeline.Summarize(ctx, SummaryRequest{})
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, 0, h.model.callCount())
	assert.Equal(t, 0, h.cache.Stats().Size)
}

func TestSummarizeRejectsInvalidArguments(t *testing.T) {
	h := newHarness(t, samplePool(), &scriptedModel{reply: summaryReply})
	ctx := context.Background()

	_, err := h.pipeline.Summarize(ctx, SummaryRequest{MaxProperties: 101})
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))
	_, err = h.pipeline.Summarize(ctx, SummaryRequest{Filters: listing.Filters{PriceMin: 5, PriceMax: 1}})
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))
	assert.Equal(t, 0, h.store.fetches)
}

func TestStoreFailureIsInternal(t *testing.T) {
	h := newHarness(t, nil, &scriptedModel{reply: summaryReply})
	h.store.err = errors.New("disk full")

	_, err := h.pipeline.Summarize(context.Background(), SummaryRequest{})
	require.Error(t, err)
	assert.Equal(t, CodeInternal, CodeOf(err))
}

func TestQuotaExceededPropagatesAndIsNotCached(t *testing.T) {
	h := newHarness(t, samplePool(), &scriptedModel{reply: summaryReply}, func(c *Config) {
		c.Limiter = ratelimit.New(ratelimit.Config{PerMinute: 10, PerDay: 1, Clock: func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }})
	})
	ctx := context.Background()

	_, err := h.pipeline.Summarize(ctx, SummaryRequest{MaxProperties: 5})
	require.NoError(t, err)

	_, err = h.pipeline.Summarize(ctx, SummaryRequest{MaxProperties: 6})
	require.Error(t, err)
	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, CodeQuotaExceeded, aerr.Code)
	assert.Equal(t, 429, aerr.Status)
	assert.Equal(t, 24*time.Hour, aerr.RetryAfter)
	var quota *ratelimit.QuotaExceededError
	assert.ErrorAs(t, err, &quota)

	assert.Equal(t, 1, h.cache.Stats().Size)
	assert.Equal(t, 1, h.model.callCount())
	assert.Equal(t, 0, h.recorder.fallbacks)
}

func TestCancelledWaitIsNotConvertedToFallback(t *testing.T) {
	h := newHarness(t, samplePool(), &scriptedModel{reply: summaryReply}, func(c *Config) {
		c.Limiter = limiterFunc(func(ctx context.Context) error { return context.Canceled })
	})
	_, err := h.pipeline.Summarize(context.Background(), SummaryRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, h.cache.Stats().Size)
}

type limiterFunc func(ctx context.Context) error

func (f limiterFunc) Acquire(ctx context.Context) error { return f(ctx) }

func TestDedupeInFlightSharesOneModelCall(t *testing.T) {
	model := &scriptedModel{reply: summaryReply, gate: make(chan struct{})}
	h := newHarness(t, samplePool(), model, func(c *Config) { c.DedupeInFlight = true })

	var wg sync.WaitGroup
	results := make([]*SummaryResult, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := h.pipeline.Summarize(context.Background(), SummaryRequest{})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	require.Eventually(t, func() bool { return model.callCount() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(model.gate)
	wg.Wait()

	assert.Equal(t, 1, model.callCount())
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, "Prices are steady.", r.Summary)
	}
}
