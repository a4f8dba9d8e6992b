package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/joelkehle/housing-analyst/internal/aicache"
	"github.com/joelkehle/housing-analyst/internal/listing"
	"github.com/joelkehle/housing-analyst/internal/llm"
	"github.com/joelkehle/housing-analyst/internal/ratelimit"
)

const tracerName = "github.com/joelkehle/housing-analyst/internal/analysis"

// Cache lifetimes per kind.
var ttls = map[Kind]time.Duration{
	KindSummary:   time.Hour,
	KindRecommend: 30 * time.Minute,
	KindCompare:   2 * time.Hour,
	KindMarket:    4 * time.Hour,
}

// Store is the read side of the listing database.
type Store interface {
	FetchCandidates(ctx context.Context, f listing.Filters, limit int) ([]listing.Property, error)
	FetchByIDs(ctx context.Context, ids []int64) ([]listing.Property, error)
}

type Limiter interface {
	Acquire(ctx context.Context) error
}

// Recorder receives pipeline events for metrics.
type Recorder interface {
	CacheLookup(kind string, hit bool)
	ModelCall(kind, outcome string)
	Fallback(kind string)
	ObserveDuration(kind string, d time.Duration)
}

const (
	OutcomeOK           = "ok"
	OutcomeError        = "error"
	OutcomeUnstructured = "unstructured"
	OutcomeQuota        = "quota_exceeded"
)

type nopRecorder struct{}

func (nopRecorder) CacheLookup(string, bool) {}
func (nopRecorder) ModelCall(string, string) {}
func (nopRecorder) Fallback(string) {}
func (nopRecorder) ObserveDuration(string, time.Duration) {}

type Config struct {
	Store   Store
	Model   llm.Model
	Limiter Limiter
	Cache   *aicache.Cache

	Logger   *zap.Logger
	Recorder Recorder
	Tracer   trace.Tracer
	Clock    func() time.Time

	// DedupeInFlight lets concurrent identical requests share one model call.
	DedupeInFlight bool
}

type Pipeline struct {
	cfg    Config
	flight singleflight.Group
}

func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.Store == nil {
		return nil, errors.New("analysis: store is required")
	}
	if cfg.Model == nil {
		return nil, errors.New("analysis: model is required")
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.New(ratelimit.Config{})
	}
	if cfg.Cache == nil {
		cfg.Cache = aicache.New(aicache.Config{})
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Pipeline{cfg: cfg}, nil
}

// result is implemented by every *XxxResult through the embedded Meta.
type result[T any] interface {
	*T
	meta() *Meta
}

// computeFn builds a fresh result. cacheable is false for results that must
// not be remembered, such as the empty-pool answer.
type computeFn[T any] func(ctx context.Context) (res *T, cacheable bool, err error)

// run is the state machine shared by every kind: cache lookup, then on a miss
// the kind's compute step, then cache store. The returned value is always
// decoded from the same bytes that are cached, so a later hit is identical
// apart from FromCache.
func run[T any, PT result[T]](ctx context.Context, p *Pipeline, kind Kind, params any, compute computeFn[T]) (*T, error) {
	start := p.cfg.Clock()
	runID := uuid.NewString()
	log := p.cfg.Logger.With(zap.String("kind", string(kind)), zap.String("run_id", runID))
	ctx, span := p.cfg.Tracer.Start(ctx, "analysis."+string(kind),
		trace.WithAttributes(attribute.String("analysis.kind", string(kind)), attribute.String("analysis.run_id", runID)))
	defer span.End()
	defer func() { p.cfg.Recorder.ObserveDuration(string(kind), p.cfg.Clock().Sub(start)) }()

	key, err := aicache.Key(string(kind), params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cache key")
		return nil, internal("derive cache key", err)
	}

	if raw, ok := p.cfg.Cache.Get(key); ok {
		out := new(T)
		if err := json.Unmarshal(raw, out); err == nil {
			PT(out).meta().FromCache = true
			p.cfg.Recorder.CacheLookup(string(kind), true)
			span.SetAttributes(attribute.Bool("analysis.cache_hit", true))
			log.Debug("analysis cache hit", zap.String("key", key))
			return out, nil
		}
		log.Warn("dropping undecodable cache entry", zap.String("key", key))
		p.cfg.Cache.Invalidate(key)
	}
	p.cfg.Recorder.CacheLookup(string(kind), false)
	span.SetAttributes(attribute.Bool("analysis.cache_hit", false))

	produce := func() (interface{}, error) {
		res, cacheable, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		PT(res).meta().FromCache = false
		raw, err := json.Marshal(res)
		if err != nil {
			return nil, internal("encode result", err)
		}
		if cacheable {
			p.cfg.Cache.Set(key, raw, ttls[kind])
		}
		return raw, nil
	}

	var v interface{}
	if p.cfg.DedupeInFlight {
		var shared bool
		v, err, shared = p.flight.Do(key, produce)
		if shared {
			log.Debug("joined in-flight analysis", zap.String("key", key))
		}
	} else {
		v, err = produce()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, CodeOf(err))
		return nil, err
	}

	out := new(T)
	if err := json.Unmarshal(v.([]byte), out); err != nil {
		return nil, internal("decode result", err)
	}
	if m := PT(out).meta(); m.Error != "" {
		span.SetAttributes(attribute.String("analysis.fallback_reason", m.Error))
	}
	return out, nil
}

// callModel waits for a rate-limit slot and asks the model. A nil error with a
// non-nil callErr means the call failed and the caller should fall back. A
// non-nil error must be returned to the caller as is.
func (p *Pipeline) callModel(ctx context.Context, kind Kind, prompt string) (reply llm.Reply, callErr error, err error) {
	log := p.cfg.Logger.With(zap.String("kind", string(kind)))
	if err := p.cfg.Limiter.Acquire(ctx); err != nil {
		var quota *ratelimit.QuotaExceededError
		if errors.As(err, &quota) {
			p.cfg.Recorder.ModelCall(string(kind), OutcomeQuota)
			log.Warn("daily model quota exhausted", zap.Duration("retry_after", quota.RetryAfter))
			return nil, nil, quotaExceeded(quota)
		}
		return nil, nil, err
	}

	ctx, span := p.cfg.Tracer.Start(ctx, "analysis.model_call")
	defer span.End()
	text, genErr := p.cfg.Model.Generate(ctx, prompt)
	if genErr != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		span.RecordError(genErr)
		span.SetStatus(codes.Error, "model call failed")
		p.cfg.Recorder.ModelCall(string(kind), OutcomeError)
		p.cfg.Recorder.Fallback(string(kind))
		log.Warn("model call failed, using fallback", zap.Error(genErr))
		return nil, fmt.Errorf("model call failed: %w", genErr), nil
	}

	reply = llm.ParseReply(text)
	if _, ok := reply.(llm.Unstructured); ok {
		p.cfg.Recorder.ModelCall(string(kind), OutcomeUnstructured)
		log.Info("model reply had no JSON object", zap.Int("reply_chars", len(text)))
	} else {
		p.cfg.Recorder.ModelCall(string(kind), OutcomeOK)
	}
	return reply, nil, nil
}

func (p *Pipeline) fetchCandidates(ctx context.Context, f listing.Filters, limit int) ([]listing.Property, error) {
	props, err := p.cfg.Store.FetchCandidates(ctx, f, limit)
	if err != nil {
		return nil, internal("fetch candidates", err)
	}
	return props, nil
}
