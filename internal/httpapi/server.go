package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/joelkehle/housing-analyst/internal/aicache"
	"github.com/joelkehle/housing-analyst/internal/analysis"
	"github.com/joelkehle/housing-analyst/internal/metrics"
	"github.com/joelkehle/housing-analyst/internal/ratelimit"
)

const maxBodyBytes = 1 << 20

// Analyzer is the analysis surface served over HTTP. *analysis.Pipeline
// implements it.
type Analyzer interface {
	Summarize(ctx context.Context, req analysis.SummaryRequest) (*analysis.SummaryResult, error)
	Recommend(ctx context.Context, req analysis.RecommendRequest) (*analysis.RecommendResult, error)
	Compare(ctx context.Context, req analysis.CompareRequest) (*analysis.CompareResult, error)
	AnalyzeMarket(ctx context.Context, req analysis.MarketRequest) (*analysis.MarketResult, error)
}

// Counter reports how many listings are stored. Used by the health check.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

type Config struct {
	Analyzer Analyzer
	Limiter  *ratelimit.Limiter
	Cache    *aicache.Cache
	Listings Counter
	Metrics  *metrics.Collector
	Logger   *zap.Logger
	Clock    func() time.Time
}

type Server struct {
	cfg Config
}

func NewServer(cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	s := &Server{cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(cfg.Logger, cfg.Metrics))

	r.Get("/healthz", s.handleHealth)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}
	r.Route("/v1/ai", func(r chi.Router) {
		r.Post("/summarize", s.handleSummarize)
		r.Post("/recommend", s.handleRecommend)
		r.Post("/compare", s.handleCompare)
		r.Post("/market-analysis", s.handleMarket)
		r.Post("/report/{kind}", s.handleReport)
		r.Get("/limits", s.handleLimits)
		r.Get("/cache/stats", s.handleCacheStats)
		r.Delete("/cache", s.handleCacheInvalidate)
	})
	return r
}

// requestLogger logs one line per request and feeds the HTTP metrics with the
// matched route pattern, not the raw path.
func requestLogger(logger *zap.Logger, m *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			elapsed := time.Since(start)
			if m != nil {
				m.ObserveHTTP(r.Method, route, ww.Status(), elapsed)
			}
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", elapsed),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	var ae *analysis.Error
	if !errors.As(err, &ae) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			ae = &analysis.Error{Code: analysis.CodeInternal, Message: "request cancelled", Status: http.StatusServiceUnavailable}
		} else {
			ae = &analysis.Error{Code: analysis.CodeInternal, Message: err.Error(), Status: http.StatusInternalServerError}
		}
	}
	body := map[string]any{
		"code":    ae.Code,
		"message": ae.Message,
	}
	if ae.RetryAfter > 0 {
		secs := int(math.Ceil(ae.RetryAfter.Seconds()))
		body["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	writeJSON(w, ae.Status, map[string]any{"ok": false, "error": body})
}

func invalidRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"ok":    false,
		"error": map[string]any{"code": analysis.CodeInvalidArgument, "message": message},
	})
}

// readBody treats an empty body as "{}" so every field takes its default.
func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

// decode reads, parses and validates a request body into dst. It writes the
// 400 response itself and reports false on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	blob, err := readBody(r)
	if err != nil {
		invalidRequest(w, "read body: "+err.Error())
		return false
	}
	if err := json.Unmarshal(blob, dst); err != nil {
		invalidRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	if err := validateStruct(dst); err != nil {
		invalidRequest(w, err.Error())
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{"ok": true, "time": s.cfg.Clock().UTC().Format(time.RFC3339)}
	if s.cfg.Listings != nil {
		n, err := s.cfg.Listings.Count(r.Context())
		if err != nil {
			s.cfg.Logger.Warn("health check: count listings", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": "listing store unavailable"})
			return
		}
		payload["properties"] = n
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleLimits(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.Limiter == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"ok": false})
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Limiter.Remaining())
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.Cache == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"ok": false})
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Cache.Stats())
}

// handleCacheInvalidate drops entries matching ?pattern=, or everything when
// the pattern is absent.
func (s *Server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Cache == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"ok": false})
		return
	}
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		removed := s.cfg.Cache.Stats().Size
		s.cfg.Cache.Clear()
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "removed": removed})
		return
	}
	removed := s.cfg.Cache.InvalidatePattern(pattern)
	s.cfg.Logger.Info("cache entries invalidated", zap.String("pattern", pattern), zap.Int("removed", removed))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "removed": removed})
}
