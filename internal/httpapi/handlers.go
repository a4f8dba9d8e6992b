package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/joelkehle/housing-analyst/internal/report"
)

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var body summarizeBody
	if !decode(w, r, &body) {
		return
	}
	res, err := s.cfg.Analyzer.Summarize(r.Context(), body.toRequest())
	s.respond(w, res, err)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var body recommendBody
	if !decode(w, r, &body) {
		return
	}
	res, err := s.cfg.Analyzer.Recommend(r.Context(), body.toRequest())
	s.respond(w, res, err)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var body compareBody
	if !decode(w, r, &body) {
		return
	}
	res, err := s.cfg.Analyzer.Compare(r.Context(), body.toRequest())
	s.respond(w, res, err)
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	var body marketBody
	if !decode(w, r, &body) {
		return
	}
	res, err := s.cfg.Analyzer.AnalyzeMarket(r.Context(), body.toRequest())
	s.respond(w, res, err)
}

func (s *Server) respond(w http.ResponseWriter, res any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

var reportTitles = map[string]string{
	"summarize":       "Market Summary",
	"recommend":       "Recommendations",
	"compare":         "Property Comparison",
	"market-analysis": "Market Analysis",
}

// handleReport runs the same analysis as the JSON route named by {kind} and
// renders it as HTML, or as Markdown with ?format=markdown.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	title, ok := reportTitles[kind]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": map[string]any{
			"code": "not_found", "message": "unknown report kind " + kind,
		}})
		return
	}

	res, err := s.runKind(w, r, kind)
	if errors.Is(err, errResponded) {
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	md, err := report.Markdown(res, s.cfg.Clock())
	if err != nil {
		writeError(w, err)
		return
	}
	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(md))
		return
	}
	page, err := report.HTML(md, title)
	if err != nil {
		s.cfg.Logger.Error("render report", zap.String("kind", kind), zap.Error(err))
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

// errResponded means decode already wrote a 400 response.
var errResponded = errors.New("response already written")

func (s *Server) runKind(w http.ResponseWriter, r *http.Request, kind string) (any, error) {
	ctx := r.Context()
	switch kind {
	case "summarize":
		var body summarizeBody
		if !decode(w, r, &body) {
			return nil, errResponded
		}
		return asAny(s.cfg.Analyzer.Summarize(ctx, body.toRequest()))
	case "recommend":
		var body recommendBody
		if !decode(w, r, &body) {
			return nil, errResponded
		}
		return asAny(s.cfg.Analyzer.Recommend(ctx, body.toRequest()))
	case "compare":
		var body compareBody
		if !decode(w, r, &body) {
			return nil, errResponded
		}
		return asAny(s.cfg.Analyzer.Compare(ctx, body.toRequest()))
	default:
		var body marketBody
		if !decode(w, r, &body) {
			return nil, errResponded
		}
		return asAny(s.cfg.Analyzer.AnalyzeMarket(ctx, body.toRequest()))
	}
}

// asAny keeps a nil *T from turning into a non-nil interface.
func asAny[T any](res *T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return res, nil
}
