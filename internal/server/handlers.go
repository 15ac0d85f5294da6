package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/overshare-io/overshare/internal/analyze"
	"github.com/overshare-io/overshare/internal/annotate"
	"github.com/overshare-io/overshare/internal/history"
	"github.com/overshare-io/overshare/internal/taxonomy"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	}
	if r.URL.Query().Get("detail") == "true" {
		components := map[string]string{"scanner": "ok"}
		if s.classifierEnabled {
			components["classifier"] = "ok"
		} else {
			components["classifier"] = "disabled"
		}
		if s.historyStore == nil {
			components["history"] = "disabled"
		} else {
			components["history"] = "ok"
		}
		resp["components"] = components
	}
	writeJSON(w, http.StatusOK, resp)
}

type analyzeRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode"`
}

type analyzeResponse struct {
	ID           string                  `json:"id,omitempty"`
	Mode         string                  `json:"mode"`
	Result       *analyze.AnalysisResult `json:"result"`
	DisplaySpans []annotate.Span         `json:"display_spans"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}
	if len(req.Text) > s.maxPostChars {
		writeError(w, http.StatusBadRequest, "invalid_request",
			"text exceeds maximum length of "+strconv.Itoa(s.maxPostChars))
		return
	}
	mode, err := analyze.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result := s.analyzer.Analyze(r.Context(), req.Text, mode)

	resp := analyzeResponse{
		Mode:   string(mode),
		Result: result,
		// Reconciliation is idempotent, so re-running it at render time is
		// safe and keeps the display contract independent of the assembler.
		DisplaySpans: annotate.Reconcile(result.Spans, len(req.Text)),
	}

	if s.historyStore != nil {
		rec := &history.Record{Mode: string(mode), Post: req.Text, Result: result}
		if err := s.historyStore.Save(r.Context(), rec); err != nil {
			log.Warn().Err(err).Msg("history_save_failed")
		} else {
			resp.ID = rec.ID
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type categoryInfo struct {
	Name        taxonomy.Category `json:"name"`
	Explanation string            `json:"explanation"`
	Color       string            `json:"color"`
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	categories := make([]categoryInfo, 0, len(taxonomy.All()))
	for _, c := range taxonomy.All() {
		categories = append(categories, categoryInfo{
			Name:        c,
			Explanation: taxonomy.DefaultExplanation(c),
			Color:       taxonomy.Color(c),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if s.historyStore == nil {
		writeError(w, http.StatusNotFound, "not_found", "history is disabled")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}
	records, err := s.historyStore.List(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("history_list_error")
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	if s.historyStore == nil {
		writeError(w, http.StatusNotFound, "not_found", "history is disabled")
		return
	}
	id := chi.URLParam(r, "id")
	rec, err := s.historyStore.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "no record with id "+id)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("history_get_error")
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
