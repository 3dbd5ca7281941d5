package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/scmtools/textveil/internal/cache"
	"github.com/scmtools/textveil/internal/engine"
	"github.com/scmtools/textveil/internal/events"
)

const serverVersion = "0.1.0"

// anonymizeRequest is the POST /v1/anonymize body. The two booleans
// default to the server's engine configuration when omitted.
type anonymizeRequest struct {
	Text             string   `json:"text"`
	Targets          []string `json:"targets"`
	AnonymizeNumbers *bool    `json:"anonymize_numbers,omitempty"`
	CaseInsensitive  *bool    `json:"case_insensitive,omitempty"`
}

// canonicalRequest is the fully-resolved request; it doubles as the cache
// key material so identical effective requests share a cache slot.
type canonicalRequest struct {
	Text             string   `json:"text"`
	Targets          []string `json:"targets"`
	AnonymizeNumbers bool     `json:"anonymize_numbers"`
	CaseInsensitive  bool     `json:"case_insensitive"`
}

type anonymizeResponse struct {
	Text     string          `json:"text"`
	Entries  []*engine.Entry `json:"entries"`
	Keywords int             `json:"keywords"`
	Numbers  int             `json:"numbers"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleAnonymize runs the engine over one request body
func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&s.totalRequests, 1)
	start := time.Now()
	requestID := getRequestID(r.Context())
	log := s.logger.WithRequestID(requestID)

	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxBodyBytes)

	var req anonymizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	defaults := s.engineDefaults()
	resolved := canonicalRequest{
		Text:             req.Text,
		Targets:          req.Targets,
		AnonymizeNumbers: defaults.AnonymizeNumbers,
		CaseInsensitive:  defaults.CaseInsensitive,
	}
	if req.AnonymizeNumbers != nil {
		resolved.AnonymizeNumbers = *req.AnonymizeNumbers
	}
	if req.CaseInsensitive != nil {
		resolved.CaseInsensitive = *req.CaseInsensitive
	}

	if len(resolved.Targets) == 0 && !resolved.AnonymizeNumbers {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "nothing to anonymize: no targets and numeric anonymization disabled"})
		return
	}

	canonical, err := json.Marshal(resolved)
	if err != nil {
		log.Error("Failed to canonicalize request", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	if s.cache != nil {
		if payload, hit := s.cache.Get(r.Context(), cache.Key(canonical)); hit {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "hit")
			w.WriteHeader(http.StatusOK)
			w.Write(payload)
			s.broadcastAnonymize(requestID, r, nil, len(resolved.Text), true, time.Since(start))
			return
		}
	}

	eng := engine.New(engine.Config{
		CaseInsensitive:  resolved.CaseInsensitive,
		AnonymizeNumbers: resolved.AnonymizeNumbers,
	}, log.Logger)

	mapping := eng.BuildMapping(resolved.Targets, resolved.Text)
	resp := anonymizeResponse{
		Text:     eng.Apply(resolved.Text, mapping),
		Entries:  mapping.Entries(),
		Keywords: mapping.KeywordCount(),
		Numbers:  mapping.NumericCount(),
	}
	if resp.Entries == nil {
		resp.Entries = []*engine.Entry{}
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		log.Error("Failed to marshal response", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	if s.cache != nil {
		s.cache.Set(r.Context(), cache.Key(canonical), payload)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)

	s.broadcastAnonymize(requestID, r, mapping, len(resolved.Text), false, time.Since(start))
}

// broadcastAnonymize publishes a per-request event to dashboard clients.
func (s *Server) broadcastAnonymize(requestID string, r *http.Request, mapping *engine.Mapping, textBytes int, cacheHit bool, elapsed time.Duration) {
	if s.hub == nil {
		return
	}

	data := events.AnonymizeEvent{
		RequestID:    requestID,
		ClientIP:     getClientIP(r),
		TextBytes:    textBytes,
		CacheHit:     cacheHit,
		ProcessingMS: float64(elapsed.Microseconds()) / 1000.0,
	}
	if mapping != nil {
		data.Keywords = mapping.KeywordCount()
		data.Numbers = mapping.NumericCount()
	}

	s.hub.BroadcastEvent(events.Event{
		Type:      events.EventTypeAnonymize,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data:      data,
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	defaults := s.engineDefaults()
	info := map[string]interface{}{
		"name":              "textveil",
		"version":           serverVersion,
		"uptime":            time.Since(s.startTime).Round(time.Second).String(),
		"total_requests":    atomic.LoadInt64(&s.totalRequests),
		"case_insensitive":  defaults.CaseInsensitive,
		"anonymize_numbers": defaults.AnonymizeNumbers,
		"cache_enabled":     s.cache != nil,
		"store_enabled":     s.store != nil,
		"events_enabled":    s.hub != nil,
	}
	writeJSON(w, http.StatusOK, info)
}

// handleCacheStats reports hit/miss counters for the result cache
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

// handleRuns lists recently persisted run mappings
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	runs, err := s.store.RecentRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list runs", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list runs"})
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleRunEntries returns the persisted mapping for one run
func (s *Server) handleRunEntries(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["run_id"]

	rows, err := s.store.RunEntries(r.Context(), runID)
	if err != nil {
		s.logger.Error("Failed to load run", zap.String("run_id", runID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load run"})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
