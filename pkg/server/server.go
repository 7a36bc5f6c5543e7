// Package server exposes the vehicle lookup service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vecat-io/vecat/pkg/cache"
	"github.com/vecat-io/vecat/pkg/config"
	"github.com/vecat-io/vecat/pkg/journal"
	"github.com/vecat-io/vecat/pkg/lookup"
	"github.com/vecat-io/vecat/pkg/models"
)

// Response messages for the lookup endpoint.
const (
	msgCacheHit  = "Data retrieved from the local cache (cache hit)."
	msgCacheMiss = "Data retrieved from the provider and stored in the cache (cache miss)."
	msgNoData    = "The lookup succeeded but no vehicle data matched the requested combination."
	msgProvider  = "Failed to communicate with the vehicle data provider. Check the service logs."
)

// Server is the vecat HTTP server.
type Server struct {
	cfg      *config.Config
	resolver *lookup.Resolver
	store    cache.Store
	journal  *journal.Journal
	mux      *http.ServeMux
}

// New creates a Server wired with all dependencies. The journal may be nil
// when journaling is disabled.
func New(cfg *config.Config, r *lookup.Resolver, store cache.Store, j *journal.Journal) *Server {
	s := &Server{
		cfg:      cfg,
		resolver: r,
		store:    store,
		journal:  j,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("/vehicle-data", s.handleVehicleData)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/", s.handleNotFound)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: otelhttp.NewHandler(s, "vecat"),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("vecat listening on %s", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

// lookupResponse is the 200 body for cache hits and populated misses.
type lookupResponse struct {
	Source  string          `json:"source"`
	Message string          `json:"message"`
	Query   models.Query    `json:"query"`
	Data    json.RawMessage `json:"data"`
}

// statusResponse is the body for empty results and provider failures.
type statusResponse struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleVehicleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reqStart := time.Now()
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)

	params := r.URL.Query()
	q := models.Query{
		Make:  params.Get("make"),
		Model: params.Get("model"),
		Year:  params.Get("year"),
	}

	result, err := s.resolver.Resolve(r.Context(), q)
	if err != nil {
		if errors.Is(err, lookup.ErrInvalidQuery) {
			writeError(w, http.StatusBadRequest, validationMessage(err))
			return
		}

		log.Printf("lookup %q %q %q failed: %v", q.Make, q.Model, q.Year, err)
		s.recordJournal(models.JournalEntry{
			RequestID:  requestID,
			Make:       q.Make,
			Model:      q.Model,
			Year:       q.Year,
			Source:     s.resolver.ProviderName(),
			StatusCode: http.StatusServiceUnavailable,
			LatencyMs:  time.Since(reqStart).Milliseconds(),
			CreatedAt:  time.Now().UTC(),
		})
		writeJSON(w, http.StatusServiceUnavailable, statusResponse{
			Source:  s.resolver.ProviderName(),
			Message: msgProvider,
		})
		return
	}

	latency := time.Since(reqStart).Milliseconds()

	if result.Empty {
		s.recordJournal(models.JournalEntry{
			RequestID:  requestID,
			CacheKey:   result.Key,
			Make:       q.Make,
			Model:      q.Model,
			Year:       q.Year,
			Source:     result.Source,
			StatusCode: http.StatusNotFound,
			LatencyMs:  latency,
			CreatedAt:  time.Now().UTC(),
		})
		writeJSON(w, http.StatusNotFound, statusResponse{
			Source:  result.Source,
			Message: msgNoData,
		})
		return
	}

	message := msgCacheMiss
	if result.Source == models.SourceCache {
		message = msgCacheHit
	}
	records := countRecords(result.Data)
	log.Printf("lookup %s -> %s (%d records, %dms)", result.Key, result.Source, records, latency)

	s.recordJournal(models.JournalEntry{
		RequestID:   requestID,
		CacheKey:    result.Key,
		Make:        q.Make,
		Model:       q.Model,
		Year:        q.Year,
		Source:      result.Source,
		StatusCode:  http.StatusOK,
		RecordCount: records,
		LatencyMs:   latency,
		CreatedAt:   time.Now().UTC(),
	})
	writeJSON(w, http.StatusOK, lookupResponse{
		Source:  result.Source,
		Message: message,
		Query:   q,
		Data:    result.Data,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

// recordJournal persists the entry off the request path.
func (s *Server) recordJournal(entry models.JournalEntry) {
	if s.journal == nil {
		return
	}
	go func() {
		if err := s.journal.Record(context.Background(), entry); err != nil {
			log.Printf("journal record error: %v", err)
		}
	}()
}

// validationMessage maps a validation failure to its field-level message.
func validationMessage(err error) string {
	for _, sentinel := range []error{
		models.ErrMissingMake,
		models.ErrMissingModel,
		models.ErrMissingYear,
		models.ErrYearNotInteger,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "invalid query"
}

// countRecords reports the element count when the payload is a JSON array,
// else zero. Payloads are opaque, so this is best effort.
func countRecords(data json.RawMessage) int {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return 0
	}
	return len(arr)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Error: message})
}
