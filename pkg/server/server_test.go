package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vecat-io/vecat/pkg/cache"
	"github.com/vecat-io/vecat/pkg/cache/sqlite"
	"github.com/vecat-io/vecat/pkg/config"
	"github.com/vecat-io/vecat/pkg/journal"
	"github.com/vecat-io/vecat/pkg/lookup"
	"github.com/vecat-io/vecat/pkg/models"
	"github.com/vecat-io/vecat/pkg/provider/apify"
)

// fakeApify answers actor runs immediately so tests never wait on polling.
type fakeApify struct {
	srv        *httptest.Server
	items      string
	datasetID  string
	failStart  bool
	startCalls int
}

func newFakeApify(t *testing.T) *fakeApify {
	t.Helper()
	f := &fakeApify{items: `[{"part":"brake-pad"}]`, datasetID: "ds1"}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v2/acts/"):
			f.startCalls++
			if f.failStart {
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, `{"error":{"type":"internal-error"}}`)
				return
			}
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"data":{"id":"run1","status":"SUCCEEDED","defaultDatasetId":%q}}`, f.datasetID)
		case strings.HasPrefix(r.URL.Path, "/v2/datasets/"):
			fmt.Fprint(w, f.items)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func setupServer(t *testing.T, f *fakeApify, j *journal.Journal) (*Server, cache.Store) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	client := apify.New(apify.Config{
		Token:        "test-token",
		ActorID:      "acme/tecdoc",
		BaseURL:      f.srv.URL,
		PollInterval: time.Millisecond,
	})
	resolver := lookup.New(store, client, 5*time.Second)

	return New(config.Default(), resolver, store, j), store
}

func getVehicleData(t *testing.T, srv *Server, query string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/vehicle-data"+query, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestVehicleDataEndToEnd(t *testing.T) {
	f := newFakeApify(t)
	srv, store := setupServer(t, f, nil)

	// First request misses and populates the cache.
	w := getVehicleData(t, srv, "?make=AUDI&model=A4&year=2020")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var first lookupResponse
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatal(err)
	}
	if first.Source != "apify_api" {
		t.Errorf("expected apify_api source, got %s", first.Source)
	}
	if string(first.Data) != `[{"part":"brake-pad"}]` {
		t.Errorf("unexpected payload: %s", first.Data)
	}
	if first.Query.Make != "AUDI" || first.Query.Model != "A4" || first.Query.Year != "2020" {
		t.Errorf("query echo mismatch: %+v", first.Query)
	}

	payload, found, err := store.Get(context.Background(), "AUDI_A4_2020")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("cache should hold the populated row")
	}
	if string(payload) != `[{"part":"brake-pad"}]` {
		t.Errorf("unexpected stored payload: %s", payload)
	}

	// Second identical request is served from the cache.
	w2 := getVehicleData(t, srv, "?make=AUDI&model=A4&year=2020")
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w2.Code, w2.Body.String())
	}

	var second lookupResponse
	if err := json.Unmarshal(w2.Body.Bytes(), &second); err != nil {
		t.Fatal(err)
	}
	if second.Source != "cache" {
		t.Errorf("expected cache source, got %s", second.Source)
	}
	if string(second.Data) != string(first.Data) {
		t.Error("cached payload should be byte-identical")
	}
	if f.startCalls != 1 {
		t.Errorf("expected exactly one provider run, got %d", f.startCalls)
	}
}

func TestVehicleDataMissingParam(t *testing.T) {
	f := newFakeApify(t)
	srv, _ := setupServer(t, f, nil)

	w := getVehicleData(t, srv, "?model=A4&year=2020")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error != "make is required" {
		t.Errorf("unexpected error message: %q", resp.Error)
	}
	if f.startCalls != 0 {
		t.Error("invalid queries must not reach the provider")
	}
}

func TestVehicleDataBadYear(t *testing.T) {
	f := newFakeApify(t)
	srv, _ := setupServer(t, f, nil)

	w := getVehicleData(t, srv, "?make=AUDI&model=A4&year=twenty")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error != "year must be a valid integer" {
		t.Errorf("unexpected error message: %q", resp.Error)
	}
}

func TestVehicleDataEmptyResult(t *testing.T) {
	f := newFakeApify(t)
	f.items = `[]`
	srv, store := setupServer(t, f, nil)

	w := getVehicleData(t, srv, "?make=AUDI&model=A4&year=2020")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["source"] != "apify_api" {
		t.Errorf("unexpected source: %v", body["source"])
	}
	if _, ok := body["data"]; ok {
		t.Error("empty results must not carry a data field")
	}
	if _, ok := body["query"]; ok {
		t.Error("empty results must not carry a query field")
	}

	if _, found, _ := store.Get(context.Background(), "AUDI_A4_2020"); found {
		t.Error("empty results must not be cached")
	}

	// A retry asks the provider again.
	_ = getVehicleData(t, srv, "?make=AUDI&model=A4&year=2020")
	if f.startCalls != 2 {
		t.Errorf("expected a second provider run, got %d", f.startCalls)
	}
}

func TestVehicleDataProviderError(t *testing.T) {
	f := newFakeApify(t)
	f.failStart = true
	srv, store := setupServer(t, f, nil)

	w := getVehicleData(t, srv, "?make=AUDI&model=A4&year=2020")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", w.Code, w.Body.String())
	}

	var resp statusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Source != "apify_api" {
		t.Errorf("unexpected source: %s", resp.Source)
	}

	if _, found, _ := store.Get(context.Background(), "AUDI_A4_2020"); found {
		t.Error("provider failures must not write to the cache")
	}
}

func TestVehicleDataMethodNotAllowed(t *testing.T) {
	f := newFakeApify(t)
	srv, _ := setupServer(t, f, nil)

	req := httptest.NewRequest(http.MethodPost, "/vehicle-data", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	f := newFakeApify(t)
	srv, _ := setupServer(t, f, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("unexpected health body: %s", w.Body.String())
	}
}

func TestNotFoundRoute(t *testing.T) {
	f := newFakeApify(t)
	srv, _ := setupServer(t, f, nil)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestRequestIDJournaled(t *testing.T) {
	f := newFakeApify(t)

	j, err := journal.New(models.JournalConfig{
		Enabled: true,
		DBPath:  filepath.Join(t.TempDir(), "journal.db"),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = j.Close() })

	srv, _ := setupServer(t, f, j)

	req := httptest.NewRequest(http.MethodGet, "/vehicle-data?make=AUDI&model=A4&year=2020", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") != "req-42" {
		t.Errorf("request id should be echoed, got %q", w.Header().Get("X-Request-ID"))
	}

	// Journaling is asynchronous; poll briefly.
	var entries []models.JournalEntry
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		entries, err = j.Query(context.Background(), models.JournalQueryOpts{RequestID: "req-42"})
		if err == nil && len(entries) == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 journal entry, got %d", len(entries))
	}
	e := entries[0]
	if e.CacheKey != "AUDI_A4_2020" || e.Source != "apify_api" || e.StatusCode != http.StatusOK {
		t.Errorf("unexpected journal entry: %+v", e)
	}
	if e.RecordCount != 1 {
		t.Errorf("expected 1 record counted, got %d", e.RecordCount)
	}
}

func TestGeneratedRequestID(t *testing.T) {
	f := newFakeApify(t)
	srv, _ := setupServer(t, f, nil)

	w := getVehicleData(t, srv, "?make=AUDI&model=A4&year=2020")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("a request id should be generated when the client sends none")
	}
}
