package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/vecat-io/vecat/pkg/models"
)

type fakeStore struct {
	data   map[string]json.RawMessage
	getErr error
	putErr error
	gets   int
	puts   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]json.RawMessage)}
}

func (f *fakeStore) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	f.gets++
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	payload, ok := f.data[key]
	return payload, ok, nil
}

func (f *fakeStore) Put(_ context.Context, key string, data json.RawMessage) error {
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	f.data[key] = data
	return nil
}

func (f *fakeStore) Stats(context.Context) (models.CacheStats, error) {
	return models.CacheStats{}, nil
}

func (f *fakeStore) Clear(context.Context) (int64, error) {
	n := int64(len(f.data))
	f.data = make(map[string]json.RawMessage)
	return n, nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }

type fakeProvider struct {
	records []json.RawMessage
	err     error

	calls     int
	gotMake   string
	gotModel  string
	gotYear   int
	gotCtxErr error
}

func (f *fakeProvider) FetchVehicleData(ctx context.Context, make, model string, year int) ([]json.RawMessage, error) {
	f.calls++
	f.gotMake, f.gotModel, f.gotYear = make, model, year
	f.gotCtxErr = ctx.Err()
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeProvider) Name() string { return "fake_api" }

func record(s string) json.RawMessage { return json.RawMessage(s) }

func TestResolveValidationShortCircuits(t *testing.T) {
	store := newFakeStore()
	prov := &fakeProvider{}
	r := New(store, prov, 0)

	_, err := r.Resolve(context.Background(), models.Query{Make: "AUDI", Model: "A4", Year: "not-a-number"})
	if !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
	if !errors.Is(err, models.ErrYearNotInteger) {
		t.Errorf("error should carry the field detail, got %v", err)
	}
	if store.gets != 0 || prov.calls != 0 {
		t.Error("invalid queries must not touch the store or the provider")
	}
}

func TestResolveCacheHit(t *testing.T) {
	store := newFakeStore()
	store.data["AUDI_A4_2020"] = record(`[{"part":"brake-pad"}]`)
	prov := &fakeProvider{}
	r := New(store, prov, 0)

	res, err := r.Resolve(context.Background(), models.Query{Make: "Audi ", Model: " a4", Year: "2020"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != models.SourceCache {
		t.Errorf("expected cache source, got %s", res.Source)
	}
	if res.Key != "AUDI_A4_2020" {
		t.Errorf("unexpected key: %s", res.Key)
	}
	if string(res.Data) != `[{"part":"brake-pad"}]` {
		t.Errorf("hit should return stored bytes verbatim, got %s", res.Data)
	}
	if prov.calls != 0 {
		t.Error("provider must not be consulted on a hit")
	}
}

func TestResolveMissPopulatesCache(t *testing.T) {
	store := newFakeStore()
	prov := &fakeProvider{records: []json.RawMessage{record(`{"part":"brake-pad"}`)}}
	r := New(store, prov, 0)

	res, err := r.Resolve(context.Background(), models.Query{Make: "Audi ", Model: "A4", Year: "2020"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != "fake_api" {
		t.Errorf("expected provider source, got %s", res.Source)
	}
	if string(res.Data) != `[{"part":"brake-pad"}]` {
		t.Errorf("unexpected payload: %s", res.Data)
	}

	// The provider receives the raw make/model and the parsed year.
	if prov.gotMake != "Audi " || prov.gotModel != "A4" || prov.gotYear != 2020 {
		t.Errorf("unexpected provider args: %q %q %d", prov.gotMake, prov.gotModel, prov.gotYear)
	}

	stored, ok := store.data["AUDI_A4_2020"]
	if !ok {
		t.Fatal("miss should populate the cache")
	}
	if string(stored) != `[{"part":"brake-pad"}]` {
		t.Errorf("unexpected stored payload: %s", stored)
	}
}

func TestResolveIdempotentAfterPopulate(t *testing.T) {
	store := newFakeStore()
	prov := &fakeProvider{records: []json.RawMessage{record(`{"part":"brake-pad"}`)}}
	r := New(store, prov, 0)
	q := models.Query{Make: "AUDI", Model: "A4", Year: "2020"}

	first, err := r.Resolve(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Resolve(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}

	if prov.calls != 1 {
		t.Errorf("expected exactly one provider call, got %d", prov.calls)
	}
	if second.Source != models.SourceCache {
		t.Errorf("repeat query should hit the cache, got source %s", second.Source)
	}
	if string(first.Data) != string(second.Data) {
		t.Error("cached payload should be byte-identical to the populated one")
	}
}

func TestResolveEmptyResultNotCached(t *testing.T) {
	store := newFakeStore()
	prov := &fakeProvider{records: nil}
	r := New(store, prov, 0)
	q := models.Query{Make: "AUDI", Model: "A4", Year: "2020"}

	res, err := r.Resolve(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Empty {
		t.Error("zero records should mark the result empty")
	}
	if res.Source != "fake_api" {
		t.Errorf("empty results are provider outcomes, got source %s", res.Source)
	}
	if store.puts != 0 {
		t.Error("empty results must not be cached")
	}

	// A retry asks the provider again.
	if _, err := r.Resolve(context.Background(), q); err != nil {
		t.Fatal(err)
	}
	if prov.calls != 2 {
		t.Errorf("expected a second provider call, got %d", prov.calls)
	}
}

func TestResolveProviderError(t *testing.T) {
	store := newFakeStore()
	prov := &fakeProvider{err: errors.New("actor run FAILED")}
	r := New(store, prov, 0)

	_, err := r.Resolve(context.Background(), models.Query{Make: "AUDI", Model: "A4", Year: "2020"})
	if !errors.Is(err, ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}
	if store.puts != 0 {
		t.Error("provider failures must not write to the cache")
	}
}

func TestResolveStoreReadFailOpen(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("connection refused")
	prov := &fakeProvider{records: []json.RawMessage{record(`{"id":1}`)}}
	r := New(store, prov, 0)

	res, err := r.Resolve(context.Background(), models.Query{Make: "AUDI", Model: "A4", Year: "2020"})
	if err != nil {
		t.Fatalf("store read failure should degrade to a miss, got %v", err)
	}
	if res.Source != "fake_api" {
		t.Errorf("expected provider source, got %s", res.Source)
	}
	if prov.calls != 1 {
		t.Errorf("expected one provider call, got %d", prov.calls)
	}
}

func TestResolveStoreWriteBestEffort(t *testing.T) {
	store := newFakeStore()
	store.putErr = errors.New("disk full")
	prov := &fakeProvider{records: []json.RawMessage{record(`{"id":1}`)}}
	r := New(store, prov, 0)

	res, err := r.Resolve(context.Background(), models.Query{Make: "AUDI", Model: "A4", Year: "2020"})
	if err != nil {
		t.Fatalf("a failed cache write must not fail the request, got %v", err)
	}
	if string(res.Data) != `[{"id":1}]` {
		t.Errorf("payload should be returned despite the write failure, got %s", res.Data)
	}
	if store.puts != 1 {
		t.Error("the write should still have been attempted")
	}
}

func TestResolveCompletesAfterCallerDisconnect(t *testing.T) {
	store := newFakeStore()
	prov := &fakeProvider{records: []json.RawMessage{record(`{"id":1}`)}}
	r := New(store, prov, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // caller is already gone

	res, err := r.Resolve(ctx, models.Query{Make: "AUDI", Model: "A4", Year: "2020"})
	if err != nil {
		t.Fatal(err)
	}
	if prov.gotCtxErr != nil {
		t.Error("the provider context must not inherit caller cancellation")
	}
	if store.puts != 1 {
		t.Error("the populate write should still happen")
	}
	if res.Source != "fake_api" {
		t.Errorf("unexpected source: %s", res.Source)
	}
}

func TestProviderName(t *testing.T) {
	r := New(newFakeStore(), &fakeProvider{}, 0)
	if r.ProviderName() != "fake_api" {
		t.Errorf("unexpected provider name: %s", r.ProviderName())
	}
}
