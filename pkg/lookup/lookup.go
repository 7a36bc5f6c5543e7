// Package lookup implements the cache-aside orchestration for vehicle
// catalog queries.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vecat-io/vecat/pkg/cache"
	"github.com/vecat-io/vecat/pkg/models"
	"github.com/vecat-io/vecat/pkg/provider"
)

// DefaultFetchTimeout bounds one provider fetch. Catalog actors can run for
// minutes, so the ceiling is deliberately high.
const DefaultFetchTimeout = 600 * time.Second

const tracerName = "github.com/vecat-io/vecat/pkg/lookup"

var (
	// ErrInvalidQuery marks structurally invalid queries. The wrapped cause
	// carries the field-level detail.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrProviderFailure marks provider transport or execution failures.
	ErrProviderFailure = errors.New("provider lookup failed")
)

// Resolver coordinates one cache-aside lookup per call: derive the key, try
// the store, on a miss fetch from the provider and populate the store. It is
// stateless between calls and safe for concurrent use. Concurrent misses for
// the same key each call the provider; the last populate wins.
type Resolver struct {
	store        cache.Store
	prov         provider.Provider
	fetchTimeout time.Duration
}

// New creates a Resolver. A non-positive fetchTimeout selects
// DefaultFetchTimeout.
func New(store cache.Store, prov provider.Provider, fetchTimeout time.Duration) *Resolver {
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &Resolver{store: store, prov: prov, fetchTimeout: fetchTimeout}
}

// ProviderName returns the label of the configured provider, used by callers
// that must report a provider outcome without a Result.
func (r *Resolver) ProviderName() string {
	return r.prov.Name()
}

// Resolve answers a vehicle query. Hits are terminal: the provider is never
// consulted. A store read failure degrades to a miss, and a store write
// failure never fails the request. Errors are ErrInvalidQuery or
// ErrProviderFailure; a provider answer with zero records is a Result with
// Empty set, not an error.
func (r *Resolver) Resolve(ctx context.Context, q models.Query) (models.Result, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "lookup.resolve")
	defer span.End()

	if err := q.Validate(); err != nil {
		return models.Result{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	key := cache.Key(q.Make, q.Model, q.Year)
	span.SetAttributes(attribute.String("vehicle.cache_key", key))

	payload, found, err := r.store.Get(ctx, key)
	if err != nil {
		// Fail open: an unreachable store degrades to a miss.
		log.Printf("cache get %s failed, treating as miss: %v", key, err)
	}
	if found {
		span.SetAttributes(attribute.String("vehicle.source", models.SourceCache))
		return models.Result{Source: models.SourceCache, Key: key, Data: payload}, nil
	}

	// The provider call and the populate write run to completion even if
	// the caller disconnects. Only the fetch ceiling bounds them.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout)
	defer cancel()

	year, _ := q.ParsedYear() // cannot fail past Validate

	records, err := r.prov.FetchVehicleData(fetchCtx, q.Make, q.Model, year)
	if err != nil {
		span.RecordError(err)
		return models.Result{}, fmt.Errorf("%w: %w", ErrProviderFailure, err)
	}

	span.SetAttributes(
		attribute.String("vehicle.source", r.prov.Name()),
		attribute.Int("vehicle.records", len(records)),
	)

	if len(records) == 0 {
		// Empty answers are never cached so a later retry asks again.
		return models.Result{Source: r.prov.Name(), Key: key, Empty: true}, nil
	}

	data, err := json.Marshal(records)
	if err != nil {
		return models.Result{}, fmt.Errorf("%w: encode records: %w", ErrProviderFailure, err)
	}

	if err := r.store.Put(fetchCtx, key, data); err != nil {
		// Best effort: the payload is already in hand.
		log.Printf("cache put %s failed: %v", key, err)
	}

	return models.Result{Source: r.prov.Name(), Key: key, Data: data}, nil
}
