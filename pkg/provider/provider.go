// Package provider defines the contract for external vehicle-catalog
// sources.
package provider

import (
	"context"
	"encoding/json"
)

// Provider fetches vehicle records from an external catalog.
type Provider interface {
	// FetchVehicleData looks up records for a make/model/year combination.
	// An empty result with a nil error means the catalog had no matches,
	// which is distinct from a lookup failure.
	FetchVehicleData(ctx context.Context, make, model string, year int) ([]json.RawMessage, error)

	// Name labels responses assembled from this provider.
	Name() string
}
