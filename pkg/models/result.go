package models

import "encoding/json"

// SourceCache labels answers served from the local cache. Provider-sourced
// answers are labeled with the provider's own name (see provider.Provider).
// Both labels are part of the HTTP response contract.
const SourceCache = "cache"

// Result is the orchestrator's outcome for one resolved query.
type Result struct {
	// Source reports where Data came from: SourceCache or the provider name.
	Source string `json:"source"`
	// Key is the cache key derived for the query.
	Key string `json:"key"`
	// Data is the opaque payload - a JSON array of provider records. For
	// cache hits it is the stored bytes verbatim.
	Data json.RawMessage `json:"data,omitempty"`
	// Empty is set on the provider path when the run succeeded but matched
	// no records. Empty results are never cached.
	Empty bool `json:"empty,omitempty"`
}
