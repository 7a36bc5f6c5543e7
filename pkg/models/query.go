package models

import (
	"errors"
	"strconv"
	"strings"
)

// Validation errors returned by Query.Validate.
var (
	ErrMissingMake    = errors.New("make is required")
	ErrMissingModel   = errors.New("model is required")
	ErrMissingYear    = errors.New("year is required")
	ErrYearNotInteger = errors.New("year must be a valid integer")
)

// Query identifies one vehicle-catalog lookup. Year is carried as the raw
// request literal because the cache key preserves it verbatim; ParsedYear
// returns the integer form sent to the provider.
type Query struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  string `json:"year"`
}

// Validate checks structural validity: make and model must be non-empty
// after trimming, and year must parse as an integer. No range checks.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Make) == "" {
		return ErrMissingMake
	}
	if strings.TrimSpace(q.Model) == "" {
		return ErrMissingModel
	}
	if strings.TrimSpace(q.Year) == "" {
		return ErrMissingYear
	}
	if _, err := q.ParsedYear(); err != nil {
		return ErrYearNotInteger
	}
	return nil
}

// ParsedYear converts the year literal to an integer. Surrounding whitespace
// is tolerated here even though the cache key keeps the literal as given.
func (q Query) ParsedYear() (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(q.Year))
	if err != nil {
		return 0, ErrYearNotInteger
	}
	return year, nil
}
