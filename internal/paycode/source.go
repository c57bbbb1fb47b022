// Package paycode prices timesheet entries against pay-code rules and
// resolves the pay-code catalogue from its remote, cached, or built-in source.
package paycode

import (
	"context"

	"github.com/rgehrsitz/cdnpayroll/internal/domain"
)

// PayCodeSource is the three-tier catalogue source: a remote fetch, a cache
// of the last successful fetch, and a fixed default table.
type PayCodeSource interface {
	// Fetch retrieves the authoritative catalogue.
	Fetch(ctx context.Context) ([]domain.PayCode, error)

	// ReadCache returns the cached catalogue; ok is false on a cache miss.
	ReadCache(ctx context.Context) (codes []domain.PayCode, ok bool, err error)

	// WriteCache stores a freshly fetched catalogue.
	WriteCache(ctx context.Context, codes []domain.PayCode) error

	// Defaults returns the built-in catalogue. It never fails.
	Defaults() []domain.PayCode
}

// Cache stores a serialized catalogue between fetches
type Cache interface {
	Get(ctx context.Context) ([]domain.PayCode, bool, error)
	Set(ctx context.Context, codes []domain.PayCode) error
}

// Fetcher retrieves the authoritative catalogue
type Fetcher interface {
	Fetch(ctx context.Context) ([]domain.PayCode, error)
}

// TieredSource composes a Fetcher, an optional Cache, and a default table
// into a PayCodeSource. A nil Fetcher always fails; a nil Cache always misses.
type TieredSource struct {
	Fetcher  Fetcher
	Cache    Cache
	Fallback []domain.PayCode
}

// NewTieredSource creates a source with the built-in defaults as its fallback
func NewTieredSource(fetcher Fetcher, cache Cache) *TieredSource {
	return &TieredSource{Fetcher: fetcher, Cache: cache, Fallback: DefaultPayCodes()}
}

func (s *TieredSource) Fetch(ctx context.Context) ([]domain.PayCode, error) {
	if s.Fetcher == nil {
		return nil, ErrNoFetcher
	}
	return s.Fetcher.Fetch(ctx)
}

func (s *TieredSource) ReadCache(ctx context.Context) ([]domain.PayCode, bool, error) {
	if s.Cache == nil {
		return nil, false, nil
	}
	return s.Cache.Get(ctx)
}

func (s *TieredSource) WriteCache(ctx context.Context, codes []domain.PayCode) error {
	if s.Cache == nil {
		return nil
	}
	return s.Cache.Set(ctx, codes)
}

func (s *TieredSource) Defaults() []domain.PayCode {
	out := make([]domain.PayCode, len(s.Fallback))
	copy(out, s.Fallback)
	return out
}
