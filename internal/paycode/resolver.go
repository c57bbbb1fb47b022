package paycode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/rgehrsitz/cdnpayroll/internal/logging"
	"golang.org/x/sync/singleflight"
)

// ErrNoFetcher is returned by a TieredSource with no remote configured.
var ErrNoFetcher = errors.New("no pay code fetcher configured")

// Tier names where a resolved catalogue came from
type Tier string

const (
	TierRemote  Tier = "remote"
	TierCache   Tier = "cache"
	TierDefault Tier = "default"
)

// Resolution is a resolved catalogue filtered to codes available at the resolution time.
type Resolution struct {
	Codes    []domain.PayCode `json:"codes"`
	Tier     Tier             `json:"tier"`
	Warnings []string         `json:"warnings,omitempty"`
}

// Lookup finds a code by name, ignoring case
func (r Resolution) Lookup(code string) (domain.PayCode, bool) {
	for _, pc := range r.Codes {
		if strings.EqualFold(pc.Code, code) {
			return pc, true
		}
	}
	return domain.PayCode{}, false
}

// DefaultFetchTimeout bounds a shared remote fetch once it is detached from its callers.
const DefaultFetchTimeout = 30 * time.Second

// Resolver resolves the catalogue remote → cache → defaults. Concurrent
// remote fetches are collapsed into one.
type Resolver struct {
	source       PayCodeSource
	group        singleflight.Group
	logger       logging.Logger
	fetchTimeout time.Duration
}

// NewResolver creates a resolver over a source
func NewResolver(source PayCodeSource, logger logging.Logger) *Resolver {
	return &Resolver{source: source, logger: logging.OrNop(logger), fetchTimeout: DefaultFetchTimeout}
}

// Resolve returns the catalogue of codes available at the given time.
// It only fails when ctx is cancelled; every other failure falls through to the next tier.
func (r *Resolver) Resolve(ctx context.Context, at time.Time) (Resolution, error) {
	var warnings []string

	codes, err := r.fetch(ctx)
	if err == nil {
		if werr := r.source.WriteCache(ctx, codes); werr != nil {
			r.logger.Warnf("pay code cache write failed: %v", werr)
			warnings = append(warnings, "pay code cache could not be updated")
		}
		return newResolution(codes, TierRemote, at, warnings), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Resolution{}, fmt.Errorf("resolve pay codes: %w", ctxErr)
	}
	if !errors.Is(err, ErrNoFetcher) {
		r.logger.Warnf("pay code fetch failed, trying cache: %v", err)
		warnings = append(warnings, "pay code service unavailable")
	}

	cached, ok, cerr := r.source.ReadCache(ctx)
	switch {
	case cerr != nil:
		r.logger.Warnf("pay code cache read failed, using defaults: %v", cerr)
		warnings = append(warnings, "pay code cache unavailable")
	case ok:
		return newResolution(cached, TierCache, at, warnings), nil
	}

	warnings = append(warnings, "using built-in default pay codes")
	return newResolution(r.source.Defaults(), TierDefault, at, warnings), nil
}

// fetch joins or starts the shared remote fetch. The fetch outlives any one
// caller's cancellation so callers that joined it still get its result.
func (r *Resolver) fetch(ctx context.Context) ([]domain.PayCode, error) {
	ch := r.group.DoChan("paycodes", func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout)
		defer cancel()
		return r.source.Fetch(fctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.PayCode), nil
	}
}

func newResolution(codes []domain.PayCode, tier Tier, at time.Time, warnings []string) Resolution {
	available := make([]domain.PayCode, 0, len(codes))
	for _, pc := range codes {
		if pc.IsAvailable(at) {
			available = append(available, pc)
		}
	}
	if len(codes) > 0 && len(available) == 0 {
		warnings = append(warnings, fmt.Sprintf("no pay codes in the %s catalogue are available", tier))
	}
	return Resolution{Codes: available, Tier: tier, Warnings: warnings}
}
