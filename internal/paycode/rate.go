package paycode

import (
	"fmt"
	"time"

	"github.com/rgehrsitz/cdnpayroll/internal/domain"
)

// SelectEffectiveRate picks the rate in effect at the given date. When
// several rates cover the date the one with the latest EffectiveFrom wins.
func SelectEffectiveRate(rates []domain.EmployeeRate, at time.Time) (domain.EmployeeRate, error) {
	var (
		selected domain.EmployeeRate
		found    bool
	)
	for _, r := range rates {
		if !r.CoversDate(at) {
			continue
		}
		if !found || r.EffectiveFrom.After(selected.EffectiveFrom) {
			selected = r
			found = true
		}
	}
	if !found {
		return domain.EmployeeRate{}, fmt.Errorf("%w on %s", domain.ErrNoEffectiveRate, at.Format("2006-01-02"))
	}
	return selected, nil
}
