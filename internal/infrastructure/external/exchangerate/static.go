package exchangerate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-approval/internal/application/port"
)

// Static serves rates from a fixed table, keyed by "FROM/TO". Useful for
// deployments with contractually pinned rates and for tests.
type Static struct {
	mu    sync.RWMutex
	rates map[string]decimal.Decimal
}

// NewStatic creates a static provider from a pair->rate table
func NewStatic(rates map[string]decimal.Decimal) *Static {
	copied := make(map[string]decimal.Decimal, len(rates))
	for pair, rate := range rates {
		copied[pair] = rate
	}
	return &Static{rates: copied}
}

// Rate returns the configured rate for the pair
func (s *Static) Rate(_ context.Context, from, to string, _ time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rate, ok := s.rates[pairKey(from, to)]
	if !ok {
		return decimal.Zero, fmt.Errorf("no configured rate for %s->%s", from, to)
	}
	return rate, nil
}

// SetRate adds or replaces a pair's rate
func (s *Static) SetRate(from, to string, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[pairKey(from, to)] = rate
}

func pairKey(from, to string) string {
	return from + "/" + to
}

// Verify interface compliance
var _ port.RateProvider = (*Static)(nil)
