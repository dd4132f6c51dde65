package collector

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"QuoteSentinel/internal/model"
)

// Synthetic produces random-walk daily bars used when neither the upstream
// nor the store can serve a symbol. Output is never persisted.
type Synthetic struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSynthetic creates a generator; the same seed yields the same bars.
func NewSynthetic(seed int64) *Synthetic {
	return &Synthetic{rng: rand.New(rand.NewSource(seed))}
}

// Generate returns n calendar-day bars ending the day before now.
func (s *Synthetic) Generate(n int, now time.Time) []model.Bar {
	if n <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	base := s.rng.Float64()*200 + 50
	vol := s.rng.Float64()*1_000_000 + 500_000

	bars := make([]model.Bar, n)
	for i := range bars {
		base += (s.rng.Float64() - 0.5) * base * 0.02
		open := base
		high := open + s.rng.Float64()*open*0.03
		low := open - s.rng.Float64()*open*0.03
		close := low + s.rng.Float64()*(high-low)
		vol *= 0.8 + s.rng.Float64()*0.4

		c := round2(close)
		bars[i] = model.Bar{
			Date:   now.AddDate(0, 0, -(n - i)).Format(model.DateLayout),
			Open:   round2(open),
			High:   round2(high),
			Low:    round2(low),
			Close:  c,
			Volume: math.Floor(vol),
			Price:  c,
		}
	}
	return bars
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
