package worker

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Progress counts resolved records and logs at most once per interval.
// A nil *Progress is valid and does nothing.
type Progress struct {
	total  int
	done   atomic.Int64
	every  rate.Sometimes
	logger zerolog.Logger
}

// NewProgress creates a progress reporter for total records
func NewProgress(total int, interval time.Duration, logger zerolog.Logger) *Progress {
	if interval <= 0 {
		interval = time.Second
	}
	return &Progress{
		total:  total,
		every:  rate.Sometimes{Interval: interval},
		logger: logger,
	}
}

// Add records n more resolved records
func (p *Progress) Add(n int) {
	if p == nil {
		return
	}
	done := p.done.Add(int64(n))
	p.every.Do(func() {
		p.logger.Info().
			Int64("resolved", done).
			Int("total", p.total).
			Msg("resolving records")
	})
}

// Done returns the number of records resolved so far
func (p *Progress) Done() int {
	if p == nil {
		return 0
	}
	return int(p.done.Load())
}
