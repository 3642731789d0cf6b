package window

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// grid is the tumbling boundary sequence anchor + n*period, n >= 0.
type grid struct {
	anchor time.Time
	period time.Duration
}

func (g grid) at(n int64) (time.Time, error) {
	if n < 0 || (n > 0 && n > math.MaxInt64/int64(g.period)) {
		return time.Time{}, errors.Errorf("boundary %d of period %s overflows", n, g.period)
	}
	instant := g.anchor.Add(time.Duration(n) * g.period)
	if instant.Before(g.anchor) {
		return time.Time{}, errors.Errorf("boundary %d of period %s overflows %s", n, g.period, g.anchor)
	}
	return instant, nil
}

// indexAfter returns the smallest n whose boundary lies strictly after t.
func (g grid) indexAfter(t time.Time) int64 {
	elapsed := t.Sub(g.anchor)
	if elapsed < 0 {
		return 0
	}
	return int64(elapsed/g.period) + 1
}
