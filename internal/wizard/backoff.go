package wizard

import "time"

// Backoff is the status polling schedule: a fixed Initial interval for the
// first GrowthAfter polls, then growth by Factor per poll, capped at Max.
type Backoff struct {
	Initial     time.Duration
	Max         time.Duration
	Factor      float64
	GrowthAfter int
}

func DefaultBackoff() Backoff {
	return Backoff{
		Initial:     time.Second,
		Max:         30 * time.Second,
		Factor:      1.5,
		GrowthAfter: 5,
	}
}

// Schedule tracks one polling loop. The first request is never delayed;
// Next returns the wait before the following one.
type Schedule struct {
	b        Backoff
	interval time.Duration
	polls    int
}

func (b Backoff) Schedule() *Schedule {
	if b.Initial <= 0 {
		b = DefaultBackoff()
	}
	return &Schedule{b: b, interval: b.Initial}
}

// Next records a completed non-terminal poll and returns the delay before the next one
func (s *Schedule) Next() time.Duration {
	s.polls++
	if s.polls > s.b.GrowthAfter {
		next := time.Duration(float64(s.interval) * s.b.Factor)
		if s.b.Max > 0 && next > s.b.Max {
			next = s.b.Max
		}
		s.interval = next
	}
	return s.interval
}
