package abuse

import "time"

// Record counts verification failures for one client identity within the
// current sliding window. Created lazily on first failure; evicted once the
// window elapses.
type Record struct {
	ClientKey    string
	WindowStart  time.Time
	FailureCount int
}

// Expired reports whether the record's window has fully elapsed.
func (r *Record) Expired(now time.Time, window time.Duration) bool {
	return !now.Before(r.WindowStart.Add(window))
}
