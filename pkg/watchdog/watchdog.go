// Package watchdog tracks when the last fresh reading was seen.
package watchdog

import (
	"sync/atomic"
	"time"
)

// Timer is safe for concurrent use. The zero value is not updated yet and
// reports elapsed for any interval once Now passes the epoch.
type Timer struct {
	epoch atomic.Int64
	// Now returns the current time; time.Now when nil.
	Now func() time.Time
}

func (tm *Timer) now() time.Time {
	if tm.Now != nil {
		return tm.Now()
	}
	return time.Now()
}

// Update marks a fresh event.
func (tm *Timer) Update() {
	tm.epoch.Store(tm.now().UnixMilli())
}

// Last returns the time of the last Update.
func (tm *Timer) Last() time.Time {
	return time.UnixMilli(tm.epoch.Load())
}

// IsElapsed reports whether more than interval passed since the last Update.
func (tm *Timer) IsElapsed(interval time.Duration) bool {
	et := tm.epoch.Load()
	return tm.now().UnixMilli() > et+interval.Milliseconds()
}
