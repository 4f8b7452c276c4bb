package sht3x

// Timestamps are milliseconds from a monotonic clock held in a uint64.
//
// Every comparison below works on the difference of two timestamps taken
// modulo 2^64. Go defines unsigned overflow as wrapping, so a clock that
// rolls over past math.MaxUint64 keeps producing correct elapsed times as
// long as the two instants are less than 2^63 ms apart.

const (
	// DefaultSettleMs is the time the sensor needs after a single shot
	// command before the measurement can be read.
	DefaultSettleMs uint64 = 15
	// DefaultTimeoutMs bounds the wait for a complete response, counted from
	// the first read request.
	DefaultTimeoutMs uint64 = 20
)

// Elapsed returns now-since modulo 2^64.
func Elapsed(now, since uint64) uint64 {
	return now - since
}

// SettleElapsed reports whether settleMs have passed since the command was
// sent.
func SettleElapsed(now, sentAt, settleMs uint64) bool {
	return Elapsed(now, sentAt) >= settleMs
}

// ResponseDeadline returns the instant a response requested at start times
// out. The sum wraps modulo 2^64.
func ResponseDeadline(start, timeoutMs uint64) uint64 {
	return start + timeoutMs
}

// ResponseTimedOut reports whether now is at or past deadline. The signed
// view of the modular difference orders the two instants across a
// wraparound.
func ResponseTimedOut(now, deadline uint64) bool {
	return int64(now-deadline) >= 0
}
