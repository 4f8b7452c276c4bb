package sht3x

import (
	"math"
	"testing"
)

func TestSettleElapsed(t *testing.T) {
	var tests = []struct {
		now, sent uint64
		want      bool
	}{
		{now: 100, sent: 100, want: false},
		{now: 114, sent: 100, want: false},
		{now: 115, sent: 100, want: true},
		{now: 1000, sent: 100, want: true},
		// Clock wrapped between command and check.
		{now: 9, sent: math.MaxUint64 - 4, want: false},
		{now: 10, sent: math.MaxUint64 - 4, want: true},
	}
	for _, test := range tests {
		if got := SettleElapsed(test.now, test.sent, DefaultSettleMs); got != test.want {
			t.Errorf("SettleElapsed(%d, %d) = %t, want %t", test.now, test.sent, got, test.want)
		}
	}
}

func TestResponseTimedOut(t *testing.T) {
	deadline := ResponseDeadline(100, DefaultTimeoutMs)
	if deadline != 120 {
		t.Fatalf("ResponseDeadline() = %d", deadline)
	}
	for now, want := range map[uint64]bool{100: false, 119: false, 120: true, 5000: true} {
		if got := ResponseTimedOut(now, deadline); got != want {
			t.Errorf("ResponseTimedOut(%d, %d) = %t, want %t", now, deadline, got, want)
		}
	}
}

func TestResponseTimedOutWraparound(t *testing.T) {
	start := uint64(math.MaxUint64 - 9)
	deadline := ResponseDeadline(start, DefaultTimeoutMs)
	if deadline != 10 {
		t.Fatalf("ResponseDeadline() = %d, want wrapped 10", deadline)
	}
	for _, now := range []uint64{start, math.MaxUint64, 0, 9} {
		if ResponseTimedOut(now, deadline) {
			t.Errorf("ResponseTimedOut(%d, %d) fired early", now, deadline)
		}
	}
	for _, now := range []uint64{10, 11, 1000} {
		if !ResponseTimedOut(now, deadline) {
			t.Errorf("ResponseTimedOut(%d, %d) did not fire", now, deadline)
		}
	}
}
