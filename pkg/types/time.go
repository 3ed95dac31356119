package types

import (
	"math"
	"time"
)

var (
	minNanosTime = time.Unix(0, math.MinInt64)
	maxNanosTime = time.Unix(0, math.MaxInt64)
)

// UnixNanos converts t to nanoseconds since the Unix epoch. ok is false when
// t falls outside the range an int64 nanosecond count can hold
// (roughly years 1677 through 2262), including the zero time.Time.
func UnixNanos(t time.Time) (nanos int64, ok bool) {
	if t.Before(minNanosTime) || t.After(maxNanosTime) {
		return 0, false
	}
	return t.UnixNano(), true
}
