package aggregate

import (
	"fmt"
	"time"
)

// Bucket is a calendar period used to group documents over time.
type Bucket int

const (
	// Week buckets start on Monday 00:00 UTC.
	Week Bucket = iota
	// Month buckets start on the first day of the month, 00:00 UTC.
	Month
)

func (b Bucket) String() string {
	switch b {
	case Week:
		return "week"
	case Month:
		return "month"
	}
	return fmt.Sprintf("bucket(%d)", int(b))
}

// ParseBucket parses "week" or "month".
func ParseBucket(name string) (Bucket, error) {
	switch name {
	case "week":
		return Week, nil
	case "month":
		return Month, nil
	}
	return 0, fmt.Errorf("unknown time bucket %q", name)
}

// Start returns the start of the bucket containing t, in UTC.
func (b Bucket) Start(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch b {
	case Month:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		offset := (int(day.Weekday()) + 6) % 7 // days since Monday
		return day.AddDate(0, 0, -offset)
	}
}

// Label formats the bucket containing t: the Monday's date for weeks
// ("2024-01-15"), year and month for months ("2024-01"). Labels sort in
// chronological order.
func (b Bucket) Label(t time.Time) string {
	start := b.Start(t)
	if b == Month {
		return start.Format("2006-01")
	}
	return start.Format("2006-01-02")
}
