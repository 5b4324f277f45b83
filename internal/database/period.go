package database

import (
	"fmt"
	"time"
)

// GetToday returns today's date as YYYY-MM-DD.
func GetToday() string {
	return time.Now().Format("2006-01-02")
}

// FormatPeriodDisplay formats a time-bucket label for human-readable display.
// Week (the Monday's date, "2024-01-15"): "Week of Jan 15, 2024"
// Month ("2024-01"): "Jan 2024"
// Anything else is returned unchanged.
func FormatPeriodDisplay(period string) string {
	if d, err := time.Parse("2006-01-02", period); err == nil {
		return fmt.Sprintf("Week of %s", d.Format("Jan 02, 2006"))
	}
	if d, err := time.Parse("2006-01", period); err == nil {
		return d.Format("Jan 2006")
	}
	return period
}
