package timeparser

import (
	"fmt"
	"time"
)

// ParseMeterTimestamp attempts to parse a reading timestamp with multiple formats.
// Formats without a zone are read as UTC.
func ParseMeterTimestamp(dateStr string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,             // 2025-12-29T10:30:45.123Z
		"2006-01-02T15:04:05.999999", // ISO without zone, as sent by web clients
		"2006-01-02 15:04:05",        // YYYY-MM-DD HH:mm:ss
		"02/01/2006 15:04:05",        // DD/MM/YYYY HH:mm:ss
		"02 15:04:05/01/2006",        // DD HH:mm:ss/MM/YYYY
		time.DateOnly,                // YYYY-MM-DD
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %w", dateStr, lastErr)
}

// IsWithinTolerance checks if the reading timestamp is within tolerance of received time
func IsWithinTolerance(readingTime, receivedTime time.Time, toleranceMinutes int) bool {
	diff := readingTime.Sub(receivedTime)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(toleranceMinutes)*time.Minute
}
