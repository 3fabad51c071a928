package validator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/tools/timeparser"
)

// ReadingInput is a reading as received over HTTP or from the ingest queue
type ReadingInput struct {
	Meter string
	Value string
	// Date is optional; receivedAt is used when empty.
	Date string
}

// Reading is a validated ReadingInput
type Reading struct {
	Meter     domain.MeterType
	Value     float64
	Timestamp time.Time
}

// Validator handles reading validation with configurable parameters
type Validator struct {
	timestampToleranceMinutes int
}

// NewValidator creates a new validator with the specified tolerance
func NewValidator(timestampToleranceMinutes int) *Validator {
	return &Validator{
		timestampToleranceMinutes: timestampToleranceMinutes,
	}
}

// ValidateReading checks every field and reports all problems at once as a *domain.ValidationError.
func (v *Validator) ValidateReading(in ReadingInput, receivedAt time.Time) (Reading, error) {
	fields := domain.FieldErrors{}
	out := Reading{Timestamp: receivedAt.UTC()}

	meter, ok := domain.ParseMeterType(strings.TrimSpace(in.Meter))
	if !ok {
		fields.Add("meter_type", "must be electricity or water")
	}
	out.Meter = meter

	// Strip square brackets if present
	raw := strings.TrimSpace(strings.Trim(strings.TrimSpace(in.Value), "[]"))
	switch value, err := strconv.ParseFloat(raw, 64); {
	case raw == "":
		fields.Add("reading_value", "is required")
	case err != nil || math.IsNaN(value) || math.IsInf(value, 0):
		fields.Add("reading_value", "must be a number")
	case value < 0:
		fields.Add("reading_value", "must not be negative")
	default:
		out.Value = value
	}

	if date := strings.TrimSpace(in.Date); date != "" {
		readingTime, err := timeparser.ParseMeterTimestamp(date)
		switch {
		case err != nil:
			fields.Add("date", "invalid timestamp format")
		case !timeparser.IsWithinTolerance(readingTime, receivedAt, v.timestampToleranceMinutes):
			fields.Add("date", fmt.Sprintf("outside tolerance window (±%d minutes)", v.timestampToleranceMinutes))
		default:
			out.Timestamp = readingTime
		}
	}

	if err := fields.Err(); err != nil {
		return Reading{}, err
	}
	return out, nil
}
