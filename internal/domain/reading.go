package domain

import (
	"strings"
	"time"
)

// MeterType identifies which utility a reading measures.
type MeterType string

const (
	MeterElectricity MeterType = "electricity"
	MeterWater       MeterType = "water"
)

// MeterTypes lists every supported meter in billing order.
var MeterTypes = []MeterType{MeterElectricity, MeterWater}

// ParseMeterType normalises s into a MeterType.
func ParseMeterType(s string) (MeterType, bool) {
	switch MeterType(strings.ToLower(strings.TrimSpace(s))) {
	case MeterElectricity:
		return MeterElectricity, true
	case MeterWater:
		return MeterWater, true
	}
	return "", false
}

// SeedImagePath marks readings entered by the owner at tenant registration.
const SeedImagePath = "initial_reading.jpg"

// Reading is an immutable meter measurement. Readings of one (tenant, meter)
// are ordered by Timestamp, then by ID.
type Reading struct {
	ID        int64
	TenantID  int64
	MeterType MeterType
	Value     float64
	Timestamp time.Time
	ImagePath string
	Processed bool
	CreatedAt time.Time
}

// After reports whether r sorts after other in ledger order.
func (r Reading) After(other Reading) bool {
	if r.Timestamp.Equal(other.Timestamp) {
		return r.ID > other.ID
	}
	return r.Timestamp.After(other.Timestamp)
}

// RateRecord is one point on an owner's per-meter rate timeline.
type RateRecord struct {
	ID            int64
	OwnerID       int64
	MeterType     MeterType
	RatePerUnit   float64
	EffectiveFrom time.Time
	CreatedAt     time.Time
}
