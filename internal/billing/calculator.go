// Package billing turns readings, rates and roster size into a charge breakdown.
// Nothing here touches storage.
package billing

import (
	"math"
	"time"

	"github.com/septivank/rent-manager/internal/domain"
)

// Usage is the state of one meter at billing time. Latest and Previous are nil
// when the ledger has no such reading; Rate is nil when the owner never set one.
type Usage struct {
	Latest   *domain.Reading
	Previous *domain.Reading
	Rate     *float64
}

// Consumption is Latest minus Previous. A decrease is returned as a negative delta.
func (u Usage) Consumption() (float64, bool) {
	if u.Latest == nil || u.Previous == nil {
		return 0, false
	}
	return u.Latest.Value - u.Previous.Value, true
}

// Input collects everything Calculate needs.
type Input struct {
	Rent        float64
	Electricity Usage
	Water       Usage
	// TenantCount is the owner's roster size; water is shared by TenantCount+1 units.
	TenantCount int
}

// Breakdown is the unrounded result of Calculate.
type Breakdown struct {
	Rent        float64 `json:"rent"`
	Electricity float64 `json:"electricity"`
	Water       float64 `json:"water"`
	Total       float64 `json:"total"`

	ElectricityConsumption *float64 `json:"electricity_consumption,omitempty"`
	WaterConsumption       *float64 `json:"water_consumption,omitempty"`
	WaterDivisor           int      `json:"water_divisor"`
}

// Calculate computes the bill. A meter without a consumption pair or without a
// rate contributes zero.
func Calculate(in Input) Breakdown {
	b := Breakdown{
		Rent:         in.Rent,
		WaterDivisor: WaterDivisor(in.TenantCount),
	}

	if delta, ok := in.Electricity.Consumption(); ok {
		b.ElectricityConsumption = &delta
		if in.Electricity.Rate != nil {
			b.Electricity = delta * *in.Electricity.Rate
		}
	}

	if delta, ok := in.Water.Consumption(); ok {
		b.WaterConsumption = &delta
		if in.Water.Rate != nil {
			b.Water = (delta / float64(b.WaterDivisor)) * *in.Water.Rate
		}
	}

	b.Total = b.Rent + b.Electricity + b.Water
	return b
}

// WaterDivisor counts the owner's own unit alongside every tenant.
func WaterDivisor(tenantCount int) int {
	if tenantCount < 0 {
		tenantCount = 0
	}
	return tenantCount + 1
}

// Rounded is the dashboard view: every component and the total are rounded
// independently, so Total may differ from the sum of the rounded parts.
func (b Breakdown) Rounded() Breakdown {
	r := b
	r.Rent = Round2(b.Rent)
	r.Electricity = Round2(b.Electricity)
	r.Water = Round2(b.Water)
	r.Total = Round2(b.Total)
	return r
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MinorUnits converts an amount to the smallest currency unit for the charge provider.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Period is the reading interval a charge covers.
type Period struct {
	Start time.Time
	End   time.Time
}

// PeriodOf derives the billing period from the meters' readings. End is the
// newest latest reading across meters; Start is the oldest previous reading,
// or End when no meter has one. ok is false when no meter has any reading.
func PeriodOf(meters ...Usage) (p Period, ok bool) {
	for _, m := range meters {
		if m.Latest != nil && (!ok || m.Latest.Timestamp.After(p.End)) {
			p.End = m.Latest.Timestamp
			ok = true
		}
	}
	if !ok {
		return Period{}, false
	}

	p.Start = p.End
	for _, m := range meters {
		if m.Previous != nil && m.Previous.Timestamp.Before(p.Start) {
			p.Start = m.Previous.Timestamp
		}
	}
	return p, true
}
