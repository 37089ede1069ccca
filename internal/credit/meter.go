// Package credit turns elapsed call time into billing decisions. One credit
// is one minute of interview time.
package credit

import (
	"math"
	"time"
)

// DefaultThreshold is how far below zero a balance may run, counting the
// minutes of the current call, before the session is terminated.
const DefaultThreshold = -3

// Decision is the outcome of metering a single turn.
type Decision struct {
	ShouldTerminate bool
	NewBalance      int64
	NewUsedCredits  int64
	// Deducted is how many credits this turn took from the balance.
	Deducted int64
}

// Meter applies a termination threshold to elapsed time and balance.
type Meter struct {
	Threshold float64
}

func NewMeter(threshold float64) Meter {
	return Meter{Threshold: threshold}
}

// Apply meters a turn. elapsedMinutes is the fractional time since the call
// started, priorUsedCredits the whole minutes already billed for it and
// balance the account credits before this turn.
//
// The session terminates iff balance - elapsedMinutes <= Threshold, in which
// case the balance is clamped to zero. Otherwise only the minutes billed
// since priorUsedCredits are deducted. Minutes round half to even. Used
// credits never move backwards, so a clock that steps back deducts nothing.
func (m Meter) Apply(elapsedMinutes float64, priorUsedCredits, balance int64) Decision {
	if elapsedMinutes < 0 {
		elapsedMinutes = 0
	}
	used := max(int64(math.RoundToEven(elapsedMinutes)), priorUsedCredits)

	if float64(balance)-elapsedMinutes <= m.Threshold {
		deducted := max(balance, 0)
		return Decision{
			ShouldTerminate: true,
			NewBalance:      0,
			NewUsedCredits:  used,
			Deducted:        deducted,
		}
	}

	deducted := used - priorUsedCredits
	return Decision{
		NewBalance:     balance - deducted,
		NewUsedCredits: used,
		Deducted:       deducted,
	}
}

// ElapsedMinutes returns the fractional minutes between start and now, never
// negative.
func ElapsedMinutes(start, now time.Time) float64 {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return d.Minutes()
}
