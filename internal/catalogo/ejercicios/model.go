package ejercicios

import (
	"errors"
	"time"
)

// FiscalYearState enumerates fiscal year states.
type FiscalYearState string

const (
	FiscalYearOpen    FiscalYearState = "OPEN"
	FiscalYearClosing FiscalYearState = "CLOSING"
	FiscalYearClosed  FiscalYearState = "CLOSED"
)

// PeriodState enumerates period states.
type PeriodState string

const (
	PeriodOpen   PeriodState = "OPEN"
	PeriodClosed PeriodState = "CLOSED"
)

// FiscalYear represents one ejercicio fiscal of an ente publico.
type FiscalYear struct {
	ID        int64
	EnteID    int64
	Year      int
	State     FiscalYearState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Period partitions a fiscal year. Number 13 is the adjustment period.
type Period struct {
	ID           int64
	FiscalYearID int64
	Number       int
	State        PeriodState
	ClosedAt     *time.Time
	ClosedBy     *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AdjustmentPeriod is the statutory thirteenth period.
const AdjustmentPeriod = 13

// ErrInvalidPeriodTransition indicates a state change not allowed by policy.
var ErrInvalidPeriodTransition = errors.New("ejercicios: transicion de periodo invalida")

// ValidatePeriodTransition checks changes against policy. Closing is one-way
// at this layer; reopening a closed period is an administrative action that
// never goes through this engine.
func ValidatePeriodTransition(current, target PeriodState) error {
	if current == target {
		return nil
	}
	if current == PeriodOpen && target == PeriodClosed {
		return nil
	}
	return ErrInvalidPeriodTransition
}
