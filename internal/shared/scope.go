package shared

import "fmt"

// Scope identifies the ente publico, fiscal year and period a request
// operates on. It is passed explicitly into every engine call; there is
// no ambient session selection.
type Scope struct {
	EnteID       int64
	FiscalYearID int64
	PeriodID     int64
}

// Validate checks the scope carries the identifiers the operation needs.
// PeriodID may be zero for operations scoped to a whole fiscal year.
func (s Scope) Validate(requirePeriod bool) error {
	if s.EnteID == 0 {
		return fmt.Errorf("%w: ente requerido", ErrValidation)
	}
	if s.FiscalYearID == 0 {
		return fmt.Errorf("%w: ejercicio fiscal requerido", ErrValidation)
	}
	if requirePeriod && s.PeriodID == 0 {
		return fmt.Errorf("%w: periodo requerido", ErrValidation)
	}
	return nil
}

// CacheKey renders the scope as a stable cache key fragment.
func (s Scope) CacheKey() string {
	return fmt.Sprintf("%d:%d:%d", s.EnteID, s.FiscalYearID, s.PeriodID)
}
