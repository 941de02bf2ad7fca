package polizas

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/haciendadigital/sicam/internal/shared"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LineRequest describes one movement line of an incoming poliza.
type LineRequest struct {
	CuentaID     int64   `json:"cuenta_id" validate:"required"`
	Concepto     string  `json:"concepto"`
	Beneficiario string  `json:"beneficiario"`
	Debe         float64 `json:"debe" validate:"gte=0"`
	Haber        float64 `json:"haber" validate:"gte=0"`
}

// DraftRequest groups the fields required to create or rewrite a draft.
type DraftRequest struct {
	Tipo          string        `json:"tipo" validate:"required,oneof=INGRESO EGRESO DIARIO AJUSTE CIERRE"`
	Fecha         time.Time     `json:"fecha" validate:"required"`
	Descripcion   string        `json:"descripcion" validate:"required"`
	MontoAprobado *float64      `json:"monto_aprobado" validate:"omitempty,gt=0"`
	MontoEjercido *float64      `json:"monto_ejercido" validate:"omitempty,gte=0"`
	CreatedBy     int64         `json:"created_by" validate:"required"`
	Lineas        []LineRequest `json:"lineas" validate:"required,min=2,dive"`
}

// Validate runs the structural checks plus the rules the tag language
// cannot express: one side per line, no empty lines.
func (req DraftRequest) Validate() error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	for idx, line := range req.Lineas {
		if line.Debe > 0 && line.Haber > 0 {
			return fmt.Errorf("%w: movimiento %d carga debe y haber a la vez", shared.ErrValidation, idx+1)
		}
		if line.Debe == 0 && line.Haber == 0 {
			return fmt.Errorf("%w: movimiento %d sin importe", shared.ErrValidation, idx+1)
		}
	}
	return nil
}

func (req DraftRequest) toPoliza(scope shared.Scope) Poliza {
	p := Poliza{
		EnteID:        scope.EnteID,
		FiscalYearID:  scope.FiscalYearID,
		PeriodID:      scope.PeriodID,
		Tipo:          Tipo(req.Tipo),
		Fecha:         req.Fecha,
		Descripcion:   req.Descripcion,
		MontoAprobado: req.MontoAprobado,
		MontoEjercido: req.MontoEjercido,
		Estado:        EstadoBorrador,
		CreatedBy:     req.CreatedBy,
	}
	for _, line := range req.Lineas {
		p.Lineas = append(p.Lineas, Movimiento{
			CuentaID:     line.CuentaID,
			Concepto:     line.Concepto,
			Beneficiario: line.Beneficiario,
			Debe:         line.Debe,
			Haber:        line.Haber,
		})
	}
	p.RecomputeTotals()
	return p
}

// CancelRequest wraps parameters for cancellation.
type CancelRequest struct {
	ActorID int64  `json:"actor_id" validate:"required"`
	Motivo  string `json:"motivo"`
}

// ListFilter narrows List results.
type ListFilter struct {
	Tipo   Tipo
	Estado Estado
}
