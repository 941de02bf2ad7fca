package anomalias

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Tipo enumerates the detection heuristics.
type Tipo string

const (
	TipoMontoInusual     Tipo = "monto_inusual"
	TipoPatronDuplicado  Tipo = "patron_duplicado"
	TipoHorarioInusual   Tipo = "horario_inusual"
	TipoMontoRedondo     Tipo = "monto_redondo"
	TipoDesviacion       Tipo = "desviacion_presupuestal"
	TipoProveedorConcent Tipo = "proveedor_concentrado"
)

// Riesgo enumerates risk levels.
type Riesgo string

const (
	RiesgoBajo    Riesgo = "BAJO"
	RiesgoMedio   Riesgo = "MEDIO"
	RiesgoAlto    Riesgo = "ALTO"
	RiesgoCritico Riesgo = "CRITICO"
)

// Estado enumerates the review workflow states.
type Estado string

const (
	EstadoDetectada  Estado = "DETECTADA"
	EstadoEnRevision Estado = "EN_REVISION"
	EstadoResuelta   Estado = "RESUELTA"
	EstadoDescartada Estado = "DESCARTADA"
)

// ErrTransicionInvalida indicates a review state change not allowed by policy.
var ErrTransicionInvalida = errors.New("anomalias: transicion de revision invalida")

// Registro is one detected anomaly. Detection never mutates ledger state;
// only Estado and Notas change afterwards, through the review workflow.
type Registro struct {
	ID           uuid.UUID
	Tipo         Tipo
	Riesgo       Riesgo
	Estado       Estado
	Descripcion  string
	Evidencia    map[string]any
	EvidenceHash string
	Monto        float64
	Cuenta       string
	PolizaID     *int64
	Notas        string
	DetectedAt   time.Time
	UpdatedAt    time.Time
}

// reviewTransitions is the review workflow adjacency table. Resolved and
// dismissed records are terminal.
var reviewTransitions = map[Estado][]Estado{
	EstadoDetectada:  {EstadoEnRevision, EstadoDescartada},
	EstadoEnRevision: {EstadoResuelta, EstadoDescartada},
	EstadoResuelta:   {},
	EstadoDescartada: {},
}

// ValidateReviewTransition checks the review edge against policy.
func ValidateReviewTransition(current, target Estado) error {
	for _, next := range reviewTransitions[current] {
		if next == target {
			return nil
		}
	}
	return ErrTransicionInvalida
}
