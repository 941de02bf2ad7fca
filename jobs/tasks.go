package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAnomalyScan is the task type for the nightly anomaly sweep.
	TaskAnomalyScan = "anomalias:scan"
)

// AnomalyScanPayload scopes one detection run. A zero EnteID means every ente
// with approved polizas in the fiscal year is scanned.
type AnomalyScanPayload struct {
	EnteID       int64   `json:"ente_id"`
	FiscalYearID int64   `json:"fiscal_year_id"`
	WindowDays   int     `json:"window_days"`
	SigmaK       float64 `json:"sigma_k"`
}

// NewAnomalyScanTask constructs the Asynq task for a detection run.
func NewAnomalyScanTask(payload AnomalyScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnomalyScan, data), nil
}
