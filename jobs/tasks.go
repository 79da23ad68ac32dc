package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskSerialAudit scans tire units for serial anomalies across orders.
	TaskSerialAudit = "receiving:serial_audit"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// SerialAuditPayload bounds the audit window.
type SerialAuditPayload struct {
	LookbackDays int `json:"lookback_days"`
}

// NewSerialAuditTask constructs an Asynq task for the serial audit.
func NewSerialAuditTask(lookbackDays int) (*asynq.Task, error) {
	body, err := json.Marshal(SerialAuditPayload{LookbackDays: lookbackDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSerialAudit, body, asynq.Queue(QueueDefault)), nil
}

// IdempotencyCleanupPayload carries the retention horizon.
type IdempotencyCleanupPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// NewIdempotencyCleanupTask constructs an Asynq task for key cleanup.
func NewIdempotencyCleanupTask(olderThan time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{OlderThan: olderThan})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
