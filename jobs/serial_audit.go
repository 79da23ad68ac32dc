package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// SerialAuditJob looks for serial anomalies the per-order unique index
// cannot catch: the same serial received under different purchase orders,
// and receipt lines whose unit count drifted from the recorded quantity.
type SerialAuditJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	clock  func() time.Time
}

// NewSerialAuditJob initialises the serial audit handler.
func NewSerialAuditJob(pool *pgxpool.Pool, logger *slog.Logger) *SerialAuditJob {
	return &SerialAuditJob{
		Pool:   pool,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type crossOrderSerial struct {
	Serial string
	Orders int64
	Units  int64
}

type quantityDrift struct {
	GRNID     int64
	POLineID  int64
	GRNNumber string
	Recorded  int64
	Units     int64
}

// Handle executes the serial audit.
func (j *SerialAuditJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("serial audit: handler not configured")
	}
	var payload SerialAuditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.LookbackDays <= 0 {
		payload.LookbackDays = 30
	}
	since := j.clock().AddDate(0, 0, -payload.LookbackDays)

	logger := j.logger().With(slog.Int("lookback_days", payload.LookbackDays))
	logger.Info("starting serial audit")

	var (
		reused []crossOrderSerial
		drift  []quantityDrift
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reused, err = j.scanCrossOrderSerials(gctx, since)
		return err
	})
	g.Go(func() error {
		var err error
		drift, err = j.scanQuantityDrift(gctx, since)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error("serial audit failed", slog.Any("error", err))
		return err
	}

	for _, s := range reused {
		logger.Warn("serial reused across purchase orders",
			slog.String("serial", s.Serial),
			slog.Int64("orders", s.Orders),
			slog.Int64("units", s.Units),
		)
	}
	for _, d := range drift {
		logger.Warn("receipt quantity drift",
			slog.String("grn_number", d.GRNNumber),
			slog.Int64("po_line_id", d.POLineID),
			slog.Int64("recorded", d.Recorded),
			slog.Int64("units", d.Units),
		)
	}

	logger.Info("serial audit completed",
		slog.Int("reused_serials", len(reused)),
		slog.Int("drifted_lines", len(drift)),
	)
	return nil
}

func (j *SerialAuditJob) scanCrossOrderSerials(ctx context.Context, since time.Time) ([]crossOrderSerial, error) {
	const query = `
		SELECT serial_number, COUNT(DISTINCT po_id), COUNT(*)
		FROM tire_units
		WHERE received_at >= $1
		GROUP BY serial_number
		HAVING COUNT(DISTINCT po_id) > 1`
	rows, err := j.Pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []crossOrderSerial
	for rows.Next() {
		var s crossOrderSerial
		if err := rows.Scan(&s.Serial, &s.Orders, &s.Units); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (j *SerialAuditJob) scanQuantityDrift(ctx context.Context, since time.Time) ([]quantityDrift, error) {
	const query = `
		SELECT gi.grn_id, gi.po_line_id, g.number, gi.quantity_received, COUNT(t.id)
		FROM grn_items gi
		JOIN goods_received_notes g ON g.id = gi.grn_id
		LEFT JOIN tire_units t ON t.grn_id = gi.grn_id AND t.po_line_id = gi.po_line_id
		WHERE g.receipt_date >= $1
		GROUP BY gi.grn_id, gi.po_line_id, g.number, gi.quantity_received
		HAVING COUNT(t.id) <> gi.quantity_received AND COUNT(t.id) > 0`
	rows, err := j.Pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []quantityDrift
	for rows.Next() {
		var d quantityDrift
		if err := rows.Scan(&d.GRNID, &d.POLineID, &d.GRNNumber, &d.Recorded, &d.Units); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (j *SerialAuditJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
