package receiving

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/treadstock/treadstock/internal/inventory"
	"github.com/treadstock/treadstock/internal/platform/db"
	"github.com/treadstock/treadstock/internal/procurement"
)

// Repository provides PostgreSQL backed persistence for goods received notes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction. The commit
// workflow depends on this: every write of one receipt shares the fate of
// the transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// GetGRN returns one note with its items.
func (r *Repository) GetGRN(ctx context.Context, id int64) (GRN, error) {
	var grn GRN
	err := r.pool.QueryRow(ctx, `
		SELECT id, number, po_id, receipt_date, COALESCE(supplier_invoice_number,''), COALESCE(delivery_note_number,''), COALESCE(vehicle_number,''),
		       COALESCE(driver_name,''), COALESCE(receiving_notes,''), COALESCE(inspection_notes,''), COALESCE(accounting_transaction_id,''),
		       invoice_linked_at, created_by, created_at
		FROM goods_received_notes WHERE id=$1`, id).
		Scan(&grn.ID, &grn.Number, &grn.POID, &grn.ReceiptDate, &grn.SupplierInvoiceNumber, &grn.DeliveryNoteNumber, &grn.VehicleNumber,
			&grn.DriverName, &grn.ReceivingNotes, &grn.InspectionNotes, &grn.AccountingTransactionID, &grn.InvoiceLinkedAt, &grn.CreatedBy, &grn.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GRN{}, ErrNotFound
		}
		return GRN{}, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT i.id, i.grn_id, i.po_line_id, i.quantity_received, i.unit_cost, COALESCE(i.batch_number,''), COALESCE(i.notes,''),
		       COALESCE(ARRAY_AGG(t.serial_number ORDER BY t.id) FILTER (WHERE t.id IS NOT NULL), '{}')
		FROM grn_items i
		LEFT JOIN tire_units t ON t.grn_id = i.grn_id AND t.po_line_id = i.po_line_id
		WHERE i.grn_id=$1
		GROUP BY i.id ORDER BY i.id`, id)
	if err != nil {
		return GRN{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item GRNItem
		if err := rows.Scan(&item.ID, &item.GRNID, &item.POLineID, &item.QuantityReceived, &item.UnitCost, &item.BatchNumber, &item.Notes, &item.SerialNumbers); err != nil {
			return GRN{}, err
		}
		grn.Items = append(grn.Items, item)
	}
	return grn, rows.Err()
}

// ListFilters narrows GRN listings.
type ListFilters struct {
	POID   int64
	Search string
}

// ListGRNs returns note headers matching the filters plus the total count.
func (r *Repository) ListGRNs(ctx context.Context, limit, offset int, filters ListFilters) ([]GRN, int, error) {
	var (
		conds []string
		args  []any
	)
	if filters.POID > 0 {
		args = append(args, filters.POID)
		conds = append(conds, fmt.Sprintf("po_id=$%d", len(args)))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		conds = append(conds, fmt.Sprintf("number ILIKE $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM goods_received_notes"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT id, number, po_id, receipt_date, COALESCE(supplier_invoice_number,''), COALESCE(delivery_note_number,''), COALESCE(vehicle_number,''),
		       COALESCE(driver_name,''), COALESCE(receiving_notes,''), COALESCE(inspection_notes,''), COALESCE(accounting_transaction_id,''),
		       invoice_linked_at, created_by, created_at
		FROM goods_received_notes%s ORDER BY receipt_date DESC, id DESC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var grns []GRN
	for rows.Next() {
		var grn GRN
		if err := rows.Scan(&grn.ID, &grn.Number, &grn.POID, &grn.ReceiptDate, &grn.SupplierInvoiceNumber, &grn.DeliveryNoteNumber, &grn.VehicleNumber,
			&grn.DriverName, &grn.ReceivingNotes, &grn.InspectionNotes, &grn.AccountingTransactionID, &grn.InvoiceLinkedAt, &grn.CreatedBy, &grn.CreatedAt); err != nil {
			return nil, 0, err
		}
		grns = append(grns, grn)
	}
	return grns, total, rows.Err()
}

// LinkInvoice sets the accounting linkage fields on a note that has none yet.
func (r *Repository) LinkInvoice(ctx context.Context, grnID int64, invoiceNumber, accountingTxID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE goods_received_notes
		SET supplier_invoice_number=$2, accounting_transaction_id=NULLIF($3,''), invoice_linked_at=NOW()
		WHERE id=$1 AND supplier_invoice_number IS NULL`, grnID, invoiceNumber, accountingTxID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM goods_received_notes WHERE id=$1)`, grnID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrInvoiceAlreadyLinked
	}
	return nil
}

func (t *txRepo) LockPOLines(ctx context.Context, poID int64) ([]procurement.Line, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, po_id, size, brand, model, type, ordered_qty, received_qty, unit_price
		FROM purchase_order_lines WHERE po_id=$1 ORDER BY id FOR UPDATE`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []procurement.Line
	for rows.Next() {
		var line procurement.Line
		if err := rows.Scan(&line.ID, &line.POID, &line.Size, &line.Brand, &line.Model, &line.Type, &line.OrderedQty, &line.ReceivedQty, &line.UnitPrice); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (t *txRepo) CreateGRN(ctx context.Context, req GRNRequest) (int64, string, error) {
	number := fmt.Sprintf("GRN-%s-%03d", req.ReceiptDate.Format("20060102"), nextSequence(ctx, t.tx, "grn", req.ReceiptDate))
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO goods_received_notes (number, po_id, receipt_date, supplier_invoice_number, delivery_note_number, vehicle_number, driver_name, receiving_notes, inspection_notes, created_by, created_at)
		VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''), NULLIF($6,''), NULLIF($7,''), NULLIF($8,''), NULLIF($9,''), $10, NOW()) RETURNING id`,
		number, req.POID, req.ReceiptDate, req.Header.SupplierInvoiceNumber, req.Header.DeliveryNoteNumber, req.Header.VehicleNumber,
		req.Header.DriverName, req.Header.ReceivingNotes, req.Header.InspectionNotes, req.CreatedBy).Scan(&id)
	if err != nil {
		return 0, "", err
	}
	return id, number, nil
}

// nextSequence hands out the per-day counter used inside document numbers.
func nextSequence(ctx context.Context, tx pgx.Tx, kind string, day time.Time) int {
	var seq int
	err := tx.QueryRow(ctx, `
		INSERT INTO document_sequences (kind, day, counter) VALUES ($1, $2, 1)
		ON CONFLICT (kind, day) DO UPDATE SET counter = document_sequences.counter + 1
		RETURNING counter`, kind, day.Format("2006-01-02")).Scan(&seq)
	if err != nil {
		return 1
	}
	return seq
}

func (t *txRepo) InsertItem(ctx context.Context, grnID int64, item GRNItemRequest) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO grn_items (grn_id, po_line_id, quantity_received, unit_cost, batch_number, condition, notes)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), $6, NULLIF($7,'')) RETURNING id`,
		grnID, item.POLineID, item.QuantityReceived, item.UnitCost, item.BatchNumber, item.Condition, item.Notes).Scan(&id)
	return id, err
}

func (t *txRepo) InsertTireUnit(ctx context.Context, unit inventory.TireUnit) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO tire_units (serial_number, po_id, po_line_id, grn_id, batch_number, size, brand, model, type, condition, status, received_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), $6, $7, NULLIF($8,''), NULLIF($9,''), $10, $11, $12, NOW(), NOW()) RETURNING id`,
		unit.SerialNumber, unit.POID, unit.POLineID, unit.GRNID, unit.BatchNumber, unit.Size, unit.Brand, unit.Model, unit.Type, unit.Condition, unit.Status, unit.ReceivedAt).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("%w: %s", inventory.ErrDuplicateSerial, unit.SerialNumber)
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepo) AddLineReceived(ctx context.Context, poLineID int64, qty int) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE purchase_order_lines SET received_qty = received_qty + $2 WHERE id=$1`, poLineID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrUnknownLine, poLineID)
	}
	return nil
}

func (t *txRepo) UpdatePOStatus(ctx context.Context, poID int64, status procurement.POStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status=$2, updated_at=NOW() WHERE id=$1`, poID, status)
	return err
}
