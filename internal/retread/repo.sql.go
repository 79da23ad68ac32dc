package retread

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/treadstock/treadstock/internal/inventory"
	"github.com/treadstock/treadstock/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for retread orders.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations of one atomic lifecycle step.
type TxRepository interface {
	CreateOrder(ctx context.Context, order Order) (int64, string, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
	UpdateOrderStatus(ctx context.Context, id int64, status Status, sentAt, receivedAt *time.Time) error
	LockUnits(ctx context.Context, unitIDs []int64) ([]inventory.TireUnit, error)
	UpdateUnitStatus(ctx context.Context, unitID int64, status inventory.UnitStatus, condition inventory.Condition) error
	SetItemReturnCondition(ctx context.Context, orderID, unitID int64, condition inventory.Condition) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// Get returns an order with its items.
func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	var order Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, number, supplier_id, status, sent_at, received_at, unit_cost, COALESCE(notes,''), created_by, created_at, updated_at
		FROM retread_orders WHERE id=$1`, id).
		Scan(&order.ID, &order.Number, &order.SupplierID, &order.Status, &order.SentAt, &order.ReceivedAt, &order.UnitCost, &order.Notes, &order.CreatedBy, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT i.id, i.order_id, i.tire_unit_id, t.serial_number, COALESCE(i.return_condition,'')
		FROM retread_order_items i
		JOIN tire_units t ON t.id = i.tire_unit_id
		WHERE i.order_id=$1 ORDER BY i.id`, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.OrderID, &item.TireUnitID, &item.SerialNumber, &item.ReturnCondition); err != nil {
			return Order{}, err
		}
		order.Items = append(order.Items, item)
	}
	return order, rows.Err()
}

// ListFilters narrows order listings.
type ListFilters struct {
	Status     string
	SupplierID int64
}

// List returns order headers matching the filters plus the total count.
func (r *Repository) List(ctx context.Context, limit, offset int, filters ListFilters) ([]Order, int, error) {
	var (
		conds []string
		args  []any
	)
	if filters.Status != "" {
		args = append(args, filters.Status)
		conds = append(conds, fmt.Sprintf("status=$%d", len(args)))
	}
	if filters.SupplierID > 0 {
		args = append(args, filters.SupplierID)
		conds = append(conds, fmt.Sprintf("supplier_id=$%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM retread_orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT id, number, supplier_id, status, sent_at, received_at, unit_cost, COALESCE(notes,''), created_by, created_at, updated_at
		FROM retread_orders%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		var order Order
		if err := rows.Scan(&order.ID, &order.Number, &order.SupplierID, &order.Status, &order.SentAt, &order.ReceivedAt, &order.UnitCost, &order.Notes, &order.CreatedBy, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	return orders, total, rows.Err()
}

func (t *txRepo) CreateOrder(ctx context.Context, order Order) (int64, string, error) {
	var seq int
	day := time.Now().UTC()
	if err := t.tx.QueryRow(ctx, `
		INSERT INTO document_sequences (kind, day, counter) VALUES ('retread', $1, 1)
		ON CONFLICT (kind, day) DO UPDATE SET counter = document_sequences.counter + 1
		RETURNING counter`, day.Format("2006-01-02")).Scan(&seq); err != nil {
		return 0, "", err
	}
	number := fmt.Sprintf("RTO-%s-%03d", day.Format("20060102"), seq)

	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO retread_orders (number, supplier_id, status, unit_cost, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), $6, NOW(), NOW()) RETURNING id`,
		number, order.SupplierID, order.Status, order.UnitCost, order.Notes, order.CreatedBy).Scan(&id)
	if err != nil {
		return 0, "", err
	}
	return id, number, nil
}

func (t *txRepo) InsertItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO retread_order_items (order_id, tire_unit_id) VALUES ($1, $2) RETURNING id`,
		item.OrderID, item.TireUnitID).Scan(&id)
	return id, err
}

func (t *txRepo) UpdateOrderStatus(ctx context.Context, id int64, status Status, sentAt, receivedAt *time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE retread_orders
		SET status=$2, sent_at=COALESCE($3, sent_at), received_at=COALESCE($4, received_at), updated_at=NOW()
		WHERE id=$1`, id, status, sentAt, receivedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) LockUnits(ctx context.Context, unitIDs []int64) ([]inventory.TireUnit, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, serial_number, po_id, po_line_id, grn_id, COALESCE(batch_number,''), size, brand, COALESCE(model,''), COALESCE(type,''), condition, status, received_at, created_at, updated_at
		FROM tire_units WHERE id = ANY($1) ORDER BY id FOR UPDATE`, unitIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var units []inventory.TireUnit
	for rows.Next() {
		var u inventory.TireUnit
		if err := rows.Scan(&u.ID, &u.SerialNumber, &u.POID, &u.POLineID, &u.GRNID, &u.BatchNumber, &u.Size, &u.Brand, &u.Model, &u.Type, &u.Condition, &u.Status, &u.ReceivedAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (t *txRepo) UpdateUnitStatus(ctx context.Context, unitID int64, status inventory.UnitStatus, condition inventory.Condition) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE tire_units SET status=$2, condition=COALESCE(NULLIF($3,''), condition), updated_at=NOW() WHERE id=$1`,
		unitID, status, string(condition))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrNotFound
	}
	return nil
}

func (t *txRepo) SetItemReturnCondition(ctx context.Context, orderID, unitID int64, condition inventory.Condition) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE retread_order_items SET return_condition=$3 WHERE order_id=$1 AND tire_unit_id=$2`,
		orderID, unitID, condition)
	return err
}
