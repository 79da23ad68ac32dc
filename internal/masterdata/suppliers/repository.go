package suppliers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/treadstock/treadstock/internal/shared"
)

// Repository defines supplier persistence operations.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Supplier, int, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	Create(ctx context.Context, supplier Supplier) (Supplier, error)
	Update(ctx context.Context, id int64, supplier Supplier) error
	Deactivate(ctx context.Context, id int64) error
	LedgerEntries(ctx context.Context, supplierID int64) ([]LedgerEntry, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const supplierColumns = `id, code, name, COALESCE(address,''), COALESCE(email,''), COALESCE(phone,''), COALESCE(contact_person,''), is_active, created_at, updated_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Address, &s.Email, &s.Phone, &s.ContactPerson, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE 1=1`
	args := []any{}

	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		query += ` AND (name ILIKE $` + strconv.Itoa(len(args)) + ` OR code ILIKE $` + strconv.Itoa(len(args)) + `)`
	}

	countQuery := `SELECT COUNT(*) FROM suppliers WHERE 1=1`
	countArgs := []any{}
	if filters.Search != "" {
		countArgs = append(countArgs, "%"+filters.Search+"%")
		countQuery += ` AND (name ILIKE $1 OR code ILIKE $1)`
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += " ORDER BY " + sortOrder(filters.SortBy, filters.SortDir)

	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))

		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	s, err := scanSupplier(r.db.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, shared.ErrNotFound
	}
	return s, err
}

func (r *repository) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx, `
		INSERT INTO suppliers (code, name, address, email, phone, contact_person, is_active, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), NULLIF($5,''), NULLIF($6,''), TRUE, $7, $7) RETURNING id`,
		supplier.Code, supplier.Name, supplier.Address, supplier.Email, supplier.Phone, supplier.ContactPerson, now).Scan(&supplier.ID)
	if err != nil {
		return Supplier{}, err
	}
	supplier.IsActive = true
	supplier.CreatedAt = now
	supplier.UpdatedAt = now
	return supplier, nil
}

func (r *repository) Update(ctx context.Context, id int64, supplier Supplier) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE suppliers
		SET code = $1, name = $2, address = NULLIF($3,''), email = NULLIF($4,''), phone = NULLIF($5,''), contact_person = NULLIF($6,''), updated_at = $7
		WHERE id = $8`,
		supplier.Code, supplier.Name, supplier.Address, supplier.Email, supplier.Phone, supplier.ContactPerson, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Deactivate soft-disables a supplier; purchase history must survive, so
// rows are never deleted.
func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE suppliers SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// LedgerEntries returns receipt debits and payment credits in date order.
// The running balance is filled in by the service.
func (r *repository) LedgerEntries(ctx context.Context, supplierID int64) ([]LedgerEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT g.receipt_date, g.number, 'GRN', COALESCE(g.supplier_invoice_number,''),
		       COALESCE(SUM(i.quantity_received * i.unit_cost), 0), 0::numeric
		FROM goods_received_notes g
		JOIN purchase_orders po ON po.id = g.po_id
		LEFT JOIN grn_items i ON i.grn_id = g.id
		WHERE po.supplier_id = $1
		GROUP BY g.id
		UNION ALL
		SELECT p.paid_at, p.number, 'PAYMENT', COALESCE(p.reference,''), 0::numeric, p.amount
		FROM supplier_payments p
		WHERE p.supplier_id = $1
		ORDER BY 1, 2`, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var debit, credit decimal.Decimal
		if err := rows.Scan(&e.Date, &e.Document, &e.Kind, &e.Reference, &debit, &credit); err != nil {
			return nil, err
		}
		e.Debit = debit
		e.Credit = credit
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "code":
		return "code " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
