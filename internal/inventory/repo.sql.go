package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for tire units.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListFilters narrows tire unit listings.
type ListFilters struct {
	Status   string
	POLineID int64
	GRNID    int64
	Search   string
}

const unitColumns = `id, serial_number, po_line_id, grn_id, COALESCE(batch_number,''), size, brand, COALESCE(model,''), COALESCE(type,''), condition, status, received_at, created_at, updated_at`

// Get fetches one tire unit.
func (r *Repository) Get(ctx context.Context, id int64) (TireUnit, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+unitColumns+` FROM tire_units WHERE id=$1`, id)
	unit, err := scanUnit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TireUnit{}, ErrNotFound
		}
		return TireUnit{}, err
	}
	return unit, nil
}

// List returns tire units matching the filters plus the total count.
func (r *Repository) List(ctx context.Context, limit, offset int, filters ListFilters) ([]TireUnit, int, error) {
	var (
		conds []string
		args  []any
	)
	if filters.Status != "" {
		args = append(args, filters.Status)
		conds = append(conds, fmt.Sprintf("status=$%d", len(args)))
	}
	if filters.POLineID > 0 {
		args = append(args, filters.POLineID)
		conds = append(conds, fmt.Sprintf("po_line_id=$%d", len(args)))
	}
	if filters.GRNID > 0 {
		args = append(args, filters.GRNID)
		conds = append(conds, fmt.Sprintf("grn_id=$%d", len(args)))
	}
	if filters.Search != "" {
		args = append(args, "%"+strings.ToUpper(filters.Search)+"%")
		conds = append(conds, fmt.Sprintf("serial_number LIKE $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tire_units"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf("SELECT "+unitColumns+" FROM tire_units%s ORDER BY id DESC LIMIT $%d OFFSET $%d", where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var units []TireUnit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, 0, err
		}
		units = append(units, unit)
	}
	return units, total, rows.Err()
}

// UpdateStatus moves a tire unit to the target status.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status UnitStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE tire_units SET status=$2, updated_at=$3 WHERE id=$1`, id, status, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUnit(row rowScanner) (TireUnit, error) {
	var unit TireUnit
	err := row.Scan(&unit.ID, &unit.SerialNumber, &unit.POLineID, &unit.GRNID, &unit.BatchNumber,
		&unit.Size, &unit.Brand, &unit.Model, &unit.Type, &unit.Condition, &unit.Status,
		&unit.ReceivedAt, &unit.CreatedAt, &unit.UpdatedAt)
	return unit, err
}
