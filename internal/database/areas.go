package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

func (q *Queries) GetArea(ctx context.Context, id int64) (Area, error) {
	var a Area
	err := q.db.QueryRow(ctx,
		`SELECT id, name, remarks, is_active FROM areas WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &a.Remarks, &a.IsActive)
	return a, err
}

func (q *Queries) SetAreaActive(ctx context.Context, id int64, active bool) error {
	_, err := q.db.Exec(ctx, `UPDATE areas SET is_active = $2 WHERE id = $1`, id, active)
	return err
}

// AreaOpenSaleRow is one row of the table grid: an area plus its most recent
// still-open sale, when the area is occupied. Sale columns are NULL for free
// tables.
type AreaOpenSaleRow struct {
	Area
	SaleID          pgtype.Int8
	TotalAmount     pgtype.Numeric
	OrderType       pgtype.Text
	DispatchAmount  pgtype.Numeric
	DeliveryCharges pgtype.Numeric
	SaleUserID      pgtype.Int8
	CreatedBy       pgtype.Text
}

// ListAreasWithOpenSale returns every area with its top open sale attached.
// Free tables sort first, then occupied, each group by id.
func (q *Queries) ListAreasWithOpenSale(ctx context.Context) ([]AreaOpenSaleRow, error) {
	const query = `
		SELECT a.id, a.name, a.remarks, a.is_active,
		       s.id, s.total_amount, s.order_type, s.dispatch_amount, s.delivery_charges,
		       s.user_id, u.name
		FROM areas a
		LEFT JOIN LATERAL (
			SELECT id, total_amount, order_type, dispatch_amount, delivery_charges, user_id
			FROM sales
			WHERE area_id = a.id AND NOT closed AND a.is_active
			ORDER BY id DESC
			LIMIT 1
		) s ON TRUE
		LEFT JOIN users u ON u.id = s.user_id
		ORDER BY a.is_active ASC, a.id ASC`

	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	areas := []AreaOpenSaleRow{}
	for rows.Next() {
		var row AreaOpenSaleRow
		if err := rows.Scan(
			&row.ID, &row.Name, &row.Remarks, &row.IsActive,
			&row.SaleID, &row.TotalAmount, &row.OrderType, &row.DispatchAmount, &row.DeliveryCharges,
			&row.SaleUserID, &row.CreatedBy,
		); err != nil {
			return nil, err
		}
		areas = append(areas, row)
	}
	return areas, rows.Err()
}

type CreateAreaParams struct {
	Name    string
	Remarks pgtype.Text
}

func (q *Queries) CreateArea(ctx context.Context, arg CreateAreaParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx,
		`INSERT INTO areas (name, remarks, is_active) VALUES ($1, $2, FALSE) RETURNING id`,
		arg.Name, arg.Remarks).Scan(&id)
	return id, err
}
