package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateSaleParams struct {
	ClientName      string
	SaleDate        time.Time
	TotalAmount     pgtype.Numeric
	AreaID          pgtype.Int8
	OrderType       string
	PhoneNo         pgtype.Text
	DeliveryAddress pgtype.Text
	UserID          pgtype.Int8
	DispatchAmount  pgtype.Numeric
	DeliveryCharges pgtype.Numeric
}

func (q *Queries) CreateSale(ctx context.Context, arg CreateSaleParams) (int64, error) {
	const query = `
		INSERT INTO sales
			(client_name, sale_date, total_amount, area_id, order_type,
			 phone_no, delivery_address, user_id, dispatch_amount, delivery_charges, closed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE)
		RETURNING id`

	var id int64
	err := q.db.QueryRow(ctx, query,
		arg.ClientName, arg.SaleDate, arg.TotalAmount, arg.AreaID, arg.OrderType,
		arg.PhoneNo, arg.DeliveryAddress, arg.UserID, arg.DispatchAmount, arg.DeliveryCharges,
	).Scan(&id)
	return id, err
}

type UpdateSaleParams struct {
	ID              int64
	ClientName      string
	SaleDate        time.Time
	TotalAmount     pgtype.Numeric
	AreaID          pgtype.Int8
	OrderType       string
	PhoneNo         pgtype.Text
	DeliveryAddress pgtype.Text
	DispatchAmount  pgtype.Numeric
	DeliveryCharges pgtype.Numeric
}

// UpdateSale overwrites the sale header. The creator (user_id) is never
// touched; ownership survives edits by admins.
func (q *Queries) UpdateSale(ctx context.Context, arg UpdateSaleParams) error {
	const query = `
		UPDATE sales
		SET client_name = $2,
		    sale_date = $3,
		    total_amount = $4,
		    area_id = $5,
		    order_type = $6,
		    phone_no = $7,
		    delivery_address = $8,
		    dispatch_amount = $9,
		    delivery_charges = $10
		WHERE id = $1`

	tag, err := q.db.Exec(ctx, query,
		arg.ID, arg.ClientName, arg.SaleDate, arg.TotalAmount, arg.AreaID, arg.OrderType,
		arg.PhoneNo, arg.DeliveryAddress, arg.DispatchAmount, arg.DeliveryCharges,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) GetSale(ctx context.Context, id int64) (Sale, error) {
	const query = `
		SELECT id, client_name, sale_date, total_amount, area_id, order_type,
		       phone_no, delivery_address, user_id, dispatch_amount, delivery_charges, closed
		FROM sales
		WHERE id = $1`

	var s Sale
	err := q.db.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.ClientName, &s.SaleDate, &s.TotalAmount, &s.AreaID, &s.OrderType,
		&s.PhoneNo, &s.DeliveryAddress, &s.UserID, &s.DispatchAmount, &s.DeliveryCharges, &s.Closed,
	)
	return s, err
}

// SaleGuardRow carries just the fields the service needs for its
// ownership / closed-state checks before mutating a sale.
type SaleGuardRow struct {
	ID     int64
	UserID pgtype.Int8
	AreaID pgtype.Int8
	Closed bool
}

func (q *Queries) GetSaleGuard(ctx context.Context, id int64) (SaleGuardRow, error) {
	const query = `SELECT id, user_id, area_id, closed FROM sales WHERE id = $1`

	var row SaleGuardRow
	err := q.db.QueryRow(ctx, query, id).Scan(&row.ID, &row.UserID, &row.AreaID, &row.Closed)
	return row, err
}

func (q *Queries) CloseSale(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, `UPDATE sales SET closed = TRUE WHERE id = $1`, id)
	return err
}

// CloseSales marks the given still-open sales closed and returns the ids
// that actually flipped. Already closed ids are absent from the result.
func (q *Queries) CloseSales(ctx context.Context, ids []int64) ([]int64, error) {
	rows, err := q.db.Query(ctx,
		`UPDATE sales SET closed = TRUE WHERE id = ANY($1) AND NOT closed RETURNING id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	closed := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		closed = append(closed, id)
	}
	return closed, rows.Err()
}

func (q *Queries) CloseOpenSales(ctx context.Context) (int64, error) {
	tag, err := q.db.Exec(ctx, `UPDATE sales SET closed = TRUE WHERE NOT closed`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ReleaseAreasForSales frees every table referenced by the given sales.
func (q *Queries) ReleaseAreasForSales(ctx context.Context, ids []int64) error {
	_, err := q.db.Exec(ctx, `
		UPDATE areas SET is_active = FALSE
		WHERE id IN (SELECT area_id FROM sales WHERE id = ANY($1) AND area_id IS NOT NULL)`, ids)
	return err
}

func (q *Queries) ReleaseAreasForOpenSales(ctx context.Context) error {
	_, err := q.db.Exec(ctx, `
		UPDATE areas SET is_active = FALSE
		WHERE id IN (SELECT area_id FROM sales WHERE NOT closed AND area_id IS NOT NULL)`)
	return err
}

// ListSalesParams uses NULL-valid fields to skip filters: an invalid
// SearchID/OrderType/Closed matches everything.
type ListSalesParams struct {
	SearchID  pgtype.Int8
	OrderType pgtype.Text
	Closed    pgtype.Bool
	Limit     int32
	Offset    int32
}

func (q *Queries) ListSales(ctx context.Context, arg ListSalesParams) ([]Sale, error) {
	const query = `
		SELECT id, client_name, sale_date, total_amount, area_id, order_type,
		       phone_no, delivery_address, user_id, dispatch_amount, delivery_charges, closed
		FROM sales
		WHERE ($1::bigint IS NULL OR id = $1)
		  AND ($2::text IS NULL OR order_type = $2)
		  AND ($3::boolean IS NULL OR closed = $3)
		ORDER BY id DESC
		LIMIT $4 OFFSET $5`

	rows, err := q.db.Query(ctx, query, arg.SearchID, arg.OrderType, arg.Closed, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := []Sale{}
	for rows.Next() {
		var s Sale
		if err := rows.Scan(
			&s.ID, &s.ClientName, &s.SaleDate, &s.TotalAmount, &s.AreaID, &s.OrderType,
			&s.PhoneNo, &s.DeliveryAddress, &s.UserID, &s.DispatchAmount, &s.DeliveryCharges, &s.Closed,
		); err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

type CountSalesParams struct {
	SearchID  pgtype.Int8
	OrderType pgtype.Text
	Closed    pgtype.Bool
}

func (q *Queries) CountSales(ctx context.Context, arg CountSalesParams) (int64, error) {
	const query = `
		SELECT COUNT(*)
		FROM sales
		WHERE ($1::bigint IS NULL OR id = $1)
		  AND ($2::text IS NULL OR order_type = $2)
		  AND ($3::boolean IS NULL OR closed = $3)`

	var total int64
	err := q.db.QueryRow(ctx, query, arg.SearchID, arg.OrderType, arg.Closed).Scan(&total)
	return total, err
}

type CreateSaleItemParams struct {
	SaleID    int64
	ItemCode  string
	Qty       int32
	SalePrice pgtype.Numeric
}

func (q *Queries) CreateSaleItem(ctx context.Context, arg CreateSaleItemParams) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO sale_items (sale_id, item_code, qty, sale_price) VALUES ($1, $2, $3, $4)`,
		arg.SaleID, arg.ItemCode, arg.Qty, arg.SalePrice)
	return err
}

func (q *Queries) DeleteSaleItems(ctx context.Context, saleID int64) error {
	_, err := q.db.Exec(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, saleID)
	return err
}

// SaleItemDetailRow joins a sale line with its catalog product, when one
// still exists for the item code.
type SaleItemDetailRow struct {
	SaleItem
	ProductID pgtype.Int8
	ItemName  pgtype.Text
}

func (q *Queries) ListSaleItemDetails(ctx context.Context, saleID int64) ([]SaleItemDetailRow, error) {
	const query = `
		SELECT si.id, si.sale_id, si.item_code, si.qty, si.sale_price,
		       p.id AS product_id, p.item_name
		FROM sale_items si
		LEFT JOIN products p ON p.item_code = si.item_code
		WHERE si.sale_id = $1
		ORDER BY si.id`

	rows, err := q.db.Query(ctx, query, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []SaleItemDetailRow{}
	for rows.Next() {
		var row SaleItemDetailRow
		if err := rows.Scan(
			&row.ID, &row.SaleID, &row.ItemCode, &row.Qty, &row.SalePrice,
			&row.ProductID, &row.ItemName,
		); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}
