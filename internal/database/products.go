package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	const query = `
		SELECT id, item_code, item_name, sale_price, qty_balance, category_id, is_active
		FROM products
		ORDER BY id ASC`

	return q.scanProducts(ctx, query)
}

func (q *Queries) ListProductsByCategory(ctx context.Context, categoryID int64) ([]Product, error) {
	const query = `
		SELECT id, item_code, item_name, sale_price, qty_balance, category_id, is_active
		FROM products
		WHERE category_id = $1 AND is_active
		ORDER BY item_name`

	return q.scanProducts(ctx, query, categoryID)
}

func (q *Queries) scanProducts(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.ItemCode, &p.ItemName, &p.SalePrice, &p.QtyBalance, &p.CategoryID, &p.IsActive,
		); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

type CreateProductParams struct {
	ItemCode   string
	ItemName   string
	SalePrice  pgtype.Numeric
	QtyBalance pgtype.Numeric
	CategoryID pgtype.Int8
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, `
		INSERT INTO products (item_code, item_name, sale_price, qty_balance, category_id, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id`,
		arg.ItemCode, arg.ItemName, arg.SalePrice, arg.QtyBalance, arg.CategoryID).Scan(&id)
	return id, err
}
