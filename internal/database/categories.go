package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	const query = `
		SELECT id, name, image, is_active
		FROM categories
		WHERE is_active
		ORDER BY name`

	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Image, &c.IsActive); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

type CreateCategoryParams struct {
	Name  string
	Image pgtype.Text
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx,
		`INSERT INTO categories (name, image, is_active) VALUES ($1, $2, TRUE) RETURNING id`,
		arg.Name, arg.Image).Scan(&id)
	return id, err
}
