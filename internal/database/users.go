package database

import "context"

func (q *Queries) GetUserByName(ctx context.Context, name string) (User, error) {
	const query = `SELECT id, name, hashed_password, is_admin FROM users WHERE name = $1`

	var u User
	err := q.db.QueryRow(ctx, query, name).Scan(&u.ID, &u.Name, &u.HashedPassword, &u.IsAdmin)
	return u, err
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	const query = `SELECT id, name, hashed_password, is_admin FROM users WHERE id = $1`

	var u User
	err := q.db.QueryRow(ctx, query, id).Scan(&u.ID, &u.Name, &u.HashedPassword, &u.IsAdmin)
	return u, err
}

type CreateUserParams struct {
	Name           string
	HashedPassword string
	IsAdmin        bool
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx,
		`INSERT INTO users (name, hashed_password, is_admin) VALUES ($1, $2, $3) RETURNING id`,
		arg.Name, arg.HashedPassword, arg.IsAdmin).Scan(&id)
	return id, err
}
