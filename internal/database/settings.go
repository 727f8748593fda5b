package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// GetSetting returns the single configuration row. Returns pgx.ErrNoRows on a
// fresh database; callers fall back to zero charges.
func (q *Queries) GetSetting(ctx context.Context) (Setting, error) {
	const query = `
		SELECT id, percentage_service_charges, fix_delivery_charges
		FROM settings
		ORDER BY id
		LIMIT 1`

	var s Setting
	err := q.db.QueryRow(ctx, query).Scan(&s.ID, &s.PercentageServiceCharges, &s.FixDeliveryCharges)
	return s, err
}

type UpsertSettingParams struct {
	PercentageServiceCharges pgtype.Numeric
	FixDeliveryCharges       pgtype.Numeric
}

func (q *Queries) UpsertSetting(ctx context.Context, arg UpsertSettingParams) error {
	const query = `
		INSERT INTO settings (id, percentage_service_charges, fix_delivery_charges)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE
		SET percentage_service_charges = EXCLUDED.percentage_service_charges,
		    fix_delivery_charges = EXCLUDED.fix_delivery_charges`

	_, err := q.db.Exec(ctx, query, arg.PercentageServiceCharges, arg.FixDeliveryCharges)
	return err
}
