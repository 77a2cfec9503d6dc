package refdata

import (
	"context"
	"fmt"

	"github.com/apexpos/admin/internal/platform/db"
)

// Repository persists extendable option lists.
type Repository interface {
	List(ctx context.Context, kind Kind) ([]Option, error)
	Insert(ctx context.Context, kind Kind, value string) (Option, error)
}

type repository struct {
	db db.Querier
}

// NewRepository returns a Postgres-backed Repository.
func NewRepository(q db.Querier) Repository {
	return &repository{db: q}
}

func (r *repository) List(ctx context.Context, kind Kind) ([]Option, error) {
	rows, err := r.db.Query(ctx, `SELECT id, kind, value, position FROM ref_options WHERE kind = $1 ORDER BY position, id`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []Option
	for rows.Next() {
		var o Option
		var k string
		if err := rows.Scan(&o.ID, &k, &o.Value, &o.Position); err != nil {
			return nil, err
		}
		o.Kind = Kind(k)
		options = append(options, o)
	}
	return options, rows.Err()
}

// Insert appends value after the last position of the list.
func (r *repository) Insert(ctx context.Context, kind Kind, value string) (Option, error) {
	o := Option{Kind: kind, Value: value}
	err := r.db.QueryRow(ctx, `INSERT INTO ref_options (kind, value, position)
SELECT $1, $2, COALESCE(MAX(position), 0) + 1 FROM ref_options WHERE kind = $1
RETURNING id, position`, string(kind), value).Scan(&o.ID, &o.Position)
	if db.IsUniqueViolation(err) {
		return Option{}, fmt.Errorf("%w: %s %q", ErrDuplicateOption, kind, value)
	}
	if err != nil {
		return Option{}, err
	}
	return o, nil
}
