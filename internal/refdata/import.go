package refdata

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/jackc/pgx/v5"

	"github.com/apexpos/admin/internal/platform/db"
	"github.com/apexpos/admin/internal/platform/httpx"
)

// ImportRow is one line of an option list file with a kind,value header.
type ImportRow struct {
	Kind  string `csv:"kind"`
	Value string `csv:"value"`
}

// ParseImport decodes an option list CSV and checks every kind accepts
// additions. Blank values are dropped.
func ParseImport(r io.Reader) ([]ImportRow, error) {
	var raw []ImportRow
	if err := gocsv.Unmarshal(r, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	rows := make([]ImportRow, 0, len(raw))
	for i, row := range raw {
		kind, err := ParseKind(row.Kind)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		if !kind.Extendable() {
			return nil, fmt.Errorf("line %d: %w: %s", i+2, ErrFixedKind, kind)
		}
		value := strings.TrimSpace(row.Value)
		if value == "" {
			continue
		}
		rows = append(rows, ImportRow{Kind: string(kind), Value: value})
	}
	return rows, nil
}

const importSQL = `INSERT INTO ref_options (kind, value, position)
SELECT $1, $2, COALESCE(MAX(position), 0) + 1 FROM ref_options WHERE kind = $1
ON CONFLICT (kind, lower(value)) DO NOTHING`

// Import adds rows in a single transaction. Values already present are
// skipped; the count of inserted rows is returned. Callers running next to
// a Service should Bump its cache afterwards.
func Import(ctx context.Context, pool db.TxBeginner, rows []ImportRow) (int, error) {
	added := 0
	err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		for _, row := range rows {
			tag, err := tx.Exec(ctx, importSQL, row.Kind, row.Value)
			if err != nil {
				return fmt.Errorf("import %s %q: %w", row.Kind, row.Value, err)
			}
			added += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}
