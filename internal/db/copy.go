package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom bulk-inserts rows into a table using the COPY protocol. A
// schema-qualified name such as "analytics.sessions" is split on the dot.
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	return copyRows(ctx, pool, identifier(table), table, columns, rows)
}

func copyRows(ctx context.Context, pool Pool, id pgx.Identifier, name string, columns []string, rows [][]any) (int64, error) {
	n, err := pool.CopyFrom(ctx, id, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", name)
	}
	return n, nil
}
