package db

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Row is one record to upsert, column name → value. Columns are written in
// the order of UpsertRow's cols argument.
type Row map[string]any

// UpsertRow inserts one row into table, or updates every non-key column of
// the row already holding the same keys.
func UpsertRow(ctx context.Context, q Pool, table pgx.Identifier, keys, cols []string, row Row) (int64, error) {
	if len(cols) == 0 {
		return 0, eris.New("db: upsert: no columns")
	}
	if len(keys) == 0 {
		return 0, eris.New("db: upsert: no conflict keys")
	}

	args := make([]any, len(cols))
	for i, c := range cols {
		v, ok := row[c]
		if !ok {
			return 0, eris.Errorf("db: upsert %s: missing value for %q", table.Sanitize(), c)
		}
		args[i] = v
	}
	for _, k := range keys {
		if !slices.Contains(cols, k) {
			return 0, eris.Errorf("db: upsert %s: key %q is not a column", table.Sanitize(), k)
		}
	}

	tag, err := q.Exec(ctx, upsertSQL(table, keys, cols), args...)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s", table.Sanitize())
	}
	return tag.RowsAffected(), nil
}

// upsertSQL builds INSERT ... VALUES ($1..$n) ON CONFLICT (keys) DO UPDATE.
// A table made only of keys gets DO NOTHING.
func upsertSQL(table pgx.Identifier, keys, cols []string) string {
	placeholders := make([]string, len(cols))
	var sets []string
	for i, c := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if !slices.Contains(keys, c) {
			id := pgx.Identifier{c}.Sanitize()
			sets = append(sets, id+" = EXCLUDED."+id)
		}
	}

	action := "DO NOTHING"
	if len(sets) > 0 {
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		table.Sanitize(),
		quoteAndJoin(cols),
		strings.Join(placeholders, ", "),
		quoteAndJoin(keys),
		action,
	)
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
