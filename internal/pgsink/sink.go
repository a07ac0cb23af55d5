// Package pgsink loads deduplicated datasets into PostgreSQL.
//
// Each run creates the destination table when it is missing and bulk loads
// rows with the COPY protocol inside one transaction. Every cell is stored as
// TEXT next to the run ID and the row's position in the result, so repeated
// runs can share a table and be told apart.
package pgsink

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/sheetdedup/internal/config"
	"github.com/JonMunkholm/sheetdedup/internal/dedup"
)

// Metadata columns written ahead of the dataset columns.
const (
	RunIDColumn    = "run_id"
	RowIndexColumn = "row_index"
)

// maxIdentifierLen is PostgreSQL's NAMEDATALEN-1; longer names are truncated by the server.
const maxIdentifierLen = 63

// ErrInvalidTable is returned for table names that are not 1 or 2 dot-separated parts.
var ErrInvalidTable = errors.New("invalid table name")

// Beginner starts transactions. Satisfied by *pgxpool.Pool and *pgx.Conn.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Sink writes datasets to PostgreSQL.
type Sink struct {
	db Beginner
}

// New creates a Sink over db.
func New(db Beginner) *Sink {
	return &Sink{db: db}
}

// Connect opens and verifies a pool using the database settings.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("database connect: parse url: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	if cfg.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("database connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database connect: ping: %w", err)
	}
	return pool, nil
}

// ParseTable splits "schema.table" or "table" into a sanitizable identifier.
func ParseTable(name string) (pgx.Identifier, error) {
	parts := strings.Split(strings.TrimSpace(name), ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("%w %q: use table or schema.table", ErrInvalidTable, name)
	}
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("%w %q: empty name part", ErrInvalidTable, name)
		}
		parts[i] = p
	}
	return pgx.Identifier(parts), nil
}

// ColumnNames returns the table columns for a dataset header: the metadata
// columns followed by one unique, length-limited name per dataset column.
// Repeated names get a numeric suffix (_2, _3, ...).
func ColumnNames(header []string) []string {
	cols := make([]string, 0, len(header)+2)
	cols = append(cols, RunIDColumn, RowIndexColumn)

	used := map[string]bool{RunIDColumn: true, RowIndexColumn: true}
	for i, h := range header {
		base := truncateIdentifier(strings.TrimSpace(h), maxIdentifierLen)
		if base == "" {
			base = "column_" + strconv.Itoa(i)
		}

		name := base
		for n := 2; used[name]; n++ {
			suffix := "_" + strconv.Itoa(n)
			name = truncateIdentifier(base, maxIdentifierLen-len(suffix)) + suffix
		}
		used[name] = true
		cols = append(cols, name)
	}
	return cols
}

// truncateIdentifier cuts s to at most limit bytes on a rune boundary.
func truncateIdentifier(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	s = s[:limit]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// Write stores ds in table under runID and returns the number of rows copied.
func (s *Sink) Write(ctx context.Context, table string, ds *dedup.Dataset, runID uuid.UUID) (int64, error) {
	ident, err := ParseTable(table)
	if err != nil {
		return 0, err
	}
	cols := ColumnNames(ds.Columns)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("database connect: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, createTableSQL(ident, cols)); err != nil {
		return 0, fmt.Errorf("create table %s: %w", ident.Sanitize(), err)
	}

	n, err := tx.CopyFrom(ctx, ident, cols, pgx.CopyFromRows(copyRows(ds, runID)))
	if err != nil {
		return 0, fmt.Errorf("copy rows into %s: %w", ident.Sanitize(), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// createTableSQL builds the CREATE TABLE IF NOT EXISTS statement for cols.
func createTableSQL(ident pgx.Identifier, cols []string) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		colType := "TEXT"
		switch c {
		case RunIDColumn:
			colType = "UUID NOT NULL"
		case RowIndexColumn:
			colType = "INTEGER NOT NULL"
		}
		defs[i] = pgx.Identifier{c}.Sanitize() + " " + colType
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", ident.Sanitize(), strings.Join(defs, ", "))
}

// copyRows converts ds into COPY values aligned with ColumnNames.
// Nulls are sent as SQL NULL; other cells as their original text.
func copyRows(ds *dedup.Dataset, runID uuid.UUID) [][]any {
	id := pgtype.UUID{Bytes: runID, Valid: true}

	rows := make([][]any, len(ds.Rows))
	for i, row := range ds.Rows {
		vals := make([]any, 0, len(row)+2)
		vals = append(vals, id, int32(i))
		for _, v := range row {
			vals = append(vals, pgtype.Text{String: v.String(), Valid: !v.IsNull()})
		}
		rows[i] = vals
	}
	return rows
}
