package pgsink

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetdedup/internal/dedup"
)

// fakeTx records the statements a Sink issues. Methods the sink never calls
// fall through to the nil embedded interface.
type fakeTx struct {
	pgx.Tx

	execSQL    []string
	copyTable  pgx.Identifier
	copyCols   []string
	copyRows   [][]any
	copyErr    error
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (f *fakeTx) CopyFrom(_ context.Context, table pgx.Identifier, cols []string, src pgx.CopyFromSource) (int64, error) {
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	f.copyTable = table
	f.copyCols = cols
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return 0, err
		}
		f.copyRows = append(f.copyRows, vals)
	}
	return int64(len(f.copyRows)), src.Err()
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

type fakeDB struct {
	tx  *fakeTx
	err error
}

func (f *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tx, nil
}

func sampleDataset(t *testing.T) *dedup.Dataset {
	t.Helper()
	ds, err := dedup.NewDataset(
		[]string{"Date", "Machine No.", "Qty"},
		[]dedup.Row{
			{dedup.Text("2025-01-01"), dedup.Text("M001"), dedup.Int(10)},
			{dedup.Text("2025-01-02"), dedup.Text("M002"), dedup.Null()},
		},
	)
	require.NoError(t, err)
	return ds
}

func TestSink_Write(t *testing.T) {
	tx := &fakeTx{}
	sink := New(&fakeDB{tx: tx})
	runID := uuid.New()

	n, err := sink.Write(context.Background(), "reports.clean_rows", sampleDataset(t), runID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.Len(t, tx.execSQL, 1)
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "reports"."clean_rows" ("run_id" UUID NOT NULL, "row_index" INTEGER NOT NULL, "Date" TEXT, "Machine No." TEXT, "Qty" TEXT)`,
		tx.execSQL[0])

	assert.Equal(t, pgx.Identifier{"reports", "clean_rows"}, tx.copyTable)
	assert.Equal(t, []string{"run_id", "row_index", "Date", "Machine No.", "Qty"}, tx.copyCols)
	require.Len(t, tx.copyRows, 2)

	first := tx.copyRows[0]
	assert.Equal(t, pgtype.UUID{Bytes: runID, Valid: true}, first[0])
	assert.Equal(t, int32(0), first[1])
	assert.Equal(t, pgtype.Text{String: "M001", Valid: true}, first[3])
	assert.Equal(t, pgtype.Text{String: "10", Valid: true}, first[4])
	assert.Equal(t, pgtype.Text{}, tx.copyRows[1][4], "null cells are SQL NULL")

	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
}

func TestSink_WriteErrors(t *testing.T) {
	ds := sampleDataset(t)

	_, err := New(&fakeDB{tx: &fakeTx{}}).Write(context.Background(), "a.b.c", ds, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidTable)

	_, err = New(&fakeDB{err: errors.New("connection refused")}).Write(context.Background(), "t", ds, uuid.New())
	assert.ErrorContains(t, err, "database connect")

	tx := &fakeTx{copyErr: errors.New("boom")}
	_, err = New(&fakeDB{tx: tx}).Write(context.Background(), "t", ds, uuid.New())
	assert.ErrorContains(t, err, "copy rows")
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestParseTable(t *testing.T) {
	ident, err := ParseTable(" rows ")
	require.NoError(t, err)
	assert.Equal(t, pgx.Identifier{"rows"}, ident)

	ident, err = ParseTable(`public.weird"name`)
	require.NoError(t, err)
	assert.Equal(t, `"public"."weird""name"`, ident.Sanitize())

	for _, bad := range []string{"", ".t", "s.", "a.b.c"} {
		_, err := ParseTable(bad)
		assert.ErrorIs(t, err, ErrInvalidTable, bad)
	}
}

func TestColumnNames(t *testing.T) {
	got := ColumnNames([]string{"a", "a", "run_id", " ", strings.Repeat("x", 70), strings.Repeat("x", 70)})

	assert.Equal(t, []string{"run_id", "row_index", "a", "a_2", "run_id_2", "column_3"}, got[:6])
	assert.Len(t, got[6], maxIdentifierLen)
	assert.Len(t, got[7], maxIdentifierLen)
	assert.True(t, strings.HasSuffix(got[7], "_2"))
}

func TestTruncateIdentifier(t *testing.T) {
	assert.Equal(t, "abc", truncateIdentifier("abc", 5))
	assert.Equal(t, "ab", truncateIdentifier("abé", 3), "does not split a rune")
}
