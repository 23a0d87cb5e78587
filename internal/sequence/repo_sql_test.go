package sequence

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterRow struct {
	n   int64
	err error
}

func (r counterRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.n
	return nil
}

// counterQuerier fakes the voucher_counters table for one (firm, fy, prefix)
// key: SELECTs read the counter, the upsert increments it. Every statement is
// recorded so tests can assert what PreviewTx actually issues.
type counterQuerier struct {
	last       int64
	hasCounter bool
	statements []string
	execCalls  int
}

func (q *counterQuerier) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	q.execCalls++
	q.statements = append(q.statements, sql)
	return pgconn.CommandTag{}, nil
}

func (q *counterQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	q.statements = append(q.statements, sql)
	return nil, pgx.ErrNoRows
}

func (q *counterQuerier) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	q.statements = append(q.statements, sql)
	if strings.HasPrefix(sql, "INSERT") {
		q.last++
		q.hasCounter = true
		return counterRow{n: q.last}
	}
	if !q.hasCounter {
		return counterRow{err: pgx.ErrNoRows}
	}
	return counterRow{n: q.last}
}

func midYearDate(t *testing.T) time.Time {
	t.Helper()
	at, err := time.Parse("2006-01-02", "2025-06-15")
	require.NoError(t, err)
	return at
}

func TestPreviewTxDoesNotMutateCounter(t *testing.T) {
	q := &counterQuerier{last: 41, hasCounter: true}
	at := midYearDate(t)

	got, err := PreviewTx(context.Background(), q, 1, "SALES", at)
	require.NoError(t, err)
	assert.Equal(t, "SI/2025-26/0042", got)

	again, err := PreviewTx(context.Background(), q, 1, "SALES", at)
	require.NoError(t, err)
	assert.Equal(t, got, again, "repeated previews must hand out the same number")

	assert.EqualValues(t, 41, q.last)
	assert.Zero(t, q.execCalls)
	for _, stmt := range q.statements {
		assert.Truef(t, strings.HasPrefix(stmt, "SELECT"), "preview issued a non-SELECT statement: %s", stmt)
	}
}

func TestPreviewTxNoCounterYet(t *testing.T) {
	q := &counterQuerier{}

	got, err := PreviewTx(context.Background(), q, 1, "PAYMENT", midYearDate(t))
	require.NoError(t, err)
	assert.Equal(t, "PV/2025-26/0001", got)
	assert.False(t, q.hasCounter)
}

func TestPreviewTxMatchesNextTx(t *testing.T) {
	q := &counterQuerier{last: 7, hasCounter: true}
	at := midYearDate(t)

	preview, err := PreviewTx(context.Background(), q, 1, "RECEIPT", at)
	require.NoError(t, err)

	issued, err := NextTx(context.Background(), q, 1, "RECEIPT", at)
	require.NoError(t, err)
	assert.Equal(t, preview, issued, "preview must show the number the next issue will take")

	after, err := PreviewTx(context.Background(), q, 1, "RECEIPT", at)
	require.NoError(t, err)
	assert.Equal(t, "RV/2025-26/0009", after)
}

func TestPreviewTxUnknownType(t *testing.T) {
	q := &counterQuerier{}
	_, err := PreviewTx(context.Background(), q, 1, "  ", midYearDate(t))
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Empty(t, q.statements)
}
