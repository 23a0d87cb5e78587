package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/munimji/munimji/internal/platform/db"
)

// NextTx atomically upserts and increments the counter on q. The increment
// and the read happen in a single statement, so two concurrent callers can
// never observe the same number.
func NextTx(ctx context.Context, q db.Querier, firmID int64, voucherType string, at time.Time) (string, error) {
	prefix, err := Prefix(voucherType)
	if err != nil {
		return "", err
	}
	fy := FinancialYear(at)
	var n int64
	err = q.QueryRow(ctx, `INSERT INTO voucher_counters (firm_id, fy, prefix, last_number)
VALUES ($1, $2, $3, 1)
ON CONFLICT (firm_id, fy, prefix)
DO UPDATE SET last_number = voucher_counters.last_number + 1, updated_at = NOW()
RETURNING last_number`, firmID, fy, prefix).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("sequence: increment counter %s/%s: %w", prefix, fy, err)
	}
	return Format(prefix, fy, n), nil
}

// PreviewTx reads last_number + 1 without mutating the counter.
func PreviewTx(ctx context.Context, q db.Querier, firmID int64, voucherType string, at time.Time) (string, error) {
	prefix, err := Prefix(voucherType)
	if err != nil {
		return "", err
	}
	fy := FinancialYear(at)
	var last int64
	err = q.QueryRow(ctx, `SELECT last_number FROM voucher_counters WHERE firm_id=$1 AND fy=$2 AND prefix=$3`,
		firmID, fy, prefix).Scan(&last)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("sequence: read counter %s/%s: %w", prefix, fy, err)
	}
	return Format(prefix, fy, last+1), nil
}
