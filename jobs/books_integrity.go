package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BooksIntegrityJob sweeps the books for drift the write path should never
// produce: voucher groups whose debits and credits disagree, and stock items
// whose cached aggregates no longer match their batches.
type BooksIntegrityJob struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewBooksIntegrityJob constructs the job with its dependencies.
func NewBooksIntegrityJob(pool *pgxpool.Pool, logger *slog.Logger) *BooksIntegrityJob {
	return &BooksIntegrityJob{pool: pool, logger: logger}
}

// Handle processes one integrity sweep task.
func (j *BooksIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload BooksIntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("books integrity: decode payload: %w", err)
		}
	}

	unbalanced, err := j.sweepUnbalancedGroups(ctx, payload.FirmID)
	if err != nil {
		return fmt.Errorf("books integrity: ledger sweep: %w", err)
	}
	drifted, err := j.sweepStockDrift(ctx, payload.FirmID)
	if err != nil {
		return fmt.Errorf("books integrity: stock sweep: %w", err)
	}

	j.logger.Info("books integrity sweep finished",
		"firm_id", payload.FirmID,
		"unbalanced_groups", unbalanced,
		"drifted_items", drifted)
	return nil
}

func (j *BooksIntegrityJob) sweepUnbalancedGroups(ctx context.Context, firmID int64) (int, error) {
	query := `SELECT firm_id, voucher_id, voucher_type, SUM(debit), SUM(credit)
FROM ledger_entries
WHERE ($1 = 0 OR firm_id = $1)
GROUP BY firm_id, voucher_id, voucher_type
HAVING ABS(SUM(debit) - SUM(credit)) > 0.01`
	rows, err := j.pool.Query(ctx, query, firmID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var (
			firm, group   int64
			kind          string
			debit, credit float64
		)
		if err := rows.Scan(&firm, &group, &kind, &debit, &credit); err != nil {
			return count, err
		}
		count++
		j.logger.Warn("unbalanced voucher group",
			"firm_id", firm,
			"voucher_id", group,
			"voucher_type", kind,
			"debit", debit,
			"credit", credit)
	}
	return count, rows.Err()
}

func (j *BooksIntegrityJob) sweepStockDrift(ctx context.Context, firmID int64) (int, error) {
	query := `SELECT i.firm_id, i.id, i.name, i.qty, COALESCE(b.qty, 0), i.total, COALESCE(b.qty, 0) * i.rate
FROM stock_items i
LEFT JOIN (
	SELECT item_id, SUM(qty) AS qty
	FROM stock_batches GROUP BY item_id
) b ON b.item_id = i.id
WHERE ($1 = 0 OR i.firm_id = $1)
  AND (ABS(i.qty - COALESCE(b.qty, 0)) > 0.0001
    OR ABS(i.total - COALESCE(b.qty, 0) * i.rate) > 0.01)`
	rows, err := j.pool.Query(ctx, query, firmID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var (
			firm, itemID      int64
			item              string
			qty, batchQty     float64
			total, batchTotal float64
		)
		if err := rows.Scan(&firm, &itemID, &item, &qty, &batchQty, &total, &batchTotal); err != nil {
			return count, err
		}
		count++
		j.logger.Warn("stock aggregate drift",
			"firm_id", firm,
			"stock_id", itemID,
			"item", item,
			"item_qty", qty,
			"batch_qty", batchQty,
			"item_total", total,
			"batch_total", batchTotal)
	}
	return count, rows.Err()
}
