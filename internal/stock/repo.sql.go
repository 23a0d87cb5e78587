package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/munimji/munimji/internal/platform/db"
)

// BatchStore exposes the transactional operations batch reconciliation
// needs. Implemented by TxStore; mocked in service tests.
type BatchStore interface {
	GetItemForUpdate(ctx context.Context, firmID, itemID int64) (Item, error)
	FindItemByName(ctx context.Context, firmID int64, name string) (Item, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
	UpdateItemInfo(ctx context.Context, item Item) error
	InsertBatch(ctx context.Context, b Batch) (int64, error)
	UpdateBatchInfo(ctx context.Context, b Batch) error
	DecrementBatchQty(ctx context.Context, batchID int64, qty float64) (bool, error)
	AddBatchQty(ctx context.Context, itemID int64, label string, qty float64) (bool, error)
	RecomputeAggregates(ctx context.Context, itemID int64) (float64, float64, error)
	InsertMovement(ctx context.Context, m Movement) (int64, error)
	MovementsForBill(ctx context.Context, firmID, billID int64) ([]Movement, error)
	DeleteMovementsForBill(ctx context.Context, firmID, billID int64) ([]Movement, error)
}

// Repository persists stock data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn against a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, BatchStore) error) error {
	if r == nil {
		return errors.New("stock repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, TxStore{Q: tx})
	})
}

// GetItem loads an item with its batches.
func (r *Repository) GetItem(ctx context.Context, firmID, itemID int64) (Item, error) {
	return TxStore{Q: r.pool}.getItem(ctx, firmID, itemID, false)
}

// ListItems returns all items of a firm, batches included.
func (r *Repository) ListItems(ctx context.Context, firmID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, firm_id, name, hsn, unit, gst_rate, rate, qty, total, created_at, updated_at
FROM stock_items WHERE firm_id=$1 ORDER BY name`, firmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.FirmID, &it.Name, &it.HSN, &it.Unit, &it.GSTRate, &it.Rate, &it.Qty, &it.Total, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	store := TxStore{Q: r.pool}
	for i := range items {
		batches, err := store.batchesForItem(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Batches = batches
	}
	return items, nil
}

// TxStore implements BatchStore over a pool or transaction.
type TxStore struct {
	Q db.Querier
}

func (s TxStore) getItem(ctx context.Context, firmID, itemID int64, forUpdate bool) (Item, error) {
	query := `SELECT id, firm_id, name, hsn, unit, gst_rate, rate, qty, total, created_at, updated_at
FROM stock_items WHERE id=$1 AND firm_id=$2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var it Item
	err := s.Q.QueryRow(ctx, query, itemID, firmID).
		Scan(&it.ID, &it.FirmID, &it.Name, &it.HSN, &it.Unit, &it.GSTRate, &it.Rate, &it.Qty, &it.Total, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, err
	}
	batches, err := s.batchesForItem(ctx, it.ID)
	if err != nil {
		return Item{}, err
	}
	it.Batches = batches
	return it, nil
}

func (s TxStore) batchesForItem(ctx context.Context, itemID int64) ([]Batch, error) {
	rows, err := s.Q.Query(ctx, `SELECT id, item_id, COALESCE(label, ''), qty, rate, expiry, mrp
FROM stock_batches WHERE item_id=$1 ORDER BY id ASC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var batches []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.ItemID, &b.Label, &b.Qty, &b.Rate, &b.Expiry, &b.MRP); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// GetItemForUpdate loads and row-locks an item with its batches.
func (s TxStore) GetItemForUpdate(ctx context.Context, firmID, itemID int64) (Item, error) {
	return s.getItem(ctx, firmID, itemID, true)
}

// FindItemByName locates an item by exact name within the firm.
func (s TxStore) FindItemByName(ctx context.Context, firmID int64, name string) (Item, error) {
	var id int64
	err := s.Q.QueryRow(ctx, `SELECT id FROM stock_items WHERE firm_id=$1 AND name=$2 FOR UPDATE`, firmID, name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, err
	}
	return s.getItem(ctx, firmID, id, false)
}

// InsertItem creates the item header.
func (s TxStore) InsertItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := s.Q.QueryRow(ctx, `INSERT INTO stock_items (firm_id, name, hsn, unit, gst_rate, rate, qty, total)
VALUES ($1,$2,$3,$4,$5,$6,0,0) RETURNING id`,
		item.FirmID, item.Name, item.HSN, item.Unit, item.GSTRate, item.Rate).Scan(&id)
	return id, err
}

// UpdateItemInfo overwrites descriptive fields on the item header.
func (s TxStore) UpdateItemInfo(ctx context.Context, item Item) error {
	_, err := s.Q.Exec(ctx, `UPDATE stock_items SET hsn=$3, unit=$4, gst_rate=$5, rate=$6, updated_at=NOW()
WHERE id=$1 AND firm_id=$2`, item.ID, item.FirmID, item.HSN, item.Unit, item.GSTRate, item.Rate)
	return err
}

// InsertBatch adds a batch row.
func (s TxStore) InsertBatch(ctx context.Context, b Batch) (int64, error) {
	var id int64
	err := s.Q.QueryRow(ctx, `INSERT INTO stock_batches (item_id, label, qty, rate, expiry, mrp)
VALUES ($1, NULLIF($2,''), $3, $4, $5, $6) RETURNING id`,
		b.ItemID, b.Label, b.Qty, b.Rate, b.Expiry, b.MRP).Scan(&id)
	return id, err
}

// UpdateBatchInfo overwrites rate/expiry/mrp on an existing batch.
func (s TxStore) UpdateBatchInfo(ctx context.Context, b Batch) error {
	_, err := s.Q.Exec(ctx, `UPDATE stock_batches SET rate=$2, expiry=$3, mrp=$4 WHERE id=$1`,
		b.ID, b.Rate, b.Expiry, b.MRP)
	return err
}

// DecrementBatchQty conditionally deducts qty. Returns false when the batch
// holds less than qty; the read and write are one statement, so concurrent
// sales cannot oversell the batch.
func (s TxStore) DecrementBatchQty(ctx context.Context, batchID int64, qty float64) (bool, error) {
	tag, err := s.Q.Exec(ctx, `UPDATE stock_batches SET qty = qty - $2 WHERE id=$1 AND qty >= $2`, batchID, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// AddBatchQty increments the batch matching (item, label). Returns false when
// no such batch exists so the caller can recreate it.
func (s TxStore) AddBatchQty(ctx context.Context, itemID int64, label string, qty float64) (bool, error) {
	tag, err := s.Q.Exec(ctx, `UPDATE stock_batches SET qty = qty + $3 WHERE item_id=$1 AND label IS NOT DISTINCT FROM NULLIF($2,'')`,
		itemID, label, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RecomputeAggregates refreshes the item's qty and total from its batches and
// returns the new values.
func (s TxStore) RecomputeAggregates(ctx context.Context, itemID int64) (float64, float64, error) {
	var qty, total float64
	err := s.Q.QueryRow(ctx, `UPDATE stock_items
SET qty = (SELECT COALESCE(SUM(qty), 0) FROM stock_batches WHERE item_id=$1),
    total = (SELECT COALESCE(SUM(qty), 0) FROM stock_batches WHERE item_id=$1) * rate,
    updated_at = NOW()
WHERE id=$1
RETURNING qty, total`, itemID).Scan(&qty, &total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, ErrItemNotFound
		}
		return 0, 0, err
	}
	return qty, total, nil
}

// InsertMovement appends a stock movement record.
func (s TxStore) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := s.Q.QueryRow(ctx, `INSERT INTO stock_movements (firm_id, item_id, batch_label, movement_type, qty, rate, bill_id, created_by)
VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7,$8) RETURNING id`,
		m.FirmID, m.ItemID, m.BatchLabel, string(m.Type), m.Qty, m.Rate, m.BillID, m.CreatedBy).Scan(&id)
	return id, err
}

// MovementsForBill lists the movements a bill produced.
func (s TxStore) MovementsForBill(ctx context.Context, firmID, billID int64) ([]Movement, error) {
	rows, err := s.Q.Query(ctx, `SELECT id, firm_id, item_id, COALESCE(batch_label,''), movement_type, qty, rate, bill_id, created_by, created_at
FROM stock_movements WHERE firm_id=$1 AND bill_id=$2 ORDER BY id ASC`, firmID, billID)
	if err != nil {
		return nil, err
	}
	return scanMovements(rows)
}

// DeleteMovementsForBill removes and returns the movements a bill produced,
// so the caller can restore the consumed quantities.
func (s TxStore) DeleteMovementsForBill(ctx context.Context, firmID, billID int64) ([]Movement, error) {
	rows, err := s.Q.Query(ctx, `DELETE FROM stock_movements WHERE firm_id=$1 AND bill_id=$2
RETURNING id, firm_id, item_id, COALESCE(batch_label,''), movement_type, qty, rate, bill_id, created_by, created_at`, firmID, billID)
	if err != nil {
		return nil, err
	}
	return scanMovements(rows)
}

func scanMovements(rows pgx.Rows) ([]Movement, error) {
	defer rows.Close()
	var movements []Movement
	for rows.Next() {
		var m Movement
		var mt string
		if err := rows.Scan(&m.ID, &m.FirmID, &m.ItemID, &m.BatchLabel, &mt, &m.Qty, &m.Rate, &m.BillID, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Type = MovementType(mt)
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stock: scan movements: %w", err)
	}
	return movements, nil
}
