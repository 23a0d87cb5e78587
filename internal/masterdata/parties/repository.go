package parties

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/munimji/munimji/internal/shared"
)

// Repository persists parties.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const partyColumns = `id, firm_id, name, COALESCE(gstin,''), COALESCE(state,''), COALESCE(state_code,''), COALESCE(address,''), COALESCE(pin,''), COALESCE(phone,''), created_at, updated_at`

func scanParty(row pgx.Row) (Party, error) {
	var p Party
	err := row.Scan(&p.ID, &p.FirmID, &p.Name, &p.GSTIN, &p.State, &p.StateCode, &p.Address, &p.PIN, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Party{}, ErrPartyNotFound
		}
		return Party{}, err
	}
	return p, nil
}

// Get loads a party by id regardless of firm. Callers that act on behalf of
// a firm use GetScoped instead.
func (r *Repository) Get(ctx context.Context, id int64) (Party, error) {
	return scanParty(r.pool.QueryRow(ctx, `SELECT `+partyColumns+` FROM parties WHERE id=$1`, id))
}

// GetScoped loads a party and verifies firm ownership. A party that exists
// under another firm yields shared.ErrFirmMismatch, never ErrPartyNotFound.
func (r *Repository) GetScoped(ctx context.Context, firmID, id int64) (Party, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return Party{}, err
	}
	if p.FirmID != firmID {
		return Party{}, shared.ErrFirmMismatch
	}
	return p, nil
}

// Create inserts a new party.
func (r *Repository) Create(ctx context.Context, in CreateInput) (Party, error) {
	if err := in.Validate(); err != nil {
		return Party{}, err
	}
	return scanParty(r.pool.QueryRow(ctx, `INSERT INTO parties (firm_id, name, gstin, state, state_code, address, pin, phone)
VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),NULLIF($5,''),NULLIF($6,''),NULLIF($7,''),NULLIF($8,''))
RETURNING `+partyColumns,
		in.FirmID, in.Name, in.GSTIN, in.State, in.StateCode, in.Address, in.PIN, in.Phone))
}

// List returns the firm's parties ordered by name.
func (r *Repository) List(ctx context.Context, firmID int64) ([]Party, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+partyColumns+` FROM parties WHERE firm_id=$1 ORDER BY name`, firmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Party
	for rows.Next() {
		var p Party
		if err := rows.Scan(&p.ID, &p.FirmID, &p.Name, &p.GSTIN, &p.State, &p.StateCode, &p.Address, &p.PIN, &p.Phone, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
