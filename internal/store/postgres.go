package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xrplquantum/dex-engine/internal/dexerr"
	"github.com/xrplquantum/dex-engine/internal/model"
)

// PostgresStore implements Store backed by PostgreSQL.
//
// Schema:
//
//	CREATE TABLE pairs (
//	    id           TEXT PRIMARY KEY,
//	    base_token   TEXT NOT NULL,
//	    quote_token  TEXT NOT NULL,
//	    base_issuer  TEXT NOT NULL DEFAULT '',
//	    pool_account TEXT NOT NULL DEFAULT '',
//	    status       TEXT NOT NULL DEFAULT 'pending',
//	    created_by   TEXT NOT NULL DEFAULT '',
//	    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    UNIQUE (base_token, quote_token)
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreatePair(ctx context.Context, p *model.Pair) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pairs (id, base_token, quote_token, base_issuer, pool_account, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.BaseToken, p.QuoteToken, p.BaseIssuer, p.PoolAccount, p.Status, p.CreatedBy, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pair: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPair(ctx context.Context, id string) (*model.Pair, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, base_token, quote_token, base_issuer, pool_account, status, created_by, created_at
		FROM pairs WHERE id = $1`, id)

	var p model.Pair
	err := row.Scan(&p.ID, &p.BaseToken, &p.QuoteToken, &p.BaseIssuer,
		&p.PoolAccount, &p.Status, &p.CreatedBy, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: pair %s", dexerr.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select pair: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) ListPairs(ctx context.Context) ([]model.Pair, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, base_token, quote_token, base_issuer, pool_account, status, created_by, created_at
		FROM pairs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list pairs: %w", err)
	}
	defer rows.Close()

	var pairs []model.Pair
	for rows.Next() {
		var p model.Pair
		if err := rows.Scan(&p.ID, &p.BaseToken, &p.QuoteToken, &p.BaseIssuer,
			&p.PoolAccount, &p.Status, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

func (s *PostgresStore) UpdatePairStatus(ctx context.Context, id, status string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE pairs SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update pair status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: pair %s", dexerr.ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) SetPoolAccount(ctx context.Context, id, account string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE pairs SET pool_account = $2 WHERE id = $1`, id, account)
	if err != nil {
		return fmt.Errorf("update pool account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: pair %s", dexerr.ErrNotFound, id)
	}
	return nil
}
