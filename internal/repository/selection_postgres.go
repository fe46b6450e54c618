package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Pool is the subset of pgxpool.Pool the store uses, so tests can use pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSelectionStore keeps one row per identity in wallet_selections.
type PostgresSelectionStore struct {
	pool  Pool
	email string
}

func NewPostgresSelectionStore(pool Pool, email string) *PostgresSelectionStore {
	return &PostgresSelectionStore{pool: pool, email: strings.ToLower(email)}
}

func (s *PostgresSelectionStore) Load(ctx context.Context) (string, error) {
	query := `SELECT payment_method FROM wallet_selections WHERE email = $1`

	var method string
	err := s.pool.QueryRow(ctx, query, s.email).Scan(&method)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("load selection: %w", err)
	}
	return method, nil
}

func (s *PostgresSelectionStore) Save(ctx context.Context, method string) error {
	query := `INSERT INTO wallet_selections (email, payment_method, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (email) DO UPDATE SET payment_method = EXCLUDED.payment_method, updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, s.email, strings.ToLower(method)); err != nil {
		return fmt.Errorf("save selection: %w", err)
	}
	return nil
}
