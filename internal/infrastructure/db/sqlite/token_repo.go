package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ark-network/giveaway/internal/core/domain"
)

const (
	upsertAllowedToken = `
INSERT INTO allowed_token (token, allowed, updated_at) VALUES (?, ?, ?)
ON CONFLICT(token) DO UPDATE SET
    allowed = EXCLUDED.allowed,
    updated_at = EXCLUDED.updated_at`

	selectAllowedToken = `
SELECT token, allowed, updated_at FROM allowed_token WHERE token = ?`

	selectAllowedTokens = `
SELECT token, allowed, updated_at FROM allowed_token ORDER BY token`
)

type allowedTokenRepository struct {
	db *sql.DB
}

func NewAllowedTokenRepository(config ...interface{}) (domain.AllowedTokenRepository, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config")
	}
	db, ok := config[0].(*sql.DB)
	if !ok {
		return nil, fmt.Errorf(
			"cannot open allowed token repository: invalid config, expected db at 0",
		)
	}

	return &allowedTokenRepository{db}, nil
}

func (r *allowedTokenRepository) Upsert(ctx context.Context, token domain.AllowedToken) error {
	if _, err := r.db.ExecContext(
		ctx, upsertAllowedToken, token.Token, token.Allowed, token.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert allowed token: %w", err)
	}
	return nil
}

func (r *allowedTokenRepository) Get(
	ctx context.Context, token string,
) (*domain.AllowedToken, error) {
	var t domain.AllowedToken
	if err := r.db.QueryRowContext(ctx, selectAllowedToken, token).Scan(
		&t.Token, &t.Allowed, &t.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *allowedTokenRepository) List(ctx context.Context) ([]domain.AllowedToken, error) {
	rows, err := r.db.QueryContext(ctx, selectAllowedTokens)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := make([]domain.AllowedToken, 0)
	for rows.Next() {
		var t domain.AllowedToken
		if err := rows.Scan(&t.Token, &t.Allowed, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *allowedTokenRepository) Close() {
	_ = r.db.Close()
}
