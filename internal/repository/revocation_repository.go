package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/repository/base"
)

// RevocationRepository отозванные токены в PostgreSQL, используется когда Redis не настроен
type RevocationRepository struct {
	*base.Repository
}

func NewRevocationRepository(db base.DBTX) *RevocationRepository {
	return &RevocationRepository{Repository: base.NewRepository(db)}
}

func (r *RevocationRepository) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	query := `
		INSERT INTO revoked_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`
	if _, err := r.ExecAffected(ctx, query, jti, expiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *RevocationRepository) IsRevoked(ctx context.Context, jti string, now time.Time) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti = $1 AND expires_at > $2)`

	var revoked bool
	if err := r.QueryRow(ctx, query, jti, now).Scan(&revoked); err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// PurgeExpired удаляет записи, срок которых истёк
func (r *RevocationRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	affected, err := r.ExecAffected(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}
	return affected, nil
}
