package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"task-manager/internal/logger"
	"task-manager/internal/models"
)

var ErrResetTokenNotFound = errors.New("reset token not found")

type ResetTokenRepository interface {
	Save(ctx context.Context, token *models.PasswordResetToken) error
	FindByToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	MarkUsed(ctx context.Context, id uint) error
	CleanupExpired(ctx context.Context) error
}

// SQLResetTokenRepo は password_reset_tokens テーブルを扱います。
type SQLResetTokenRepo struct {
	DB *sql.DB
}

func NewSQLResetTokenRepo(db *sql.DB) *SQLResetTokenRepo {
	return &SQLResetTokenRepo{DB: db}
}

func (r *SQLResetTokenRepo) Save(ctx context.Context, t *models.PasswordResetToken) error {
	t.CreatedAt = dbTime(time.Now())
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO password_reset_tokens (user_id, token, expires_at, created_at) VALUES (?, ?, ?, ?)",
		t.UserID, t.Token, dbTime(t.ExpiresAt), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("could not insert reset token: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("could not get last insert ID: %w", err)
	}
	t.ID = uint(id)
	return nil
}

func (r *SQLResetTokenRepo) FindByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	query := "SELECT id, user_id, token, expires_at, used_at, created_at FROM password_reset_tokens WHERE token = ?"

	var pr models.PasswordResetToken
	var usedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, token).Scan(&pr.ID, &pr.UserID, &pr.Token, &pr.ExpiresAt, &usedAt, &pr.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Debugf("[FindByToken] no rows found for token")
			return nil, ErrResetTokenNotFound
		}
		logger.Errorf("[FindByToken] scan error: %v", err)
		return nil, err
	}
	if usedAt.Valid {
		pr.UsedAt = &usedAt.Time
	}
	logger.Debugf("[FindByToken] found token id=%d user_id=%d expires_at=%s", pr.ID, pr.UserID, pr.ExpiresAt)
	return &pr, nil
}

func (r *SQLResetTokenRepo) CleanupExpired(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `
		DELETE FROM password_reset_tokens
		WHERE used_at IS NOT NULL
		   OR expires_at < ?
	`, dbTime(time.Now()))
	if err != nil {
		logger.Errorf("[CleanupExpired] %v", err)
		return err
	}
	logger.Debugf("[CleanupExpired] expired or used tokens cleaned")
	return nil
}

func (r *SQLResetTokenRepo) MarkUsed(ctx context.Context, id uint) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE password_reset_tokens SET used_at = ? WHERE id = ?",
		dbTime(time.Now()), id,
	)
	return err
}
