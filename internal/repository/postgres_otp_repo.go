package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/nimart/internal/model"
)

// PostgresOTPRepo はPostgreSQLを使用したワンタイムコードリポジトリ。
type PostgresOTPRepo struct {
	db *sql.DB
}

// NewPostgresOTPRepo はPostgresOTPRepoを生成する。
func NewPostgresOTPRepo(db *sql.DB) *PostgresOTPRepo {
	return &PostgresOTPRepo{db: db}
}

// Upsert はメールアドレスと種別ごとに1件のコードを保存する。
// 再送時は新しいコードと有効期限で上書きし、使用済みフラグと失敗回数をリセットする。
func (r *PostgresOTPRepo) Upsert(ctx context.Context, rec *model.OTPRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO otp_storage (id, email, type, code, expires_at, consumed_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, NULL, $6)
		 ON CONFLICT (email, type) DO UPDATE SET
		   id = EXCLUDED.id,
		   code = EXCLUDED.code,
		   expires_at = EXCLUDED.expires_at,
		   consumed_at = NULL,
		   attempts = 0,
		   created_at = EXCLUDED.created_at`,
		rec.ID, rec.Email, rec.Type, rec.Code, rec.ExpiresAt, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert otp: %w", err)
	}
	return nil
}

// FindActive はメールアドレスと種別で未使用のコードを取得する。見つからない場合はnilを返す。
// 期限切れの判定は呼び出し側が行う。
func (r *PostgresOTPRepo) FindActive(ctx context.Context, email, otpType string) (*model.OTPRecord, error) {
	rec := &model.OTPRecord{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, type, code, expires_at, attempts, created_at
		 FROM otp_storage WHERE email = $1 AND type = $2 AND consumed_at IS NULL`,
		email, otpType,
	).Scan(&rec.ID, &rec.Email, &rec.Type, &rec.Code, &rec.ExpiresAt, &rec.Attempts, &rec.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find otp: %w", err)
	}
	return rec, nil
}

// MarkConsumed はコードを使用済みにする。既に使用済みの場合はfalseを返す。
// 条件付きUPDATEにより、同じコードの同時検証でも成功するのは1回だけになる。
func (r *PostgresOTPRepo) MarkConsumed(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE otp_storage SET consumed_at = $1 WHERE id = $2 AND consumed_at IS NULL`,
		at, id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to consume otp: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// RecordFailedAttempt は未使用コードの失敗回数を1増やし、増加後の回数を返す。
// 失敗回数がmaxAttemptsに達した場合は同じUPDATEで使用済みにする。
// 対象が既に使用済みの場合は0を返す。
func (r *PostgresOTPRepo) RecordFailedAttempt(ctx context.Context, id string, maxAttempts int, at time.Time) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx,
		`UPDATE otp_storage SET
		   attempts = attempts + 1,
		   consumed_at = CASE WHEN attempts + 1 >= $2 THEN $3 ELSE NULL END
		 WHERE id = $1 AND consumed_at IS NULL
		 RETURNING attempts`,
		id, maxAttempts, at,
	).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to record otp attempt: %w", err)
	}
	return attempts, nil
}

// DeleteExpired は期限切れまたは使用済みのコードを削除し、削除件数を返す。
func (r *PostgresOTPRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM otp_storage WHERE expires_at < $1 OR consumed_at IS NOT NULL`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired otps: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

var _ OTPRepository = (*PostgresOTPRepo)(nil)
