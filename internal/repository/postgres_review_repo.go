package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/nimart/internal/model"
)

const defaultReviewListLimit = 50

// PostgresReviewRepo はPostgreSQLを使用したレビューリポジトリ。
type PostgresReviewRepo struct {
	db *sql.DB
}

// NewPostgresReviewRepo はPostgresReviewRepoを生成する。
func NewPostgresReviewRepo(db *sql.DB) *PostgresReviewRepo {
	return &PostgresReviewRepo{db: db}
}

// Create はレビューを作成し、提供者の評価平均とレビュー数を同一トランザクションで再計算する。
func (r *PostgresReviewRepo) Create(ctx context.Context, review *model.Review) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reviews (id, provider_id, customer_id, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		review.ID, review.ProviderID, review.CustomerID, review.Rating, review.Comment, review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE providers SET
		   rating = (SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE provider_id = $1),
		   review_count = (SELECT COUNT(*) FROM reviews WHERE provider_id = $1),
		   updated_at = now()
		 WHERE id = $1`,
		review.ProviderID,
	)
	if err != nil {
		return fmt.Errorf("failed to update provider rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListByProvider は提供者のレビューを新しい順に返す。
func (r *PostgresReviewRepo) ListByProvider(ctx context.Context, providerID string, limit int) ([]*model.Review, error) {
	if limit <= 0 {
		limit = defaultReviewListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, provider_id, customer_id, rating, comment, created_at
		 FROM reviews WHERE provider_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		providerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*model.Review
	for rows.Next() {
		rv := &model.Review{}
		var comment sql.NullString
		if err := rows.Scan(&rv.ID, &rv.ProviderID, &rv.CustomerID, &rv.Rating, &comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		rv.Comment = comment.String
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}
	return reviews, nil
}

var _ ReviewRepository = (*PostgresReviewRepo)(nil)
