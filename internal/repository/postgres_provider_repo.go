package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hitoshi/nimart/internal/model"
)

const (
	defaultProviderListLimit = 50
	maxProviderListLimit     = 200
)

const providerColumns = `id, user_id, business_name, service_type, state, lga, description, website,
	is_verified, rating, review_count, created_at, updated_at`

// PostgresProviderRepo はPostgreSQLを使用したサービス提供者リポジトリ。
type PostgresProviderRepo struct {
	db *sql.DB
}

// NewPostgresProviderRepo はPostgresProviderRepoを生成する。
func NewPostgresProviderRepo(db *sql.DB) *PostgresProviderRepo {
	return &PostgresProviderRepo{db: db}
}

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(s rowScanner) (*model.Provider, error) {
	p := &model.Provider{}
	var lga, description, website sql.NullString
	err := s.Scan(&p.ID, &p.UserID, &p.BusinessName, &p.ServiceType, &p.State, &lga,
		&description, &website, &p.IsVerified, &p.Rating, &p.ReviewCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.LGA = lga.String
	p.Description = description.String
	p.Website = website.String
	return p, nil
}

// FindByID は指定IDの提供者を取得する。見つからない場合はnilを返す。
func (r *PostgresProviderRepo) FindByID(ctx context.Context, id string) (*model.Provider, error) {
	return r.findOne(ctx, "id", id)
}

// FindByUserID はユーザーIDに紐づく提供者を取得する。見つからない場合はnilを返す。
func (r *PostgresProviderRepo) FindByUserID(ctx context.Context, userID string) (*model.Provider, error) {
	return r.findOne(ctx, "user_id", userID)
}

func (r *PostgresProviderRepo) findOne(ctx context.Context, column, value string) (*model.Provider, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE `+column+` = $1 LIMIT 1`,
		value,
	)
	p, err := scanProvider(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find provider by %s: %w", column, err)
	}
	return p, nil
}

// List は州・サービス種別で絞り込んだ提供者一覧を評価の高い順に返す。
func (r *PostgresProviderRepo) List(ctx context.Context, filter model.ProviderFilter) ([]*model.Provider, error) {
	query, args := buildProviderListQuery(filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var providers []*model.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate providers: %w", err)
	}
	return providers, nil
}

// buildProviderListQuery は絞り込み条件からSQLとパラメータを組み立てる。
// 条件は等価比較のみで、空の条件は無視する。
func buildProviderListQuery(filter model.ProviderFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.State != "" {
		args = append(args, filter.State)
		conds = append(conds, fmt.Sprintf("state = $%d", len(args)))
	}
	if filter.ServiceType != "" {
		args = append(args, filter.ServiceType)
		conds = append(conds, fmt.Sprintf("service_type = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultProviderListLimit
	}
	if limit > maxProviderListLimit {
		limit = maxProviderListLimit
	}
	args = append(args, limit)

	var b strings.Builder
	b.WriteString("SELECT " + providerColumns + " FROM providers")
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY is_verified DESC, rating DESC, created_at DESC LIMIT $%d", len(args))
	return b.String(), args
}

// FindContact は提供者の連絡先を取得する。見つからない場合はnilを返す。
func (r *PostgresProviderRepo) FindContact(ctx context.Context, providerID string) (*model.ProviderContact, error) {
	c := &model.ProviderContact{ProviderID: providerID}
	var phone, email, whatsapp, address sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT phone, email, whatsapp, address FROM providers WHERE id = $1`,
		providerID,
	).Scan(&phone, &email, &whatsapp, &address)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find provider contact: %w", err)
	}

	c.Phone = phone.String
	c.Email = email.String
	c.WhatsApp = whatsapp.String
	c.Address = address.String
	return c, nil
}

// UpdateWebsite は提供者のWebサイトURLを更新する。
func (r *PostgresProviderRepo) UpdateWebsite(ctx context.Context, providerID, website string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE providers SET website = $1, updated_at = now() WHERE id = $2`,
		website, providerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update provider website: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("provider not found: %s", providerID)
	}
	return nil
}

var _ ProviderRepository = (*PostgresProviderRepo)(nil)
