package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/nimart/internal/model"
)

// PostgresCatalogRepo はstates・servicesテーブルを参照するリポジトリ。
type PostgresCatalogRepo struct {
	db *sql.DB
}

// NewPostgresCatalogRepo はPostgresCatalogRepoを生成する。
func NewPostgresCatalogRepo(db *sql.DB) *PostgresCatalogRepo {
	return &PostgresCatalogRepo{db: db}
}

// ListStates は州の一覧を名前順で返す。
func (r *PostgresCatalogRepo) ListStates(ctx context.Context) ([]model.State, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM states ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list states: %w", err)
	}
	defer rows.Close()

	var states []model.State
	for rows.Next() {
		var s model.State
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("failed to scan state: %w", err)
		}
		states = append(states, s)
	}
	return states, rows.Err()
}

// ListServices はサービス種別の一覧を名前順で返す。
func (r *PostgresCatalogRepo) ListServices(ctx context.Context) ([]model.Service, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, slug FROM services ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var services []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

var _ CatalogRepository = (*PostgresCatalogRepo)(nil)
