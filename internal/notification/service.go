// Package notification はアプリ内通知の作成と参照を提供する。
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/nimart/internal/model"
	"github.com/hitoshi/nimart/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// Service は通知のサービス層。
type Service struct {
	repo   repository.NotificationRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.NotificationRepository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Notify は通知を保存する。
// 通知は付随的な処理のため、失敗してもログに残すだけで呼び出し元には返さない。
func (s *Service) Notify(ctx context.Context, n model.Notification) {
	if n.UserID == "" {
		s.logger.Warn("skipping notification without recipient", slog.String("type", n.Type))
		return
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Type == "" {
		n.Type = model.NotificationTypeSystem
	}
	n.IsRead = false
	n.CreatedAt = s.now()

	if err := s.repo.Create(ctx, &n); err != nil {
		s.logger.Error("failed to create notification",
			slog.String("user_id", n.UserID),
			slog.String("type", n.Type),
			slog.String("error", err.Error()),
		)
	}
}

// List はユーザーの通知を新しい順に返す。limitが0以下の場合は50件。
func (s *Service) List(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	items, err := s.repo.ListByUserID(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return items, nil
}

// MarkRead は通知を既読にする。他のユーザーの通知や存在しない通知の場合はNOTIFICATION_NOT_FOUNDを返す。
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	if !model.IsValidID(id) {
		return model.NewNotificationNotFoundError(id)
	}
	ok, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	if !ok {
		return model.NewNotificationNotFoundError(id)
	}
	return nil
}
