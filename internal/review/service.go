// Package review はサービス提供者へのレビュー投稿と参照を提供する。
package review

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/nimart/internal/model"
	"github.com/hitoshi/nimart/internal/repository"
	"github.com/hitoshi/nimart/internal/security"
)

const (
	MinRating = 1
	MaxRating = 5

	defaultListLimit = 20
	maxListLimit     = 100
)

// Notifier はアプリ内通知を送る。*notification.Service が実装する。
type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
}

// Service はレビューのサービス層。
type Service struct {
	reviews   repository.ReviewRepository
	providers repository.ProviderRepository
	sanitizer security.ContentSanitizerService
	notifier  Notifier
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	reviews repository.ReviewRepository,
	providers repository.ProviderRepository,
	sanitizer security.ContentSanitizerService,
	notifier Notifier,
) *Service {
	return &Service{
		reviews:   reviews,
		providers: providers,
		sanitizer: sanitizer,
		notifier:  notifier,
		now:       time.Now,
	}
}

// Create はレビューを投稿し、提供者に通知する。
// 評価は1〜5のみ受け付け、本文はサニタイズしてから保存する。
// 提供者自身による自分のレビューは受け付けない。
func (s *Service) Create(ctx context.Context, customerID, providerID string, rating int, comment string) (*model.Review, error) {
	if rating < MinRating || rating > MaxRating {
		return nil, model.NewInvalidRatingError(rating)
	}
	if !model.IsValidID(providerID) {
		return nil, model.NewProviderNotFoundError(providerID)
	}

	provider, err := s.providers.FindByID(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find provider: %w", err)
	}
	if provider == nil {
		return nil, model.NewProviderNotFoundError(providerID)
	}
	if provider.UserID == customerID {
		return nil, model.NewInvalidRequestError("you cannot review your own business")
	}

	rv := &model.Review{
		ID:         uuid.NewString(),
		ProviderID: providerID,
		CustomerID: customerID,
		Rating:     rating,
		Comment:    s.sanitizer.Sanitize(comment),
		CreatedAt:  s.now(),
	}
	if err := s.reviews.Create(ctx, rv); err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	s.notifier.Notify(ctx, model.Notification{
		UserID:  provider.UserID,
		Type:    model.NotificationTypeNewReview,
		Title:   "New review",
		Message: fmt.Sprintf("%s received a %d-star review.", s.sanitizer.StripTags(provider.BusinessName), rating),
	})

	return rv, nil
}

// ListByProvider は提供者のレビューを新しい順に返す。limitが0以下の場合は20件。
// UUIDでない提供者IDにはレビューが存在しないため、DBに問い合わせず空の一覧を返す。
func (s *Service) ListByProvider(ctx context.Context, providerID string, limit int) ([]*model.Review, error) {
	if !model.IsValidID(providerID) {
		return []*model.Review{}, nil
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	reviews, err := s.reviews.ListByProvider(ctx, providerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}
