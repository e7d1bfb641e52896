// Package provider はマーケットプレイスのサービス提供者の検索・連絡先参照・プロフィール更新を提供する。
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/nimart/internal/geo"
	"github.com/hitoshi/nimart/internal/model"
	"github.com/hitoshi/nimart/internal/repository"
	"github.com/hitoshi/nimart/internal/security"
)

// Notifier はアプリ内通知を送る。*notification.Service が実装する。
type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
}

// Service はサービス提供者のサービス層。
type Service struct {
	providers repository.ProviderRepository
	catalog   repository.CatalogRepository
	guard     security.SSRFGuardService
	notifier  Notifier
}

// NewService はServiceを生成する。
func NewService(
	providers repository.ProviderRepository,
	catalog repository.CatalogRepository,
	guard security.SSRFGuardService,
	notifier Notifier,
) *Service {
	return &Service{
		providers: providers,
		catalog:   catalog,
		guard:     guard,
		notifier:  notifier,
	}
}

// Get は指定IDの提供者を返す。見つからない場合とUUIDでない場合はPROVIDER_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Provider, error) {
	if !model.IsValidID(id) {
		return nil, model.NewProviderNotFoundError(id)
	}
	p, err := s.providers.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find provider: %w", err)
	}
	if p == nil {
		return nil, model.NewProviderNotFoundError(id)
	}
	return p, nil
}

// FindByUserID はユーザーIDに紐づく提供者を返す。見つからない場合は (nil, nil)。
// セッション同期でprovider-id Cookieを導出するために使う。
func (s *Service) FindByUserID(ctx context.Context, userID string) (*model.Provider, error) {
	return s.providers.FindByUserID(ctx, userID)
}

// List は州・サービス種別で絞り込んだ提供者一覧を返す。
// 州名は座標テーブルの表記と完全一致する必要がある。
func (s *Service) List(ctx context.Context, filter model.ProviderFilter) ([]*model.Provider, error) {
	filter.State = strings.TrimSpace(filter.State)
	filter.ServiceType = strings.TrimSpace(filter.ServiceType)
	if filter.State != "" {
		if _, ok := geo.FindState(filter.State); !ok {
			return nil, model.NewUnknownStateError(filter.State)
		}
	}

	providers, err := s.providers.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	return providers, nil
}

// Contact は提供者の連絡先を返す。viewerIDは閲覧した認証済みユーザー。
// 提供者本人以外が閲覧した場合は提供者に通知する。
func (s *Service) Contact(ctx context.Context, providerID, viewerID string) (*model.ProviderContact, error) {
	p, err := s.Get(ctx, providerID)
	if err != nil {
		return nil, err
	}

	contact, err := s.providers.FindContact(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find provider contact: %w", err)
	}
	if contact == nil {
		return nil, model.NewProviderNotFoundError(providerID)
	}

	if viewerID != "" && viewerID != p.UserID {
		s.notifier.Notify(ctx, model.Notification{
			UserID:  p.UserID,
			Type:    model.NotificationTypeContact,
			Title:   "Someone viewed your contact details",
			Message: "A customer opened your contact details on Nimart.",
		})
	}

	return contact, nil
}

// UpdateWebsite はログイン中の提供者のWebサイトURLを検証して更新する。
// 空文字列はWebサイトの削除として扱う。
func (s *Service) UpdateWebsite(ctx context.Context, userID, website string) (*model.Provider, error) {
	p, err := s.providers.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find provider: %w", err)
	}
	if p == nil {
		return nil, model.NewProviderNotFoundError(userID)
	}

	normalized, err := s.guard.NormalizeWebsite(website)
	if err != nil {
		return nil, model.NewInvalidURLError(err.Error())
	}

	if err := s.providers.UpdateWebsite(ctx, p.ID, normalized); err != nil {
		return nil, fmt.Errorf("failed to update website: %w", err)
	}
	p.Website = normalized
	return p, nil
}

// States は州の一覧を返す。
func (s *Service) States(ctx context.Context) ([]model.State, error) {
	states, err := s.catalog.ListStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list states: %w", err)
	}
	return states, nil
}

// Services はサービス種別の一覧を返す。
func (s *Service) Services(ctx context.Context) ([]model.Service, error) {
	services, err := s.catalog.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}
