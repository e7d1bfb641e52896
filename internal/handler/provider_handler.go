package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/nimart/internal/auth"
	"github.com/hitoshi/nimart/internal/middleware"
	"github.com/hitoshi/nimart/internal/model"
)

// ProviderServiceInterface は提供者ハンドラーが必要とするサービスインターフェース。
// *provider.Service が実装する。
type ProviderServiceInterface interface {
	Get(ctx context.Context, id string) (*model.Provider, error)
	List(ctx context.Context, filter model.ProviderFilter) ([]*model.Provider, error)
	Contact(ctx context.Context, providerID, viewerID string) (*model.ProviderContact, error)
	UpdateWebsite(ctx context.Context, userID, website string) (*model.Provider, error)
	States(ctx context.Context) ([]model.State, error)
	Services(ctx context.Context) ([]model.Service, error)
}

// TokenUserResolver はBearerトークンからユーザーを解決する。
// *auth.Service が実装する。
type TokenUserResolver interface {
	GetUser(ctx context.Context, accessToken string) (*auth.User, error)
}

// ProviderHandler はマーケットプレイスの提供者・カタログ関連のHTTPハンドラー。
type ProviderHandler struct {
	service ProviderServiceInterface
	users   TokenUserResolver
	logger  *slog.Logger
}

// NewProviderHandler はProviderHandlerを生成する。
func NewProviderHandler(service ProviderServiceInterface, users TokenUserResolver, logger *slog.Logger) *ProviderHandler {
	return &ProviderHandler{
		service: service,
		users:   users,
		logger:  logger,
	}
}

// providerResponse は提供者のレスポンス。連絡先は含めない。
type providerResponse struct {
	ID           string    `json:"id"`
	BusinessName string    `json:"business_name"`
	ServiceType  string    `json:"service_type"`
	State        string    `json:"state"`
	LGA          string    `json:"lga"`
	Description  string    `json:"description"`
	Website      string    `json:"website,omitempty"`
	IsVerified   bool      `json:"is_verified"`
	Rating       float64   `json:"rating"`
	ReviewCount  int       `json:"review_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func toProviderResponse(p *model.Provider) providerResponse {
	return providerResponse{
		ID:           p.ID,
		BusinessName: p.BusinessName,
		ServiceType:  p.ServiceType,
		State:        p.State,
		LGA:          p.LGA,
		Description:  p.Description,
		Website:      p.Website,
		IsVerified:   p.IsVerified,
		Rating:       p.Rating,
		ReviewCount:  p.ReviewCount,
		CreatedAt:    p.CreatedAt,
	}
}

type contactResponse struct {
	ProviderID string `json:"provider_id"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	WhatsApp   string `json:"whatsapp,omitempty"`
	Address    string `json:"address,omitempty"`
}

// ListProviders は州・サービス種別で絞り込んだ提供者一覧を返す。
// GET /api/providers?state=&service=&limit=
func (h *ProviderHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	providers, err := h.service.List(r.Context(), model.ProviderFilter{
		State:       q.Get("state"),
		ServiceType: q.Get("service"),
		Limit:       queryLimit(r),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]providerResponse, 0, len(providers))
	for _, p := range providers {
		resp = append(resp, toProviderResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": resp})
}

// GetProvider は提供者の詳細を返す。
// GET /api/providers/{id}
func (h *ProviderHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProviderResponse(p))
}

// Contact は提供者の連絡先を返す。Bearerトークンが必須。
// GET /api/providers/{id}/contact
func (h *ProviderHandler) Contact(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	user, err := h.users.GetUser(r.Context(), token)
	if err != nil {
		h.logger.Debug("contact request with invalid token", slog.String("error", err.Error()))
		writeUnauthorized(w)
		return
	}

	contact, err := h.service.Contact(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, contactResponse{
		ProviderID: contact.ProviderID,
		Phone:      contact.Phone,
		Email:      contact.Email,
		WhatsApp:   contact.WhatsApp,
		Address:    contact.Address,
	})
}

type updateWebsiteRequest struct {
	Website string `json:"website" validate:"max=2048"`
}

// UpdateWebsite はログイン中の提供者のWebサイトURLを更新する。
// PUT /api/providers/me/website
func (h *ProviderHandler) UpdateWebsite(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req updateWebsiteRequest
	if apiErr := decodeAndValidate(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	p, err := h.service.UpdateWebsite(r.Context(), userID, req.Website)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProviderResponse(p))
}

// ListStates は州の一覧を返す。
// GET /api/states
func (h *ProviderHandler) ListStates(w http.ResponseWriter, r *http.Request) {
	states, err := h.service.States(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	type stateResponse struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	resp := make([]stateResponse, 0, len(states))
	for _, s := range states {
		resp = append(resp, stateResponse{ID: s.ID, Name: s.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"states": resp})
}

// ListServices はサービス種別の一覧を返す。
// GET /api/services
func (h *ProviderHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.service.Services(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	type serviceResponse struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	resp := make([]serviceResponse, 0, len(services))
	for _, s := range services {
		resp = append(resp, serviceResponse{ID: s.ID, Name: s.Name, Slug: s.Slug})
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": resp})
}
