package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/nimart/internal/auth"
	"github.com/hitoshi/nimart/internal/cookie"
	"github.com/hitoshi/nimart/internal/middleware"
	"github.com/hitoshi/nimart/internal/model"
	"golang.org/x/sync/errgroup"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
// *auth.Service が実装する。
type AuthServiceInterface interface {
	GetUser(ctx context.Context, accessToken string) (*auth.User, error)
	SignInWithOneTimeCode(ctx context.Context, email string, userType auth.UserType) error
	VerifyOneTimeCode(ctx context.Context, jar cookie.Jar, email, code string) (*auth.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	NotifySignedOut(ctx context.Context, jar cookie.Jar)
}

// ProfileFinder はプロフィールの取得を行う。
type ProfileFinder interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
}

// AuthHandler は認証・セッション関連のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	profiles ProfileFinder
	cookies  cookie.Options
	logger   *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, profiles ProfileFinder, cookies cookie.Options, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		profiles: profiles,
		cookies:  cookies,
		logger:   logger,
	}
}

// userResponse は現在のユーザーのレスポンス。
type userResponse struct {
	ID         string           `json:"id"`
	Email      string           `json:"email"`
	UserType   string           `json:"user_type"`
	ProviderID string           `json:"provider_id,omitempty"`
	Profile    *profileResponse `json:"profile,omitempty"`
}

type profileResponse struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone,omitempty"`
	UserType string `json:"user_type"`
	State    string `json:"state,omitempty"`
	LGA      string `json:"lga,omitempty"`
}

func toUserResponse(u auth.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Email:      u.Email,
		UserType:   string(u.Metadata.UserType),
		ProviderID: u.Metadata.ProviderID,
	}
}

// Protected は認証済みユーザーとそのプロフィールを返す。
// GET /api/protected
func (h *AuthHandler) Protected(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	profile, err := h.profiles.FindByID(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if profile == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewProfileNotFoundError())
		return
	}

	resp := toUserResponse(*user)
	resp.Profile = &profileResponse{
		FullName: profile.FullName,
		Phone:    profile.Phone,
		UserType: profile.UserType,
		State:    profile.State,
		LGA:      profile.LGA,
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": resp})
}

// currentUser はセッション同期ミドルウェアが注入したセッション、
// 無ければBearerトークンから現在のユーザーを解決する。
func (h *AuthHandler) currentUser(r *http.Request) (*auth.User, bool) {
	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		return &sess.User, true
	}
	token, ok := bearerToken(r)
	if !ok {
		return nil, false
	}
	user, err := h.service.GetUser(r.Context(), token)
	if err != nil {
		h.logger.Debug("bearer token rejected", slog.String("error", err.Error()))
		return nil, false
	}
	return user, true
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	UserType string `json:"user_type" validate:"omitempty,oneof=customer provider"`
}

// Login はサインイン用のワンタイムコードをメールで送信させる。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if apiErr := decodeAndValidate(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := h.service.SignInWithOneTimeCode(r.Context(), email, auth.UserType(req.UserType)); err != nil {
		handleExternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Check your email for the sign-in code",
	})
}

type verifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,max=16"`
}

// Verify はワンタイムコードを検証してセッションを確立する。
// トークンCookieはサービス層が、フラグCookieはSIGNED_INを受けたセッション同期が書き込む。
// POST /api/auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if apiErr := decodeAndValidate(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	jar := middleware.JarFor(w, r, h.cookies)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	sess, err := h.service.VerifyOneTimeCode(r.Context(), jar, email, strings.TrimSpace(req.Code))
	if err != nil {
		handleExternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(sess.User)})
}

// Logout はプロバイダー側のサインアウトと全Cookieのクリアを並行して行う。
// いずれかが失敗してもログに記録するだけで、常に200を返す。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jar := middleware.JarFor(w, r, h.cookies)
	accessToken, _ := jar.Get(cookie.AccessToken)

	var g errgroup.Group
	g.Go(func() error {
		return h.service.SignOut(ctx, accessToken)
	})
	g.Go(func() error {
		for _, name := range cookie.AllNames {
			jar.Clear(name)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		h.logger.Warn("logout cleanup failed", slog.String("error", err.Error()))
	}

	h.service.NotifySignedOut(ctx, jar)

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
