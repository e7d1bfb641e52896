package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/nimart/internal/auth"
	"github.com/hitoshi/nimart/internal/cookie"
	"github.com/hitoshi/nimart/internal/middleware"
	"github.com/hitoshi/nimart/internal/model"
	"github.com/hitoshi/nimart/internal/otp"
)

// --- モック定義 ---

type mockAuthService struct {
	getUserFn         func(ctx context.Context, accessToken string) (*auth.User, error)
	signInFn          func(ctx context.Context, email string, userType auth.UserType) error
	verifyFn          func(ctx context.Context, jar cookie.Jar, email, code string) (*auth.Session, error)
	signOutFn         func(ctx context.Context, accessToken string) error
	notifySignedOutFn func(ctx context.Context, jar cookie.Jar)
}

func (m *mockAuthService) GetUser(ctx context.Context, accessToken string) (*auth.User, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, accessToken)
	}
	return nil, &auth.ProviderError{StatusCode: http.StatusUnauthorized, Message: "invalid JWT"}
}

func (m *mockAuthService) SignInWithOneTimeCode(ctx context.Context, email string, userType auth.UserType) error {
	if m.signInFn != nil {
		return m.signInFn(ctx, email, userType)
	}
	return nil
}

func (m *mockAuthService) VerifyOneTimeCode(ctx context.Context, jar cookie.Jar, email, code string) (*auth.Session, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, jar, email, code)
	}
	return nil, nil
}

func (m *mockAuthService) SignOut(ctx context.Context, accessToken string) error {
	if m.signOutFn != nil {
		return m.signOutFn(ctx, accessToken)
	}
	return nil
}

func (m *mockAuthService) NotifySignedOut(ctx context.Context, jar cookie.Jar) {
	if m.notifySignedOutFn != nil {
		m.notifySignedOutFn(ctx, jar)
	}
}

type mockProfileFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.Profile, error)
}

func (m *mockProfileFinder) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

type mockOTPService struct {
	sendFn   func(ctx context.Context, address string, otpType otp.Type) (*otp.Result, error)
	verifyFn func(ctx context.Context, address string, otpType otp.Type, code string) (*otp.Result, error)
}

func (m *mockOTPService) Send(ctx context.Context, address string, otpType otp.Type) (*otp.Result, error) {
	if m.sendFn != nil {
		return m.sendFn(ctx, address, otpType)
	}
	return &otp.Result{Success: true, Message: "Verification code sent to your email"}, nil
}

func (m *mockOTPService) Verify(ctx context.Context, address string, otpType otp.Type, code string) (*otp.Result, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, address, otpType, code)
	}
	return &otp.Result{Success: true, Message: "Code verified successfully"}, nil
}

type mockProviderService struct {
	getFn           func(ctx context.Context, id string) (*model.Provider, error)
	listFn          func(ctx context.Context, filter model.ProviderFilter) ([]*model.Provider, error)
	contactFn       func(ctx context.Context, providerID, viewerID string) (*model.ProviderContact, error)
	updateWebsiteFn func(ctx context.Context, userID, website string) (*model.Provider, error)
	statesFn        func(ctx context.Context) ([]model.State, error)
	servicesFn      func(ctx context.Context) ([]model.Service, error)
}

func (m *mockProviderService) Get(ctx context.Context, id string) (*model.Provider, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewProviderNotFoundError(id)
}

func (m *mockProviderService) List(ctx context.Context, filter model.ProviderFilter) ([]*model.Provider, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockProviderService) Contact(ctx context.Context, providerID, viewerID string) (*model.ProviderContact, error) {
	if m.contactFn != nil {
		return m.contactFn(ctx, providerID, viewerID)
	}
	return nil, model.NewProviderNotFoundError(providerID)
}

func (m *mockProviderService) UpdateWebsite(ctx context.Context, userID, website string) (*model.Provider, error) {
	if m.updateWebsiteFn != nil {
		return m.updateWebsiteFn(ctx, userID, website)
	}
	return nil, model.NewProviderNotFoundError(userID)
}

func (m *mockProviderService) States(ctx context.Context) ([]model.State, error) {
	if m.statesFn != nil {
		return m.statesFn(ctx)
	}
	return nil, nil
}

func (m *mockProviderService) Services(ctx context.Context) ([]model.Service, error) {
	if m.servicesFn != nil {
		return m.servicesFn(ctx)
	}
	return nil, nil
}

type mockReviewService struct {
	createFn func(ctx context.Context, customerID, providerID string, rating int, comment string) (*model.Review, error)
	listFn   func(ctx context.Context, providerID string, limit int) ([]*model.Review, error)
}

func (m *mockReviewService) Create(ctx context.Context, customerID, providerID string, rating int, comment string) (*model.Review, error) {
	if m.createFn != nil {
		return m.createFn(ctx, customerID, providerID, rating, comment)
	}
	return nil, nil
}

func (m *mockReviewService) ListByProvider(ctx context.Context, providerID string, limit int) ([]*model.Review, error) {
	if m.listFn != nil {
		return m.listFn(ctx, providerID, limit)
	}
	return nil, nil
}

type mockNotificationService struct {
	listFn     func(ctx context.Context, userID string, limit int) ([]*model.Notification, error)
	markReadFn func(ctx context.Context, userID, id string) error
}

func (m *mockNotificationService) List(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockNotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if m.markReadFn != nil {
		return m.markReadFn(ctx, userID, id)
	}
	return nil
}

// mapJar はテスト用のメモリ上のcookie.Jar。
type mapJar struct {
	values  map[string]string
	cleared []string
}

func newMapJar(values map[string]string) *mapJar {
	if values == nil {
		values = make(map[string]string)
	}
	return &mapJar{values: values}
}

func (j *mapJar) Get(name string) (string, bool) {
	v, ok := j.values[name]
	return v, ok && v != ""
}

func (j *mapJar) Set(name, value string, maxAge int) {
	j.values[name] = value
}

func (j *mapJar) Clear(name string) {
	j.values[name] = ""
	j.cleared = append(j.cleared, name)
}

// --- ヘルパー ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// withUserID はテスト用にコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

// withSession はテスト用にコンテキストにセッションを注入するヘルパー。
func withSession(r *http.Request, sess *auth.Session) *http.Request {
	return r.WithContext(middleware.ContextWithSession(r.Context(), sess))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonBody(s string) io.Reader {
	return bytes.NewBufferString(s)
}
