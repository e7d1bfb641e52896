package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/nimart/internal/auth"
	"github.com/hitoshi/nimart/internal/cookie"
	"github.com/hitoshi/nimart/internal/model"
)

type mockProviderLookup struct {
	findByUserIDFn func(ctx context.Context, userID string) (*model.Provider, error)
	calls          int
}

func (m *mockProviderLookup) FindByUserID(ctx context.Context, userID string) (*model.Provider, error) {
	m.calls++
	if m.findByUserIDFn != nil {
		return m.findByUserIDFn(ctx, userID)
	}
	return nil, nil
}

func newSynchronizer(lookup ProviderLookup) *Synchronizer {
	return NewSynchronizer(lookup, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

// syncAndCollect はSyncを実行し、レスポンスのSet-Cookieをパースして返す。
func syncAndCollect(t *testing.T, s *Synchronizer, sess *auth.Session) map[string]*http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	s.Sync(context.Background(), sess, cookie.NewHTTPJar(w, r, cookie.Options{}))

	got := make(map[string]*http.Cookie)
	for _, c := range w.Result().Cookies() {
		got[c.Name] = c
	}
	return got
}

func sessionFor(userID string, md auth.Metadata) *auth.Session {
	return &auth.Session{
		AccessToken: "token",
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        auth.User{ID: userID, Email: "u@example.com", Metadata: md},
	}
}

func TestSync_MissingUserType_DefaultsToCustomer(t *testing.T) {
	lookup := &mockProviderLookup{}
	cookies := syncAndCollect(t, newSynchronizer(lookup), sessionFor("user-1", auth.Metadata{}))

	if c := cookies[cookie.IsAuthenticated]; c == nil || c.Value != "true" || c.MaxAge != 604800 {
		t.Errorf("is-authenticated = %+v, want true with 7-day max-age", c)
	}
	if c := cookies[cookie.UserType]; c == nil || c.Value != "customer" {
		t.Errorf("user-type = %+v, want customer", c)
	}
	if _, ok := cookies[cookie.ProviderID]; ok {
		t.Error("provider-id should not be written for customers")
	}
	if lookup.calls != 0 {
		t.Errorf("provider lookup calls = %d, want 0", lookup.calls)
	}
}

func TestSync_Provider_SetsProviderIDFromRow(t *testing.T) {
	lookup := &mockProviderLookup{findByUserIDFn: func(ctx context.Context, userID string) (*model.Provider, error) {
		if userID != "user-2" {
			t.Errorf("userID = %q, want user-2", userID)
		}
		return &model.Provider{ID: "prov-42", UserID: userID}, nil
	}}
	cookies := syncAndCollect(t, newSynchronizer(lookup),
		sessionFor("user-2", auth.Metadata{UserType: auth.UserTypeProvider}))

	if c := cookies[cookie.UserType]; c == nil || c.Value != "provider" {
		t.Errorf("user-type = %+v, want provider", c)
	}
	if c := cookies[cookie.ProviderID]; c == nil || c.Value != "prov-42" {
		t.Errorf("provider-id = %+v, want prov-42", c)
	}
}

func TestSync_Provider_NoRow_LeavesProviderIDUnset(t *testing.T) {
	lookup := &mockProviderLookup{}
	cookies := syncAndCollect(t, newSynchronizer(lookup),
		sessionFor("user-3", auth.Metadata{UserType: auth.UserTypeProvider, ProviderID: "from-metadata"}))

	if _, ok := cookies[cookie.ProviderID]; ok {
		t.Error("provider-id should not be set when no provider row exists")
	}
	if c := cookies[cookie.IsAuthenticated]; c == nil || c.Value != "true" {
		t.Errorf("is-authenticated = %+v, want true", c)
	}
	if c := cookies[cookie.UserType]; c == nil || c.Value != "provider" {
		t.Errorf("user-type = %+v, want provider", c)
	}
	if len(cookies) != 2 {
		t.Errorf("cookies written = %d, want 2", len(cookies))
	}
}

func TestSync_Provider_LookupError_IsSwallowed(t *testing.T) {
	lookup := &mockProviderLookup{findByUserIDFn: func(ctx context.Context, userID string) (*model.Provider, error) {
		return nil, errors.New("connection refused")
	}}
	cookies := syncAndCollect(t, newSynchronizer(lookup),
		sessionFor("user-4", auth.Metadata{UserType: auth.UserTypeProvider}))

	if c := cookies[cookie.IsAuthenticated]; c == nil || c.Value != "true" {
		t.Errorf("is-authenticated = %+v, want true", c)
	}
	if c := cookies[cookie.UserType]; c == nil || c.Value != "provider" {
		t.Errorf("user-type = %+v, want provider", c)
	}
	if _, ok := cookies[cookie.ProviderID]; ok {
		t.Error("provider-id should not be set after a lookup error")
	}
}

func TestSync_NilSession_ClearsAllFlags(t *testing.T) {
	cookies := syncAndCollect(t, newSynchronizer(&mockProviderLookup{}), nil)

	now := time.Now()
	for _, name := range []string{cookie.IsAuthenticated, cookie.UserType, cookie.ProviderID} {
		c, ok := cookies[name]
		if !ok {
			t.Errorf("%s should be present in Set-Cookie", name)
			continue
		}
		if c.Value != "" {
			t.Errorf("%s value = %q, want empty", name, c.Value)
		}
		if !c.Expires.Before(now) {
			t.Errorf("%s Expires = %v, want past", name, c.Expires)
		}
	}
}

func TestSynchronizer_SubscribedToDispatcher(t *testing.T) {
	d := auth.NewDispatcher()
	s := newSynchronizer(&mockProviderLookup{})
	sub := s.Start(d)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	jar := cookie.NewHTTPJar(w, r, cookie.Options{})

	d.Publish(context.Background(), auth.Event{
		Type:    auth.EventSignedIn,
		Session: sessionFor("user-5", auth.Metadata{UserType: auth.UserTypeCustomer}),
		Cookies: jar,
	})
	if v, _ := jar.Get(cookie.IsAuthenticated); v != "true" {
		t.Errorf("after SIGNED_IN is-authenticated = %q, want true", v)
	}

	d.Publish(context.Background(), auth.Event{Type: auth.EventSignedOut, Cookies: jar})
	if _, ok := jar.Get(cookie.IsAuthenticated); ok {
		t.Error("after SIGNED_OUT is-authenticated should be cleared")
	}

	sub.Unsubscribe()
	d.Publish(context.Background(), auth.Event{
		Type:    auth.EventSignedIn,
		Session: sessionFor("user-5", auth.Metadata{}),
		Cookies: jar,
	})
	if _, ok := jar.Get(cookie.IsAuthenticated); ok {
		t.Error("unsubscribed synchronizer should not write cookies")
	}
}

func TestSync_Customer_ClearsLeftoverProviderID(t *testing.T) {
	lookup := &mockProviderLookup{}
	s := newSynchronizer(lookup)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: cookie.ProviderID, Value: "prov-old"})
	jar := cookie.NewHTTPJar(w, r, cookie.Options{})

	s.Sync(context.Background(), sessionFor("user-1", auth.Metadata{UserType: auth.UserTypeCustomer}), jar)

	if v, ok := jar.Get(cookie.ProviderID); ok {
		t.Errorf("provider-id = %q, want cleared", v)
	}

	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == cookie.ProviderID {
			cleared = c.Value == "" && c.MaxAge < 0
		}
	}
	if !cleared {
		t.Error("a clearing Set-Cookie for provider-id should be emitted")
	}
	if lookup.calls != 0 {
		t.Errorf("provider lookup calls = %d, want 0", lookup.calls)
	}
}
