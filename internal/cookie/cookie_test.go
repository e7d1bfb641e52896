package cookie

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHTTPJar_Set_WritesSevenDayCookie(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	jar := NewHTTPJar(w, r, Options{})

	jar.Set(IsAuthenticated, "true", DefaultMaxAge)

	c := findCookie(w.Result().Cookies(), IsAuthenticated)
	if c == nil {
		t.Fatal("expected is-authenticated cookie")
	}
	if c.Value != "true" {
		t.Errorf("value = %q, want %q", c.Value, "true")
	}
	if c.MaxAge != 604800 {
		t.Errorf("MaxAge = %d, want %d", c.MaxAge, 604800)
	}
	if c.Path != "/" {
		t.Errorf("Path = %q, want %q", c.Path, "/")
	}
	if c.HttpOnly {
		t.Error("flag cookie should be readable from JavaScript")
	}
}

func TestHTTPJar_Clear_SetsPastExpiry(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	jar := NewHTTPJar(w, r, Options{})

	jar.Clear(UserType)

	c := findCookie(w.Result().Cookies(), UserType)
	if c == nil {
		t.Fatal("expected user-type cookie")
	}
	if c.Value != "" {
		t.Errorf("value = %q, want empty", c.Value)
	}
	if !c.Expires.Before(time.Now()) {
		t.Errorf("Expires = %v, want a time in the past", c.Expires)
	}
	if c.MaxAge >= 0 {
		t.Errorf("MaxAge = %d, want negative", c.MaxAge)
	}
}

func TestHTTPJar_TokenCookiesAreHTTPOnly(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	jar := NewHTTPJar(w, r, Options{Secure: true})

	jar.Set(AccessToken, "token", 3600)

	c := findCookie(w.Result().Cookies(), AccessToken)
	if c == nil {
		t.Fatal("expected access token cookie")
	}
	if !c.HttpOnly {
		t.Error("access token cookie should be HttpOnly")
	}
	if !c.Secure {
		t.Error("access token cookie should be Secure")
	}
}

func TestHTTPJar_Get_PrefersPendingWrites(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: UserType, Value: "customer"})
	jar := NewHTTPJar(w, r, Options{})

	if v, ok := jar.Get(UserType); !ok || v != "customer" {
		t.Fatalf("Get = (%q, %v), want (customer, true)", v, ok)
	}

	jar.Set(UserType, "provider", DefaultMaxAge)
	if v, _ := jar.Get(UserType); v != "provider" {
		t.Errorf("Get after Set = %q, want %q", v, "provider")
	}

	jar.Clear(UserType)
	if _, ok := jar.Get(UserType); ok {
		t.Error("Get after Clear should report absent")
	}
}

func TestReadFlags(t *testing.T) {
	tests := []struct {
		name    string
		cookies map[string]string
		want    Flags
	}{
		{
			name: "no cookies",
			want: Flags{},
		},
		{
			name:    "authenticated provider",
			cookies: map[string]string{IsAuthenticated: "true", UserType: "provider", ProviderID: "p-1"},
			want:    Flags{Authenticated: true, UserType: "provider", ProviderID: "p-1"},
		},
		{
			name:    "non-true value is not authenticated",
			cookies: map[string]string{IsAuthenticated: "yes"},
			want:    Flags{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.cookies {
				r.AddCookie(&http.Cookie{Name: k, Value: v})
			}
			got := ReadFlags(NewHTTPJar(httptest.NewRecorder(), r, Options{}))
			if got != tt.want {
				t.Errorf("ReadFlags = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClearFlags_ClearsAllThree(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	ClearFlags(NewHTTPJar(w, r, Options{}))

	cookies := w.Result().Cookies()
	for _, name := range FlagNames {
		c := findCookie(cookies, name)
		if c == nil {
			t.Errorf("expected %s to be cleared", name)
			continue
		}
		if !c.Expires.Before(time.Now()) {
			t.Errorf("%s Expires = %v, want past", name, c.Expires)
		}
	}
}
