package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ClientConfig は認証プロバイダークライアントの設定。
type ClientConfig struct {
	BaseURL string // 例: https://xyz.supabase.co
	APIKey  string // anonキー
}

// Client は認証プロバイダーのREST APIクライアント。
// プロセス起動時に1回だけ生成し、利用側へ明示的に渡す。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	apiKey     string
}

// NewClient はClientを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, cfg ClientConfig) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}
}

// ProviderError は認証プロバイダーが返したエラー。
// Messageはプロバイダーの生の文言で、ユーザー向け文言への変換は呼び出し側が行う。
type ProviderError struct {
	StatusCode int
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *ProviderError) Error() string {
	return fmt.Sprintf("auth provider error (status %d): %s", e.StatusCode, e.Message)
}

// sessionResponse は/token・/verifyのレスポンス。
type sessionResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         userResponse `json:"user"`
}

// userResponse は/userのレスポンス。
type userResponse struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u userResponse) toUser() User {
	return User{
		ID:       u.ID,
		Email:    u.Email,
		Metadata: ParseMetadata(u.UserMetadata),
	}
}

func (s sessionResponse) toSession(now time.Time) *Session {
	expiresAt := time.Unix(s.ExpiresAt, 0)
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		expiresAt = now.Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return &Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    expiresAt,
		User:         s.User.toUser(),
	}
}

// SendOneTimeCode はメールアドレス宛てにサインイン用ワンタイムコードを送信させる。
// POST /auth/v1/otp
func (c *Client) SendOneTimeCode(ctx context.Context, email string, metadata map[string]any) error {
	body := map[string]any{
		"email":       email,
		"create_user": true,
	}
	if len(metadata) > 0 {
		body["data"] = metadata
	}
	return c.do(ctx, http.MethodPost, "/auth/v1/otp", "", body, nil)
}

// VerifyOneTimeCode はワンタイムコードを検証し、セッションを取得する。
// POST /auth/v1/verify
func (c *Client) VerifyOneTimeCode(ctx context.Context, email, code string) (*Session, error) {
	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/auth/v1/verify", "", map[string]string{
		"type":  "email",
		"email": email,
		"token": code,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.toSession(time.Now()), nil
}

// GetUser はアクセストークンに対応するユーザーを取得する。
// GET /auth/v1/user
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var resp userResponse
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &resp); err != nil {
		return nil, err
	}
	u := resp.toUser()
	return &u, nil
}

// RefreshSession はリフレッシュトークンでセッションを更新する。
// POST /auth/v1/token?grant_type=refresh_token
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", map[string]string{
		"refresh_token": refreshToken,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.toSession(time.Now()), nil
}

// SignOut はプロバイダー側のセッションを無効化する。
// POST /auth/v1/logout
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
}

// do はAPIリクエストを送信し、成功時はoutにJSONをデコードする。
func (c *Client) do(ctx context.Context, method, path, bearer string, in any, out any) error {
	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("auth provider request failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("auth provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read auth response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := &ProviderError{StatusCode: resp.StatusCode, Message: parseErrorMessage(body)}
		c.logger.Warn("auth provider returned error",
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
			slog.String("message", perr.Message),
		)
		return perr
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse auth response: %w", err)
	}
	return nil
}

// parseErrorMessage はGoTrueのエラーレスポンスから文言を取り出す。
// バージョンによってフィールド名が異なるため、複数の候補を順に見る。
func parseErrorMessage(body []byte) string {
	var e struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return strings.TrimSpace(string(body))
	}
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return "unknown error"
}
