// Package email はトランザクションメールAPI（Resend互換）への送信を提供する。
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// defaultBaseURL はメールAPIのデフォルトのベースURL。
const defaultBaseURL = "https://api.resend.com"

// maxResponseBytes はメールAPIのレスポンスとして読み込む最大バイト数。
const maxResponseBytes = 1 << 20

// Message は送信するメール1通。
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

// Sender はメール送信のインターフェース。
// テスト時にモックに差し替え可能。
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// SendRecorder はメール送信結果の記録先。
type SendRecorder interface {
	RecordEmailSent(success bool)
}

// ClientConfig はメールAPIクライアントの設定。
type ClientConfig struct {
	BaseURL string // 空の場合はdefaultBaseURL
	APIKey  string
}

// Client はメールAPIのクライアント。
// 1通ごとに /emails へPOSTし、リトライは行わない。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	recorder   SendRecorder
	baseURL    string
	apiKey     string
}

// NewClient はClientを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, recorder SendRecorder, cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		recorder:   recorder,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
	}
}

// APIError はメールAPIが返したエラー。
type APIError struct {
	StatusCode int
	Name       string
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("email API error (status %d, %s): %s", e.StatusCode, e.Name, e.Message)
}

// Send はメールを1通送信し、APIが採番したメールIDを返す。
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	id, err := c.send(ctx, msg)
	c.recorder.RecordEmailSent(err == nil)
	if err != nil {
		c.logger.Error("failed to send email",
			slog.Int("recipients", len(msg.To)),
			slog.String("subject", msg.Subject),
			slog.String("error", err.Error()),
		)
		return "", err
	}
	c.logger.Info("email sent", slog.String("email_id", id))
	return id, nil
}

func (c *Client) send(ctx context.Context, msg Message) (string, error) {
	if len(msg.To) == 0 {
		return "", fmt.Errorf("email has no recipients")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Nimart/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call email API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &e) == nil {
			apiErr.Name = e.Name
			apiErr.Message = e.Message
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return "", apiErr
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse response JSON: %w", err)
	}
	return result.ID, nil
}

var _ Sender = (*Client)(nil)
