package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// LocationTimeout は位置情報取得のタイムアウト。
const LocationTimeout = 10 * time.Second

// Coordinates は緯度経度の組。
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocateOptions は位置情報取得のオプション。
type LocateOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
}

// Locator は端末の位置情報取得機能を抽象化する。
type Locator interface {
	Locate(ctx context.Context, opts LocateOptions) (*Coordinates, error)
}

// UserLocation はLocatorから現在地を取得する。
// Locatorがnil、取得失敗、タイムアウトのいずれの場合もエラーではなくnilを返す。
// 呼び出し元はnilを「位置不明」として扱うこと。
func UserLocation(ctx context.Context, locator Locator) *Coordinates {
	if locator == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, LocationTimeout)
	defer cancel()

	coords, err := locator.Locate(ctx, LocateOptions{
		HighAccuracy: true,
		Timeout:      LocationTimeout,
	})
	if err != nil {
		slog.Debug("location lookup failed", slog.String("error", err.Error()))
		return nil
	}
	return coords
}

// Region は逆ジオコーディングの結果。
type Region struct {
	State string
	LGA   string
}

// ReverseGeocode は座標を州・LGAに変換する。
// 実際の変換はデータベース側のRPCで行うため、ここでは常に空の結果を返す。
func ReverseGeocode(lat, lon float64) Region {
	return Region{}
}

// IPLocator はクライアントIPから位置を推定する外部APIを使うLocator。
type IPLocator struct {
	httpClient *http.Client
	endpoint   string
	clientIP   string
}

// NewIPLocator はIPLocatorを生成する。
// endpointは "%s" にIPアドレスを埋め込むURLテンプレート。
func NewIPLocator(httpClient *http.Client, endpoint, clientIP string) *IPLocator {
	return &IPLocator{
		httpClient: httpClient,
		endpoint:   endpoint,
		clientIP:   clientIP,
	}
}

// Locate は位置推定APIを呼び出す。
// IPベースの推定はHighAccuracyの指定に関わらず都市レベルの精度となる。
func (l *IPLocator) Locate(ctx context.Context, opts LocateOptions) (*Coordinates, error) {
	if l.endpoint == "" || l.clientIP == "" {
		return nil, fmt.Errorf("geolocation is not available")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(l.endpoint, l.clientIP), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create geolocation request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geolocation API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read geolocation response: %w", err)
	}

	var payload struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse geolocation response: %w", err)
	}
	if payload.Latitude == nil || payload.Longitude == nil {
		return nil, fmt.Errorf("geolocation response has no coordinates")
	}

	return &Coordinates{Latitude: *payload.Latitude, Longitude: *payload.Longitude}, nil
}

var _ Locator = (*IPLocator)(nil)
