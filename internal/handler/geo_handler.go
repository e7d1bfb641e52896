package handler

import (
	"net/http"
	"strings"

	"github.com/hitoshi/nimart/internal/geo"
	"github.com/hitoshi/nimart/internal/model"
)

// LocatorFactory はリクエストごとにLocatorを生成する。
// IPベースの推定ではクライアントIPがリクエストに依存するため関数で受け取る。
// nilを返した場合は位置不明として扱う。
type LocatorFactory func(r *http.Request) geo.Locator

// GeoHandler は州間距離と現在地推定のHTTPハンドラー。
type GeoHandler struct {
	locators LocatorFactory
}

// NewGeoHandler はGeoHandlerを生成する。
func NewGeoHandler(locators LocatorFactory) *GeoHandler {
	return &GeoHandler{locators: locators}
}

type distanceResponse struct {
	From       string        `json:"from"`
	To         string        `json:"to"`
	DistanceKM int           `json:"distance_km"`
	Proximity  geo.Proximity `json:"proximity"`
}

// Distance は2つの州の州都間の距離を返す。
// from_lga・to_lgaを渡すと近接度の判定にも使う。
// GET /api/distance?from=&to=
func (h *GeoHandler) Distance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := strings.TrimSpace(q.Get("from"))
	to := strings.TrimSpace(q.Get("to"))
	if from == "" || to == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("from and to are required"))
		return
	}

	km, ok := geo.StateDistance(from, to)
	if !ok {
		name := from
		if _, found := geo.FindState(from); found {
			name = to
		}
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewUnknownStateError(name))
		return
	}

	writeJSON(w, http.StatusOK, distanceResponse{
		From:       from,
		To:         to,
		DistanceKM: km,
		Proximity:  geo.ProximityLevel(from, q.Get("from_lga"), to, q.Get("to_lga")),
	})
}

// Location はクライアントの推定位置を返す。
// 推定できない場合もエラーにはせず、locationをnullで返す。
// GET /api/location
func (h *GeoHandler) Location(w http.ResponseWriter, r *http.Request) {
	var locator geo.Locator
	if h.locators != nil {
		locator = h.locators(r)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"location": geo.UserLocation(r.Context(), locator),
	})
}
