package geo

import "math"

// earthRadiusKm は地球の平均半径（km）。
const earthRadiusKm = 6371.0

// Proximity は2地点間の近接度を表す。
type Proximity string

const (
	// ProximitySameLGA は同一州かつ同一LGA。
	ProximitySameLGA Proximity = "same-lga"
	// ProximitySameState は同一州だがLGAが異なる。
	ProximitySameState Proximity = "same-state"
	// ProximityDifferentState は異なる州。
	ProximityDifferentState Proximity = "different-state"
)

// Distance はハバーサイン公式で2点間の大圏距離を計算し、km単位の整数に丸めて返す。
func Distance(lat1, lon1, lat2, lon2 float64) int {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return int(math.Round(earthRadiusKm * c))
}

// StateDistance は2つの州の州都間の距離を返す。
// どちらかが座標テーブルに無い場合はfalseを返す。
func StateDistance(from, to string) (int, bool) {
	a, ok := FindState(from)
	if !ok {
		return 0, false
	}
	b, ok := FindState(to)
	if !ok {
		return 0, false
	}
	return Distance(a.Latitude, a.Longitude, b.Latitude, b.Longitude), true
}

// ProximityLevel は州名とLGA名の完全一致で近接度を判定する。
// 表記ゆれの吸収やジオコーディングは行わない。
func ProximityLevel(stateA, lgaA, stateB, lgaB string) Proximity {
	if stateA != stateB {
		return ProximityDifferentState
	}
	if lgaA == lgaB {
		return ProximitySameLGA
	}
	return ProximitySameState
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
