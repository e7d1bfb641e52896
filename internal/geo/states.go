// Package geo はナイジェリアの州間の距離計算と近接度判定を提供する。
package geo

// StateCoordinate は州の州都座標を表す。
type StateCoordinate struct {
	Name      string
	Capital   string
	Latitude  float64
	Longitude float64
}

// states は36州と連邦首都地区（FCT）の静的な座標テーブル。
// プロセスの生存期間中は変更しない。
var states = [...]StateCoordinate{
	{"Abia", "Umuahia", 5.5320, 7.4860},
	{"Adamawa", "Yola", 9.2035, 12.4954},
	{"Akwa Ibom", "Uyo", 5.0377, 7.9128},
	{"Anambra", "Awka", 6.2104, 7.0741},
	{"Bauchi", "Bauchi", 10.3158, 9.8442},
	{"Bayelsa", "Yenagoa", 4.9267, 6.2676},
	{"Benue", "Makurdi", 7.7322, 8.5391},
	{"Borno", "Maiduguri", 11.8311, 13.1510},
	{"Cross River", "Calabar", 4.9757, 8.3417},
	{"Delta", "Asaba", 6.1980, 6.7319},
	{"Ebonyi", "Abakaliki", 6.3249, 8.1137},
	{"Edo", "Benin City", 6.3350, 5.6037},
	{"Ekiti", "Ado-Ekiti", 7.6211, 5.2215},
	{"Enugu", "Enugu", 6.4584, 7.5464},
	{"FCT", "Abuja", 9.0765, 7.3986},
	{"Gombe", "Gombe", 10.2897, 11.1673},
	{"Imo", "Owerri", 5.4836, 7.0333},
	{"Jigawa", "Dutse", 11.7562, 9.3388},
	{"Kaduna", "Kaduna", 10.5105, 7.4165},
	{"Kano", "Kano", 12.0022, 8.5920},
	{"Katsina", "Katsina", 12.9908, 7.6018},
	{"Kebbi", "Birnin Kebbi", 12.4539, 4.1975},
	{"Kogi", "Lokoja", 7.8023, 6.7333},
	{"Kwara", "Ilorin", 8.4966, 4.5421},
	{"Lagos", "Ikeja", 6.5244, 3.3792},
	{"Nasarawa", "Lafia", 8.4939, 8.5157},
	{"Niger", "Minna", 9.5836, 6.5463},
	{"Ogun", "Abeokuta", 7.1475, 3.3619},
	{"Ondo", "Akure", 7.2571, 5.2058},
	{"Osun", "Osogbo", 7.7827, 4.5418},
	{"Oyo", "Ibadan", 7.3775, 3.9470},
	{"Plateau", "Jos", 9.8965, 8.8583},
	{"Rivers", "Port Harcourt", 4.8156, 7.0498},
	{"Sokoto", "Sokoto", 13.0059, 5.2476},
	{"Taraba", "Jalingo", 8.8937, 11.3596},
	{"Yobe", "Damaturu", 11.7470, 11.9608},
	{"Zamfara", "Gusau", 12.1628, 6.6614},
}

// States は座標テーブルのコピーを返す。
func States() []StateCoordinate {
	out := make([]StateCoordinate, len(states))
	copy(out, states[:])
	return out
}

// StateNames は州名の一覧をテーブル順で返す。
func StateNames() []string {
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = s.Name
	}
	return names
}

// FindState は州名（完全一致）で座標を検索する。
func FindState(name string) (StateCoordinate, bool) {
	for _, s := range states {
		if s.Name == name {
			return s, true
		}
	}
	return StateCoordinate{}, false
}
