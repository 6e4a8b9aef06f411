package models

import "strings"

type coord struct {
	lat, lon   float64
	region     string
	prefecture string
}

// knownLocations maps normalized place names to coordinates. Covers the
// prefectural capitals plus common aliases.
var knownLocations = map[string]coord{
	"札幌":   {43.0642, 141.3469, "北海道", "北海道"},
	"青森":   {40.8244, 140.7400, "東北", "青森県"},
	"盛岡":   {39.7036, 141.1527, "東北", "岩手県"},
	"仙台":   {38.2682, 140.8694, "東北", "宮城県"},
	"秋田":   {39.7186, 140.1024, "東北", "秋田県"},
	"山形":   {38.2404, 140.3633, "東北", "山形県"},
	"福島":   {37.7500, 140.4678, "東北", "福島県"},
	"水戸":   {36.3418, 140.4468, "関東", "茨城県"},
	"宇都宮": {36.5551, 139.8828, "関東", "栃木県"},
	"前橋":   {36.3912, 139.0609, "関東", "群馬県"},
	"さいたま": {35.8617, 139.6455, "関東", "埼玉県"},
	"千葉":   {35.6047, 140.1233, "関東", "千葉県"},
	"東京":   {35.6762, 139.6503, "関東", "東京都"},
	"横浜":   {35.4437, 139.6380, "関東", "神奈川県"},
	"新潟":   {37.9026, 139.0232, "北陸", "新潟県"},
	"富山":   {36.6953, 137.2113, "北陸", "富山県"},
	"金沢":   {36.5946, 136.6256, "北陸", "石川県"},
	"福井":   {36.0652, 136.2216, "北陸", "福井県"},
	"甲府":   {35.6642, 138.5684, "中部", "山梨県"},
	"長野":   {36.6513, 138.1810, "中部", "長野県"},
	"岐阜":   {35.3912, 136.7223, "中部", "岐阜県"},
	"静岡":   {34.9769, 138.3831, "中部", "静岡県"},
	"名古屋": {35.1815, 136.9066, "中部", "愛知県"},
	"津":     {34.7303, 136.5086, "中部", "三重県"},
	"大津":   {35.0045, 135.8686, "関西", "滋賀県"},
	"京都":   {35.0116, 135.7681, "関西", "京都府"},
	"大阪":   {34.6937, 135.5023, "関西", "大阪府"},
	"神戸":   {34.6901, 135.1956, "関西", "兵庫県"},
	"奈良":   {34.6851, 135.8050, "関西", "奈良県"},
	"和歌山": {34.2260, 135.1675, "関西", "和歌山県"},
	"鳥取":   {35.5039, 134.2377, "中国", "鳥取県"},
	"松江":   {35.4723, 133.0505, "中国", "島根県"},
	"岡山":   {34.6618, 133.9344, "中国", "岡山県"},
	"広島":   {34.3853, 132.4553, "中国", "広島県"},
	"山口":   {34.1786, 131.4737, "中国", "山口県"},
	"徳島":   {34.0658, 134.5593, "四国", "徳島県"},
	"高松":   {34.3401, 134.0434, "四国", "香川県"},
	"松山":   {33.8392, 132.7657, "四国", "愛媛県"},
	"高知":   {33.5597, 133.5311, "四国", "高知県"},
	"福岡":   {33.5904, 130.4017, "九州", "福岡県"},
	"佐賀":   {33.2494, 130.2988, "九州", "佐賀県"},
	"長崎":   {32.7503, 129.8779, "九州", "長崎県"},
	"熊本":   {32.8032, 130.7079, "九州", "熊本県"},
	"大分":   {33.2382, 131.6126, "九州", "大分県"},
	"宮崎":   {31.9111, 131.4239, "九州", "宮崎県"},
	"鹿児島": {31.5966, 130.5571, "九州", "鹿児島県"},
	"那覇":   {26.2124, 127.6809, "沖縄", "沖縄県"},
	"石垣":   {24.3448, 124.1572, "沖縄", "沖縄県"},
	"宮古島": {24.8055, 125.2811, "沖縄", "沖縄県"},
	"旭川":   {43.7706, 142.3650, "北海道", "北海道"},
	"函館":   {41.7687, 140.7288, "北海道", "北海道"},
	"釧路":   {42.9849, 144.3820, "北海道", "北海道"},
	"帯広":   {42.9237, 143.1966, "北海道", "北海道"},
}

// DefaultLocationName is used when a name cannot be resolved.
const DefaultLocationName = "東京"

// NormalizeLocationName trims whitespace and common suffixes ("市", "県",
// "都", "府") so lookups tolerate full administrative names.
func NormalizeLocationName(name string) string {
	name = strings.TrimSpace(name)
	for _, suffix := range []string{"市", "都", "府"} {
		name = strings.TrimSuffix(name, suffix)
	}
	// 県 is only a suffix on prefecture-style names like 広島県.
	if len([]rune(name)) > 2 {
		name = strings.TrimSuffix(name, "県")
	}
	return name
}

// ResolveLocation maps a name to a Location. The second return value is
// false when the name was unknown and the default coordinates were used.
func ResolveLocation(name string) (Location, bool) {
	normalized := NormalizeLocationName(name)
	if c, ok := knownLocations[normalized]; ok {
		lat, lon := c.lat, c.lon
		return Location{
			Name:           name,
			NormalizedName: normalized,
			Latitude:       &lat,
			Longitude:      &lon,
			Region:         c.region,
			Prefecture:     c.prefecture,
		}, true
	}
	c := knownLocations[DefaultLocationName]
	lat, lon := c.lat, c.lon
	return Location{
		Name:           name,
		NormalizedName: normalized,
		Latitude:       &lat,
		Longitude:      &lon,
		Region:         c.region,
		Prefecture:     c.prefecture,
	}, false
}

// KnownLocationNames returns the resolvable names in sorted-insertion order.
func KnownLocationNames() []string {
	names := make([]string, 0, len(knownLocations))
	for name := range knownLocations {
		names = append(names, name)
	}
	return names
}

// IsOkinawaFamily reports whether the location is in the Okinawa region,
// where snow and hard-cold advisories never apply.
func (l Location) IsOkinawaFamily() bool {
	return l.Region == "沖縄" || l.Prefecture == "沖縄県"
}

// IsHokkaidoFamily reports whether the location is in Hokkaidō, where
// extreme-heat advisories are suppressed.
func (l Location) IsHokkaidoFamily() bool {
	return l.Region == "北海道" || l.Prefecture == "北海道"
}
