package validator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TypedKeywords holds per-comment-type forbidden substrings.
type TypedKeywords struct {
	WeatherComment []string `yaml:"weather_comment"`
	Advice         []string `yaml:"advice"`
}

// ForType returns the list for the given comment type name.
func (k TypedKeywords) ForType(weatherHalf bool) []string {
	if weatherHalf {
		return k.WeatherComment
	}
	return k.Advice
}

// Rules is the validator's configuration matrix. All lists are forbidden
// substrings unless noted otherwise. Loaded from YAML; DefaultRules mirrors
// the shipped document so the engine works with no external file.
type Rules struct {
	Weather struct {
		Rain      TypedKeywords `yaml:"rain"`
		HeavyRain TypedKeywords `yaml:"heavy_rain"`
		Sunny     TypedKeywords `yaml:"sunny"`
		Cloudy    TypedKeywords `yaml:"cloudy"`
		Thunder   TypedKeywords `yaml:"thunder"`
		Snow      TypedKeywords `yaml:"snow"`
	} `yaml:"weather"`

	Temperature struct {
		ExtremeHot   []string `yaml:"extreme_hot"`   // >= 37
		VeryHot      []string `yaml:"very_hot"`      // >= 34
		ModerateWarm []string `yaml:"moderate_warm"` // 25-33
		Mild         []string `yaml:"mild"`          // 12-24
		Cold         []string `yaml:"cold"`          // < 12
	} `yaml:"temperature"`

	Humidity struct {
		High []string `yaml:"high"` // >= 80%: dryness words forbidden
		Low  []string `yaml:"low"`  // < 30%: damp words forbidden
	} `yaml:"humidity"`

	Region struct {
		Okinawa  []string `yaml:"okinawa"`
		Hokkaido []string `yaml:"hokkaido"`
	} `yaml:"region"`

	// Required keywords: at least one must appear under heavy weather.
	Required struct {
		HeavyRain TypedKeywords `yaml:"heavy_rain"`
		Storm     TypedKeywords `yaml:"storm"`
	} `yaml:"required"`

	// RainContradiction lists seasonal-break words forbidden while raining.
	RainContradiction []string `yaml:"rain_contradiction"`

	// ThunderStrongWords are forbidden under thunder below the severe
	// precipitation threshold.
	ThunderStrongWords []string `yaml:"thunder_strong_words"`
}

// Load reads a rule matrix from a YAML document.
func Load(path string) (*Rules, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Rules
	if err := yaml.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	return &r, nil
}

// DefaultRules returns the built-in rule matrix.
func DefaultRules() *Rules {
	r := &Rules{}

	sunnyWords := []string{"晴れ", "快晴", "青空", "日差し", "日より", "からっと", "カラッと", "洗濯日和"}
	r.Weather.Rain.WeatherComment = append([]string{"太陽", "猛暑", "花粉"}, sunnyWords...)
	r.Weather.Rain.Advice = []string{"日焼け", "紫外線", "洗濯日和", "散歩日和", "ピクニック", "布団を干"}

	// The heavy-rain lists extend the ordinary rain lists with words that
	// understate the situation.
	r.Weather.HeavyRain.WeatherComment = append(append([]string{}, r.Weather.Rain.WeatherComment...),
		"小雨", "にわか雨", "ポツポツ", "パラパラ", "弱い雨", "晴れ間")
	r.Weather.HeavyRain.Advice = append(append([]string{}, r.Weather.Rain.Advice...),
		"軽い雨", "折りたたみ傘で十分", "散歩", "外遊び")

	r.Weather.Sunny.WeatherComment = []string{"雨", "傘", "雪", "雷", "どんより", "ぐずつ", "荒れ"}
	r.Weather.Sunny.Advice = []string{"雨具", "長靴", "レインコート", "雷に注意", "冠水"}

	r.Weather.Cloudy.WeatherComment = []string{"快晴", "強い日差し", "青空が広がる", "雲ひとつない"}
	r.Weather.Cloudy.Advice = []string{"日差しジリジリ", "サングラス必須"}

	r.Weather.Thunder.WeatherComment = []string{"晴れ", "快晴", "穏やか", "のどか"}
	r.Weather.Thunder.Advice = []string{"日焼け", "紫外線", "洗濯日和"}

	r.Weather.Snow.WeatherComment = []string{"晴れ", "暑い", "猛暑", "汗ばむ", "ぽかぽか"}
	r.Weather.Snow.Advice = []string{"熱中症", "半袖", "水分補給", "日焼け"}

	r.Temperature.ExtremeHot = []string{"肌寒い", "冷える", "涼しい", "防寒", "厚着", "冷え込み"}
	r.Temperature.VeryHot = []string{"肌寒い", "冷え込み", "防寒", "厚着", "凍える"}
	r.Temperature.ModerateWarm = []string{"極寒", "凍える", "真冬並み", "猛烈な暑さ", "酷暑"}
	r.Temperature.Mild = []string{"熱中症", "猛暑", "酷暑", "極寒", "凍える", "真夏日"}
	r.Temperature.Cold = []string{"暑い", "猛暑", "熱中症", "半袖", "汗ばむ", "蒸し暑い"}

	r.Humidity.High = []string{"乾燥", "カラカラ", "うるおい不足", "乾いた空気"}
	r.Humidity.Low = []string{"除湿", "ジメジメ", "ムシムシ", "蒸し暑い", "湿っぽい"}

	r.Region.Okinawa = []string{"雪", "雪景色", "積雪", "吹雪", "極寒", "凍える", "真冬の寒さ", "路面凍結"}
	r.Region.Hokkaido = []string{"熱中症に厳重警戒", "猛暑", "酷暑", "激しい暑さ", "うだるような"}

	r.Required.HeavyRain.WeatherComment = []string{"注意", "警戒", "危険", "荒れ", "激しい", "強い", "本格的"}
	r.Required.HeavyRain.Advice = []string{"傘", "雨具", "安全", "注意", "室内", "控え", "警戒", "備え", "準備"}
	r.Required.Storm.WeatherComment = []string{"警戒", "危険", "荒れ", "暴風", "強い", "激しい", "注意"}
	r.Required.Storm.Advice = []string{"安全", "注意", "室内", "控え", "警戒", "備え", "飛ばされ", "外出"}

	r.RainContradiction = []string{
		"中休み", "晴れ間", "回復", "一時的な晴れ", "梅雨の中休み", "梅雨明け",
		"からっと", "さっぽり", "乾燥", "湿度低下", "晴天", "好天", "快晴の", "青空が",
	}

	r.ThunderStrongWords = []string{"激しい", "警戒", "危険", "大荒れ", "本格的", "強雨"}

	return r
}
