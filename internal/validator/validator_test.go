package validator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/tenkigen/tenkigen/internal/models"
)

func comment(text string, ct models.CommentType) *models.PastComment {
	return &models.PastComment{CommentText: text, CommentType: ct}
}

func forecast(cond models.WeatherCondition, temp, precip, humidity float64) *models.WeatherForecast {
	return &models.WeatherForecast{
		WeatherCondition: cond,
		Temperature:      temp,
		Precipitation:    precip,
		Humidity:         humidity,
	}
}

var tokyo, _ = models.ResolveLocation("東京")

func TestValidate_WeatherAxis(t *testing.T) {
	v := New(DefaultRules(), 5)
	tests := []struct {
		name string
		text string
		ct   models.CommentType
		f    *models.WeatherForecast
		ok   bool
	}{
		{"sunny word under rain", "青空が広がります", models.TypeWeatherComment, forecast(models.ConditionRain, 20, 2, 70), false},
		{"rain word under rain", "雨が降り続きます", models.TypeWeatherComment, forecast(models.ConditionRain, 20, 2, 70), true},
		{"rain word under clear", "傘をお持ちください", models.TypeWeatherComment, forecast(models.ConditionClear, 25, 0, 50), false},
		{"understatement under downpour", "にわか雨がぱらつくかも", models.TypeWeatherComment, forecast(models.ConditionRain, 20, 15, 85), false},
		{"snow advice heatstroke", "熱中症に気をつけて", models.TypeAdvice, forecast(models.ConditionSnow, 0, 0.5, 60), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := v.Validate(comment(tt.text, tt.ct), tt.f, tokyo)
			if ok != tt.ok {
				t.Errorf("Validate(%q) = %v (%s), want %v", tt.text, ok, reason, tt.ok)
			}
			if !ok && reason == "" {
				t.Error("rejection must carry a reason")
			}
		})
	}
}

func TestValidate_ThunderPrecipitationThreshold(t *testing.T) {
	v := New(DefaultRules(), 5)

	// Below threshold: strong-warning words are forbidden.
	light := forecast(models.ConditionThunder, 24, 1, 70)
	if ok, _ := v.Validate(comment("激しい雷雨に警戒", models.TypeWeatherComment), light, tokyo); ok {
		t.Error("strong warning should be rejected for light thunder")
	}
	if ok, reason := v.Validate(comment("雷の音が聞こえるかも", models.TypeWeatherComment), light, tokyo); !ok {
		t.Errorf("mild thunder comment rejected: %s", reason)
	}

	// At or above threshold the heavy-rain list applies instead.
	severe := forecast(models.ConditionThunder, 24, 6, 80)
	if ok, reason := v.Validate(comment("激しい雷雨に警戒", models.TypeWeatherComment), severe, tokyo); !ok {
		t.Errorf("strong warning should pass for severe thunder: %s", reason)
	}
	if ok, _ := v.Validate(comment("にわか雨がぱらつく程度", models.TypeWeatherComment), severe, tokyo); ok {
		t.Error("understatement should be rejected for severe thunder")
	}
}

func TestValidate_TemperatureAxis(t *testing.T) {
	v := New(DefaultRules(), 5)
	tests := []struct {
		name string
		text string
		temp float64
		ok   bool
	}{
		{"cold word at 38", "涼しい一日です", 38, false},
		{"heat word at 38", "燃えるような暑さ", 38, true},
		{"heatstroke at 20", "熱中症に注意", 20, false},
		{"heatstroke at 33", "熱中症に注意", 33, true},
		{"hot word at 5", "汗ばむ陽気です", 5, false},
		{"cold word at 5", "冷たい風が吹きます", 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := forecast(models.ConditionClear, tt.temp, 0, 50)
			ok, reason := v.Validate(comment(tt.text, models.TypeWeatherComment), f, tokyo)
			if ok != tt.ok {
				t.Errorf("Validate(%q at %.0f°C) = %v (%s), want %v", tt.text, tt.temp, ok, reason, tt.ok)
			}
		})
	}
}

func TestValidate_HumidityAxis(t *testing.T) {
	v := New(DefaultRules(), 5)

	humid := forecast(models.ConditionCloudy, 22, 0, 90)
	if ok, _ := v.Validate(comment("空気が乾燥しています", models.TypeWeatherComment), humid, tokyo); ok {
		t.Error("dryness word should be rejected at 90% humidity")
	}

	dry := forecast(models.ConditionCloudy, 22, 0, 20)
	if ok, _ := v.Validate(comment("ジメジメした一日", models.TypeWeatherComment), dry, tokyo); ok {
		t.Error("damp word should be rejected at 20% humidity")
	}
	if ok, reason := v.Validate(comment("空気が乾燥しています", models.TypeWeatherComment), dry, tokyo); !ok {
		t.Errorf("dryness word should pass at 20%%: %s", reason)
	}
}

func TestValidate_RegionAxis(t *testing.T) {
	v := New(DefaultRules(), 5)
	naha, _ := models.ResolveLocation("那覇")
	sapporo, _ := models.ResolveLocation("札幌")

	// S5: snow and hard-cold words never pass in Okinawa.
	f := forecast(models.ConditionClear, 28, 0, 65)
	for _, text := range []string{"雪景色が見られそう", "極寒の一日", "凍える寒さ"} {
		if ok, _ := v.Validate(comment(text, models.TypeWeatherComment), f, naha); ok {
			t.Errorf("%q should be rejected for Okinawa", text)
		}
	}
	if ok, reason := v.Validate(comment("穏やかな晴天です", models.TypeWeatherComment), f, naha); !ok {
		t.Errorf("benign comment rejected for Okinawa: %s", reason)
	}

	hot := forecast(models.ConditionClear, 30, 0, 55)
	if ok, _ := v.Validate(comment("酷暑が続きます", models.TypeWeatherComment), hot, sapporo); ok {
		t.Error("strong heat word should be rejected for Hokkaidō")
	}
}

func TestValidate_RequiredKeywords(t *testing.T) {
	v := New(DefaultRules(), 5)
	f := forecast(models.ConditionHeavyRain, 20, 20, 90)

	if ok, _ := v.Validate(comment("雨がしとしと降ります", models.TypeWeatherComment), f, tokyo); ok {
		t.Error("heavy rain weather comment without warning words should be rejected")
	}
	if ok, reason := v.Validate(comment("激しい雨に警戒してください", models.TypeWeatherComment), f, tokyo); !ok {
		t.Errorf("warning comment rejected: %s", reason)
	}
	if ok, _ := v.Validate(comment("のんびり過ごしましょう", models.TypeAdvice), f, tokyo); ok {
		t.Error("heavy rain advice without preparation words should be rejected")
	}
	if ok, reason := v.Validate(comment("傘の備えを忘れずに", models.TypeAdvice), f, tokyo); !ok {
		t.Errorf("preparation advice rejected: %s", reason)
	}
}

func TestValidate_RainContradiction(t *testing.T) {
	v := New(DefaultRules(), 5)
	f := forecast(models.ConditionRain, 22, 3, 85)

	for _, text := range []string{"梅雨の中休みです", "晴れ間がのぞきます", "天気は回復へ"} {
		if ok, _ := v.Validate(comment(text, models.TypeWeatherComment), f, tokyo); ok {
			t.Errorf("%q should contradict rainy weather", text)
		}
	}
}

func TestValidate_SeverityMonotonic(t *testing.T) {
	// A comment rejected under moderate rain settings must stay rejected
	// when precipitation strengthens within the same axis.
	v := New(DefaultRules(), 5)
	texts := []string{"青空が広がります", "洗濯日和です"}
	for _, text := range texts {
		moderate := forecast(models.ConditionRain, 20, 5, 80)
		heavy := forecast(models.ConditionRain, 20, 25, 90)
		okModerate, _ := v.Validate(comment(text, models.TypeWeatherComment), moderate, tokyo)
		okHeavy, _ := v.Validate(comment(text, models.TypeWeatherComment), heavy, tokyo)
		if okModerate {
			t.Errorf("%q should be rejected under moderate rain", text)
		}
		if okHeavy {
			t.Errorf("%q must stay rejected under heavy rain", text)
		}
	}
}

func TestValidator_DegradedMode(t *testing.T) {
	v := New(nil, 5)
	f := forecast(models.ConditionRain, 20, 5, 80)
	if ok, _ := v.Validate(comment("快晴の青空", models.TypeWeatherComment), f, tokyo); !ok {
		t.Error("nil rules must pass every candidate")
	}
}

func TestLoadOrDefault(t *testing.T) {
	log := zap.NewNop().Sugar()

	v := LoadOrDefault("", 5, log)
	if v.rules == nil {
		t.Fatal("empty path should load built-in defaults")
	}

	v = LoadOrDefault("/nonexistent/rules.yaml", 5, log)
	if v.rules != nil {
		t.Fatal("unreadable path should degrade to pass-all")
	}

	// Round-trip through a real YAML document.
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	doc := strings.Join([]string{
		"weather:",
		"  rain:",
		"    weather_comment: [晴れ]",
		"temperature:",
		"  mild: [熱中症]",
		"rain_contradiction: [晴れ間]",
	}, "\n")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	v = LoadOrDefault(path, 5, log)
	if v.rules == nil {
		t.Fatal("valid document should load")
	}
	f := forecast(models.ConditionRain, 20, 2, 70)
	if ok, _ := v.Validate(comment("晴れの予報", models.TypeWeatherComment), f, tokyo); ok {
		t.Error("loaded rule should reject 晴れ under rain")
	}
}
