// Package validator rejects candidate comments whose text contradicts the
// current forecast. All checks are substring tests against configurable
// keyword matrices; the validator itself is stateless and pure.
package validator

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tenkigen/tenkigen/internal/models"
)

// heatstrokeBanBelow is the °C under which heatstroke mentions are always
// rejected, regardless of temperature bucket.
const heatstrokeBanBelow = 32.0

// Validator applies the rule matrix to (comment, forecast) pairs.
type Validator struct {
	rules         *Rules
	thunderSevere float64
}

// New returns a validator over the given rules. A nil rules matrix passes
// every candidate (degraded mode). thunderSevere is the mm/h at which
// thunder is treated as heavy rain.
func New(rules *Rules, thunderSevere float64) *Validator {
	if thunderSevere <= 0 {
		thunderSevere = 5
	}
	return &Validator{rules: rules, thunderSevere: thunderSevere}
}

// LoadOrDefault builds a validator from the YAML document at path, the
// built-in defaults when path is empty, or degraded pass-all mode when the
// document cannot be read.
func LoadOrDefault(path string, thunderSevere float64, log *zap.SugaredLogger) *Validator {
	if path == "" {
		return New(DefaultRules(), thunderSevere)
	}
	rules, err := Load(path)
	if err != nil {
		log.Warnw("validator rules unavailable, passing all candidates", "path", path, "error", err)
		return New(nil, thunderSevere)
	}
	return New(rules, thunderSevere)
}

// Validate reports whether the comment is admissible under the forecast.
// The returned reason is empty on success and human-readable on rejection.
func (v *Validator) Validate(c *models.PastComment, f *models.WeatherForecast, loc models.Location) (bool, string) {
	if v.rules == nil {
		return true, ""
	}
	text := strings.ToLower(c.CommentText)
	weatherHalf := c.CommentType == models.TypeWeatherComment

	if ok, reason := v.checkWeatherAxis(text, weatherHalf, f); !ok {
		return false, reason
	}
	if ok, reason := v.checkTemperatureAxis(text, f.Temperature); !ok {
		return false, reason
	}
	if ok, reason := v.checkHumidityAxis(text, f.Humidity); !ok {
		return false, reason
	}
	if ok, reason := v.checkRegionAxis(text, loc); !ok {
		return false, reason
	}
	if ok, reason := v.checkRequiredKeywords(text, weatherHalf, f.WeatherCondition); !ok {
		return false, reason
	}
	if ok, reason := v.checkRainContradiction(text, f.WeatherCondition); !ok {
		return false, reason
	}
	return true, ""
}

func containsAny(text string, words []string) (string, bool) {
	for _, w := range words {
		if w == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(w)) {
			return w, true
		}
	}
	return "", false
}

func (v *Validator) checkWeatherAxis(text string, weatherHalf bool, f *models.WeatherForecast) (bool, string) {
	severity := f.PrecipSeverity()
	heavy := severity == models.PrecipHeavy || severity == models.PrecipVeryHeavy

	var forbidden []string
	var axis string
	switch f.WeatherCondition {
	case models.ConditionClear, models.ConditionExtremeHeat:
		axis, forbidden = "sunny", v.rules.Weather.Sunny.ForType(weatherHalf)
	case models.ConditionPartlyCloudy, models.ConditionCloudy, models.ConditionFog:
		axis, forbidden = "cloudy", v.rules.Weather.Cloudy.ForType(weatherHalf)
	case models.ConditionSnow, models.ConditionHeavySnow:
		axis, forbidden = "snow", v.rules.Weather.Snow.ForType(weatherHalf)
	case models.ConditionHeavyRain:
		axis, forbidden = "heavy_rain", v.rules.Weather.HeavyRain.ForType(weatherHalf)
	case models.ConditionThunder:
		if f.Precipitation >= v.thunderSevere {
			axis, forbidden = "thunder(severe)", v.rules.Weather.HeavyRain.ForType(weatherHalf)
		} else {
			axis = "thunder"
			forbidden = append(append([]string{}, v.rules.Weather.Thunder.ForType(weatherHalf)...), v.rules.ThunderStrongWords...)
		}
	case models.ConditionRain, models.ConditionStorm, models.ConditionSevereStorm:
		if heavy {
			axis, forbidden = "heavy_rain", v.rules.Weather.HeavyRain.ForType(weatherHalf)
		} else {
			axis, forbidden = "rain", v.rules.Weather.Rain.ForType(weatherHalf)
		}
	default:
		return true, ""
	}

	if w, hit := containsAny(text, forbidden); hit {
		return false, fmt.Sprintf("weather axis %s forbids %q under %s", axis, w, f.WeatherCondition)
	}
	return true, ""
}

func (v *Validator) checkTemperatureAxis(text string, temp float64) (bool, string) {
	var bucket string
	var forbidden []string
	switch {
	case temp >= 37:
		bucket, forbidden = "extreme_hot", v.rules.Temperature.ExtremeHot
	case temp >= 34:
		bucket, forbidden = "very_hot", v.rules.Temperature.VeryHot
	case temp >= 25:
		bucket, forbidden = "moderate_warm", v.rules.Temperature.ModerateWarm
	case temp >= 12:
		bucket, forbidden = "mild", v.rules.Temperature.Mild
	default:
		bucket, forbidden = "cold", v.rules.Temperature.Cold
	}
	if w, hit := containsAny(text, forbidden); hit {
		return false, fmt.Sprintf("temperature bucket %s (%.1f°C) forbids %q", bucket, temp, w)
	}
	// Heatstroke mentions require genuine heat.
	if temp < heatstrokeBanBelow && strings.Contains(text, "熱中症") {
		return false, fmt.Sprintf("熱中症 mention at %.1f°C (below %.0f°C)", temp, heatstrokeBanBelow)
	}
	return true, ""
}

func (v *Validator) checkHumidityAxis(text string, humidity float64) (bool, string) {
	if humidity >= 80 {
		if w, hit := containsAny(text, v.rules.Humidity.High); hit {
			return false, fmt.Sprintf("dryness word %q at %.0f%% humidity", w, humidity)
		}
	}
	if humidity > 0 && humidity < 30 {
		if w, hit := containsAny(text, v.rules.Humidity.Low); hit {
			return false, fmt.Sprintf("damp word %q at %.0f%% humidity", w, humidity)
		}
	}
	return true, ""
}

func (v *Validator) checkRegionAxis(text string, loc models.Location) (bool, string) {
	if loc.IsOkinawaFamily() {
		if w, hit := containsAny(text, v.rules.Region.Okinawa); hit {
			return false, fmt.Sprintf("region Okinawa forbids %q", w)
		}
	}
	if loc.IsHokkaidoFamily() {
		if w, hit := containsAny(text, v.rules.Region.Hokkaido); hit {
			return false, fmt.Sprintf("region Hokkaidō forbids %q", w)
		}
	}
	return true, ""
}

func (v *Validator) checkRequiredKeywords(text string, weatherHalf bool, cond models.WeatherCondition) (bool, string) {
	var required []string
	switch cond {
	case models.ConditionHeavyRain:
		required = v.rules.Required.HeavyRain.ForType(weatherHalf)
	case models.ConditionStorm, models.ConditionSevereStorm:
		required = v.rules.Required.Storm.ForType(weatherHalf)
	default:
		return true, ""
	}
	if len(required) == 0 {
		return true, ""
	}
	if _, hit := containsAny(text, required); !hit {
		return false, fmt.Sprintf("%s requires one of %v", cond, required)
	}
	return true, ""
}

func (v *Validator) checkRainContradiction(text string, cond models.WeatherCondition) (bool, string) {
	if !cond.IsRainy() {
		return true, ""
	}
	if w, hit := containsAny(text, v.rules.RainContradiction); hit {
		return false, fmt.Sprintf("rainy weather contradicts %q", w)
	}
	return true, ""
}
