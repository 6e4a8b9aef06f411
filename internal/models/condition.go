package models

// WeatherCondition is a normalized weather category derived from provider
// weather codes.
type WeatherCondition string

const (
	ConditionClear        WeatherCondition = "clear"
	ConditionPartlyCloudy WeatherCondition = "partly_cloudy"
	ConditionCloudy       WeatherCondition = "cloudy"
	ConditionRain         WeatherCondition = "rain"
	ConditionHeavyRain    WeatherCondition = "heavy_rain"
	ConditionSnow         WeatherCondition = "snow"
	ConditionHeavySnow    WeatherCondition = "heavy_snow"
	ConditionThunder      WeatherCondition = "thunder"
	ConditionFog          WeatherCondition = "fog"
	ConditionStorm        WeatherCondition = "storm"
	ConditionSevereStorm  WeatherCondition = "severe_storm"
	ConditionExtremeHeat  WeatherCondition = "extreme_heat"
	ConditionUnknown      WeatherCondition = "unknown"
)

// conditionPriority orders conditions by forecast-selection urgency. Higher
// wins when the priority selector compares slots.
var conditionPriority = map[WeatherCondition]int{
	ConditionSevereStorm:  12,
	ConditionStorm:        11,
	ConditionThunder:      10,
	ConditionHeavySnow:    9,
	ConditionHeavyRain:    8,
	ConditionExtremeHeat:  7,
	ConditionFog:          6,
	ConditionSnow:         5,
	ConditionRain:         4,
	ConditionCloudy:       3,
	ConditionPartlyCloudy: 2,
	ConditionClear:        1,
	ConditionUnknown:      0,
}

// Priority returns the selection urgency for the condition.
func (c WeatherCondition) Priority() int {
	return conditionPriority[c]
}

// IsSevere reports whether the condition warrants warning-level comments.
func (c WeatherCondition) IsSevere() bool {
	switch c {
	case ConditionHeavyRain, ConditionHeavySnow, ConditionStorm, ConditionSevereStorm, ConditionThunder:
		return true
	}
	return false
}

// IsSpecial reports whether the condition short-circuits all other selection
// rules.
func (c WeatherCondition) IsSpecial() bool {
	switch c {
	case ConditionThunder, ConditionFog, ConditionStorm, ConditionSevereStorm, ConditionExtremeHeat:
		return true
	}
	return false
}

// IsRainy reports whether the condition implies falling rain.
func (c WeatherCondition) IsRainy() bool {
	switch c {
	case ConditionRain, ConditionHeavyRain, ConditionThunder, ConditionStorm, ConditionSevereStorm:
		return true
	}
	return false
}

// DefaultWeatherScores maps conditions to the ordinal used for trend
// direction. Higher means better weather.
var DefaultWeatherScores = map[WeatherCondition]int{
	ConditionClear:        5,
	ConditionPartlyCloudy: 4,
	ConditionCloudy:       3,
	ConditionFog:          3,
	ConditionUnknown:      3,
	ConditionRain:         2,
	ConditionSnow:         2,
	ConditionExtremeHeat:  2,
	ConditionThunder:      1,
	ConditionStorm:        1,
	ConditionHeavyRain:    0,
	ConditionHeavySnow:    0,
	ConditionSevereStorm:  0,
}

// Description returns the Japanese display text for the condition.
func (c WeatherCondition) Description() string {
	switch c {
	case ConditionClear:
		return "晴れ"
	case ConditionPartlyCloudy:
		return "晴れ時々曇り"
	case ConditionCloudy:
		return "曇り"
	case ConditionRain:
		return "雨"
	case ConditionHeavyRain:
		return "大雨"
	case ConditionSnow:
		return "雪"
	case ConditionHeavySnow:
		return "大雪"
	case ConditionThunder:
		return "雷"
	case ConditionFog:
		return "霧"
	case ConditionStorm:
		return "嵐"
	case ConditionSevereStorm:
		return "大荒れ"
	case ConditionExtremeHeat:
		return "猛暑"
	default:
		return "不明"
	}
}

// PrecipSeverity buckets an hourly precipitation rate.
type PrecipSeverity string

const (
	PrecipNone      PrecipSeverity = "none"
	PrecipLight     PrecipSeverity = "light"
	PrecipModerate  PrecipSeverity = "moderate"
	PrecipHeavy     PrecipSeverity = "heavy"
	PrecipVeryHeavy PrecipSeverity = "very_heavy"
)

// ClassifyPrecip buckets precipitation in mm/h into severity classes.
func ClassifyPrecip(mmPerHour float64) PrecipSeverity {
	switch {
	case mmPerHour > 30:
		return PrecipVeryHeavy
	case mmPerHour > 10:
		return PrecipHeavy
	case mmPerHour >= 1:
		return PrecipModerate
	case mmPerHour > 0.1:
		return PrecipLight
	default:
		return PrecipNone
	}
}

// WindDirection is a compass direction reported by the provider as an index
// 0-8 (0 = calm).
type WindDirection string

const (
	WindCalm      WindDirection = "calm"
	WindNorth     WindDirection = "n"
	WindNortheast WindDirection = "ne"
	WindEast      WindDirection = "e"
	WindSoutheast WindDirection = "se"
	WindSouth     WindDirection = "s"
	WindSouthwest WindDirection = "sw"
	WindWest      WindDirection = "w"
	WindNorthwest WindDirection = "nw"
	WindUnknown   WindDirection = "unknown"
)

var windIndexTable = [...]struct {
	dir     WindDirection
	degrees float64
}{
	{WindCalm, 0},
	{WindNorth, 0},
	{WindNortheast, 45},
	{WindEast, 90},
	{WindSoutheast, 135},
	{WindSouth, 180},
	{WindSouthwest, 225},
	{WindWest, 270},
	{WindNorthwest, 315},
}

// WindFromIndex maps the provider wind index (0-8) to a direction and
// compass degrees. Out-of-range indexes map to unknown at 0 degrees.
func WindFromIndex(idx int) (WindDirection, float64) {
	if idx < 0 || idx >= len(windIndexTable) {
		return WindUnknown, 0
	}
	e := windIndexTable[idx]
	return e.dir, e.degrees
}
