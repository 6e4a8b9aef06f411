package weather

import (
	"strings"

	"github.com/tenkigen/tenkigen/internal/models"
)

// codeConditions maps provider weather codes to normalized conditions. The
// code space follows the JMA-style telop numbering the provider emits.
var codeConditions = map[string]models.WeatherCondition{
	"100": models.ConditionClear,
	"101": models.ConditionPartlyCloudy,
	"110": models.ConditionPartlyCloudy,
	"111": models.ConditionPartlyCloudy,
	"200": models.ConditionCloudy,
	"201": models.ConditionPartlyCloudy,
	"202": models.ConditionRain,
	"210": models.ConditionCloudy,
	"211": models.ConditionCloudy,
	"300": models.ConditionRain,
	"301": models.ConditionRain,
	"302": models.ConditionRain,
	"303": models.ConditionSnow,
	"306": models.ConditionHeavyRain,
	"308": models.ConditionStorm,
	"311": models.ConditionRain,
	"313": models.ConditionRain,
	"315": models.ConditionHeavyRain,
	"320": models.ConditionRain,
	"400": models.ConditionSnow,
	"401": models.ConditionSnow,
	"402": models.ConditionHeavySnow,
	"403": models.ConditionHeavySnow,
	"406": models.ConditionHeavySnow,
	"411": models.ConditionSnow,
	"413": models.ConditionSnow,
	"414": models.ConditionSnow,
	"500": models.ConditionThunder,
	"550": models.ConditionExtremeHeat,
	"600": models.ConditionFog,
	"700": models.ConditionStorm,
	"701": models.ConditionSevereStorm,
	"850": models.ConditionStorm,
	"851": models.ConditionSevereStorm,
}

// ConditionFromCode normalizes a provider weather code. Unknown codes fall
// back to keyword matching on the code text, then to UNKNOWN.
func ConditionFromCode(code string) models.WeatherCondition {
	if c, ok := codeConditions[code]; ok {
		return c
	}
	lower := strings.ToLower(code)
	switch {
	case strings.Contains(lower, "thunder") || strings.Contains(code, "雷"):
		return models.ConditionThunder
	case strings.Contains(lower, "fog") || strings.Contains(code, "霧"):
		return models.ConditionFog
	case strings.Contains(lower, "storm") || strings.Contains(code, "暴風"):
		return models.ConditionStorm
	case strings.Contains(lower, "snow") || strings.Contains(code, "雪"):
		return models.ConditionSnow
	case strings.Contains(lower, "rain") || strings.Contains(code, "雨"):
		return models.ConditionRain
	case strings.Contains(lower, "cloud") || strings.Contains(code, "曇"):
		return models.ConditionCloudy
	case strings.Contains(lower, "clear") || strings.Contains(lower, "sun") || strings.Contains(code, "晴"):
		return models.ConditionClear
	}
	return models.ConditionUnknown
}
