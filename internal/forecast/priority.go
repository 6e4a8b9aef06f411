// Package forecast implements forecast-hour selection, trend derivation and
// temperature-difference analysis over fetched forecasts.
package forecast

import (
	"errors"

	"github.com/tenkigen/tenkigen/internal/models"
)

// ErrNoForecastData is returned when the selector receives no forecasts.
var ErrNoForecastData = errors.New("no forecast data")

// rainThreshold is the mm/h above which a slot counts as rainy.
const rainThreshold = 0.1

// heavyRainThreshold is the mm/h above which rain dominates all other rules.
const heavyRainThreshold = 10.0

// hotThreshold is the °C at which a slot counts as extremely hot.
const hotThreshold = 35.0

// SelectPriority chooses one representative forecast from the target-day
// slots. Rules apply in order; the first match wins:
//
//  1. Special conditions (thunder, fog, storm, severe storm, extreme heat):
//     highest condition priority, earlier time breaking ties.
//  2. Precipitation above 10 mm/h: maximum precipitation.
//  3. Hot slots (>=35°C) interact with the fraction of rainy slots.
//  4. Severe conditions: maximum precipitation among them.
//  5. Any rain: maximum precipitation among rainy slots.
//  6. Any non-clear condition: highest condition priority.
//  7. Otherwise: maximum temperature.
//
// The function is deterministic: ties resolve to the earliest slot.
func SelectPriority(slots []models.WeatherForecast) (*models.WeatherForecast, error) {
	if len(slots) == 0 {
		return nil, ErrNoForecastData
	}

	// Rule 1: special conditions short-circuit everything.
	var special *models.WeatherForecast
	for i := range slots {
		f := &slots[i]
		if !f.WeatherCondition.IsSpecial() {
			continue
		}
		if special == nil || f.WeatherCondition.Priority() > special.WeatherCondition.Priority() {
			special = f
		}
	}
	if special != nil {
		return special, nil
	}

	// Rule 2: heavy precipitation dominates.
	if f := argmaxPrecip(slots, func(f *models.WeatherForecast) bool {
		return f.Precipitation > heavyRainThreshold
	}); f != nil {
		return f, nil
	}

	var hot, rainy []models.WeatherForecast
	for _, f := range slots {
		if f.Temperature >= hotThreshold {
			hot = append(hot, f)
		}
		if f.Precipitation > rainThreshold {
			rainy = append(rainy, f)
		}
	}
	rainRatio := float64(len(rainy)) / float64(len(slots))

	// Rule 3: extreme heat with varying amounts of rain.
	if len(hot) > 0 {
		lightRainInHot := false
		for _, f := range hot {
			if f.Precipitation > rainThreshold && f.Precipitation <= heavyRainThreshold {
				lightRainInHot = true
				break
			}
		}
		switch {
		case lightRainInHot && rainRatio <= 0.5:
			return argmaxTemp(hot), nil
		case rainRatio > 0.5:
			return argmaxPrecip(rainy, nil), nil
		default:
			return argmaxTemp(hot), nil
		}
	}

	// Rule 4: severe conditions pick the wettest among themselves.
	if f := argmaxPrecip(slots, func(f *models.WeatherForecast) bool {
		return f.WeatherCondition.IsSevere()
	}); f != nil {
		return f, nil
	}

	// Rule 5: ordinary rain picks the wettest slot.
	if len(rainy) > 0 {
		return argmaxPrecip(rainy, nil), nil
	}

	// Rule 6: any non-clear condition picks the most notable one.
	var notable *models.WeatherForecast
	for i := range slots {
		f := &slots[i]
		if f.WeatherCondition == models.ConditionClear {
			continue
		}
		if notable == nil || f.WeatherCondition.Priority() > notable.WeatherCondition.Priority() {
			notable = f
		}
	}
	if notable != nil {
		return notable, nil
	}

	// Rule 7: all clear, take the warmest.
	return argmaxTemp(slots), nil
}

func argmaxPrecip(slots []models.WeatherForecast, keep func(*models.WeatherForecast) bool) *models.WeatherForecast {
	var best *models.WeatherForecast
	for i := range slots {
		f := &slots[i]
		if keep != nil && !keep(f) {
			continue
		}
		if best == nil || f.Precipitation > best.Precipitation {
			best = f
		}
	}
	return best
}

func argmaxTemp(slots []models.WeatherForecast) *models.WeatherForecast {
	var best *models.WeatherForecast
	for i := range slots {
		f := &slots[i]
		if best == nil || f.Temperature > best.Temperature {
			best = f
		}
	}
	return best
}
