package forecast

import (
	"time"

	"github.com/tenkigen/tenkigen/internal/cache"
	"github.com/tenkigen/tenkigen/internal/models"
)

// DiffMagnitude classifies the size of a temperature difference.
type DiffMagnitude string

const (
	DiffLarge    DiffMagnitude = "large"
	DiffModerate DiffMagnitude = "moderate"
	DiffSmall    DiffMagnitude = "small"
	DiffNone     DiffMagnitude = "none"
)

// ClassifyDiff buckets an absolute temperature difference in °C.
func ClassifyDiff(diff float64) DiffMagnitude {
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff >= 10:
		return DiffLarge
	case diff >= 7:
		return DiffModerate
	case diff >= 5:
		return DiffSmall
	default:
		return DiffNone
	}
}

// TemperatureDiffs compares the current forecast against cached history.
// Nil fields mean no comparable cache entry was found.
type TemperatureDiffs struct {
	PreviousDayDiff    *float64
	TwelveHoursAgoDiff *float64
	DailyRange         *float64
}

// AnalyzeTemperature computes the previous-day, twelve-hours-ago and daily
// range differences from the forecast cache. Cache errors degrade to
// missing values; the analyser never fails the run.
func AnalyzeTemperature(c *cache.Cache, f *models.WeatherForecast) TemperatureDiffs {
	var diffs TemperatureDiffs
	if c == nil || f == nil {
		return diffs
	}

	if prev, err := c.PreviousDay(f.LocationName, f.DateTime); err == nil && prev != nil {
		d := f.Temperature - prev.Temperature
		diffs.PreviousDayDiff = &d
	}
	if ago, err := c.TwelveHoursAgo(f.LocationName, f.DateTime); err == nil && ago != nil {
		d := f.Temperature - ago.Temperature
		diffs.TwelveHoursAgoDiff = &d
	}
	if today, err := c.SameDay(f.LocationName, f.DateTime); err == nil && len(today) >= 2 {
		min, max := today[0].Temperature, today[0].Temperature
		for _, e := range today[1:] {
			if e.Temperature < min {
				min = e.Temperature
			}
			if e.Temperature > max {
				max = e.Temperature
			}
		}
		r := max - min
		diffs.DailyRange = &r
	}
	return diffs
}

// TrendWindow extracts cached entries within ±window of target, ordered as
// stored, for inclusion in selection prompts.
func TrendWindow(c *cache.Cache, location string, target time.Time, window time.Duration) []cache.Entry {
	if c == nil {
		return nil
	}
	entries, err := c.Entries(location)
	if err != nil {
		return nil
	}
	var out []cache.Entry
	for _, e := range entries {
		diff := e.ForecastDateTime.Sub(target)
		if diff < 0 {
			diff = -diff
		}
		if diff <= window {
			out = append(out, e)
		}
	}
	return out
}
