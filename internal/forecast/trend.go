package forecast

import (
	"errors"
	"fmt"
	"time"

	"github.com/tenkigen/tenkigen/internal/models"
)

// TrendDirection summarizes how conditions move across a window.
type TrendDirection string

const (
	TrendImproving   TrendDirection = "improving"
	TrendStable      TrendDirection = "stable"
	TrendWorsening   TrendDirection = "worsening"
	TrendFluctuating TrendDirection = "fluctuating"
)

// WeatherChange records a condition transition within the window.
type WeatherChange struct {
	Time   time.Time
	Before models.WeatherCondition
	After  models.WeatherCondition
}

// WeatherTrend is derived from a chronological sequence of forecasts.
type WeatherTrend struct {
	TemperatureChange  float64
	MinTemperature     float64
	MaxTemperature     float64
	PrecipitationTotal float64
	WeatherChanges     []WeatherChange
	Direction          TrendDirection
}

// ErrTrendTooShort is returned for windows of fewer than two forecasts.
var ErrTrendTooShort = errors.New("trend requires at least 2 forecasts")

// DeriveTrend computes a WeatherTrend over the given forecasts using the
// condition ordinals in scores. Direction is improving iff the final
// ordinal exceeds the first, worsening iff below, fluctuating when the
// endpoints match but the path moved through other conditions.
func DeriveTrend(forecasts []models.WeatherForecast, scores map[models.WeatherCondition]int) (*WeatherTrend, error) {
	if len(forecasts) < 2 {
		return nil, ErrTrendTooShort
	}
	if scores == nil {
		scores = models.DefaultWeatherScores
	}

	t := &WeatherTrend{
		TemperatureChange: forecasts[len(forecasts)-1].Temperature - forecasts[0].Temperature,
		MinTemperature:    forecasts[0].Temperature,
		MaxTemperature:    forecasts[0].Temperature,
	}
	for i, f := range forecasts {
		if f.Temperature < t.MinTemperature {
			t.MinTemperature = f.Temperature
		}
		if f.Temperature > t.MaxTemperature {
			t.MaxTemperature = f.Temperature
		}
		t.PrecipitationTotal += f.Precipitation
		if i > 0 && f.WeatherCondition != forecasts[i-1].WeatherCondition {
			t.WeatherChanges = append(t.WeatherChanges, WeatherChange{
				Time:   f.DateTime,
				Before: forecasts[i-1].WeatherCondition,
				After:  f.WeatherCondition,
			})
		}
	}

	start := scores[forecasts[0].WeatherCondition]
	end := scores[forecasts[len(forecasts)-1].WeatherCondition]
	switch {
	case end > start:
		t.Direction = TrendImproving
	case end < start:
		t.Direction = TrendWorsening
	case len(t.WeatherChanges) > 0:
		t.Direction = TrendFluctuating
	default:
		t.Direction = TrendStable
	}
	return t, nil
}

// Describe renders the trend as a short Japanese summary for prompting.
func (t *WeatherTrend) Describe() string {
	var dir string
	switch t.Direction {
	case TrendImproving:
		dir = "回復傾向"
	case TrendWorsening:
		dir = "悪化傾向"
	case TrendFluctuating:
		dir = "変わりやすい"
	default:
		dir = "安定"
	}
	return fmt.Sprintf("%s（気温変化%+.1f°C、降水合計%.1fmm、天気変化%d回）",
		dir, t.TemperatureChange, t.PrecipitationTotal, len(t.WeatherChanges))
}
