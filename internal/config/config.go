// Package config holds the runtime options shared across pipeline stages.
package config

import (
	"time"

	"github.com/tenkigen/tenkigen/internal/models"
)

// Config is the structured option bundle consumed by the pipeline. Zero
// values are not meaningful; construct with Default and override.
type Config struct {
	// MaxRetries bounds the evaluation→selection retry loop.
	MaxRetries int
	// ForecastHoursAhead is added to "now" when no target time is given.
	ForecastHoursAhead int
	// TrendHoursAhead is the WeatherTrend analysis window.
	TrendHoursAhead int
	// HeatWarningThreshold is the °C above which heatstroke words are allowed.
	HeatWarningThreshold float64
	// ColdWarningThreshold is the °C below which cold-wear words are allowed.
	ColdWarningThreshold float64
	// ThunderSeverePrecipitation is the mm/h at which thunder is treated as
	// heavy rain by the validator.
	ThunderSeverePrecipitation float64
	// WeatherScores overrides the condition ordinals used for trend
	// direction. Nil means models.DefaultWeatherScores.
	WeatherScores map[models.WeatherCondition]int

	LLMProvider string
	LLMModel    string

	WeatherAPITimeout time.Duration
	LLMAPITimeout     time.Duration
	// MinRequestInterval is the enforced delay between weather API calls.
	MinRequestInterval time.Duration

	WorkerPoolSize int

	// EvaluateCandidates toggles the evaluator stage. When false the LLM
	// arbitration result is accepted without scoring.
	EvaluateCandidates bool

	// DataDir holds the per-season comment corpus CSV files.
	DataDir string
	// CacheDir holds the per-location forecast cache files.
	CacheDir string
	// RulesPath points at the validator rule matrix YAML. Empty means
	// built-in defaults.
	RulesPath string
	// HistoryDB is the optional sqlite path for the generation log. Empty
	// disables history.
	HistoryDB string

	WeatherAPIBaseURL string
	WeatherAPIKey     string
}

// Default returns the standard configuration.
func Default() Config {
	return Config{
		MaxRetries:                 5,
		ForecastHoursAhead:         12,
		TrendHoursAhead:            12,
		HeatWarningThreshold:       30,
		ColdWarningThreshold:       15,
		ThunderSeverePrecipitation: 5,
		LLMProvider:                "openai",
		WeatherAPITimeout:          30 * time.Second,
		LLMAPITimeout:              30 * time.Second,
		MinRequestInterval:         100 * time.Millisecond,
		WorkerPoolSize:             8,
		EvaluateCandidates:         true,
		DataDir:                    "data",
		CacheDir:                   "data/forecast_cache",
	}
}

// Scores returns the effective condition ordinal table.
func (c Config) Scores() map[models.WeatherCondition]int {
	if c.WeatherScores != nil {
		return c.WeatherScores
	}
	return models.DefaultWeatherScores
}
