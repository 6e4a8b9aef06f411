package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/tenkigen/tenkigen/internal/cache"
	"github.com/tenkigen/tenkigen/internal/evaluator"
	"github.com/tenkigen/tenkigen/internal/forecast"
	"github.com/tenkigen/tenkigen/internal/models"
)

// State is the carry record threaded through the stages of one run. Each
// stage reads the fields of its predecessors and fills in its own.
type State struct {
	RequestID string
	StartedAt time.Time

	// Input normalization.
	RequestedName string
	Location      models.Location
	TargetTime    time.Time

	// Forecast fetch and selection.
	Collection *models.WeatherForecastCollection
	Selected   *models.WeatherForecast
	Trend      *forecast.WeatherTrend
	TempDiffs  forecast.TemperatureDiffs
	CacheTrend []cache.Entry

	// Comment retrieval and validation.
	RawWeather, RawAdvice           []models.PastComment
	WeatherPool, AdvicePool         []models.PastComment
	WeatherRejected, AdviceRejected int

	// Pair selection and evaluation.
	Pair       *models.CommentPair
	UsedLLM    bool
	LLMFailed  bool
	RetryCount int
	Evaluation *evaluator.Evaluation

	// Composition.
	FinalComment string

	// Non-fatal warnings in occurrence order.
	Warnings []Record
}

func (s *State) warn(kind Kind, stage, message string) {
	s.Warnings = append(s.Warnings, newRecord(kind, stage, message))
}

// TrendText renders the trend context for prompting: the derived direction
// plus the cached readings around the target, or "" when neither exists.
func (s *State) TrendText() string {
	var parts []string
	if s.Trend != nil {
		parts = append(parts, s.Trend.Describe())
	}
	if s.Selected != nil {
		if line := cacheTrendText(s.CacheTrend, s.Selected.DateTime); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " / ")
}

// trendOffsets are the hour marks extracted from the cache for prompting.
var trendOffsets = []int{-12, -6, -3, 3, 6, 12}

// cacheTrendText picks the cached entry nearest each offset mark and renders
// one compact line. Marks with no entry within 90 minutes are skipped.
func cacheTrendText(entries []cache.Entry, target time.Time) string {
	if len(entries) == 0 {
		return ""
	}
	const slack = 90 * time.Minute
	var parts []string
	for _, off := range trendOffsets {
		mark := target.Add(time.Duration(off) * time.Hour)
		var best *cache.Entry
		bestDiff := slack + 1
		for i := range entries {
			diff := entries[i].ForecastDateTime.Sub(mark)
			if diff < 0 {
				diff = -diff
			}
			if diff <= slack && diff < bestDiff {
				best = &entries[i]
				bestDiff = diff
			}
		}
		if best == nil {
			continue
		}
		label := fmt.Sprintf("%d時間後", off)
		if off < 0 {
			label = fmt.Sprintf("%d時間前", -off)
		}
		parts = append(parts, fmt.Sprintf("%s: %s %.0f°C", label, best.WeatherDescription, best.Temperature))
	}
	return strings.Join(parts, "、")
}
