package pipeline

import (
	"time"

	"github.com/tenkigen/tenkigen/internal/forecast"
)

// Output is the JSON envelope returned for one generation.
type Output struct {
	FinalComment string   `json:"final_comment"`
	Metadata     Metadata `json:"generation_metadata"`
	Warnings     []Record `json:"warnings,omitempty"`
}

// Metadata describes how the final comment was produced.
type Metadata struct {
	RequestID       string    `json:"request_id"`
	LocationName    string    `json:"location_name"`
	GeneratedAt     time.Time `json:"generated_at"`
	ExecutionTimeMS int64     `json:"execution_time_ms"`

	ForecastTime       time.Time `json:"forecast_time"`
	WeatherCondition   string    `json:"weather_condition"`
	WeatherDescription string    `json:"weather_description"`
	Temperature        float64   `json:"temperature"`
	Precipitation      float64   `json:"precipitation"`
	Humidity           float64   `json:"humidity"`
	WindSpeed          float64   `json:"wind_speed"`

	SelectedWeatherComment string  `json:"selected_weather_comment"`
	SelectedAdviceComment  string  `json:"selected_advice_comment"`
	SelectionReason        string  `json:"selection_reason"`
	SimilarityScore        float64 `json:"similarity_score"`

	UsedLLM     bool   `json:"used_llm"`
	LLMProvider string `json:"llm_provider,omitempty"`
	RetryCount  int    `json:"retry_count"`

	EvaluationTotal *float64 `json:"evaluation_total,omitempty"`

	TrendDirection     string   `json:"trend_direction,omitempty"`
	PreviousDayDiff    *float64 `json:"previous_day_temperature_diff,omitempty"`
	TwelveHoursAgoDiff *float64 `json:"twelve_hours_ago_temperature_diff,omitempty"`
	DailyRange         *float64 `json:"daily_temperature_range,omitempty"`

	PreviousDayDiffClass    string `json:"previous_day_temperature_diff_magnitude,omitempty"`
	TwelveHoursAgoDiffClass string `json:"twelve_hours_ago_temperature_diff_magnitude,omitempty"`
	DailyRangeClass         string `json:"daily_temperature_range_magnitude,omitempty"`
}

// assemble builds the output envelope from completed state.
func (p *Pipeline) assemble(st *State) *Output {
	md := Metadata{
		RequestID:       st.RequestID,
		LocationName:    st.Location.Name,
		GeneratedAt:     st.StartedAt,
		ExecutionTimeMS: time.Since(st.StartedAt).Milliseconds(),

		ForecastTime:       st.Selected.DateTime,
		WeatherCondition:   string(st.Selected.WeatherCondition),
		WeatherDescription: st.Selected.WeatherDescription,
		Temperature:        st.Selected.Temperature,
		Precipitation:      st.Selected.Precipitation,
		Humidity:           st.Selected.Humidity,
		WindSpeed:          st.Selected.WindSpeed,

		SelectedWeatherComment: st.Pair.WeatherComment.CommentText,
		SelectedAdviceComment:  st.Pair.AdviceComment.CommentText,
		SelectionReason:        st.Pair.SelectionReason,
		SimilarityScore:        st.Pair.SimilarityScore,

		UsedLLM:     st.UsedLLM,
		RetryCount:  st.RetryCount,
		LLMProvider: p.deps.LLMProvider,

		PreviousDayDiff:    st.TempDiffs.PreviousDayDiff,
		TwelveHoursAgoDiff: st.TempDiffs.TwelveHoursAgoDiff,
		DailyRange:         st.TempDiffs.DailyRange,
	}
	if st.Evaluation != nil {
		md.EvaluationTotal = &st.Evaluation.Total
	}
	if st.Trend != nil {
		md.TrendDirection = string(st.Trend.Direction)
	}
	if d := st.TempDiffs.PreviousDayDiff; d != nil {
		md.PreviousDayDiffClass = string(forecast.ClassifyDiff(*d))
	}
	if d := st.TempDiffs.TwelveHoursAgoDiff; d != nil {
		md.TwelveHoursAgoDiffClass = string(forecast.ClassifyDiff(*d))
	}
	if d := st.TempDiffs.DailyRange; d != nil {
		md.DailyRangeClass = string(forecast.ClassifyDiff(*d))
	}

	return &Output{
		FinalComment: st.FinalComment,
		Metadata:     md,
		Warnings:     st.Warnings,
	}
}
