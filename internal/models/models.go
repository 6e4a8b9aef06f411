package models

import (
	"fmt"
	"sort"
	"time"
)

// JST is the canonical timezone for all forecast datetimes.
var JST = time.FixedZone("JST", 9*60*60)

func init() {
	// Prefer the full tzdata location when available.
	if loc, err := time.LoadLocation("Asia/Tokyo"); err == nil {
		JST = loc
	}
}

// Location is a resolved place name. Immutable after resolution.
type Location struct {
	Name           string
	NormalizedName string
	Latitude       *float64
	Longitude      *float64
	Region         string
	Prefecture     string
}

// WeatherForecast is one observation for one instant at one location.
type WeatherForecast struct {
	LocationName         string
	DateTime             time.Time
	Temperature          float64 // °C
	Precipitation        float64 // mm/h
	Humidity             float64 // %
	WindSpeed            float64 // m/s
	WindDirection        WindDirection
	WindDirectionDegrees float64
	WeatherCode          string
	WeatherCondition     WeatherCondition
	WeatherDescription   string
}

// Validate checks the forecast's physical invariants.
func (f *WeatherForecast) Validate() error {
	if f.Temperature < -50 || f.Temperature > 60 {
		return fmt.Errorf("temperature %.1f out of range [-50, 60]", f.Temperature)
	}
	if f.Humidity < 0 || f.Humidity > 100 {
		return fmt.Errorf("humidity %.1f out of range [0, 100]", f.Humidity)
	}
	if f.Precipitation < 0 {
		return fmt.Errorf("precipitation %.1f negative", f.Precipitation)
	}
	if f.WindDirectionDegrees < 0 || f.WindDirectionDegrees > 360 {
		return fmt.Errorf("wind direction %.1f out of range [0, 360]", f.WindDirectionDegrees)
	}
	return nil
}

// PrecipSeverity buckets the forecast's precipitation rate.
func (f *WeatherForecast) PrecipSeverity() PrecipSeverity {
	return ClassifyPrecip(f.Precipitation)
}

// WeatherForecastCollection is an ordered sequence of forecasts for one
// location.
type WeatherForecastCollection struct {
	LocationName string
	Forecasts    []WeatherForecast
	GeneratedAt  time.Time
}

// Sort orders forecasts chronologically.
func (c *WeatherForecastCollection) Sort() {
	sort.SliceStable(c.Forecasts, func(i, j int) bool {
		return c.Forecasts[i].DateTime.Before(c.Forecasts[j].DateTime)
	})
}

// Nearest returns the forecast closest to t, comparing in absolute time so
// mixed zones are safe. Returns nil when the collection is empty.
func (c *WeatherForecastCollection) Nearest(t time.Time) *WeatherForecast {
	var best *WeatherForecast
	var bestDiff time.Duration
	for i := range c.Forecasts {
		diff := c.Forecasts[i].DateTime.Sub(t)
		if diff < 0 {
			diff = -diff
		}
		if best == nil || diff < bestDiff {
			best = &c.Forecasts[i]
			bestDiff = diff
		}
	}
	return best
}

// At returns the forecast whose datetime falls on the given JST hour of the
// given day, or nil.
func (c *WeatherForecastCollection) At(day time.Time, hour int) *WeatherForecast {
	day = day.In(JST)
	for i := range c.Forecasts {
		dt := c.Forecasts[i].DateTime.In(JST)
		if dt.Year() == day.Year() && dt.YearDay() == day.YearDay() && dt.Hour() == hour {
			return &c.Forecasts[i]
		}
	}
	return nil
}

// CommentType distinguishes the two halves of a generated comment.
type CommentType string

const (
	TypeWeatherComment CommentType = "weather_comment"
	TypeAdvice         CommentType = "advice"
	TypeUnknown        CommentType = "unknown"
)

// PastComment is one historical comment drawn from the corpus.
type PastComment struct {
	Location         string
	DateTime         time.Time
	WeatherCondition string
	CommentText      string
	CommentType      CommentType
	Temperature      *float64
	Humidity         *float64
	Precipitation    *float64
	WindSpeed        *float64
	WeatherCode      string
	SourceFile       string
	UsageCount       int
	RawData          map[string]string
}

// Validate checks the comment's invariants.
func (p *PastComment) Validate() error {
	if p.CommentText == "" {
		return fmt.Errorf("comment text empty")
	}
	if p.Temperature != nil && (*p.Temperature < -50 || *p.Temperature > 60) {
		return fmt.Errorf("temperature %.1f out of range [-50, 60]", *p.Temperature)
	}
	if p.Humidity != nil && (*p.Humidity < 0 || *p.Humidity > 100) {
		return fmt.Errorf("humidity %.1f out of range [0, 100]", *p.Humidity)
	}
	return nil
}

// CommentPair is a selected weather comment plus advice comment.
type CommentPair struct {
	WeatherComment  PastComment
	AdviceComment   PastComment
	SimilarityScore float64
	SelectionReason string
	Metadata        map[string]any
}

// Validate checks the pair's type and score invariants.
func (p *CommentPair) Validate() error {
	if p.WeatherComment.CommentType != TypeWeatherComment {
		return fmt.Errorf("weather half has type %s", p.WeatherComment.CommentType)
	}
	if p.AdviceComment.CommentType != TypeAdvice {
		return fmt.Errorf("advice half has type %s", p.AdviceComment.CommentType)
	}
	if p.SimilarityScore < 0 || p.SimilarityScore > 1 {
		return fmt.Errorf("similarity score %.2f out of range [0, 1]", p.SimilarityScore)
	}
	return nil
}
