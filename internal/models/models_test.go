package models

import (
	"testing"
	"time"
)

func TestForecastValidate(t *testing.T) {
	tests := []struct {
		name    string
		f       WeatherForecast
		wantErr bool
	}{
		{name: "valid", f: WeatherForecast{Temperature: 20, Humidity: 60, Precipitation: 0.5, WindDirectionDegrees: 180}},
		{name: "temperature too low", f: WeatherForecast{Temperature: -51}, wantErr: true},
		{name: "temperature too high", f: WeatherForecast{Temperature: 61}, wantErr: true},
		{name: "humidity over 100", f: WeatherForecast{Temperature: 20, Humidity: 101}, wantErr: true},
		{name: "negative precipitation", f: WeatherForecast{Temperature: 20, Precipitation: -1}, wantErr: true},
		{name: "wind direction over 360", f: WeatherForecast{Temperature: 20, WindDirectionDegrees: 361}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.f.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClassifyPrecip(t *testing.T) {
	tests := []struct {
		mm   float64
		want PrecipSeverity
	}{
		{0, PrecipNone},
		{0.1, PrecipNone},
		{0.5, PrecipLight},
		{1, PrecipModerate},
		{10, PrecipModerate},
		{15, PrecipHeavy},
		{30, PrecipHeavy},
		{31, PrecipVeryHeavy},
	}
	for _, tt := range tests {
		if got := ClassifyPrecip(tt.mm); got != tt.want {
			t.Errorf("ClassifyPrecip(%.1f) = %s, want %s", tt.mm, got, tt.want)
		}
	}
}

func TestConditionPredicates(t *testing.T) {
	if !ConditionThunder.IsSpecial() {
		t.Error("thunder should be special")
	}
	if ConditionHeavyRain.IsSpecial() {
		t.Error("heavy rain should not be special")
	}
	if !ConditionHeavyRain.IsSevere() {
		t.Error("heavy rain should be severe")
	}
	if ConditionRain.IsSevere() {
		t.Error("rain should not be severe")
	}
	if !ConditionStorm.IsRainy() {
		t.Error("storm should be rainy")
	}
	if ConditionSevereStorm.Priority() <= ConditionStorm.Priority() {
		t.Error("severe storm should outrank storm")
	}
}

func TestCollectionNearest(t *testing.T) {
	base := time.Date(2024, 6, 10, 9, 0, 0, 0, JST)
	coll := WeatherForecastCollection{
		LocationName: "東京",
		Forecasts: []WeatherForecast{
			{DateTime: base, Temperature: 20},
			{DateTime: base.Add(3 * time.Hour), Temperature: 22},
			{DateTime: base.Add(6 * time.Hour), Temperature: 24},
		},
	}

	got := coll.Nearest(base.Add(4 * time.Hour))
	if got == nil || got.Temperature != 22 {
		t.Fatalf("Nearest = %+v, want 12:00 slot", got)
	}

	// Timezone-aware: same instant expressed in UTC.
	got = coll.Nearest(base.Add(6 * time.Hour).UTC())
	if got == nil || got.Temperature != 24 {
		t.Fatalf("Nearest (UTC input) = %+v, want 15:00 slot", got)
	}

	var empty WeatherForecastCollection
	if empty.Nearest(base) != nil {
		t.Error("Nearest on empty collection should be nil")
	}
}

func TestResolveLocation(t *testing.T) {
	loc, ok := ResolveLocation("那覇")
	if !ok {
		t.Fatal("那覇 should resolve")
	}
	if !loc.IsOkinawaFamily() {
		t.Error("那覇 should be Okinawa family")
	}

	loc, ok = ResolveLocation("広島市")
	if !ok {
		t.Fatal("広島市 should resolve via suffix trim")
	}
	if loc.NormalizedName != "広島" {
		t.Errorf("NormalizedName = %q, want 広島", loc.NormalizedName)
	}

	loc, ok = ResolveLocation("存在しない町")
	if ok {
		t.Fatal("unknown name should not resolve")
	}
	if loc.Latitude == nil || loc.Longitude == nil {
		t.Error("fallback location should carry default coordinates")
	}

	loc, _ = ResolveLocation("札幌")
	if !loc.IsHokkaidoFamily() {
		t.Error("札幌 should be Hokkaidō family")
	}
}

func TestPairValidate(t *testing.T) {
	w := PastComment{CommentText: "晴れています", CommentType: TypeWeatherComment}
	a := PastComment{CommentText: "傘は不要です", CommentType: TypeAdvice}

	pair := CommentPair{WeatherComment: w, AdviceComment: a, SimilarityScore: 0.5}
	if err := pair.Validate(); err != nil {
		t.Errorf("valid pair rejected: %v", err)
	}

	bad := CommentPair{WeatherComment: a, AdviceComment: w}
	if err := bad.Validate(); err == nil {
		t.Error("swapped types should be rejected")
	}

	pair.SimilarityScore = 1.5
	if err := pair.Validate(); err == nil {
		t.Error("similarity over 1 should be rejected")
	}
}
