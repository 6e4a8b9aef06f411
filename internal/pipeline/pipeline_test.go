package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tenkigen/tenkigen/internal/cache"
	"github.com/tenkigen/tenkigen/internal/composer"
	"github.com/tenkigen/tenkigen/internal/config"
	"github.com/tenkigen/tenkigen/internal/evaluator"
	"github.com/tenkigen/tenkigen/internal/models"
	"github.com/tenkigen/tenkigen/internal/selector"
	"github.com/tenkigen/tenkigen/internal/store"
	"github.com/tenkigen/tenkigen/internal/validator"
)

type fakeFetcher struct {
	coll    *models.WeatherForecastCollection
	err     error
	failFor string // normalized location name that errors
}

func (f *fakeFetcher) Fetch(_ context.Context, loc models.Location) (*models.WeatherForecastCollection, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.failFor != "" && loc.NormalizedName == f.failFor {
		return nil, errors.New("provider down")
	}
	coll := *f.coll
	coll.LocationName = loc.Name
	forecasts := make([]models.WeatherForecast, len(f.coll.Forecasts))
	copy(forecasts, f.coll.Forecasts)
	for i := range forecasts {
		forecasts[i].LocationName = loc.Name
	}
	coll.Forecasts = forecasts
	return &coll, nil
}

type fakeCorpus struct {
	weather, advice []models.PastComment
	// allWeather/allAdvice stand in for the cross-season pools; nil falls
	// back to the seasonal ones.
	allWeather, allAdvice []models.PastComment
	err                   error
}

func (c *fakeCorpus) Pools(time.Time) ([]models.PastComment, []models.PastComment, error) {
	if c.err != nil {
		return nil, nil, c.err
	}
	return c.weather, c.advice, nil
}

func (c *fakeCorpus) AllPools() ([]models.PastComment, []models.PastComment) {
	if c.allWeather != nil || c.allAdvice != nil {
		return c.allWeather, c.allAdvice
	}
	return c.weather, c.advice
}

var targetNoon = time.Date(2026, 6, 15, 12, 0, 0, 0, models.JST)

func slot(hour int, cond models.WeatherCondition, temp, precip float64) models.WeatherForecast {
	return models.WeatherForecast{
		LocationName:       "東京",
		DateTime:           time.Date(2026, 6, 15, hour, 0, 0, 0, models.JST),
		Temperature:        temp,
		Precipitation:      precip,
		Humidity:           75,
		WeatherCondition:   cond,
		WeatherDescription: cond.Description(),
	}
}

// rainyDay peaks precipitation at the 12:00 slot.
func rainyDay() *models.WeatherForecastCollection {
	return &models.WeatherForecastCollection{
		LocationName: "東京",
		Forecasts: []models.WeatherForecast{
			slot(9, models.ConditionRain, 18, 1),
			slot(12, models.ConditionRain, 20, 3),
			slot(15, models.ConditionCloudy, 21, 0),
			slot(18, models.ConditionCloudy, 19, 0),
		},
	}
}

func comment(text string, ct models.CommentType, usage int) models.PastComment {
	return models.PastComment{CommentText: text, CommentType: ct, WeatherCondition: "rain", UsageCount: usage}
}

func rainyPools() *fakeCorpus {
	return &fakeCorpus{
		weather: []models.PastComment{
			comment("雨が降りやすい天気です", models.TypeWeatherComment, 100),
			comment("しとしと雨が続きます", models.TypeWeatherComment, 80),
		},
		advice: []models.PastComment{
			comment("傘をお持ちください", models.TypeAdvice, 150),
			comment("足元にお気をつけて", models.TypeAdvice, 90),
		},
	}
}

func newTestPipeline(t *testing.T, fetcher Fetcher, src CommentSource) *Pipeline {
	t.Helper()
	log := zap.NewNop().Sugar()
	v := validator.New(validator.DefaultRules(), 5)

	fc, err := cache.New(filepath.Join(t.TempDir(), "cache"), log)
	if err != nil {
		t.Fatal(err)
	}
	hist, err := store.Open(filepath.Join(t.TempDir(), "history.db"), log)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { hist.Close() })

	return New(config.Default(), Deps{
		Fetcher:   fetcher,
		Corpus:    src,
		Cache:     fc,
		Validator: v,
		Selector:  selector.New(nil, v, log),
		Evaluator: evaluator.New(nil, 0, 0),
		Composer:  composer.New(log),
		History:   hist,
	}, log)
}

func TestRun_RainyDay(t *testing.T) {
	p := newTestPipeline(t, &fakeFetcher{coll: rainyDay()}, rainyPools())

	out, err := p.Run(context.Background(), "東京", &targetNoon)
	if err != nil {
		t.Fatal(err)
	}

	want := "雨が降りやすい天気です　傘をお持ちください"
	if out.FinalComment != want {
		t.Errorf("final comment = %q, want %q", out.FinalComment, want)
	}

	md := out.Metadata
	// The wettest rainy slot must win forecast selection.
	if md.ForecastTime.In(models.JST).Hour() != 12 {
		t.Errorf("forecast hour = %d, want 12", md.ForecastTime.In(models.JST).Hour())
	}
	if md.Precipitation != 3 {
		t.Errorf("precipitation = %.1f, want 3", md.Precipitation)
	}
	if md.WeatherCondition != "rain" {
		t.Errorf("condition = %s", md.WeatherCondition)
	}
	if md.UsedLLM {
		t.Error("no LLM configured but used_llm set")
	}
	if md.RetryCount != 0 {
		t.Errorf("retry count = %d, want 0", md.RetryCount)
	}
	if md.EvaluationTotal == nil || *md.EvaluationTotal < 0.6 {
		t.Errorf("evaluation total = %v", md.EvaluationTotal)
	}
	if len(out.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", out.Warnings)
	}
}

func TestRun_WritesCacheAndHistory(t *testing.T) {
	log := zap.NewNop().Sugar()
	v := validator.New(validator.DefaultRules(), 5)
	fc, err := cache.New(filepath.Join(t.TempDir(), "cache"), log)
	if err != nil {
		t.Fatal(err)
	}
	hist, err := store.Open(filepath.Join(t.TempDir(), "history.db"), log)
	if err != nil {
		t.Fatal(err)
	}
	defer hist.Close()

	p := New(config.Default(), Deps{
		Fetcher:   &fakeFetcher{coll: rainyDay()},
		Corpus:    rainyPools(),
		Cache:     fc,
		Validator: v,
		Selector:  selector.New(nil, v, log),
		Evaluator: evaluator.New(nil, 0, 0),
		Composer:  composer.New(log),
		History:   hist,
	}, log)

	out, err := p.Run(context.Background(), "東京", &targetNoon)
	if err != nil {
		t.Fatal(err)
	}

	entries, err := fc.Entries("東京")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Errorf("cached %d entries, want 4", len(entries))
	}

	recent, err := hist.Recent(context.Background(), "東京", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 {
		t.Fatalf("history rows = %d, want 1", len(recent))
	}
	if recent[0].ID != out.Metadata.RequestID {
		t.Errorf("history id = %s, want %s", recent[0].ID, out.Metadata.RequestID)
	}
	if recent[0].FinalComment != out.FinalComment {
		t.Errorf("history comment = %q", recent[0].FinalComment)
	}
}

func TestRun_UnknownLocationWarns(t *testing.T) {
	p := newTestPipeline(t, &fakeFetcher{coll: rainyDay()}, rainyPools())

	out, err := p.Run(context.Background(), "アトランティス", &targetNoon)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, w := range out.Warnings {
		if w.Kind == KindLocationUnresolved && w.Stage == StageInput {
			found = true
		}
	}
	if !found {
		t.Errorf("missing location warning: %v", out.Warnings)
	}
	if out.FinalComment == "" {
		t.Error("unknown location must still produce a comment")
	}
}

func TestRun_EmptyLocationIsFatal(t *testing.T) {
	p := newTestPipeline(t, &fakeFetcher{coll: rainyDay()}, rainyPools())

	_, err := p.Run(context.Background(), "   ", &targetNoon)
	if KindOf(err) != KindInvalidInput {
		t.Errorf("kind = %v, want %v", KindOf(err), KindInvalidInput)
	}
}

func TestRun_OverlongLocationIsFatal(t *testing.T) {
	p := newTestPipeline(t, &fakeFetcher{coll: rainyDay()}, rainyPools())

	name := strings.Repeat("長", maxLocationNameRunes+1)
	_, err := p.Run(context.Background(), name, &targetNoon)
	if KindOf(err) != KindInvalidInput {
		t.Errorf("kind = %v, want %v", KindOf(err), KindInvalidInput)
	}
}

func TestRun_CrossSeasonFallback(t *testing.T) {
	// The seasonal weather pool is rejected wholesale under rain, so the
	// pipeline widens to the all-season pool and continues.
	src := &fakeCorpus{
		weather:    []models.PastComment{comment("青空が広がる一日です", models.TypeWeatherComment, 100)},
		advice:     []models.PastComment{comment("傘をお持ちください", models.TypeAdvice, 150)},
		allWeather: []models.PastComment{comment("しとしと雨が続きます", models.TypeWeatherComment, 80)},
		allAdvice:  []models.PastComment{comment("傘をお持ちください", models.TypeAdvice, 150)},
	}
	p := newTestPipeline(t, &fakeFetcher{coll: rainyDay()}, src)

	out, err := p.Run(context.Background(), "東京", &targetNoon)
	if err != nil {
		t.Fatal(err)
	}
	if out.Metadata.SelectedWeatherComment != "しとしと雨が続きます" {
		t.Errorf("weather = %q, want widened-pool candidate", out.Metadata.SelectedWeatherComment)
	}
	found := false
	for _, w := range out.Warnings {
		if w.Kind == KindNoValidCandidate && w.Stage == StageValidation {
			found = true
		}
	}
	if !found {
		t.Errorf("missing widening warning: %v", out.Warnings)
	}
}

func TestRun_NoValidCandidateAfterWideningIsFatal(t *testing.T) {
	// Both the seasonal and the all-season pools contradict the rain.
	src := &fakeCorpus{
		weather:    []models.PastComment{comment("青空が広がる一日です", models.TypeWeatherComment, 100)},
		advice:     []models.PastComment{comment("傘をお持ちください", models.TypeAdvice, 150)},
		allWeather: []models.PastComment{comment("快晴の空が続きます", models.TypeWeatherComment, 80)},
		allAdvice:  []models.PastComment{comment("傘をお持ちください", models.TypeAdvice, 150)},
	}
	p := newTestPipeline(t, &fakeFetcher{coll: rainyDay()}, src)

	_, err := p.Run(context.Background(), "東京", &targetNoon)
	if KindOf(err) != KindNoValidCandidate {
		t.Errorf("kind = %v, want %v", KindOf(err), KindNoValidCandidate)
	}
}

func TestRun_FetchFailureIsFatal(t *testing.T) {
	p := newTestPipeline(t, &fakeFetcher{err: errors.New("boom")}, rainyPools())

	_, err := p.Run(context.Background(), "東京", &targetNoon)
	if KindOf(err) != KindWeatherProvider {
		t.Errorf("kind = %v, want %v", KindOf(err), KindWeatherProvider)
	}
}

func TestRun_CorpusFailureIsFatal(t *testing.T) {
	p := newTestPipeline(t, &fakeFetcher{coll: rainyDay()}, &fakeCorpus{err: errors.New("no files")})

	_, err := p.Run(context.Background(), "東京", &targetNoon)
	if KindOf(err) != KindCorpusUnavailable {
		t.Errorf("kind = %v, want %v", KindOf(err), KindCorpusUnavailable)
	}
}

func TestRun_Cancellation(t *testing.T) {
	p := newTestPipeline(t, &fakeFetcher{coll: rainyDay()}, rainyPools())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, "東京", &targetNoon)
	if KindOf(err) != KindCancelled {
		t.Errorf("kind = %v, want %v", KindOf(err), KindCancelled)
	}
}

func TestRun_RetryBudgetExhausted(t *testing.T) {
	// The only candidates pass validation but contain terms the evaluator
	// always rejects, so every retry fails and the last pair is accepted.
	src := &fakeCorpus{
		weather: []models.PastComment{comment("ヤバい空、最悪です", models.TypeWeatherComment, 10)},
		advice:  []models.PastComment{comment("足元にお気をつけて", models.TypeAdvice, 10)},
	}
	p := newTestPipeline(t, &fakeFetcher{coll: rainyDay()}, src)

	out, err := p.Run(context.Background(), "東京", &targetNoon)
	if err != nil {
		t.Fatal(err)
	}
	if out.Metadata.RetryCount != config.Default().MaxRetries {
		t.Errorf("retry count = %d, want %d", out.Metadata.RetryCount, config.Default().MaxRetries)
	}
	found := false
	for _, w := range out.Warnings {
		if w.Kind == KindEvaluationFailed {
			found = true
		}
	}
	if !found {
		t.Errorf("missing evaluation warning: %v", out.Warnings)
	}
	if out.FinalComment == "" {
		t.Error("exhausted retries must still produce a comment")
	}
}

func TestRun_NearestFallbackWithoutSlots(t *testing.T) {
	// A collection with no 09/12/15/18 slots still selects via Nearest.
	coll := &models.WeatherForecastCollection{
		LocationName: "東京",
		Forecasts:    []models.WeatherForecast{slot(13, models.ConditionRain, 20, 2)},
	}
	p := newTestPipeline(t, &fakeFetcher{coll: coll}, rainyPools())

	out, err := p.Run(context.Background(), "東京", &targetNoon)
	if err != nil {
		t.Fatal(err)
	}
	if out.Metadata.ForecastTime.In(models.JST).Hour() != 13 {
		t.Errorf("forecast hour = %d, want 13", out.Metadata.ForecastTime.In(models.JST).Hour())
	}
}

func TestRun_CachedHistoryFeedsDiffsAndMagnitudes(t *testing.T) {
	log := zap.NewNop().Sugar()
	v := validator.New(validator.DefaultRules(), 5)
	fc, err := cache.New(filepath.Join(t.TempDir(), "cache"), log)
	if err != nil {
		t.Fatal(err)
	}
	seed := func(at time.Time, temp float64) cache.Entry {
		return cache.Entry{
			Location:           "東京",
			ForecastDateTime:   at,
			CachedAt:           time.Now().In(models.JST),
			Temperature:        temp,
			WeatherCondition:   models.ConditionCloudy,
			WeatherDescription: "くもり",
		}
	}
	// Same hour yesterday and twelve hours before the noon target.
	if err := fc.Put("東京",
		seed(targetNoon.AddDate(0, 0, -1), 9),
		seed(targetNoon.Add(-12*time.Hour), 12),
	); err != nil {
		t.Fatal(err)
	}

	p := New(config.Default(), Deps{
		Fetcher:   &fakeFetcher{coll: rainyDay()},
		Corpus:    rainyPools(),
		Cache:     fc,
		Validator: v,
		Selector:  selector.New(nil, v, log),
		Evaluator: evaluator.New(nil, 0, 0),
		Composer:  composer.New(log),
	}, log)

	out, err := p.Run(context.Background(), "東京", &targetNoon)
	if err != nil {
		t.Fatal(err)
	}

	md := out.Metadata
	// Selected slot is 12:00 at 20 °C: 20−9 = 11 vs yesterday, 20−12 = 8
	// vs twelve hours ago.
	if md.PreviousDayDiff == nil || *md.PreviousDayDiff != 11 {
		t.Errorf("previous day diff = %v, want 11", md.PreviousDayDiff)
	}
	if md.PreviousDayDiffClass != "large" {
		t.Errorf("previous day magnitude = %q, want large", md.PreviousDayDiffClass)
	}
	if md.TwelveHoursAgoDiff == nil || *md.TwelveHoursAgoDiff != 8 {
		t.Errorf("twelve hours ago diff = %v, want 8", md.TwelveHoursAgoDiff)
	}
	if md.TwelveHoursAgoDiffClass != "moderate" {
		t.Errorf("twelve hours ago magnitude = %q, want moderate", md.TwelveHoursAgoDiffClass)
	}
}

func TestCacheTrendText(t *testing.T) {
	entry := func(at time.Time, desc string, temp float64) cache.Entry {
		return cache.Entry{ForecastDateTime: at, WeatherDescription: desc, Temperature: temp}
	}
	entries := []cache.Entry{
		entry(targetNoon.Add(-12*time.Hour), "くもり", 12),
		entry(targetNoon.Add(-3*time.Hour), "雨", 18),
		entry(targetNoon.Add(3*time.Hour), "くもり", 21),
	}

	got := cacheTrendText(entries, targetNoon)
	for _, want := range []string{"12時間前: くもり 12°C", "3時間前: 雨 18°C", "3時間後: くもり 21°C"} {
		if !strings.Contains(got, want) {
			t.Errorf("trend text %q missing %q", got, want)
		}
	}
	// Marks with no entry within 90 minutes are skipped.
	if strings.Contains(got, "6時間") {
		t.Errorf("trend text %q includes an uncovered mark", got)
	}

	if cacheTrendText(nil, targetNoon) != "" {
		t.Error("empty cache extract must render empty")
	}
}

func TestRun_OutputJSONRoundTrip(t *testing.T) {
	p := newTestPipeline(t, &fakeFetcher{coll: rainyDay()}, rainyPools())

	out, err := p.Run(context.Background(), "東京", &targetNoon)
	if err != nil {
		t.Fatal(err)
	}

	raw, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"final_comment"`) || !strings.Contains(string(raw), `"generation_metadata"`) {
		t.Errorf("envelope keys missing: %s", raw)
	}

	var back Output
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if back.FinalComment != out.FinalComment {
		t.Errorf("round trip comment = %q", back.FinalComment)
	}
	if back.Metadata.RequestID != out.Metadata.RequestID {
		t.Errorf("round trip id = %q", back.Metadata.RequestID)
	}
}

func TestRunAll_IsolatesFailures(t *testing.T) {
	fetcher := &fakeFetcher{coll: rainyDay(), failFor: "大阪"}
	p := newTestPipeline(t, fetcher, rainyPools())

	res := p.RunAll(context.Background(), []string{"東京", "大阪", "福岡"}, &targetNoon)
	if res.TotalCount != 3 {
		t.Errorf("total = %d", res.TotalCount)
	}
	if res.SuccessCount != 2 {
		t.Errorf("success = %d, want 2", res.SuccessCount)
	}
	if res.Results[0] == nil || res.Results[1] != nil || res.Results[2] == nil {
		t.Errorf("result slots = [%v %v %v]", res.Results[0] != nil, res.Results[1] != nil, res.Results[2] != nil)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0].Message, "大阪") {
		t.Errorf("errors = %v", res.Errors)
	}
}
