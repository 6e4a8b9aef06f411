// Package pipeline orchestrates the generation stages: input normalization,
// forecast fetch, forecast selection, comment retrieval, validation, pair
// selection, evaluation with bounded retry, composition and output assembly.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tenkigen/tenkigen/internal/cache"
	"github.com/tenkigen/tenkigen/internal/composer"
	"github.com/tenkigen/tenkigen/internal/config"
	"github.com/tenkigen/tenkigen/internal/evaluator"
	"github.com/tenkigen/tenkigen/internal/forecast"
	"github.com/tenkigen/tenkigen/internal/metrics"
	"github.com/tenkigen/tenkigen/internal/models"
	"github.com/tenkigen/tenkigen/internal/selector"
	"github.com/tenkigen/tenkigen/internal/store"
	"github.com/tenkigen/tenkigen/internal/validator"
	"github.com/tenkigen/tenkigen/internal/weather"
)

// Fetcher supplies forecasts for a location. *weather.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, loc models.Location) (*models.WeatherForecastCollection, error)
}

// CommentSource supplies historical comment pools. *corpus.Store implements
// it.
type CommentSource interface {
	Pools(t time.Time) (weather, advice []models.PastComment, err error)
	AllPools() (weather, advice []models.PastComment)
}

// History records completed generations. *store.Store implements it.
type History interface {
	Record(ctx context.Context, g store.Generation) error
}

// Deps bundles the pipeline's collaborators. Cache and History are
// optional; nil disables the corresponding features.
type Deps struct {
	Fetcher   Fetcher
	Corpus    CommentSource
	Cache     *cache.Cache
	Validator *validator.Validator
	Selector  *selector.Selector
	Evaluator *evaluator.Evaluator
	Composer  *composer.Composer
	History   History
	// LLMProvider is recorded in output metadata; empty when no LLM is
	// configured.
	LLMProvider string
}

// Pipeline runs the generation stages for one or more locations.
type Pipeline struct {
	cfg  config.Config
	deps Deps
	log  *zap.SugaredLogger
}

func New(cfg config.Config, deps Deps, log *zap.SugaredLogger) *Pipeline {
	return &Pipeline{cfg: cfg, deps: deps, log: log}
}

// Run generates one comment. A nil target time defaults to now plus the
// configured forecast offset. The returned Output is nil iff err is
// non-nil.
func (p *Pipeline) Run(ctx context.Context, locationName string, target *time.Time) (*Output, error) {
	start := time.Now()
	st := &State{
		RequestID:     uuid.NewString(),
		StartedAt:     start.In(models.JST),
		RequestedName: locationName,
	}
	log := p.log.With("request_id", st.RequestID, "location", locationName)

	out, err := p.run(ctx, st, log, target)
	metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("error").Inc()
		log.Errorw("generation failed", "error", err)
		return nil, err
	}
	metrics.GenerationsTotal.WithLabelValues("ok").Inc()
	metrics.RetriesPerGeneration.Observe(float64(st.RetryCount))
	log.Infow("generation complete",
		"final_comment", st.FinalComment,
		"retries", st.RetryCount,
		"used_llm", st.UsedLLM,
		"elapsed", time.Since(start))
	return out, nil
}

func (p *Pipeline) run(ctx context.Context, st *State, log *zap.SugaredLogger, target *time.Time) (*Output, error) {
	if err := p.normalizeInput(st, target); err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx, StageInput); err != nil {
		return nil, err
	}

	if err := p.fetchForecasts(ctx, st, log); err != nil {
		return nil, err
	}
	if err := p.selectForecast(st, log); err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx, StageSelection); err != nil {
		return nil, err
	}

	if err := p.retrieveComments(st); err != nil {
		return nil, err
	}
	if err := p.filterPools(st, log); err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx, StageValidation); err != nil {
		return nil, err
	}

	if err := p.selectAndEvaluate(ctx, st, log); err != nil {
		return nil, err
	}

	st.FinalComment = p.deps.Composer.Compose(st.Pair, st.Selected)

	out := p.assemble(st)
	p.recordHistory(ctx, st, log)
	return out, nil
}

// maxLocationNameRunes bounds accepted location names.
const maxLocationNameRunes = 50

// normalizeInput resolves the location and the target time. Empty and
// overlong names are fatal; an unknown name degrades to the default
// coordinates with a warning.
func (p *Pipeline) normalizeInput(st *State, target *time.Time) error {
	name := strings.TrimSpace(st.RequestedName)
	if name == "" {
		return stageErr(KindInvalidInput, StageInput, fmt.Errorf("empty location name"))
	}
	if n := utf8.RuneCountInString(name); n > maxLocationNameRunes {
		return stageErr(KindInvalidInput, StageInput,
			fmt.Errorf("location name too long: %d runes (max %d)", n, maxLocationNameRunes))
	}

	loc, ok := models.ResolveLocation(name)
	if !ok {
		st.warn(KindLocationUnresolved, StageInput,
			fmt.Sprintf("unknown location %q, using %s coordinates", name, models.DefaultLocationName))
	}
	st.Location = loc

	if target != nil {
		st.TargetTime = target.In(models.JST)
	} else {
		st.TargetTime = time.Now().In(models.JST).Add(time.Duration(p.cfg.ForecastHoursAhead) * time.Hour)
	}
	return nil
}

// fetchForecasts pulls the forecast collection and writes it through to the
// cache. Cache failures are logged, never fatal.
func (p *Pipeline) fetchForecasts(ctx context.Context, st *State, log *zap.SugaredLogger) error {
	coll, err := p.deps.Fetcher.Fetch(ctx, st.Location)
	if err != nil {
		if ctx.Err() != nil {
			return stageErr(KindCancelled, StageFetch, ctx.Err())
		}
		return stageErr(KindWeatherProvider, StageFetch, err)
	}
	if coll == nil || len(coll.Forecasts) == 0 {
		return stageErr(KindNoForecastData, StageFetch,
			fmt.Errorf("provider returned no forecasts for %s", st.Location.Name))
	}
	st.Collection = coll

	if p.deps.Cache != nil {
		entries := make([]cache.Entry, 0, len(coll.Forecasts))
		for _, f := range coll.Forecasts {
			entries = append(entries, cache.FromForecast(f))
		}
		if err := p.deps.Cache.Put(st.Location.Name, entries...); err != nil {
			log.Warnw("forecast cache write failed", "error", err)
		}
	}
	return nil
}

// selectForecast applies the priority rules to the target-day slots, then
// derives trend and temperature context.
func (p *Pipeline) selectForecast(st *State, log *zap.SugaredLogger) error {
	slots := weather.SlotForecasts(st.Collection, st.TargetTime)
	if len(slots) == 0 {
		// No fixed slots for the target day: fall back to the nearest
		// forecast so short collections still produce output.
		nearest := st.Collection.Nearest(st.TargetTime)
		if nearest == nil {
			return stageErr(KindNoForecastData, StageSelection, forecast.ErrNoForecastData)
		}
		st.warn(KindNoForecastData, StageSelection, "no target-day slots, using nearest forecast")
		slots = []models.WeatherForecast{*nearest}
	}

	selected, err := forecast.SelectPriority(slots)
	if err != nil {
		return stageErr(KindNoForecastData, StageSelection, err)
	}
	st.Selected = selected
	log.Debugw("selected forecast",
		"datetime", selected.DateTime,
		"condition", selected.WeatherCondition,
		"temperature", selected.Temperature,
		"precipitation", selected.Precipitation)

	window := p.trendWindow(st.Collection, selected.DateTime)
	if trend, err := forecast.DeriveTrend(window, p.cfg.Scores()); err == nil {
		st.Trend = trend
	}
	st.TempDiffs = forecast.AnalyzeTemperature(p.deps.Cache, selected)
	st.CacheTrend = forecast.TrendWindow(p.deps.Cache, st.Location.Name, selected.DateTime,
		time.Duration(p.cfg.TrendHoursAhead)*time.Hour)
	return nil
}

// trendWindow collects forecasts from the selected instant forward through
// the configured trend horizon.
func (p *Pipeline) trendWindow(coll *models.WeatherForecastCollection, from time.Time) []models.WeatherForecast {
	until := from.Add(time.Duration(p.cfg.TrendHoursAhead) * time.Hour)
	var out []models.WeatherForecast
	for _, f := range coll.Forecasts {
		if !f.DateTime.Before(from) && !f.DateTime.After(until) {
			out = append(out, f)
		}
	}
	return out
}

func (p *Pipeline) retrieveComments(st *State) error {
	weatherPool, advicePool, err := p.deps.Corpus.Pools(st.TargetTime)
	if err != nil {
		return stageErr(KindCorpusUnavailable, StageRetrieval, err)
	}
	st.RawWeather, st.RawAdvice = weatherPool, advicePool
	return nil
}

// filterPools drops candidates the validator rejects. A pool emptied by
// filtering widens retrieval to all seasons and re-filters; a pool still
// empty after widening is fatal.
func (p *Pipeline) filterPools(st *State, log *zap.SugaredLogger) error {
	filter := func(pool []models.PastComment) ([]models.PastComment, int) {
		kept := make([]models.PastComment, 0, len(pool))
		for i := range pool {
			if ok, _ := p.deps.Validator.Validate(&pool[i], st.Selected, st.Location); ok {
				kept = append(kept, pool[i])
			}
		}
		return kept, len(pool) - len(kept)
	}

	st.WeatherPool, st.WeatherRejected = filter(st.RawWeather)
	st.AdvicePool, st.AdviceRejected = filter(st.RawAdvice)
	log.Debugw("validated pools",
		"weather_kept", len(st.WeatherPool), "weather_rejected", st.WeatherRejected,
		"advice_kept", len(st.AdvicePool), "advice_rejected", st.AdviceRejected)

	if len(st.WeatherPool) > 0 && len(st.AdvicePool) > 0 {
		return nil
	}

	allWeather, allAdvice := p.deps.Corpus.AllPools()
	if len(st.WeatherPool) == 0 {
		st.warn(KindNoValidCandidate, StageValidation, "all weather comments rejected, widening to all seasons")
		st.RawWeather = allWeather
		st.WeatherPool, st.WeatherRejected = filter(allWeather)
	}
	if len(st.AdvicePool) == 0 {
		st.warn(KindNoValidCandidate, StageValidation, "all advice comments rejected, widening to all seasons")
		st.RawAdvice = allAdvice
		st.AdvicePool, st.AdviceRejected = filter(allAdvice)
	}
	if len(st.WeatherPool) == 0 || len(st.AdvicePool) == 0 {
		return stageErr(KindNoValidCandidate, StageValidation,
			fmt.Errorf("every candidate rejected, even after widening to all seasons"))
	}
	return nil
}

// selectAndEvaluate runs the selection stage, then the evaluator, retrying
// selection with the evaluator's suggestions until the pair passes or the
// retry budget is spent. The final attempt's pair is accepted regardless.
func (p *Pipeline) selectAndEvaluate(ctx context.Context, st *State, log *zap.SugaredLogger) error {
	var suggestions []string

	for attempt := 0; ; attempt++ {
		if err := checkCancelled(ctx, StagePair); err != nil {
			return err
		}

		res, err := p.deps.Selector.Select(ctx,
			st.WeatherPool, st.AdvicePool,
			st.RawWeather, st.RawAdvice,
			st.Selected, st.Location, st.TrendText(), suggestions)
		if err != nil {
			if ctx.Err() != nil {
				return stageErr(KindCancelled, StagePair, ctx.Err())
			}
			return stageErr(KindNoValidCandidate, StagePair, err)
		}
		st.Pair = &res.Pair
		st.UsedLLM = res.UsedLLM
		if res.LLMFailed && !st.LLMFailed {
			st.LLMFailed = true
			st.warn(KindLLM, StagePair, "llm arbitration failed, selected deterministically")
		}
		st.RetryCount = attempt

		if !p.cfg.EvaluateCandidates {
			return nil
		}

		ev := p.deps.Evaluator.Evaluate(st.Pair, st.Selected)
		st.Evaluation = &ev
		if ev.Valid {
			return nil
		}
		if attempt >= p.cfg.MaxRetries {
			st.warn(KindEvaluationFailed, StageEvaluation,
				fmt.Sprintf("retry budget exhausted, accepting pair with score %.2f", ev.Total))
			return nil
		}
		log.Debugw("evaluation rejected pair",
			"attempt", attempt, "total", ev.Total, "suggestions", ev.Suggestions)
		suggestions = ev.Suggestions
	}
}

func (p *Pipeline) recordHistory(ctx context.Context, st *State, log *zap.SugaredLogger) {
	if p.deps.History == nil {
		return
	}
	g := store.Generation{
		ID:                 st.RequestID,
		LocationName:       st.Location.Name,
		GeneratedAt:        st.StartedAt,
		FinalComment:       st.FinalComment,
		WeatherComment:     st.Pair.WeatherComment.CommentText,
		AdviceComment:      st.Pair.AdviceComment.CommentText,
		WeatherCondition:   string(st.Selected.WeatherCondition),
		WeatherDescription: st.Selected.WeatherDescription,
		Temperature:        st.Selected.Temperature,
		Precipitation:      st.Selected.Precipitation,
		SelectionReason:    st.Pair.SelectionReason,
		UsedLLM:            st.UsedLLM,
		LLMProvider:        p.deps.LLMProvider,
		RetryCount:         st.RetryCount,
		ExecutionTimeMS:    time.Since(st.StartedAt).Milliseconds(),
	}
	if st.Evaluation != nil {
		g.EvaluationTotal = &st.Evaluation.Total
	}
	if err := p.deps.History.Record(ctx, g); err != nil {
		log.Warnw("history record failed", "error", err)
	}
}

func checkCancelled(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return stageErr(KindCancelled, stage, err)
	}
	return nil
}
