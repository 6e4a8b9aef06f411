// Package selector chooses one weather comment and one advice comment from
// the filtered pools. The LLM arbitrates; every anomaly in its reply falls
// back to a deterministic choice.
package selector

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tenkigen/tenkigen/internal/llm"
	"github.com/tenkigen/tenkigen/internal/models"
	"github.com/tenkigen/tenkigen/internal/validator"
)

// maxCandidates caps each pool presented to the LLM.
const maxCandidates = 50

// maxAlternatives bounds the offset-pair scan after post-validation failure.
const maxAlternatives = 10

// ErrNoValidCandidate is returned when a pool is empty after filtering.
var ErrNoValidCandidate = errors.New("no valid candidate")

// Selector performs LLM-arbitrated pair selection with deterministic
// fallbacks.
type Selector struct {
	llm       llm.Client // nil disables arbitration entirely
	validator *validator.Validator
	log       *zap.SugaredLogger
}

// New returns a selector. A nil client skips arbitration and selects
// deterministically.
func New(client llm.Client, v *validator.Validator, log *zap.SugaredLogger) *Selector {
	return &Selector{llm: client, validator: v, log: log}
}

// Result carries the chosen pair plus bookkeeping for state metadata.
type Result struct {
	Pair      models.CommentPair
	UsedLLM   bool
	LLMFailed bool
}

// warningWords mark a comment as appropriate for severe weather.
var warningWords = []string{"注意", "警戒", "危険", "荒れ", "激しい", "強い", "本格的", "傘", "雨具", "安全"}

// Prepare ranks and truncates a pool: severe-weather-appropriate first,
// then condition-matched, then the rest; stable by descending usage count
// within each bucket.
func Prepare(pool []models.PastComment, f *models.WeatherForecast) []models.PastComment {
	ranked := make([]models.PastComment, len(pool))
	copy(ranked, pool)

	bucket := func(c *models.PastComment) int {
		if f.WeatherCondition.IsSevere() && containsAnyOf(c.CommentText, warningWords) {
			return 0
		}
		if matchesCondition(c, f) {
			return 1
		}
		return 2
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		bi, bj := bucket(&ranked[i]), bucket(&ranked[j])
		if bi != bj {
			return bi < bj
		}
		return ranked[i].UsageCount > ranked[j].UsageCount
	})

	if len(ranked) > maxCandidates {
		ranked = ranked[:maxCandidates]
	}
	return ranked
}

// matchesCondition compares the comment's recorded condition with the
// forecast, tolerating both enum names and Japanese descriptions.
func matchesCondition(c *models.PastComment, f *models.WeatherForecast) bool {
	cond := strings.TrimSpace(c.WeatherCondition)
	if cond == "" {
		return false
	}
	if cond == string(f.WeatherCondition) {
		return true
	}
	desc := f.WeatherCondition.Description()
	return strings.Contains(cond, desc) || strings.Contains(desc, cond)
}

// Select picks one pair from the pools. weatherPool and advicePool are the
// validator-filtered pools; rawWeather/rawAdvice are the unfiltered
// originals used by the emergency fallback. suggestions carry evaluator
// feedback from earlier retries.
func (s *Selector) Select(
	ctx context.Context,
	weatherPool, advicePool []models.PastComment,
	rawWeather, rawAdvice []models.PastComment,
	f *models.WeatherForecast,
	loc models.Location,
	trendText string,
	suggestions []string,
) (*Result, error) {
	if len(weatherPool) == 0 || len(advicePool) == 0 {
		return nil, ErrNoValidCandidate
	}

	prepW := Prepare(weatherPool, f)
	prepA := Prepare(advicePool, f)

	res := &Result{}
	wIdx, aIdx := 0, 0

	if s.llm != nil {
		var err error
		wIdx, err = s.arbitrate(ctx, f, trendText, prepW, models.TypeWeatherComment, suggestions)
		if err == nil {
			aIdx, err = s.arbitrate(ctx, f, trendText, prepA, models.TypeAdvice, suggestions)
		}
		if err != nil {
			// Deterministic fallback: top-priority candidate of each pool.
			s.log.Warnw("llm arbitration failed, using top candidates", "error", err)
			wIdx, aIdx = 0, 0
			res.LLMFailed = true
		} else {
			res.UsedLLM = true
		}
	}

	pair := s.makePair(prepW[wIdx], prepA[aIdx], res.UsedLLM)
	if s.pairValid(&pair, f, loc) {
		res.Pair = pair
		return res, nil
	}

	// Alternative selection: walk offset pairs until one passes.
	limit := maxAlternatives
	if len(prepW) < limit {
		limit = len(prepW)
	}
	if len(prepA) < limit {
		limit = len(prepA)
	}
	for i := 0; i < limit; i++ {
		if i == wIdx && i == aIdx {
			// This exact pair already failed post-validation above.
			continue
		}
		alt := s.makePair(prepW[i], prepA[i], false)
		alt.SelectionReason = "alternative offset pair"
		alt.SimilarityScore = 0.6
		if s.pairValid(&alt, f, loc) {
			s.log.Infow("alternative pair selected", "offset", i)
			res.Pair = alt
			return res, nil
		}
	}

	// Total failure: rainy-appropriate emergency pair from the raw pools.
	emergency := s.emergencyPair(rawWeather, rawAdvice)
	s.log.Warnw("falling back to emergency pair",
		"weather", emergency.WeatherComment.CommentText,
		"advice", emergency.AdviceComment.CommentText)
	res.Pair = emergency
	return res, nil
}

func (s *Selector) arbitrate(ctx context.Context, f *models.WeatherForecast, trendText string, candidates []models.PastComment, half models.CommentType, suggestions []string) (int, error) {
	prompt := buildPrompt(f, trendText, candidates, half, suggestions)
	reply, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		return 0, err
	}
	idx, err := llm.ParseIndex(reply, len(candidates))
	if err != nil {
		return 0, err
	}
	return idx, nil
}

func (s *Selector) makePair(w, a models.PastComment, usedLLM bool) models.CommentPair {
	reason := "top-priority fallback"
	score := 0.7
	if usedLLM {
		reason = "llm arbitration"
		score = 0.9
	}
	return models.CommentPair{
		WeatherComment:  w,
		AdviceComment:   a,
		SimilarityScore: score,
		SelectionReason: reason,
	}
}

// pairValid re-validates both halves against the forecast and rejects
// duplicative pairs.
func (s *Selector) pairValid(pair *models.CommentPair, f *models.WeatherForecast, loc models.Location) bool {
	if ok, reason := s.validator.Validate(&pair.WeatherComment, f, loc); !ok {
		s.log.Debugw("pair rejected: weather half", "reason", reason)
		return false
	}
	if ok, reason := s.validator.Validate(&pair.AdviceComment, f, loc); !ok {
		s.log.Debugw("pair rejected: advice half", "reason", reason)
		return false
	}
	if IsDuplicateContent(pair.WeatherComment.CommentText, pair.AdviceComment.CommentText) {
		s.log.Debugw("pair rejected: duplicate content",
			"weather", pair.WeatherComment.CommentText,
			"advice", pair.AdviceComment.CommentText)
		return false
	}
	return true
}

// emergencyPair scans the unfiltered pools for a rainy-appropriate pair,
// synthesizing safe texts when the scan finds nothing.
func (s *Selector) emergencyPair(rawWeather, rawAdvice []models.PastComment) models.CommentPair {
	weather := models.PastComment{
		CommentText: "雨の降りやすい天気です",
		CommentType: models.TypeWeatherComment,
	}
	for _, c := range rawWeather {
		if strings.Contains(c.CommentText, "雨") && !containsAnyOf(c.CommentText, []string{"晴", "中休み"}) {
			weather = c
			break
		}
	}

	advice := models.PastComment{
		CommentText: "傘があると安心です",
		CommentType: models.TypeAdvice,
	}
	for _, c := range rawAdvice {
		if containsAnyOf(c.CommentText, []string{"傘", "雨具", "注意"}) {
			advice = c
			break
		}
	}

	return models.CommentPair{
		WeatherComment:  weather,
		AdviceComment:   advice,
		SimilarityScore: 0.5,
		SelectionReason: "emergency rainy fallback",
	}
}
