// Package evaluator scores a selected comment pair along eight weighted
// axes. Scoring is fully deterministic: fixed substring and pattern rules,
// no model calls, so every retry decision is reproducible.
package evaluator

import (
	"fmt"
	"strings"

	"github.com/tenkigen/tenkigen/internal/models"
	"github.com/tenkigen/tenkigen/internal/selector"
)

// Axis is one evaluation criterion.
type Axis string

const (
	AxisRelevance       Axis = "relevance"
	AxisCreativity      Axis = "creativity"
	AxisNaturalness     Axis = "naturalness"
	AxisAppropriateness Axis = "appropriateness"
	AxisEngagement      Axis = "engagement"
	AxisClarity         Axis = "clarity"
	AxisConsistency     Axis = "consistency"
	AxisOriginality     Axis = "originality"
)

// criticalAxes must each clear criticalFloor for the pair to be valid.
var criticalAxes = []Axis{AxisAppropriateness, AxisRelevance}

const (
	validTotal    = 0.6
	criticalFloor = 0.5
)

// DefaultWeights sum to 1.
var DefaultWeights = map[Axis]float64{
	AxisRelevance:       0.20,
	AxisAppropriateness: 0.20,
	AxisNaturalness:     0.15,
	AxisConsistency:     0.15,
	AxisClarity:         0.10,
	AxisEngagement:      0.08,
	AxisCreativity:      0.06,
	AxisOriginality:     0.06,
}

// Evaluation is the scored outcome for one pair.
type Evaluation struct {
	Scores      map[Axis]float64
	Total       float64
	Valid       bool
	Suggestions []string
}

// Default warning thresholds in °C.
const (
	defaultHeatThreshold = 30
	defaultColdThreshold = 15
)

// Evaluator scores pairs with configurable axis weights and temperature
// warning thresholds.
type Evaluator struct {
	weights map[Axis]float64
	heat    float64
	cold    float64
}

// New returns an evaluator. Nil weights select DefaultWeights; non-positive
// thresholds select the 30/15 °C defaults.
func New(weights map[Axis]float64, heatThreshold, coldThreshold float64) *Evaluator {
	if weights == nil {
		weights = DefaultWeights
	}
	if heatThreshold <= 0 {
		heatThreshold = defaultHeatThreshold
	}
	if coldThreshold <= 0 {
		coldThreshold = defaultColdThreshold
	}
	return &Evaluator{weights: weights, heat: heatThreshold, cold: coldThreshold}
}

// inappropriateTerms each cost half the appropriateness score.
var inappropriateTerms = []string{"死", "殺", "地獄", "最悪", "くそ", "ヤバい", "絶望"}

// Evaluate scores the pair against the forecast. The pair is valid iff the
// weighted total reaches 0.6 and every critical axis reaches 0.5.
func (e *Evaluator) Evaluate(pair *models.CommentPair, f *models.WeatherForecast) Evaluation {
	wText := pair.WeatherComment.CommentText
	aText := pair.AdviceComment.CommentText
	joined := wText + aText

	ev := Evaluation{Scores: map[Axis]float64{
		AxisRelevance:       e.scoreRelevance(wText, aText, f),
		AxisCreativity:      scoreCreativity(joined),
		AxisNaturalness:     scoreNaturalness(wText, aText),
		AxisAppropriateness: scoreAppropriateness(joined),
		AxisEngagement:      scoreEngagement(aText),
		AxisClarity:         scoreClarity(wText, aText),
		AxisConsistency:     scoreConsistency(wText, aText),
		AxisOriginality:     scoreOriginality(pair),
	}}

	for axis, score := range ev.Scores {
		ev.Total += score * e.weights[axis]
	}

	ev.Valid = ev.Total >= validTotal
	for _, axis := range criticalAxes {
		if ev.Scores[axis] < criticalFloor {
			ev.Valid = false
		}
	}

	if !ev.Valid {
		ev.Suggestions = suggestions(ev.Scores)
	}
	return ev
}

// conditionKeywords are the words a relevant weather half should mention.
var conditionKeywords = map[models.WeatherCondition][]string{
	models.ConditionClear:        {"晴", "日差し", "青空"},
	models.ConditionPartlyCloudy: {"晴", "雲", "曇"},
	models.ConditionCloudy:       {"曇", "雲", "どんより"},
	models.ConditionRain:         {"雨", "傘", "ぐずつ"},
	models.ConditionHeavyRain:    {"雨", "荒れ", "警戒", "激し"},
	models.ConditionSnow:         {"雪", "冷え", "白"},
	models.ConditionHeavySnow:    {"雪", "警戒", "吹雪"},
	models.ConditionThunder:      {"雷", "急変", "不安定"},
	models.ConditionFog:          {"霧", "視界"},
	models.ConditionStorm:        {"嵐", "暴風", "荒れ", "強風"},
	models.ConditionSevereStorm:  {"嵐", "暴風", "荒れ", "警戒"},
	models.ConditionExtremeHeat:  {"暑", "猛暑", "熱"},
}

// scoreRelevance rewards condition keywords in the weather half and
// temperature-appropriate words in the advice half. The warning thresholds
// bound the neutral band: heat above e.heat, cold at or below e.cold.
func (e *Evaluator) scoreRelevance(wText, aText string, f *models.WeatherForecast) float64 {
	score := 0.4
	if kws, ok := conditionKeywords[f.WeatherCondition]; ok {
		for _, kw := range kws {
			if strings.Contains(wText, kw) {
				score += 0.35
				break
			}
		}
	} else {
		score += 0.2
	}
	switch {
	case f.Temperature >= e.heat:
		if strings.Contains(aText, "暑") || strings.Contains(aText, "水分") || strings.Contains(aText, "熱") {
			score += 0.25
		}
	case f.Temperature <= e.cold:
		if strings.Contains(aText, "寒") || strings.Contains(aText, "冷え") || strings.Contains(aText, "暖か") {
			score += 0.25
		}
	default:
		score += 0.25
	}
	return clamp(score)
}

func scoreCreativity(text string) float64 {
	score := 0.5
	for _, marker := range []string{"ジメジメ", "ムシムシ", "カラッと", "しっとり", "ぽかぽか", "ひんやり", "ゴロゴロ"} {
		if strings.Contains(text, marker) {
			score += 0.3
			break
		}
	}
	if strings.ContainsAny(text, "！？♪") {
		score += 0.2
	}
	return clamp(score)
}

func scoreNaturalness(wText, aText string) float64 {
	score := 0.9
	for _, t := range []string{wText, aText} {
		r := []rune(t)
		if len(r) > 50 {
			score -= 0.3
		}
		for i := 2; i < len(r); i++ {
			if r[i] == r[i-1] && r[i-1] == r[i-2] {
				score -= 0.3
				break
			}
		}
	}
	return clamp(score)
}

func scoreAppropriateness(text string) float64 {
	score := 1.0
	for _, term := range inappropriateTerms {
		if strings.Contains(text, term) {
			score -= 0.5
		}
	}
	return clamp(score)
}

func scoreEngagement(aText string) float64 {
	score := 0.6
	for _, suffix := range []string{"ください", "ましょう", "忘れずに", "おすすめ", "安心です"} {
		if strings.Contains(aText, suffix) {
			score += 0.3
			break
		}
	}
	return clamp(score)
}

func scoreClarity(wText, aText string) float64 {
	score := 1.0
	if len([]rune(wText))+len([]rune(aText)) > 60 {
		score -= 0.3
	}
	// A single half mentioning both sun and rain is ambiguous.
	for _, t := range []string{wText, aText} {
		if strings.Contains(t, "晴") && strings.Contains(t, "雨") {
			score -= 0.3
			break
		}
	}
	return clamp(score)
}

func scoreConsistency(wText, aText string) float64 {
	score := 1.0
	if selector.IsDuplicateContent(wText, aText) {
		score -= 0.5
	}
	if strings.Contains(wText, "雨") {
		for _, w := range []string{"日焼け", "紫外線", "洗濯日和", "布団を干"} {
			if strings.Contains(aText, w) {
				score -= 0.4
				break
			}
		}
	}
	return clamp(score)
}

func scoreOriginality(pair *models.CommentPair) float64 {
	usage := pair.WeatherComment.UsageCount + pair.AdviceComment.UsageCount
	if usage > 1000 {
		usage = 1000
	}
	// Heavily reused pairs lose up to half the score.
	return clamp(1 - float64(usage)/1000*0.5)
}

func suggestions(scores map[Axis]float64) []string {
	var out []string
	if scores[AxisRelevance] < criticalFloor {
		out = append(out, "予報の天気・気温に直接触れる候補を選ぶこと")
	}
	if scores[AxisAppropriateness] < criticalFloor {
		out = append(out, "不適切な表現を含む候補を避けること")
	}
	if scores[AxisConsistency] < 0.7 {
		out = append(out, "天気コメントとアドバイスの内容が矛盾・重複しない組み合わせにすること")
	}
	if scores[AxisClarity] < 0.7 {
		out = append(out, "より短く明確な表現の候補を選ぶこと")
	}
	if len(out) == 0 {
		out = append(out, fmt.Sprintf("総合スコア不足（%v）: より予報に適合する組み合わせを選ぶこと", scores))
	}
	return out
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
