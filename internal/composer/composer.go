// Package composer assembles the final comment text from a selected pair
// and applies last-resort safety repairs against the forecast.
package composer

import (
	"strings"

	"go.uber.org/zap"

	"github.com/tenkigen/tenkigen/internal/models"
)

// halfSeparator joins the weather half and the advice half.
const halfSeparator = "　"

// safetyNote is appended when a hazardous forecast produced a text that
// never mentions the hazard.
type safetyNote struct {
	markers []string // any of these already present suppresses the note
	note    string
}

var safetyNotes = map[models.WeatherCondition]safetyNote{
	models.ConditionThunder:     {markers: []string{"雷"}, note: "（雷注意・屋内へ）"},
	models.ConditionFog:         {markers: []string{"霧", "視界"}, note: "（視界注意）"},
	models.ConditionStorm:       {markers: []string{"強風", "暴風", "嵐"}, note: "（強風危険・外出注意）"},
	models.ConditionSevereStorm: {markers: []string{"強風", "暴風", "嵐"}, note: "（強風危険・外出注意）"},
	models.ConditionHeavyRain:   {markers: []string{"大雨", "冠水", "警戒"}, note: "（大雨・冠水注意）"},
}

// rainSubstitutions rewrite dry-weather phrasing when the forecast is wet.
// Order matters: longer keys are matched first.
var rainSubstitutions = [][2]string{
	{"熱中症", "雨模様"},
	{"ムシムシ", "しっとり"},
	{"日焼け", "雨"},
	{"紫外線", "雨"},
	{"花粉", "雨"},
	{"暑い", "涼しい"},
	{"ピクニック", "おうちピクニック"},
	{"外遊び", "室内遊び"},
	{"散歩", "おうち時間"},
}

// rainContradictions in the weather half force substitution there too.
var rainContradictions = []string{"晴れ", "青空", "日差し", "洗濯日和", "日焼け", "紫外線", "熱中症", "花粉"}

// rainRepairSuffix marks a text that was rewritten for a wet forecast.
const rainRepairSuffix = "（雨天のため）"

// Composer joins pair halves into the final comment.
type Composer struct {
	log *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Composer {
	return &Composer{log: log}
}

// Compose renders the final comment text. Repairs run in order: rainy
// context substitution first, then the hazard safety note.
func (c *Composer) Compose(pair *models.CommentPair, f *models.WeatherForecast) string {
	weather := pair.WeatherComment.CommentText
	advice := pair.AdviceComment.CommentText

	if isWet(f) {
		repaired := false
		if next, changed := substituteRain(advice); changed {
			advice = next
			repaired = true
		}
		// The weather half is rewritten only when it contradicts the rain.
		if containsAnyOf(weather, rainContradictions) {
			if next, changed := substituteRain(weather); changed {
				weather = next
			}
			repaired = true
		}
		if repaired {
			c.log.Infow("applied rainy-context repair", "weather", weather, "advice", advice)
			advice += rainRepairSuffix
		}
	}

	text := weather + halfSeparator + advice

	if sn, ok := safetyNotes[f.WeatherCondition]; ok && !containsAnyOf(text, sn.markers) {
		c.log.Infow("appending safety note", "condition", f.WeatherCondition, "note", sn.note)
		text += sn.note
	}
	return text
}

// isWet reports whether the forecast calls for rain repair.
func isWet(f *models.WeatherForecast) bool {
	return f.WeatherCondition.IsRainy() || f.Precipitation > 0.1
}

func substituteRain(text string) (string, bool) {
	changed := false
	for _, sub := range rainSubstitutions {
		if strings.Contains(text, sub[0]) {
			text = strings.ReplaceAll(text, sub[0], sub[1])
			changed = true
		}
	}
	return text, changed
}

func containsAnyOf(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
