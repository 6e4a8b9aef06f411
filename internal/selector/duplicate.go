package selector

import "strings"

// criticalKeywords are topics that must not appear in both halves of a pair;
// repeating one reads as saying the same thing twice.
var criticalKeywords = []string{
	"にわか雨", "熱中症", "紫外線", "雷", "強風", "大雨", "猛暑", "酷暑",
}

// duplicatePatterns pair a set of near-identical weather phrasings with the
// advice keywords that would repeat them.
var duplicatePatterns = []struct {
	weather   []string
	adviceAll []string
}{
	{weather: []string{"雨が心配", "雨に注意"}, adviceAll: []string{"雨", "注意"}},
	{weather: []string{"暑さが心配", "暑さに注意"}, adviceAll: []string{"暑", "注意"}},
	{weather: []string{"風が強い", "強風に注意"}, adviceAll: []string{"風", "注意"}},
	{weather: []string{"雪が心配", "雪に注意"}, adviceAll: []string{"雪", "注意"}},
}

// shortLength is the rune count at or below which the Jaccard check applies.
const shortLength = 10

// jaccardThreshold is the character-set overlap above which two short texts
// count as duplicates.
const jaccardThreshold = 0.7

// IsDuplicateContent reports whether the weather and advice texts say the
// same thing.
func IsDuplicateContent(weatherText, adviceText string) bool {
	if weatherText == adviceText {
		return true
	}
	for _, kw := range criticalKeywords {
		if strings.Contains(weatherText, kw) && strings.Contains(adviceText, kw) {
			return true
		}
	}
	for _, p := range duplicatePatterns {
		if !containsAnyOf(weatherText, p.weather) {
			continue
		}
		all := true
		for _, kw := range p.adviceAll {
			if !strings.Contains(adviceText, kw) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	wr, ar := []rune(weatherText), []rune(adviceText)
	if len(wr) <= shortLength && len(ar) <= shortLength {
		if charJaccard(wr, ar) > jaccardThreshold {
			return true
		}
	}
	return false
}

func containsAnyOf(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// charJaccard computes the Jaccard coefficient over character sets.
func charJaccard(a, b []rune) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	setA := make(map[rune]struct{}, len(a))
	for _, r := range a {
		setA[r] = struct{}{}
	}
	setB := make(map[rune]struct{}, len(b))
	for _, r := range b {
		setB[r] = struct{}{}
	}
	inter := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
