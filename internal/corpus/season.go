// Package corpus loads the historical comment corpus from per-season CSV
// files and serves season-filtered pools to the pipeline.
package corpus

import "time"

// Season is a retrieval bucket for historical comments.
type Season string

const (
	SeasonSpring  Season = "spring"
	SeasonRainy   Season = "rainy_season"
	SeasonSummer  Season = "summer"
	SeasonTyphoon Season = "typhoon"
	SeasonAutumn  Season = "autumn"
	SeasonWinter  Season = "winter"
)

// AllSeasons lists every season bucket, used for cross-season fallback.
var AllSeasons = []Season{
	SeasonSpring, SeasonRainy, SeasonSummer, SeasonTyphoon, SeasonAutumn, SeasonWinter,
}

// CurrentSeason maps a month to its primary season.
func CurrentSeason(t time.Time) Season {
	switch t.Month() {
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June:
		return SeasonRainy
	case time.July, time.August:
		return SeasonSummer
	case time.September:
		return SeasonTyphoon
	case time.October, time.November:
		return SeasonAutumn
	default:
		return SeasonWinter
	}
}

// relatedSeasons widens retrieval around season boundaries so comments from
// an adjacent season remain eligible.
var relatedSeasons = map[time.Month][]Season{
	time.January:   {SeasonWinter},
	time.February:  {SeasonWinter},
	time.March:     {SeasonWinter, SeasonSpring},
	time.April:     {SeasonSpring},
	time.May:       {SeasonSpring, SeasonRainy},
	time.June:      {SeasonSpring, SeasonRainy, SeasonSummer},
	time.July:      {SeasonRainy, SeasonSummer},
	time.August:    {SeasonSummer, SeasonTyphoon},
	time.September: {SeasonSummer, SeasonTyphoon, SeasonAutumn},
	time.October:   {SeasonTyphoon, SeasonAutumn},
	time.November:  {SeasonAutumn, SeasonWinter},
	time.December:  {SeasonWinter},
}

// RelatedSeasons returns the season family relevant for retrieval in the
// month of t.
func RelatedSeasons(t time.Time) []Season {
	return relatedSeasons[t.Month()]
}
