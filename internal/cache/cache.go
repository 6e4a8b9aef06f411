// Package cache stores fetched forecasts in per-location CSV files so later
// runs can compare against recent history. The cache is advisory: misses and
// I/O failures never abort a pipeline.
package cache

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tenkigen/tenkigen/internal/models"
)

// retention is how long entries survive; older rows are dropped on write.
const retention = 7 * 24 * time.Hour

var header = []string{
	"location", "forecast_datetime", "cached_at",
	"temperature", "max_temperature", "min_temperature",
	"weather_condition", "weather_description",
	"precipitation", "humidity", "wind_speed", "metadata",
}

// Entry is one cached forecast row.
type Entry struct {
	Location           string
	ForecastDateTime   time.Time
	CachedAt           time.Time
	Temperature        float64
	MaxTemperature     *float64
	MinTemperature     *float64
	WeatherCondition   models.WeatherCondition
	WeatherDescription string
	Precipitation      float64
	Humidity           float64
	WindSpeed          float64
	Metadata           string
}

// FromForecast builds a cache entry from a forecast.
func FromForecast(f models.WeatherForecast) Entry {
	return Entry{
		Location:           f.LocationName,
		ForecastDateTime:   f.DateTime,
		CachedAt:           time.Now().In(models.JST),
		Temperature:        f.Temperature,
		WeatherCondition:   f.WeatherCondition,
		WeatherDescription: f.WeatherDescription,
		Precipitation:      f.Precipitation,
		Humidity:           f.Humidity,
		WindSpeed:          f.WindSpeed,
	}
}

// Cache is a per-location append-only forecast log. Writes to the same
// location are serialized by a per-location mutex; the prune-and-rewrite is
// atomic via temp-file rename.
type Cache struct {
	dir string
	log *zap.SugaredLogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns a cache rooted at dir, creating it if necessary.
func New(dir string, log *zap.SugaredLogger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir, log: log, locks: make(map[string]*sync.Mutex)}, nil
}

func (c *Cache) lockFor(location string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.locks[location]; ok {
		return m
	}
	m := &sync.Mutex{}
	c.locks[location] = m
	return m
}

func (c *Cache) path(location string) string {
	// Avoid path separators sneaking in via location names.
	safe := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' {
			return '_'
		}
		return r
	}, location)
	return filepath.Join(c.dir, safe+".csv")
}

// Put appends entries for the location, then rewrites the file dropping rows
// whose cached_at is older than the retention window.
func (c *Cache) Put(location string, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	lock := c.lockFor(location)
	lock.Lock()
	defer lock.Unlock()

	existing, err := c.readLocked(location)
	if err != nil {
		// A corrupt file is replaced rather than propagated.
		c.log.Warnw("discarding unreadable cache file", "location", location, "error", err)
		existing = nil
	}

	cutoff := time.Now().Add(-retention)
	var rows []Entry
	for _, e := range existing {
		if e.CachedAt.After(cutoff) {
			rows = append(rows, e)
		}
	}
	rows = append(rows, entries...)

	return c.writeLocked(location, rows)
}

// writeLocked writes all rows to a temp file and renames it into place.
func (c *Cache) writeLocked(location string, rows []Entry) error {
	path := c.path(location)
	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return err
	}
	for _, e := range rows {
		if err := w.Write(e.record()); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (e Entry) record() []string {
	optional := func(v *float64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatFloat(*v, 'f', -1, 64)
	}
	return []string{
		e.Location,
		e.ForecastDateTime.Format(time.RFC3339),
		e.CachedAt.Format(time.RFC3339),
		strconv.FormatFloat(e.Temperature, 'f', -1, 64),
		optional(e.MaxTemperature),
		optional(e.MinTemperature),
		string(e.WeatherCondition),
		e.WeatherDescription,
		strconv.FormatFloat(e.Precipitation, 'f', -1, 64),
		strconv.FormatFloat(e.Humidity, 'f', -1, 64),
		strconv.FormatFloat(e.WindSpeed, 'f', -1, 64),
		e.Metadata,
	}
}

func parseRecord(rec []string) (Entry, error) {
	if len(rec) < len(header) {
		return Entry{}, fmt.Errorf("short record: %d fields", len(rec))
	}
	fdt, err := time.Parse(time.RFC3339, rec[1])
	if err != nil {
		return Entry{}, fmt.Errorf("forecast_datetime: %w", err)
	}
	cat, err := time.Parse(time.RFC3339, rec[2])
	if err != nil {
		return Entry{}, fmt.Errorf("cached_at: %w", err)
	}
	number := func(s string) float64 {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	optional := func(s string) *float64 {
		if s == "" {
			return nil
		}
		v := number(s)
		return &v
	}
	return Entry{
		Location:           rec[0],
		ForecastDateTime:   fdt.In(models.JST),
		CachedAt:           cat.In(models.JST),
		Temperature:        number(rec[3]),
		MaxTemperature:     optional(rec[4]),
		MinTemperature:     optional(rec[5]),
		WeatherCondition:   models.WeatherCondition(rec[6]),
		WeatherDescription: rec[7],
		Precipitation:      number(rec[8]),
		Humidity:           number(rec[9]),
		WindSpeed:          number(rec[10]),
		Metadata:           rec[11],
	}, nil
}

func (c *Cache) readLocked(location string) ([]Entry, error) {
	f, err := os.Open(c.path(location))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for i, rec := range records {
		if i == 0 && len(rec) > 0 && rec[0] == "location" {
			continue
		}
		e, err := parseRecord(rec)
		if err != nil {
			c.log.Warnw("skipping malformed cache row", "location", location, "row", i, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Entries returns all rows for a location.
func (c *Cache) Entries(location string) ([]Entry, error) {
	lock := c.lockFor(location)
	lock.Lock()
	defer lock.Unlock()
	return c.readLocked(location)
}

// Nearest returns the entry whose forecast_datetime is closest to target,
// provided the difference is within tolerance. Nil on miss.
func (c *Cache) Nearest(location string, target time.Time, tolerance time.Duration) (*Entry, error) {
	entries, err := c.Entries(location)
	if err != nil {
		return nil, err
	}
	var best *Entry
	var bestDiff time.Duration
	for i := range entries {
		diff := entries[i].ForecastDateTime.Sub(target)
		if diff < 0 {
			diff = -diff
		}
		if diff > tolerance {
			continue
		}
		if best == nil || diff < bestDiff {
			best = &entries[i]
			bestDiff = diff
		}
	}
	return best, nil
}

// PreviousDay returns the entry for the same hour yesterday, tolerance 6h.
func (c *Cache) PreviousDay(location string, target time.Time) (*Entry, error) {
	return c.Nearest(location, target.AddDate(0, 0, -1), 6*time.Hour)
}

// TwelveHoursAgo returns the entry from 12 hours before target, tolerance 3h.
func (c *Cache) TwelveHoursAgo(location string, target time.Time) (*Entry, error) {
	return c.Nearest(location, target.Add(-12*time.Hour), 3*time.Hour)
}

// SameDay returns today's entries for the date of target in JST.
func (c *Cache) SameDay(location string, target time.Time) ([]Entry, error) {
	entries, err := c.Entries(location)
	if err != nil {
		return nil, err
	}
	day := target.In(models.JST)
	var out []Entry
	for _, e := range entries {
		dt := e.ForecastDateTime.In(models.JST)
		if dt.Year() == day.Year() && dt.YearDay() == day.YearDay() {
			out = append(out, e)
		}
	}
	return out, nil
}
