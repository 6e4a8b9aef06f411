package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tenkigen/tenkigen/internal/models"
)

// ErrCorpusUnavailable is returned when no historical comments could be
// loaded for any requested season.
var ErrCorpusUnavailable = errors.New("comment corpus unavailable")

// Store loads and caches the comment corpus. Files are read once per
// process; afterwards all access is read-only and safe for concurrent use.
type Store struct {
	dir string
	log *zap.SugaredLogger

	mu     sync.Mutex
	loaded map[string][]models.PastComment // key: season + "/" + type
}

// NewStore returns a corpus store over the given directory.
func NewStore(dir string, log *zap.SugaredLogger) *Store {
	return &Store{dir: dir, log: log, loaded: make(map[string][]models.PastComment)}
}

// Pools returns the weather-comment and advice pools for the season family
// of t. When either pool is empty it falls back to all seasons, then fails
// with ErrCorpusUnavailable.
func (s *Store) Pools(t time.Time) (weather, advice []models.PastComment, err error) {
	seasons := RelatedSeasons(t)
	weather = s.pool(seasons, models.TypeWeatherComment)
	advice = s.pool(seasons, models.TypeAdvice)

	if len(weather) == 0 || len(advice) == 0 {
		s.log.Warnw("season family yielded empty pool, widening to all seasons",
			"seasons", seasons, "weather", len(weather), "advice", len(advice))
		weather = s.pool(AllSeasons, models.TypeWeatherComment)
		advice = s.pool(AllSeasons, models.TypeAdvice)
	}
	if len(weather) == 0 || len(advice) == 0 {
		return nil, nil, ErrCorpusUnavailable
	}
	return weather, advice, nil
}

// AllPools returns the full cross-season pools, used for the selector's
// emergency fallback scan.
func (s *Store) AllPools() (weather, advice []models.PastComment) {
	return s.pool(AllSeasons, models.TypeWeatherComment), s.pool(AllSeasons, models.TypeAdvice)
}

func (s *Store) pool(seasons []Season, ct models.CommentType) []models.PastComment {
	var out []models.PastComment
	for _, season := range seasons {
		out = append(out, s.load(season, ct)...)
	}
	return out
}

func (s *Store) load(season Season, ct models.CommentType) []models.PastComment {
	key := string(season) + "/" + string(ct)
	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.loaded[key]; ok {
		return cached
	}

	name := fmt.Sprintf("%s_%s_enhanced100.csv", season, ct)
	path := filepath.Join(s.dir, name)
	comments, err := readCommentFile(path, ct)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warnw("failed to read corpus file", "file", name, "error", err)
		}
		comments = nil
	}
	s.loaded[key] = comments
	return comments
}

// readCommentFile parses one corpus CSV. The first row is a header; columns
// are matched by name so file variants with extra columns still load.
func readCommentFile(path string, ct models.CommentType) ([]models.PastComment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	headerRow, err := r.Read()
	if err != nil {
		return nil, err
	}
	col := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}

	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var comments []models.PastComment
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return comments, err
		}

		text := field(rec, "comment_text")
		if text == "" {
			text = field(rec, "comment")
		}
		if text == "" {
			continue
		}

		c := models.PastComment{
			CommentText:      text,
			CommentType:      ct,
			WeatherCondition: field(rec, "weather_condition"),
			WeatherCode:      field(rec, "weather_code"),
			Location:         field(rec, "location"),
			SourceFile:       filepath.Base(path),
			RawData:          make(map[string]string, len(headerRow)),
		}
		for i, name := range headerRow {
			if i < len(rec) {
				c.RawData[strings.TrimSpace(strings.ToLower(name))] = rec[i]
			}
		}
		if v := field(rec, "usage_count"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.UsageCount = n
			}
		}
		if v := field(rec, "temperature"); v != "" {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				c.Temperature = &n
			}
		}
		if v := field(rec, "humidity"); v != "" {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				c.Humidity = &n
			}
		}
		if v := field(rec, "precipitation"); v != "" {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				c.Precipitation = &n
			}
		}
		if v := field(rec, "datetime"); v != "" {
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				c.DateTime = ts.In(models.JST)
			}
		}

		if err := c.Validate(); err != nil {
			continue
		}
		comments = append(comments, c)
	}
	return comments, nil
}
