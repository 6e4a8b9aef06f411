// Command tenkigen generates Japanese weather advisory comments for one or
// more locations and prints the result envelope as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	"go.uber.org/zap"

	"github.com/tenkigen/tenkigen/internal/cache"
	"github.com/tenkigen/tenkigen/internal/composer"
	"github.com/tenkigen/tenkigen/internal/config"
	"github.com/tenkigen/tenkigen/internal/corpus"
	"github.com/tenkigen/tenkigen/internal/evaluator"
	"github.com/tenkigen/tenkigen/internal/llm"
	"github.com/tenkigen/tenkigen/internal/models"
	"github.com/tenkigen/tenkigen/internal/pipeline"
	"github.com/tenkigen/tenkigen/internal/selector"
	"github.com/tenkigen/tenkigen/internal/store"
	"github.com/tenkigen/tenkigen/internal/validator"
	"github.com/tenkigen/tenkigen/internal/weather"
)

var cli struct {
	Debug   bool               `help:"Enable debug logging."`
	EnvFile kongdotenv.ENVFileConfig `kong:"optional,name='env-file',help='Environment file to load before resolving flags.'"`

	DataDir   string `default:"data" help:"Directory with the seasonal comment CSV files."`
	CacheDir  string `default:"data/forecast_cache" help:"Directory for per-location forecast cache files."`
	Rules     string `help:"Validator rule matrix YAML. Empty uses built-in defaults."`
	HistoryDB string `help:"SQLite path for the generation history. Empty disables history."`

	Provider string `default:"openai" enum:"openai,gemini,anthropic" help:"LLM provider for pair arbitration."`
	Model    string `help:"Override the provider's default model."`

	WeatherAPIKey string `env:"WXTECH_API_KEY" help:"Weather provider API key."`
	WeatherAPIURL string `env:"WEATHER_API_BASE_URL" help:"Weather provider base URL override."`

	Workers     int    `default:"8" help:"Concurrent generations in batch mode."`
	MetricsAddr string `help:"Expose Prometheus metrics on this address (e.g. :9090)."`

	Generate  GenerateCmd  `cmd:"" default:"withargs" help:"Generate comments for the given locations."`
	Locations LocationsCmd `cmd:"" help:"List the resolvable location names."`
}

type GenerateCmd struct {
	Locations  []string `arg:"" optional:"" help:"Target locations. Defaults to 東京."`
	Time       string   `short:"t" help:"Target time, RFC3339. Defaults to now plus the forecast offset."`
	NoLLM      bool     `help:"Skip LLM arbitration, select deterministically."`
	NoEvaluate bool     `help:"Skip the evaluation stage."`
	Pretty     bool     `help:"Indent the JSON output."`
}

type LocationsCmd struct{}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("tenkigen"),
		kong.Description("Weather advisory comment generator."),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(kctx.Run())
}

func newLogger() (*zap.SugaredLogger, error) {
	if cli.Debug {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		return l.Sugar(), nil
	}
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

func (c *LocationsCmd) Run() error {
	names := models.KnownLocationNames()
	sort.Strings(names)
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func (c *GenerateCmd) Run() error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg := config.Default()
	cfg.DataDir = cli.DataDir
	cfg.CacheDir = cli.CacheDir
	cfg.RulesPath = cli.Rules
	cfg.HistoryDB = cli.HistoryDB
	cfg.LLMProvider = cli.Provider
	cfg.LLMModel = cli.Model
	cfg.WeatherAPIKey = cli.WeatherAPIKey
	cfg.WeatherAPIBaseURL = cli.WeatherAPIURL
	cfg.WorkerPoolSize = cli.Workers
	cfg.EvaluateCandidates = !c.NoEvaluate

	if cfg.WeatherAPIKey == "" {
		return fmt.Errorf("weather API key required (WXTECH_API_KEY or --weather-api-key)")
	}

	var target *time.Time
	if c.Time != "" {
		t, err := time.Parse(time.RFC3339, c.Time)
		if err != nil {
			return fmt.Errorf("parse --time: %w", err)
		}
		t = t.In(models.JST)
		target = &t
	}

	locations := c.Locations
	if len(locations) == 0 {
		locations = []string{models.DefaultLocationName}
	}

	if cli.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cli.MetricsAddr, mux); err != nil {
				log.Warnw("metrics listener failed", "addr", cli.MetricsAddr, "error", err)
			}
		}()
	}

	p, closeFn, err := buildPipeline(cfg, c.NoLLM, log)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var payload any
	if len(locations) == 1 {
		out, err := p.Run(ctx, locations[0], target)
		if err != nil {
			return err
		}
		payload = out
	} else {
		payload = p.RunAll(ctx, locations, target)
	}

	enc := json.NewEncoder(os.Stdout)
	if c.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(payload)
}

// buildPipeline wires the stage collaborators from configuration. The
// returned func closes the history store.
func buildPipeline(cfg config.Config, noLLM bool, log *zap.SugaredLogger) (*pipeline.Pipeline, func(), error) {
	fc, err := cache.New(cfg.CacheDir, log)
	if err != nil {
		return nil, nil, err
	}

	v := validator.LoadOrDefault(cfg.RulesPath, cfg.ThunderSeverePrecipitation, log)

	var client llm.Client
	provider := ""
	if !noLLM {
		client, err = llm.New(cfg.LLMProvider, llm.Options{Model: cfg.LLMModel, Timeout: cfg.LLMAPITimeout})
		if err != nil {
			// Missing API keys degrade to deterministic selection.
			log.Warnw("llm unavailable, selecting deterministically", "provider", cfg.LLMProvider, "error", err)
			client = nil
		} else {
			provider = client.Name()
		}
	}

	deps := pipeline.Deps{
		Fetcher: weather.NewClient(cfg.WeatherAPIKey, cfg.WeatherAPIBaseURL,
			cfg.WeatherAPITimeout, cfg.MinRequestInterval, log),
		Corpus:      corpus.NewStore(cfg.DataDir, log),
		Cache:       fc,
		Validator:   v,
		Selector:    selector.New(client, v, log),
		Evaluator:   evaluator.New(nil, cfg.HeatWarningThreshold, cfg.ColdWarningThreshold),
		Composer:    composer.New(log),
		LLMProvider: provider,
	}

	closeFn := func() {}
	if cfg.HistoryDB != "" {
		hist, err := store.Open(cfg.HistoryDB, log)
		if err != nil {
			return nil, nil, err
		}
		deps.History = hist
		closeFn = func() { hist.Close() }
	}

	return pipeline.New(cfg, deps, log), closeFn, nil
}
