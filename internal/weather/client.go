// Package weather fetches forecasts from the weather provider and maps the
// wxdata payload onto the internal model.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/tenkigen/tenkigen/internal/httputil"
	"github.com/tenkigen/tenkigen/internal/metrics"
	"github.com/tenkigen/tenkigen/internal/models"
)

// ErrorKind classifies provider failures for caller triage.
type ErrorKind string

const (
	ErrAPIKeyInvalid ErrorKind = "api_key_invalid"
	ErrRateLimit     ErrorKind = "rate_limit"
	ErrNetwork       ErrorKind = "network_error"
	ErrTimeout       ErrorKind = "timeout"
	ErrServer        ErrorKind = "server_error"
	ErrNotFound      ErrorKind = "not_found"
)

// ProviderError is a classified weather-provider failure.
type ProviderError struct {
	Kind ErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("weather provider %s: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

const defaultBaseURL = "https://wxtech.weathernews.com/api/v1/ss1wx"

// Client talks to the weather provider. Safe for concurrent use; a minimum
// inter-request delay is enforced across goroutines.
type Client struct {
	apiKey      string
	baseURL     string
	client      *http.Client
	log         *zap.SugaredLogger
	minInterval time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

// NewClient returns a provider client. An empty baseURL selects the default
// endpoint.
func NewClient(apiKey, baseURL string, timeout, minInterval time.Duration, log *zap.SugaredLogger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:      apiKey,
		baseURL:     baseURL,
		client:      httputil.NewClient(timeout),
		log:         log,
		minInterval: minInterval,
	}
}

// wxResponse is the provider payload: {"wxdata": [{"srf": [...], "mrf": [...]}]}.
type wxResponse struct {
	WxData []struct {
		SRF []hourlyEntry `json:"srf"`
		MRF []dailyEntry  `json:"mrf"`
	} `json:"wxdata"`
}

type hourlyEntry struct {
	Date   string   `json:"date"`
	Wx     string   `json:"wx"`
	Temp   *float64 `json:"temp"`
	Prec   *float64 `json:"prec"`
	Rhum   *float64 `json:"rhum"`
	Wndspd *float64 `json:"wndspd"`
	Wnddir *int     `json:"wnddir"`
}

type dailyEntry struct {
	Date    string   `json:"date"`
	Wx      string   `json:"wx"`
	MaxTemp *float64 `json:"maxtemp"`
	MinTemp *float64 `json:"mintemp"`
	Pop     *float64 `json:"pop"`
}

// throttle enforces the minimum inter-request delay.
func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	wait := c.minInterval - time.Since(c.lastCall)
	c.lastCall = time.Now().Add(wait)
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fetch returns all hourly forecasts for the location. 429 responses are
// retried with exponential backoff (3s base, factor 2, 3 attempts); all
// other failures are classified and permanent.
func (c *Client) Fetch(ctx context.Context, loc models.Location) (*models.WeatherForecastCollection, error) {
	if loc.Latitude == nil || loc.Longitude == nil {
		return nil, &ProviderError{Kind: ErrNotFound, Err: fmt.Errorf("location %s has no coordinates", loc.Name)}
	}
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s?lat=%.4f&lon=%.4f", c.baseURL, *loc.Latitude, *loc.Longitude)

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("X-API-Key", c.apiKey)

		start := time.Now()
		resp, err := c.client.Do(req)
		metrics.WeatherAPILatency.Observe(time.Since(start).Seconds())
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return backoff.Permanent(err)
			}
			var uerr *url.Error
			if errors.As(err, &uerr) && uerr.Timeout() {
				metrics.WeatherAPICalls.WithLabelValues("timeout").Inc()
				return backoff.Permanent(&ProviderError{Kind: ErrTimeout, Err: err})
			}
			metrics.WeatherAPICalls.WithLabelValues("network_error").Inc()
			return backoff.Permanent(&ProviderError{Kind: ErrNetwork, Err: err})
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			metrics.WeatherAPICalls.WithLabelValues("rate_limit").Inc()
			return &ProviderError{Kind: ErrRateLimit, Err: fmt.Errorf("status %d", resp.StatusCode)}
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			metrics.WeatherAPICalls.WithLabelValues("api_key_invalid").Inc()
			return backoff.Permanent(&ProviderError{Kind: ErrAPIKeyInvalid, Err: fmt.Errorf("status %d", resp.StatusCode)})
		case resp.StatusCode == http.StatusNotFound:
			metrics.WeatherAPICalls.WithLabelValues("not_found").Inc()
			return backoff.Permanent(&ProviderError{Kind: ErrNotFound, Err: fmt.Errorf("status %d", resp.StatusCode)})
		case resp.StatusCode >= 500:
			metrics.WeatherAPICalls.WithLabelValues("server_error").Inc()
			return backoff.Permanent(&ProviderError{Kind: ErrServer, Err: fmt.Errorf("status %d", resp.StatusCode)})
		case resp.StatusCode != http.StatusOK:
			metrics.WeatherAPICalls.WithLabelValues("server_error").Inc()
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(&ProviderError{Kind: ErrServer, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(b))})
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(&ProviderError{Kind: ErrNetwork, Err: fmt.Errorf("read body: %w", err)})
		}
		metrics.WeatherAPICalls.WithLabelValues("ok").Inc()
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 3 * time.Second
	bo.Multiplier = 2
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, 2), ctx)); err != nil {
		return nil, err
	}

	coll, err := ParseResponse(body, loc.Name)
	if err != nil {
		return nil, &ProviderError{Kind: ErrServer, Err: err}
	}
	c.log.Debugw("fetched forecasts", "location", loc.Name, "count", len(coll.Forecasts))
	return coll, nil
}

// ParseResponse decodes a wxdata payload into a forecast collection.
// Missing numeric fields default to zero per the provider contract.
func ParseResponse(body []byte, locationName string) (*models.WeatherForecastCollection, error) {
	var data wxResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal wxdata: %w", err)
	}
	if len(data.WxData) == 0 {
		return nil, fmt.Errorf("empty wxdata for %s", locationName)
	}

	coll := &models.WeatherForecastCollection{
		LocationName: locationName,
		GeneratedAt:  time.Now().In(models.JST),
	}
	for _, e := range data.WxData[0].SRF {
		dt, err := time.Parse(time.RFC3339, e.Date)
		if err != nil {
			continue
		}
		f := models.WeatherForecast{
			LocationName:     locationName,
			DateTime:         dt.In(models.JST),
			WeatherCode:      e.Wx,
			WeatherCondition: ConditionFromCode(e.Wx),
		}
		f.WeatherDescription = f.WeatherCondition.Description()
		if e.Temp != nil {
			f.Temperature = *e.Temp
		}
		if e.Prec != nil {
			f.Precipitation = *e.Prec
		}
		if e.Rhum != nil {
			f.Humidity = *e.Rhum
		}
		if e.Wndspd != nil {
			f.WindSpeed = *e.Wndspd
		}
		idx := 0
		if e.Wnddir != nil {
			idx = *e.Wnddir
		}
		f.WindDirection, f.WindDirectionDegrees = models.WindFromIndex(idx)

		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("forecast at %s: %w", e.Date, err)
		}
		coll.Forecasts = append(coll.Forecasts, f)
	}
	coll.Sort()
	return coll, nil
}

// TargetSlotHours are the target-day hours the priority selector considers.
var TargetSlotHours = []int{9, 12, 15, 18}

// SlotForecasts extracts the 09/12/15/18 JST forecasts for the given day.
// Slots absent from the collection are skipped.
func SlotForecasts(coll *models.WeatherForecastCollection, day time.Time) []models.WeatherForecast {
	var slots []models.WeatherForecast
	for _, h := range TargetSlotHours {
		if f := coll.At(day, h); f != nil {
			slots = append(slots, *f)
		}
	}
	return slots
}
