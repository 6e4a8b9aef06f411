package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WeatherAPICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenkigen_weather_api_calls_total",
			Help: "Total weather provider API calls by outcome",
		},
		[]string{"status"},
	)

	WeatherAPILatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tenkigen_weather_api_latency_seconds",
			Help:    "Weather provider call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenkigen_llm_calls_total",
			Help: "Total LLM generate calls by provider and outcome",
		},
		[]string{"provider", "status"},
	)

	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenkigen_generations_total",
			Help: "Total comment generations by result",
		},
		[]string{"result"},
	)

	RetriesPerGeneration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tenkigen_retries_per_generation",
			Help:    "Pair-selection retries consumed per generation",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tenkigen_pipeline_duration_seconds",
			Help:    "End-to-end pipeline duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
