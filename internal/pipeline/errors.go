package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/tenkigen/tenkigen/internal/models"
)

// Stage names tag errors and log lines with the pipeline step that
// produced them.
const (
	StageInput       = "input_normalization"
	StageFetch       = "forecast_fetch"
	StageSelection   = "forecast_selection"
	StageRetrieval   = "comment_retrieval"
	StageValidation  = "validation"
	StagePair        = "pair_selection"
	StageEvaluation  = "evaluation"
	StageComposition = "composition"
	StageOutput      = "output"
)

// Kind classifies pipeline failures.
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindLocationUnresolved Kind = "location_unresolved"
	KindWeatherProvider    Kind = "weather_provider_error"
	KindNoForecastData     Kind = "no_forecast_data"
	KindCorpusUnavailable  Kind = "corpus_unavailable"
	KindNoValidCandidate   Kind = "no_valid_candidate"
	KindLLM                Kind = "llm_error"
	KindEvaluationFailed   Kind = "evaluation_failed"
	KindCancelled          Kind = "cancelled"
)

// Error is a fatal, stage-tagged pipeline failure.
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func stageErr(kind Kind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// KindOf extracts the Kind of a pipeline error, or empty for foreign errors.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// Record is a non-fatal warning accumulated during a run and surfaced in
// the output envelope.
type Record struct {
	Message   string    `json:"message"`
	Stage     string    `json:"stage"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

func newRecord(kind Kind, stage, message string) Record {
	return Record{
		Message:   message,
		Stage:     stage,
		Kind:      kind,
		Timestamp: time.Now().In(models.JST),
	}
}
