package models

import (
	"time"
)

// Direction classifies the benchmark's move on the target date.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Outperformer is an equity with a strictly positive return on the target date.
type Outperformer struct {
	Symbol string
	Code   string
	Name   string
	Return float64
}

// Evaluation is the outcome of gating and classifying one target date.
type Evaluation struct {
	TargetDate      time.Time
	BenchmarkReturn float64
	Direction       Direction
	Outperformers   []Outperformer
}

// NewsQuery identifies the equity a news lookup is for.
type NewsQuery struct {
	Text string // Free-text search, the display name
	Code string // Exchange code, for sources keyed by symbol
}

// NewsItem is one headline returned by a news source.
type NewsItem struct {
	Headline  string
	Link      string
	Source    string
	Published time.Time
}

// EquityNews pairs an outperformer with its headlines. An empty Items renders
// the "no news" placeholder.
type EquityNews struct {
	Equity Outperformer
	Items  []NewsItem
}

// ChartSeries holds prices rebased to 1.0 on the first row of the chart window.
type ChartSeries struct {
	Dates     []time.Time
	Benchmark []float64
	Equities  map[string][]float64
}

// RunStatus describes how far a run progressed.
type RunStatus string

const (
	RunStatusCompleted       RunStatus = "completed"        // document delivered (or attempted)
	RunStatusNoData          RunStatus = "no_data"          // target date absent, one notice sent
	RunStatusNoOutperformers RunStatus = "no_outperformers" // summary sent, nothing else
	RunStatusSkipped         RunStatus = "skipped"          // gate mode suppressed the report
	RunStatusFailed          RunStatus = "failed"
)

// DeliveryOutcome records one outbound message attempt.
type DeliveryOutcome struct {
	Kind  string // "summary", "news", "document", "no_data"
	Error string
}

// RunResult is the in-memory record of a single run. It is logged, never persisted.
type RunResult struct {
	RunID      string
	TargetDate time.Time
	Status     RunStatus
	Evaluation *Evaluation
	ReportPath string
	Delivery   []DeliveryOutcome
}

// Failed returns the delivery outcomes that carry an error.
func (r *RunResult) Failed() []DeliveryOutcome {
	var failed []DeliveryOutcome
	for _, d := range r.Delivery {
		if d.Error != "" {
			failed = append(failed, d)
		}
	}
	return failed
}
