package interfaces

import (
	"context"
	"time"
)

// Messenger delivers text and files to a channel.
// UploadFile hides any multi-phase upload protocol of the transport.
type Messenger interface {
	SendText(ctx context.Context, channel, text string) error
	UploadFile(ctx context.Context, channel string, content []byte, filename string) error
}

// ChartRenderer turns prepared chart series into a paginated document.
type ChartRenderer interface {
	RenderDocument(doc ChartDocument) ([]byte, error)
}

// ChartDocument is the input to a ChartRenderer.
type ChartDocument struct {
	Title          string
	Cover          string // Optional markdown rendered as the first page
	BenchmarkLabel string
	Charts         []ChartPanel
}

// ChartPanel is one equity-vs-benchmark comparison.
type ChartPanel struct {
	Title     string
	Dates     []time.Time
	Equity    []float64
	Benchmark []float64
}
