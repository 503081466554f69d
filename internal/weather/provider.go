package weather

import (
	"context"
	"time"
)

// Fetcher abstracts the current-weather API client.
type Fetcher interface {
	FetchWeather(ctx context.Context, city string) (WeatherRecord, error)
}

// FetchedRecord is a WeatherRecord together with the time it was received.
type FetchedRecord struct {
	City      string        `json:"city"`
	FetchedAt time.Time     `json:"fetchedAt"` // always UTC
	Record    WeatherRecord `json:"record"`
}

// Recorder receives every Success applied by the Holder.
type Recorder interface {
	Save(city string, rec FetchedRecord)
}

// Metrics observes the fetch lifecycle.
type Metrics interface {
	FetchStarted()
	FetchCompleted(outcome string, duration time.Duration)
	FetchDiscarded()
}

type noopMetrics struct{}

func (noopMetrics) FetchStarted()                        {}
func (noopMetrics) FetchCompleted(string, time.Duration) {}
func (noopMetrics) FetchDiscarded()                      {}
