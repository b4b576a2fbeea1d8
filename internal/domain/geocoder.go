package domain

import "context"

// Geocoder resolves free-text place names to candidate locations.
type Geocoder interface {
	// Resolve returns up to limit candidates in provider relevance order.
	// An empty result is reported as a KindNotFound error.
	Resolve(ctx context.Context, query string, limit int) ([]Location, error)
}

// ConditionsFetcher retrieves present-moment weather for a location.
type ConditionsFetcher interface {
	FetchCurrent(ctx context.Context, loc Location) (CurrentConditions, error)
}

// ForecastFetcher retrieves the forecast series for a location.
type ForecastFetcher interface {
	FetchForecast(ctx context.Context, loc Location) (Forecast, error)
}
