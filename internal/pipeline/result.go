package pipeline

import (
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// Result is the outcome of a successful run. Current and Risk are always
// populated. Forecast is nil when ForecastErr is set.
type Result struct {
	RunID       string
	Location    domain.Location
	Current     domain.CurrentConditions
	Forecast    domain.Forecast
	ForecastErr error
	Risk        domain.RiskLevel
	FetchedAt   time.Time
}

// ForecastAvailable reports whether the forecast fetch succeeded. An
// available forecast may still be empty.
func (r Result) ForecastAvailable() bool {
	return r.ForecastErr == nil
}

// ErrorInfo is the wire form of a failure.
type ErrorInfo struct {
	Kind      domain.Kind `json:"kind"`
	Message   string      `json:"message"`
	Retryable bool        `json:"retryable"`
}

// DescribeError converts err to its wire form.
func DescribeError(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	k := domain.KindOf(err)
	return &ErrorInfo{Kind: k, Message: domain.Message(err), Retryable: k.Retryable()}
}

// Report is the JSON view of a Result shared by the HTTP API, the lookup
// command and the Kafka publisher. Forecast is null when the forecast fetch
// failed and an array, possibly empty, when it succeeded.
type Report struct {
	RunID         string                `json:"run_id"`
	Location      domain.Location       `json:"location"`
	Current       CurrentReport         `json:"current"`
	Forecast      []ForecastPointReport `json:"forecast"`
	ForecastError *ErrorInfo            `json:"forecast_error,omitempty"`
	Risk          domain.RiskLevel      `json:"risk"`
	RiskAlert     string                `json:"risk_alert"`
	FetchedAt     time.Time             `json:"fetched_at"`
}

// CurrentReport adds the icon URL to the current conditions.
type CurrentReport struct {
	domain.CurrentConditions
	IconURL string `json:"icon_url"`
}

// ForecastPointReport adds the icon URL to a forecast point.
type ForecastPointReport struct {
	domain.ForecastPoint
	IconURL string `json:"icon_url"`
}

// Report builds the JSON view. Only the first maxPoints forecast points are
// included; pass 0 or less for the whole series.
func (r Result) Report(maxPoints int) Report {
	forecast := r.Forecast
	if maxPoints > 0 {
		forecast = forecast.Head(maxPoints)
	}
	var points []ForecastPointReport
	if r.ForecastAvailable() {
		points = make([]ForecastPointReport, len(forecast))
		for i, p := range forecast {
			points[i] = ForecastPointReport{ForecastPoint: p, IconURL: p.IconURL()}
		}
	}
	return Report{
		RunID:         r.RunID,
		Location:      r.Location,
		Current:       CurrentReport{CurrentConditions: r.Current, IconURL: r.Current.IconURL()},
		Forecast:      points,
		ForecastError: DescribeError(r.ForecastErr),
		Risk:          r.Risk,
		RiskAlert:     r.Risk.Alert(),
		FetchedAt:     r.FetchedAt,
	}
}
