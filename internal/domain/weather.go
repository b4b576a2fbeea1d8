package domain

import (
	"errors"
	"fmt"
	"time"
)

// MaxForecastPoints is the longest series the 5 day / 3 hour endpoint returns.
const MaxForecastPoints = 40

const iconURLFormat = "https://openweathermap.org/img/wn/%s@2x.png"

// IconURL returns the image URL for an upstream condition icon id.
func IconURL(iconID string) string {
	if iconID == "" {
		return ""
	}
	return fmt.Sprintf(iconURLFormat, iconID)
}

// CurrentConditions is a point-in-time snapshot for one location. Every field
// is populated; absent rain and wind are reported as 0.
type CurrentConditions struct {
	TemperatureC    float64   `json:"temperature_c"`
	HumidityPct     int       `json:"humidity_pct"`
	ConditionText   string    `json:"condition"`
	ConditionIconID string    `json:"icon"`
	RainLastHourMm  float64   `json:"rain_1h_mm"`
	WindSpeedMs     float64   `json:"wind_speed_ms"`
	ObservedAt      time.Time `json:"observed_at"`
}

// Validate checks the value ranges of a normalized reading.
func (c CurrentConditions) Validate() error {
	if c.HumidityPct < 0 || c.HumidityPct > 100 {
		return fmt.Errorf("humidity %d out of range [0,100]", c.HumidityPct)
	}
	if c.RainLastHourMm < 0 {
		return fmt.Errorf("rain %v mm is negative", c.RainLastHourMm)
	}
	if c.WindSpeedMs < 0 {
		return fmt.Errorf("wind speed %v m/s is negative", c.WindSpeedMs)
	}
	return nil
}

// Risk classifies the reading.
func (c CurrentConditions) Risk() RiskLevel {
	return Classify(c.HumidityPct, c.RainLastHourMm)
}

// IconURL returns the image URL for the condition icon.
func (c CurrentConditions) IconURL() string { return IconURL(c.ConditionIconID) }

// ForecastPoint is one timestamped reading in a forecast series.
type ForecastPoint struct {
	Timestamp        time.Time `json:"time"`
	TemperatureC     float64   `json:"temperature_c"`
	HumidityPct      int       `json:"humidity_pct"`
	RainInIntervalMm float64   `json:"rain_3h_mm"`
	ConditionText    string    `json:"condition"`
	ConditionIconID  string    `json:"icon"`
}

// IconURL returns the image URL for the condition icon.
func (p ForecastPoint) IconURL() string { return IconURL(p.ConditionIconID) }

// Forecast is a series of points with strictly increasing timestamps.
// Construct it with NewForecast.
type Forecast []ForecastPoint

// ErrForecastOrder is returned by NewForecast when timestamps do not strictly increase.
var ErrForecastOrder = errors.New("forecast timestamps not strictly increasing")

// NewForecast validates points and returns them as a Forecast. The slice is
// copied so later changes by the caller are not observed.
func NewForecast(points []ForecastPoint) (Forecast, error) {
	if len(points) > MaxForecastPoints {
		return nil, fmt.Errorf("forecast has %d points, limit is %d", len(points), MaxForecastPoints)
	}
	for i, p := range points {
		if p.Timestamp.IsZero() {
			return nil, fmt.Errorf("forecast point %d has no timestamp", i)
		}
		if p.RainInIntervalMm < 0 {
			return nil, fmt.Errorf("forecast point %d: rain %v mm is negative", i, p.RainInIntervalMm)
		}
		if i > 0 && !p.Timestamp.After(points[i-1].Timestamp) {
			return nil, fmt.Errorf("%w: point %d at %s follows %s", ErrForecastOrder,
				i, p.Timestamp.Format(time.RFC3339), points[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	f := make(Forecast, len(points))
	copy(f, points)
	return f, nil
}

// Head returns at most the first n points.
func (f Forecast) Head(n int) Forecast {
	if n < 0 {
		n = 0
	}
	if n > len(f) {
		n = len(f)
	}
	return f[:n:n]
}

// TotalRainMm sums the interval rainfall across the series.
func (f Forecast) TotalRainMm() float64 {
	var total float64
	for _, p := range f {
		total += p.RainInIntervalMm
	}
	return total
}
