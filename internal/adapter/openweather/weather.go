package openweather

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

const (
	opCurrent  = "weather.current"
	opForecast = "weather.forecast"
)

func coordParams(loc domain.Location) url.Values {
	return url.Values{
		"lat":   {strconv.FormatFloat(loc.Latitude, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(loc.Longitude, 'f', -1, 64)},
		"units": {"metric"},
	}
}

// FetchCurrent retrieves present-moment conditions for loc. Absent rain and
// wind blocks are reported as zero.
func (c *Client) FetchCurrent(ctx context.Context, loc domain.Location) (domain.CurrentConditions, error) {
	if err := loc.Validate(); err != nil {
		return domain.CurrentConditions{}, domain.InvalidInputf(opCurrent, "%v", err)
	}

	body, err := c.get(ctx, endpointCurrent, opCurrent, "/data/2.5/weather", coordParams(loc))
	if err != nil {
		return domain.CurrentConditions{}, err
	}

	var resp currentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.CurrentConditions{}, domain.UpstreamErrorf(opCurrent, err, "decode response")
	}
	if !succeeded(resp.Cod) {
		return domain.CurrentConditions{}, domain.UpstreamErrorf(opCurrent,
			&statusError{code: int(*resp.Cod), message: errorMessage(body)}, "provider reported failure")
	}

	r, err := resp.readings()
	if err != nil {
		return domain.CurrentConditions{}, domain.UpstreamErrorf(opCurrent, err, "malformed response")
	}

	observedAt := domain.Now()
	if resp.Dt > 0 {
		if ts, err := resp.timestamp(); err == nil {
			observedAt = ts
		}
	}

	cur := domain.CurrentConditions{
		TemperatureC:    r.tempC,
		HumidityPct:     r.humidityPct,
		ConditionText:   r.text,
		ConditionIconID: r.icon,
		RainLastHourMm:  resp.rain1h(),
		WindSpeedMs:     resp.windSpeed(),
		ObservedAt:      observedAt,
	}
	if err := cur.Validate(); err != nil {
		return domain.CurrentConditions{}, domain.UpstreamErrorf(opCurrent, err, "malformed response")
	}
	return cur, nil
}

// FetchForecast retrieves the 5 day / 3 hour series for loc. A successful
// response with an empty list yields an empty Forecast; a response without
// a list, or whose cnt disagrees with the list length, is malformed.
func (c *Client) FetchForecast(ctx context.Context, loc domain.Location) (domain.Forecast, error) {
	if err := loc.Validate(); err != nil {
		return nil, domain.InvalidInputf(opForecast, "%v", err)
	}

	body, err := c.get(ctx, endpointForecast, opForecast, "/data/2.5/forecast", coordParams(loc))
	if err != nil {
		return nil, err
	}

	var resp forecastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domain.UpstreamErrorf(opForecast, err, "decode response")
	}
	if !succeeded(resp.Cod) {
		return nil, domain.UpstreamErrorf(opForecast,
			&statusError{code: int(*resp.Cod), message: errorMessage(body)}, "provider reported failure")
	}
	if resp.List == nil {
		if resp.Cnt != nil && *resp.Cnt == 0 {
			return domain.Forecast{}, nil
		}
		return nil, domain.UpstreamErrorf(opForecast, errMissingField, "response has no list")
	}

	items := *resp.List
	if resp.Cnt != nil && *resp.Cnt != len(items) {
		return nil, domain.UpstreamErrorf(opForecast, nil, "cnt is %d but list has %d entries", *resp.Cnt, len(items))
	}
	points := make([]domain.ForecastPoint, 0, len(items))
	for i, item := range items {
		r, err := item.readings()
		if err != nil {
			return nil, domain.UpstreamErrorf(opForecast, err, "list[%d]", i)
		}
		ts, err := item.timestamp()
		if err != nil {
			return nil, domain.UpstreamErrorf(opForecast, err, "list[%d]", i)
		}
		points = append(points, domain.ForecastPoint{
			Timestamp:        ts,
			TemperatureC:     r.tempC,
			HumidityPct:      r.humidityPct,
			RainInIntervalMm: item.rain3h(),
			ConditionText:    r.text,
			ConditionIconID:  r.icon,
		})
	}

	forecast, err := domain.NewForecast(points)
	if err != nil {
		c.logger.Error("forecast failed consistency check", "lat", loc.Latitude, "lon", loc.Longitude, "error", err)
		return nil, domain.UpstreamErrorf(opForecast, err, "inconsistent series")
	}
	return forecast, nil
}
