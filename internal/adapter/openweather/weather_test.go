package openweather

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var forecastStart = time.Date(2024, time.October, 15, 12, 0, 0, 0, time.UTC)

// currentBody mirrors a data/2.5/weather response for Chennai during the monsoon.
func currentBody() map[string]any {
	return map[string]any{
		"coord":   map[string]any{"lon": 80.27, "lat": 13.08},
		"weather": []map[string]any{{"id": 501, "main": "Rain", "description": "moderate rain", "icon": "10d"}},
		"main":    map[string]any{"temp": 31.0, "feels_like": 38.2, "pressure": 1006, "humidity": 90},
		"wind":    map[string]any{"speed": 4.63, "deg": 240},
		"rain":    map[string]any{"1h": 5},
		"dt":      forecastStart.Unix(),
		"name":    "Chennai",
		"cod":     200,
	}
}

// forecastBody builds a data/2.5/forecast response of n three-hourly entries.
// Every third entry omits the rain block.
func forecastBody(n int) map[string]any {
	list := make([]map[string]any, n)
	for i := range list {
		ts := forecastStart.Add(time.Duration(i) * 3 * time.Hour)
		item := map[string]any{
			"dt":      ts.Unix(),
			"dt_txt":  ts.Format(dtTxtLayout),
			"main":    map[string]any{"temp": 28.0 + float64(i%8)/2, "humidity": 70 + i%20},
			"weather": []map[string]any{{"description": "light rain", "icon": "10n"}},
		}
		if i%3 != 0 {
			item["rain"] = map[string]any{"3h": float64(i) / 10}
		}
		list[i] = item
	}
	return map[string]any{"cod": "200", "message": 0, "cnt": n, "list": list}
}

func TestFetchCurrent_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "13.0836939", r.URL.Query().Get("lat"))
		assert.Equal(t, "80.270186", r.URL.Query().Get("lon"))
		assert.Equal(t, testAPIKey, r.URL.Query().Get("appid"))
		writeJSON(t, w, http.StatusOK, currentBody())
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	got, err := c.FetchCurrent(context.Background(), chennai)
	require.NoError(t, err)

	want := domain.CurrentConditions{
		TemperatureC:    31.0,
		HumidityPct:     90,
		ConditionText:   "moderate rain",
		ConditionIconID: "10d",
		RainLastHourMm:  5,
		WindSpeedMs:     4.63,
		ObservedAt:      forecastStart,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("conditions mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, domain.RiskHigh, domain.Classify(got.HumidityPct, got.RainLastHourMm))
}

func TestFetchCurrent_DefaultsRainAndWind(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2024, time.October, 15, 6, 0, 0, 0, time.UTC))
	domain.SetClock(fake)
	t.Cleanup(func() { domain.SetClock(nil) })

	body := currentBody()
	delete(body, "rain")
	delete(body, "wind")
	delete(body, "dt")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, body)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	got, err := c.FetchCurrent(context.Background(), chennai)
	require.NoError(t, err)
	assert.Zero(t, got.RainLastHourMm)
	assert.Zero(t, got.WindSpeedMs)
	assert.Equal(t, fake.Now(), got.ObservedAt)
}

func TestFetchCurrent_StatusForms(t *testing.T) {
	tests := []struct {
		name     string
		cod      any
		wantKind domain.Kind
	}{
		{"numeric success", 200, domain.KindUnknown},
		{"string success", "200", domain.KindUnknown},
		{"string failure", "404", domain.KindUpstreamError},
		{"numeric failure", 500, domain.KindUpstreamError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := currentBody()
			body["cod"] = tt.cod
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(t, w, http.StatusOK, body)
			}))
			defer srv.Close()

			c := testClient(srv.URL, 0)
			_, err := c.FetchCurrent(context.Background(), chennai)
			if tt.wantKind == domain.KindUnknown {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, domain.KindOf(err))
		})
	}
}

func TestFetchCurrent_MissingRequiredFields(t *testing.T) {
	mutations := map[string]func(map[string]any){
		"temperature": func(b map[string]any) { b["main"] = map[string]any{"humidity": 90} },
		"humidity":    func(b map[string]any) { b["main"] = map[string]any{"temp": 31.0} },
		"main":        func(b map[string]any) { delete(b, "main") },
		"weather":     func(b map[string]any) { b["weather"] = []map[string]any{} },
		"description": func(b map[string]any) { b["weather"] = []map[string]any{{"icon": "10d"}} },
		"icon":        func(b map[string]any) { b["weather"] = []map[string]any{{"description": "rain"}} },
		"humidity>100": func(b map[string]any) {
			b["main"] = map[string]any{"temp": 31.0, "humidity": 140}
		},
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			body := currentBody()
			mutate(body)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(t, w, http.StatusOK, body)
			}))
			defer srv.Close()

			c := testClient(srv.URL, 0)
			_, err := c.FetchCurrent(context.Background(), chennai)
			require.Error(t, err)
			assert.Equal(t, domain.KindUpstreamError, domain.KindOf(err))
		})
	}
}

func TestFetchCurrent_InvalidLocation(t *testing.T) {
	c := testClient("http://127.0.0.1:1", 0)
	_, err := c.FetchCurrent(context.Background(), domain.Location{Latitude: 95})
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}

func TestFetchForecast_FullSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/forecast", r.URL.Path)
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		writeJSON(t, w, http.StatusOK, forecastBody(40))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	got, err := c.FetchForecast(context.Background(), chennai)
	require.NoError(t, err)
	require.Len(t, got, 40)

	for i, p := range got {
		assert.Equal(t, forecastStart.Add(time.Duration(i)*3*time.Hour), p.Timestamp, "point %d", i)
		if i%3 == 0 {
			assert.Zero(t, p.RainInIntervalMm, "point %d without rain.3h", i)
		} else {
			assert.InDelta(t, float64(i)/10, p.RainInIntervalMm, 1e-9, "point %d", i)
		}
	}

	want := domain.ForecastPoint{
		Timestamp:        forecastStart.Add(3 * time.Hour),
		TemperatureC:     28.5,
		HumidityPct:      71,
		RainInIntervalMm: 0.1,
		ConditionText:    "light rain",
		ConditionIconID:  "10n",
	}
	if diff := cmp.Diff(want, got[1]); diff != "" {
		t.Fatalf("point mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchForecast_NumericStatus(t *testing.T) {
	body := forecastBody(2)
	body["cod"] = 200
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, body)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	got, err := c.FetchForecast(context.Background(), chennai)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFetchForecast_EmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, forecastBody(0))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	got, err := c.FetchForecast(context.Background(), chennai)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFetchForecast_CountMismatch(t *testing.T) {
	tests := []struct {
		name string
		cnt  int
		list int
	}{
		{"empty list", 40, 0},
		{"truncated list", 40, 3},
		{"extra entries", 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := forecastBody(tt.list)
			body["cnt"] = tt.cnt
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(t, w, http.StatusOK, body)
			}))
			defer srv.Close()

			c := testClient(srv.URL, 0)
			_, err := c.FetchForecast(context.Background(), chennai)
			require.Error(t, err)
			assert.Equal(t, domain.KindUpstreamError, domain.KindOf(err))
		})
	}
}

func TestFetchForecast_MissingList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"cod": "200", "message": 0})
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	_, err := c.FetchForecast(context.Background(), chennai)
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstreamError, domain.KindOf(err))
}

func TestFetchForecast_FailureStatusInBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"cod": "400", "message": "wrong latitude"})
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	_, err := c.FetchForecast(context.Background(), chennai)
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstreamError, domain.KindOf(err))
	assert.Contains(t, err.Error(), "wrong latitude")
}

func TestFetchForecast_NonMonotonic(t *testing.T) {
	body := forecastBody(4)
	list := body["list"].([]map[string]any)
	list[2]["dt"], list[3]["dt"] = list[3]["dt"], list[2]["dt"]

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, body)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	_, err := c.FetchForecast(context.Background(), chennai)
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstreamError, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrForecastOrder)
}

func TestFetchForecast_DtTxtFallback(t *testing.T) {
	body := forecastBody(3)
	for _, item := range body["list"].([]map[string]any) {
		delete(item, "dt")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, body)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	got, err := c.FetchForecast(context.Background(), chennai)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, forecastStart.Add(6*time.Hour), got[2].Timestamp)
}

func TestFetchForecast_MalformedEntry(t *testing.T) {
	for _, field := range []string{"main", "weather"} {
		t.Run(fmt.Sprintf("missing %s", field), func(t *testing.T) {
			body := forecastBody(3)
			delete(body["list"].([]map[string]any)[1], field)

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(t, w, http.StatusOK, body)
			}))
			defer srv.Close()

			c := testClient(srv.URL, 0)
			_, err := c.FetchForecast(context.Background(), chennai)
			require.Error(t, err)
			assert.Equal(t, domain.KindUpstreamError, domain.KindOf(err))
			assert.Contains(t, err.Error(), "list[1]")
		})
	}
}
