package openweather

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dtTxtLayout is the format of the forecast "dt_txt" field (UTC).
const dtTxtLayout = "2006-01-02 15:04:05"

// statusCode is the "cod" field. The current-weather endpoint sends a
// number, the forecast endpoint a string; error bodies use either.
type statusCode int

func (s *statusCode) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(str))
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("status code %q is not numeric", b)
	}
	*s = statusCode(n)
	return nil
}

// succeeded reports whether an optional status field signals success. An absent
// field defers to the HTTP status, which has already been checked.
func succeeded(s *statusCode) bool {
	return s == nil || *s == 200
}

// errorMessage pulls "message" out of an error body, which may be a string or a number.
func errorMessage(body []byte) string {
	var e struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err != nil || len(e.Message) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Message, &s); err == nil {
		return s
	}
	return string(e.Message)
}

// Geocoding API response types.

type geocodeEntry struct {
	Name    *string  `json:"name"`
	Country string   `json:"country"`
	State   string   `json:"state"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

// Weather and forecast API response types.

type mainBlock struct {
	Temp     *float64 `json:"temp"`
	Humidity *float64 `json:"humidity"`
}

type conditionBlock struct {
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
}

type precipitationBlock struct {
	OneHour   *float64 `json:"1h"`
	ThreeHour *float64 `json:"3h"`
}

type windBlock struct {
	Speed *float64 `json:"speed"`
}

// entry is shared by the current-weather body and each forecast list item.
type entry struct {
	Dt      int64               `json:"dt"`
	DtTxt   string              `json:"dt_txt"`
	Main    *mainBlock          `json:"main"`
	Weather []conditionBlock    `json:"weather"`
	Rain    *precipitationBlock `json:"rain"`
	Wind    *windBlock          `json:"wind"`
}

type currentResponse struct {
	Cod *statusCode `json:"cod"`
	entry
}

type forecastResponse struct {
	Cod  *statusCode `json:"cod"`
	Cnt  *int        `json:"cnt"`
	List *[]entry    `json:"list"`
}

// readings are the fields every entry must carry.
type readings struct {
	tempC       float64
	humidityPct int
	text        string
	icon        string
}

var errMissingField = errors.New("missing required field")

func (e entry) readings() (readings, error) {
	if e.Main == nil || e.Main.Temp == nil {
		return readings{}, fmt.Errorf("%w: main.temp", errMissingField)
	}
	if e.Main.Humidity == nil {
		return readings{}, fmt.Errorf("%w: main.humidity", errMissingField)
	}
	if len(e.Weather) == 0 {
		return readings{}, fmt.Errorf("%w: weather[0]", errMissingField)
	}
	w := e.Weather[0]
	if w.Description == nil {
		return readings{}, fmt.Errorf("%w: weather[0].description", errMissingField)
	}
	if w.Icon == nil {
		return readings{}, fmt.Errorf("%w: weather[0].icon", errMissingField)
	}
	return readings{
		tempC:       *e.Main.Temp,
		humidityPct: int(*e.Main.Humidity + 0.5),
		text:        *w.Description,
		icon:        *w.Icon,
	}, nil
}

func (e entry) rain1h() float64 {
	if e.Rain == nil || e.Rain.OneHour == nil {
		return 0
	}
	return *e.Rain.OneHour
}

func (e entry) rain3h() float64 {
	if e.Rain == nil || e.Rain.ThreeHour == nil {
		return 0
	}
	return *e.Rain.ThreeHour
}

func (e entry) windSpeed() float64 {
	if e.Wind == nil || e.Wind.Speed == nil {
		return 0
	}
	return *e.Wind.Speed
}

// timestamp prefers the Unix "dt" and falls back to "dt_txt".
func (e entry) timestamp() (time.Time, error) {
	if e.Dt > 0 {
		return time.Unix(e.Dt, 0).UTC(), nil
	}
	if e.DtTxt == "" {
		return time.Time{}, fmt.Errorf("%w: dt", errMissingField)
	}
	t, err := time.ParseInLocation(dtTxtLayout, e.DtTxt, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse dt_txt %q: %w", e.DtTxt, err)
	}
	return t, nil
}
