// Package domain models the weather readings and flood-risk classification
// served by the flood-risk service.
//
// # Data Source
//
// All readings come from the OpenWeatherMap HTTP API. A free-text city query
// is resolved through the Geocoding API (geo/1.0/direct) and the chosen
// coordinates are used against the Current Weather (data/2.5/weather) and
// 5 day / 3 hour Forecast (data/2.5/forecast) endpoints, always in metric
// units.
//
// # Upstream Conventions
//
// Status field ("cod"):
//
//	The current-weather endpoint reports success as the number 200, the
//	forecast endpoint as the string "200". Error bodies use either form
//	("404", 401). Both are normalized to a single success/failure bit by the
//	adapter; nothing downstream depends on which form was sent.
//
// Precipitation:
//
//	"rain.1h" (current) and "rain.3h" (forecast) are millimetres accumulated
//	over the trailing hour / three-hour window. The object is omitted
//	entirely when no rain was reported, which is read as 0 mm.
//
// Wind:
//
//	"wind.speed" in metres per second; absent is read as 0.
//
// Forecast timestamps:
//
//	"dt" is a Unix timestamp (UTC); "dt_txt" is the same instant formatted
//	"2006-01-02 15:04:05" in UTC. Points are nominally 3 hours apart, at most
//	40 of them (5 days).
//
// # Risk Classification
//
// Flood risk is a pure function of relative humidity and the trailing
// one-hour rainfall, evaluated top-down with strict inequalities:
//
//	High:     rain > 50 mm  OR  humidity > 85 %
//	Moderate: rain > 20 mm
//	Safe:     otherwise
//
// High is checked in full before Moderate is considered, so 25 mm of rain at
// 90 % humidity is High even though the rain alone would only be Moderate.
// See [Classify].
//
// # Errors
//
// Failures carry a [Kind] so callers can choose between "try another query"
// ([KindNotFound]), "the provider is misbehaving" ([KindUpstreamError]) and
// "the provider could not be reached" ([KindUpstreamUnavailable]) without
// inspecting message text. See [KindOf].
package domain
