package domain

import "fmt"

// RiskLevel is the discrete flood-risk classification. Levels are ordered by
// severity, so RiskSafe < RiskModerate < RiskHigh.
type RiskLevel int

const (
	RiskSafe RiskLevel = iota
	RiskModerate
	RiskHigh
)

// Classification thresholds. All comparisons are strict.
const (
	HighRainThresholdMm      = 50.0
	HighHumidityThresholdPct = 85
	ModerateRainThresholdMm  = 20.0
)

// Classify maps a humidity percentage and the trailing one-hour rainfall to a
// RiskLevel. It is total and deterministic; High is evaluated before Moderate.
func Classify(humidityPct int, rainLastHourMm float64) RiskLevel {
	if rainLastHourMm > HighRainThresholdMm || humidityPct > HighHumidityThresholdPct {
		return RiskHigh
	}
	if rainLastHourMm > ModerateRainThresholdMm {
		return RiskModerate
	}
	return RiskSafe
}

func (r RiskLevel) String() string {
	switch r {
	case RiskSafe:
		return "safe"
	case RiskModerate:
		return "moderate"
	case RiskHigh:
		return "high"
	default:
		return fmt.Sprintf("risk(%d)", int(r))
	}
}

// Alert returns the headline shown to users for this level.
func (r RiskLevel) Alert() string {
	switch r {
	case RiskHigh:
		return "High Flood Risk!"
	case RiskModerate:
		return "Moderate Flood Risk"
	default:
		return "Safe Conditions"
	}
}

// MarshalText encodes the level as "safe", "moderate" or "high".
func (r RiskLevel) MarshalText() ([]byte, error) {
	switch r {
	case RiskSafe, RiskModerate, RiskHigh:
		return []byte(r.String()), nil
	}
	return nil, fmt.Errorf("invalid risk level %d", int(r))
}

// UnmarshalText parses the output of MarshalText.
func (r *RiskLevel) UnmarshalText(b []byte) error {
	switch string(b) {
	case "safe":
		*r = RiskSafe
	case "moderate":
		*r = RiskModerate
	case "high":
		*r = RiskHigh
	default:
		return fmt.Errorf("invalid risk level %q", b)
	}
	return nil
}
