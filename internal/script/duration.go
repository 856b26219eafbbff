package script

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AutoDuration is the sentinel meaning "as long as the narration".
const AutoDuration = "auto"

// Duration is either auto or a strictly positive number of seconds.
type Duration struct {
	seconds float64
}

// Auto returns the auto duration.
func Auto() Duration { return Duration{} }

// IsAuto reports whether the scene length follows its narration.
func (d Duration) IsAuto() bool { return d.seconds == 0 }

// Seconds returns the fixed length, or zero for auto.
func (d Duration) Seconds() float64 { return d.seconds }

func (d Duration) String() string {
	if d.IsAuto() {
		return AutoDuration
	}
	return strconv.FormatFloat(d.seconds, 'f', -1, 64)
}

// MarshalJSON writes "auto" or the number of seconds.
func (d Duration) MarshalJSON() ([]byte, error) {
	if d.IsAuto() {
		return json.Marshal(AutoDuration)
	}
	return json.Marshal(d.seconds)
}

// UnmarshalJSON accepts the same values as ParseDuration.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDuration coerces raw into a Duration. nil, "" and "auto" mean auto;
// numbers and numeric strings must be finite and strictly positive.
func ParseDuration(raw any) (Duration, error) {
	var value float64
	switch v := raw.(type) {
	case nil:
		return Auto(), nil
	case Duration:
		return v, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" || strings.EqualFold(trimmed, AutoDuration) {
			return Auto(), nil
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return Duration{}, fmt.Errorf("must be %q or a positive number, got %q", AutoDuration, v)
		}
		value = parsed
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return Duration{}, fmt.Errorf("must be %q or a positive number, got %q", AutoDuration, v.String())
		}
		value = parsed
	case float64:
		value = v
	case float32:
		value = float64(v)
	case int:
		value = float64(v)
	case int64:
		value = float64(v)
	case uint64:
		value = float64(v)
	default:
		return Duration{}, fmt.Errorf("must be %q or a positive number, got %T", AutoDuration, raw)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Duration{}, fmt.Errorf("must be a finite number, got %v", value)
	}
	if value <= 0 {
		return Duration{}, fmt.Errorf("must be positive, got %v", value)
	}
	return Duration{seconds: value}, nil
}
