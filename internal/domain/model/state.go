package model

import "strconv"

// Common entity state values.
const (
	StateOn          = "on"
	StateOff         = "off"
	StateClosed      = "closed"
	StateUnavailable = "unavailable"
	StateUnknown     = "unknown"
)

// TargetState is a point-in-time reading of a controlled target.
type TargetState struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// Float returns a numeric attribute. Numeric strings are accepted since
// some providers publish everything as text.
func (s *TargetState) Float(key string) (float64, bool) {
	if s == nil || s.Attributes == nil {
		return 0, false
	}
	switch v := s.Attributes[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// Strings returns a list-of-strings attribute.
func (s *TargetState) Strings(key string) []string {
	if s == nil || s.Attributes == nil {
		return nil
	}
	switch v := s.Attributes[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Pair returns a two element numeric attribute such as hs_color.
func (s *TargetState) Pair(key string) (float64, float64, bool) {
	if s == nil || s.Attributes == nil {
		return 0, 0, false
	}
	switch v := s.Attributes[key].(type) {
	case []float64:
		if len(v) == 2 {
			return v[0], v[1], true
		}
	case []any:
		if len(v) == 2 {
			a, ok1 := v[0].(float64)
			b, ok2 := v[1].(float64)
			return a, b, ok1 && ok2
		}
	}
	return 0, 0, false
}

// NativeCommand is a service call understood by a target provider,
// e.g. {Domain: "light", Service: "turn_on", Data: {"brightness": 128}}.
type NativeCommand struct {
	Domain  string         `json:"domain"`
	Service string         `json:"service"`
	Data    map[string]any `json:"data,omitempty"`
}

func (c NativeCommand) String() string {
	return c.Domain + "." + c.Service
}
