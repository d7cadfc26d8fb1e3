package panel

import (
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
)

// Signals provides typed access to Datastar signal values. Datastar sends
// all signals as a flat JSON object in the request body.
type Signals map[string]any

// ParseSignals parses Datastar signals from a raw request body. An empty
// body yields no signals.
func ParseSignals(body []byte) (Signals, error) {
	signals := Signals{}
	if len(body) == 0 {
		return signals, nil
	}
	if err := json.Unmarshal(body, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// String returns a string signal value, or "" if absent.
func (s Signals) String(key string) string {
	if str, ok := s[key].(string); ok {
		return str
	}
	return ""
}

// Strings returns a string-array signal. Checkbox groups bound with
// data-bind produce arrays; a lone string is treated as one element.
func (s Signals) Strings(key string) []string {
	switch v := s[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok && str != "" {
				out = append(out, str)
			}
		}
		return out
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}

// SignalsInput captures the raw body before streaming starts.
type SignalsInput struct {
	Session string `header:"X-Session" doc:"Viewer session ID"`
	RawBody []byte
}

// MustParse parses signals or returns a Huma 400.
func (i *SignalsInput) MustParse() (Signals, error) {
	signals, err := ParseSignals(i.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	return signals, nil
}

// session prefers the header and falls back to the "session" signal.
func (i *SignalsInput) session(signals Signals) string {
	if i.Session != "" {
		return i.Session
	}
	return signals.String("session")
}
