package payload

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// ErrEnvelopeFailed is returned when a wrapped payload reports success=false.
var ErrEnvelopeFailed = errors.New("payload envelope reported failure")

// Envelope is the wrapped shape some clients send:
// {"success": true, "data": {"html": ..., "css": ..., "js": ...}}.
type Envelope struct {
	Success *bool                  `json:"success,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Unwrap accepts either the flat contract or the wrapped envelope and
// returns the flat payload. The flat contract wins when both are present.
func Unwrap(data []byte) (CodePayload, error) {
	var raw map[string]interface{}
	if err := sonic.ConfigStd.Unmarshal(data, &raw); err != nil {
		return CodePayload{}, fmt.Errorf("unwrap payload: %w", err)
	}
	if raw == nil {
		return CodePayload{}, fmt.Errorf("unwrap payload: not an object")
	}

	if hasAny(raw, "html", "css", "js") {
		return FromMap(raw), nil
	}

	if ok, present := raw["success"].(bool); present && !ok {
		msg, _ := raw["error"].(string)
		if msg == "" {
			return CodePayload{}, ErrEnvelopeFailed
		}
		return CodePayload{}, fmt.Errorf("%w: %s", ErrEnvelopeFailed, msg)
	}

	if inner, ok := raw["data"].(map[string]interface{}); ok {
		return FromMap(inner), nil
	}

	return CodePayload{}, fmt.Errorf("unwrap payload: no html, css or js fields")
}

func hasAny(m map[string]interface{}, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}
