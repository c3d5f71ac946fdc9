package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Sanitize strips a single leading/trailing markdown code fence from an
// oracle response. Both the ```json and bare ``` forms are handled; anything
// else is returned untouched. The oracle is asked for raw JSON but routinely
// wraps it in a fence anyway.
func Sanitize(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	} else {
		return s
	}

	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseObject sanitizes raw and unmarshals it into a JSON object. Invalid
// JSON or a non-object value is a hard failure, never coerced into a
// default: a structurally broken response must surface so the call can be
// retried or investigated.
func ParseObject(raw string) (map[string]interface{}, error) {
	cleaned := Sanitize(raw)

	var v interface{}
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return nil, fmt.Errorf("oracle response is not valid JSON: %w", err)
	}

	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("oracle response is not a JSON object (got %T)", v)
	}
	return obj, nil
}
