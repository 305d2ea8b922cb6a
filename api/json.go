package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CleanJSON strips Markdown code fences that models sometimes wrap around JSON.
func CleanJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// DecodeJSON cleans text and unmarshals it into v.
func DecodeJSON(text string, v any) error {
	s := CleanJSON(text)
	if s == "" {
		return fmt.Errorf("empty response")
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("parse model JSON: %w", err)
	}
	return nil
}
