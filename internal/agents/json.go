package agents

import (
	"encoding/json"
	"strings"
)

// decodeOracleJSON parses a JSON payload out of generation-oracle output.
// Oracles frequently wrap JSON in markdown code fences despite instructions
// not to, so the fences are stripped before decoding.
func decodeOracleJSON(raw string, v interface{}) error {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return json.Unmarshal([]byte(strings.TrimSpace(s)), v)
}
