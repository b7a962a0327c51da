package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// trailingCommaRegex fixes trailing commas before a closing brace/bracket,
// a common LLM output error.
var trailingCommaRegex = regexp.MustCompile(`,\s*([}\]])`)

// ExtractAndParseJSON extracts a JSON value from an LLM response and
// unmarshals it into T. It tolerates markdown code fences, leading prose
// before the JSON, trailing text after it, trailing commas, and truncated
// output.
func ExtractAndParseJSON[T any](response string) (T, error) {
	var result T

	cleaned := stripCodeFences(response)
	if cleaned == "" {
		return result, fmt.Errorf("no JSON found in response")
	}

	// The whole response may be a JSON-encoded string containing JSON.
	if strings.HasPrefix(cleaned, `"`) {
		var asString string
		if err := json.Unmarshal([]byte(cleaned), &asString); err == nil {
			return ExtractAndParseJSON[T](asString)
		}
	}

	idx := strings.IndexAny(cleaned, "{[")
	if idx == -1 {
		return result, fmt.Errorf("no JSON start ({ or [) found")
	}

	// A Decoder parses one JSON value and ignores whatever trails it.
	jsonPart := cleaned[idx:]
	if err := json.NewDecoder(strings.NewReader(jsonPart)).Decode(&result); err != nil {
		repaired := repairJSON(jsonPart)
		if repaired != jsonPart {
			if err2 := json.NewDecoder(strings.NewReader(repaired)).Decode(&result); err2 == nil {
				return result, nil
			}
		}
		return result, fmt.Errorf("parse JSON: %w", err)
	}
	return result, nil
}

// repairJSON fixes trailing commas and rebalances quotes/braces in truncated
// output. It is deliberately conservative: anything it cannot fix is left for
// the caller's decode error.
func repairJSON(input string) string {
	result := trailingCommaRegex.ReplaceAllString(input, `$1`)
	return closeTruncated(result)
}

// closeTruncated closes a string cut off mid-value and appends missing
// closing brackets and braces.
func closeTruncated(input string) string {
	quoteCount := 0
	escaped := false
	for _, c := range input {
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == '"' {
			quoteCount++
		}
	}
	if quoteCount%2 != 0 {
		input += `"`
	}

	openBrackets := strings.Count(input, "[") - strings.Count(input, "]")
	openBraces := strings.Count(input, "{") - strings.Count(input, "}")
	input += strings.Repeat("]", max(openBrackets, 0))
	input += strings.Repeat("}", max(openBraces, 0))
	return input
}

// stripCodeFences removes surrounding markdown code fences.
func stripCodeFences(response string) string {
	response = strings.TrimSpace(response)
	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}
