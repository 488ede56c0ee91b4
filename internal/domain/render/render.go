// Package render substitutes {{key}} placeholders in template bodies.
package render

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var placeholderRegex = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Result is a rendered body plus the keys left unfilled, in order of first appearance.
type Result struct {
	Body    string
	Missing []string
}

// ExtractKeys returns the distinct placeholder keys in order of first appearance.
func ExtractKeys(body string) []string {
	matches := placeholderRegex.FindAllStringSubmatch(body, -1)
	seen := make(map[string]bool, len(matches))
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	return keys
}

// Render replaces every placeholder that has a usable answer in one pass.
// Answered placeholders that appear in the output afterwards, whether they come
// from answer text or from braces around a substitution, are neutralized with
// a zero-width space so that rendering the result again is a no-op.
func Render(body string, answers map[string]any) string {
	out := placeholderRegex.ReplaceAllStringFunc(body, func(token string) string {
		if s, ok := StringValue(answers[tokenKey(token)]); ok {
			return s
		}
		return token
	})
	return placeholderRegex.ReplaceAllStringFunc(out, func(token string) string {
		if _, ok := StringValue(answers[tokenKey(token)]); ok {
			return "{" + zeroWidthSpace + token[1:]
		}
		return token
	})
}

const zeroWidthSpace = "\u200b"

func tokenKey(token string) string { return token[2 : len(token)-2] }

// MissingKeys returns the placeholder keys without a usable answer.
func MissingKeys(body string, answers map[string]any) []string {
	var missing []string
	for _, key := range ExtractKeys(body) {
		if _, ok := StringValue(answers[key]); !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// Draft renders body and reports missing keys.
func Draft(body string, answers map[string]any) Result {
	return Result{
		Body:    Render(body, answers),
		Missing: MissingKeys(body, answers),
	}
}

// StringValue formats an answer for substitution.
// Nil and blank values are unusable. Numbers never use exponent notation.
func StringValue(v any) (string, bool) {
	var s string
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		s = x
	case bool:
		s = strconv.FormatBool(x)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	default:
		s = fmt.Sprint(x)
	}
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}
