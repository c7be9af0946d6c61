package ingest

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	apperrors "github.com/vanplanner/VanLayoutMCP/internal/errors"
	"github.com/vanplanner/VanLayoutMCP/internal/utils"
)

var (
	trailingCommaPattern = regexp.MustCompile(`,\s*([\]}])`)
	bareKeyPattern       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_\-]*)\s*:`)
	newlinePattern       = regexp.MustCompile(`\r?\n`)

	errTopLevel = errors.New("top-level JSON value must be an object or an array")
)

// parseDocument decodes raw into a JSON object. A strict parse is tried
// first; on failure the text is repaired once and parsed again. The second
// return value reports whether the repair path produced the document.
func parseDocument(raw string) (map[string]interface{}, bool, error) {
	doc, err := decodeTopLevel(raw)
	if err == nil {
		return doc, false, nil
	}

	repaired := Repair(raw)
	doc, repairErr := decodeTopLevel(repaired)
	if repairErr != nil {
		return nil, true, apperrors.NewInvalidAIResponseError(
			"AI response is not valid JSON, even after repair", raw, repairErr).
			WithDetail("parse_error", err.Error())
	}
	return doc, true, nil
}

// decodeTopLevel accepts an object, or a bare array which is read as the
// layout list.
func decodeTopLevel(text string) (map[string]interface{}, error) {
	var v interface{}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	switch top := v.(type) {
	case map[string]interface{}:
		return top, nil
	case []interface{}:
		return map[string]interface{}{"layout": top}, nil
	default:
		return nil, errTopLevel
	}
}

// Repair applies the heuristic fixes for common LLM JSON mistakes: prose and
// code fences around the payload, trailing commas, unquoted keys and raw
// newlines. String literals are left untouched except for newlines, which
// are invalid inside JSON strings anyway.
//
// The result may parse but still be wrong; callers run it through the full
// validation pipeline.
func Repair(raw string) string {
	s := utils.CleanLLMJSON(raw)
	s = newlinePattern.ReplaceAllString(s, " ")

	parts := utils.SplitJSONStrings(s)
	for i := 0; i < len(parts); i += 2 {
		seg := bareKeyPattern.ReplaceAllString(parts[i], `$1"$2":`)
		parts[i] = trailingCommaPattern.ReplaceAllString(seg, "$1")
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}
