package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/menta2k/facemask/pkg/types"
)

// ErrNoJSON is returned when a model response carries no JSON document
var ErrNoJSON = errors.New("model response contains no JSON")

var (
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment  = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInline       = regexp.MustCompile(`(?m)\s//.*$`)
	reTrailing     = regexp.MustCompile(`,(\s*[}\]])`)
)

// ParseFaceAnalysis parses a face analysis from a raw model response. Both
// {"faces":[...]} and a bare array of faces are accepted.
func ParseFaceAnalysis(raw string) (*types.FaceAnalysis, error) {
	raw = SanitizeModelJSON(raw)
	if raw == "" {
		return nil, ErrNoJSON
	}

	if strings.HasPrefix(raw, "[") {
		var faces []types.ModelFace
		if err := json.Unmarshal([]byte(raw), &faces); err != nil {
			return nil, fmt.Errorf("failed to parse face list: %w", err)
		}
		return &types.FaceAnalysis{Faces: faces}, nil
	}

	var result types.FaceAnalysis
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to parse face analysis: %w", err)
	}
	return &result, nil
}

// SanitizeModelJSON removes code fences, comments and trailing commas from a
// model response and keeps only the outermost JSON object or array
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	open, close := "{", "}"
	obj := strings.Index(raw, "{")
	arr := strings.Index(raw, "[")
	if arr >= 0 && (obj < 0 || arr < obj) {
		open, close = "[", "]"
	}
	start := strings.Index(raw, open)
	end := strings.LastIndex(raw, close)
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(raw[start : end+1])
}
