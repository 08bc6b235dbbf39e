package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fiercfly/proteinHunt/internal/util"
)

// rawDeal is the loosely-typed result of one extraction element, before
// defaults are applied. Both the model path and the heuristic path produce it.
type rawDeal struct {
	skip bool

	PostType      string
	Title         string
	Description   string
	Brand         string
	Store         string
	Link          string
	Image         string
	Price         *float64
	OriginalPrice *float64
	Discount      *float64
	KeyFeatures   []string
}

var codeFenceRegex = regexp.MustCompile("(?is)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRegex.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	return strings.TrimSpace(s)
}

// decodeResponse turns a model reply into index-aligned objects. A strict
// parse is tried first, then salvage. Non-object elements become nil.
func decodeResponse(text string) ([]map[string]any, error) {
	cleaned := stripCodeFence(text)

	var parsed any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		salvaged := Salvage(cleaned)
		if len(salvaged) == 0 {
			return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
		}
		return salvaged, nil
	}

	arr, ok := parsed.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotArray, parsed)
	}
	out := make([]map[string]any, len(arr))
	for i, el := range arr {
		if obj, ok := el.(map[string]any); ok {
			out[i] = obj
		}
	}
	return out, nil
}

var salvageRegex = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*\}[^{}]*)?\}`)

// Salvage recovers every complete object (at most one level of nested
// braces) from a possibly truncated JSON array.
func Salvage(text string) []map[string]any {
	var out []map[string]any
	for _, match := range salvageRegex.FindAllString(text, -1) {
		var obj map[string]any
		if err := json.Unmarshal([]byte(match), &obj); err != nil || obj == nil {
			continue
		}
		out = append(out, obj)
	}
	return out
}

func decodeRawDeal(obj map[string]any) rawDeal {
	if obj == nil {
		return rawDeal{skip: true}
	}
	r := rawDeal{
		PostType:      stringField(obj, "postType"),
		Title:         stringField(obj, "title"),
		Description:   stringField(obj, "description"),
		Brand:         stringField(obj, "brand"),
		Store:         stringField(obj, "store"),
		Link:          stringField(obj, "link"),
		Image:         stringField(obj, "image"),
		Price:         numberField(obj, "price"),
		OriginalPrice: numberField(obj, "originalPrice"),
		Discount:      numberField(obj, "discount"),
		KeyFeatures:   listField(obj, "keyFeatures"),
	}
	switch v := obj["isDeal"].(type) {
	case bool:
		r.skip = !v
	case string:
		r.skip = strings.EqualFold(strings.TrimSpace(v), "false")
	}
	return r
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		s := strings.TrimSpace(v)
		if strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
			return ""
		}
		return s
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func numberField(obj map[string]any, key string) *float64 {
	switch v := obj[key].(type) {
	case float64:
		return &v
	case string:
		if f, ok := util.ParseAmount(v); ok {
			return &f
		}
	}
	return nil
}

func listField(obj map[string]any, key string) []string {
	switch v := obj[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, el := range v {
			if s, ok := el.(string); ok {
				out = append(out, s)
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
