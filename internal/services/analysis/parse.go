package analysis

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Vocabulary is matched against unstructured provider text, in order.
var Vocabulary = []string{
	"Travel Vlog", "Lifestyle", "Professional", "Minimalist", "Dynamic Cuts",
	"Warm Tones", "Cool Tones", "Text Overlays", "Music Sync", "High Energy",
	"Talking Head", "Educational", "Aspirational", "Trending", "Creative Angles",
	"Quick Transitions", "Vibrant Colors", "Natural Lighting", "Urban Style",
}

// DefaultTags is used when no vocabulary term matches.
var DefaultTags = []string{"Modern", "Creative", "Engaging"}

const maxHeuristicTags = 7

var jsonSpan = regexp.MustCompile(`\{[\s\S]*\}`)

// ParseResponse interprets raw provider text. The span from the first "{"
// to the last "}" must decode as a JSON object carrying styleDescription or
// styleTags; anything else is a Fallback.
func ParseResponse(text string) Response {
	span := jsonSpan.FindString(text)
	if span == "" {
		return Fallback{Text: text}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		return Fallback{Text: text}
	}
	rawDesc, hasDesc := fields["styleDescription"]
	rawTags, hasTags := fields["styleTags"]
	if !hasDesc && !hasTags {
		return Fallback{Text: text}
	}

	var parsed Parsed
	if hasDesc {
		_ = json.Unmarshal(rawDesc, &parsed.Description)
	}
	parsed.Tags = []string{}
	if hasTags {
		var items []any
		if err := json.Unmarshal(rawTags, &items); err == nil {
			for _, item := range items {
				if tag, ok := item.(string); ok {
					parsed.Tags = append(parsed.Tags, tag)
				}
			}
		}
	}
	return parsed
}

// ExtractTags returns vocabulary terms found in text, case-insensitively,
// capped at seven; DefaultTags when none match.
func ExtractTags(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, tag := range Vocabulary {
		if strings.Contains(lower, strings.ToLower(tag)) {
			found = append(found, tag)
			if len(found) == maxHeuristicTags {
				break
			}
		}
	}
	if len(found) == 0 {
		return append([]string(nil), DefaultTags...)
	}
	return found
}

func toResult(resp Response, raw, url string) Result {
	result := Result{ReelURL: url}
	switch r := resp.(type) {
	case Parsed:
		result.StyleDescription = r.Description
		if result.StyleDescription == "" {
			result.StyleDescription = raw
		}
		result.StyleTags = r.Tags
	case Fallback:
		result.StyleDescription = r.Text
		result.StyleTags = ExtractTags(r.Text)
	}
	return result
}
