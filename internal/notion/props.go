package notion

import (
	"strconv"
	"strings"
	"time"
)

// FormatProps turns property assignments into the JSON shapes the
// pages endpoint expects. Unknown types and unparsable dates are
// skipped rather than failing the whole page.
func FormatProps(props []PropValue) map[string]any {
	formatted := map[string]any{}

	for _, prop := range props {
		switch prop.Type {
		case TypeTitle:
			formatted[prop.Name] = map[string]any{
				"title": []any{map[string]any{
					"text": map[string]any{"content": prop.Value},
				}},
			}
		case TypeRichText:
			formatted[prop.Name] = map[string]any{
				"rich_text": []any{map[string]any{
					"text": map[string]any{"content": prop.Value},
				}},
			}
		case TypeSelect:
			formatted[prop.Name] = map[string]any{
				"select": map[string]any{"name": prop.Value},
			}
		case TypeMultiSelect:
			options := []any{}
			for _, value := range strings.Split(prop.Value, ",") {
				options = append(options, map[string]any{"name": value})
			}
			formatted[prop.Name] = map[string]any{"multi_select": options}
		case TypeStatus:
			formatted[prop.Name] = map[string]any{
				"status": map[string]any{"name": prop.Value},
			}
		case TypeURL:
			formatted[prop.Name] = map[string]any{"url": prop.Value}
		case TypeNumber:
			number, err := strconv.ParseFloat(prop.Value, 64)
			if err != nil {
				continue
			}
			formatted[prop.Name] = map[string]any{"number": number}
		case TypeCheckbox:
			formatted[prop.Name] = map[string]any{"checkbox": prop.Value == "true"}
		case TypeDate:
			day, ok := parseDay(prop.Value)
			if !ok {
				continue
			}
			formatted[prop.Name] = map[string]any{
				"date": map[string]any{
					"start":     day,
					"end":       nil,
					"time_zone": nil,
				},
			}
		}
	}

	return formatted
}

// dateLayouts covers the formats mail clients actually put in Date
// headers, most common first.
var dateLayouts = []string{
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC1123,
	time.RFC3339,
	"2006-01-02",
}

func parseDay(value string) (string, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.Format("2006-01-02"), true
		}
	}
	return "", false
}
