package handler

import (
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/DukeRupert/monfournisseur/internal/domain"
)

// TemplateFuncs returns a FuncMap with custom template functions
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		// Math
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"seq": func(start, end int) []int {
			var out []int
			for i := start; i <= end; i++ {
				out = append(out, i)
			}
			return out
		},

		// Money and numbers
		"fcfa": func(v interface{}) string {
			return domain.FormatFCFA(toInt64(v))
		},
		"number": func(v interface{}) string {
			return domain.FormatInt(toInt64(v))
		},
		"percent": domain.FormatPercent,

		// Strings
		"title": func(v interface{}) string {
			return cases.Title(language.French).String(fmt.Sprint(v))
		},
		"lower": strings.ToLower,
		"truncate": func(s string, length int) string {
			runes := []rune(s)
			if len(runes) <= length {
				return s
			}
			return strings.TrimSpace(string(runes[:length])) + "…"
		},
		"year": func() int { return time.Now().Year() },

		// JSON encoding for safe attribute and script embedding
		"json": func(v interface{}) template.JS {
			b, err := json.Marshal(v)
			if err != nil {
				return template.JS(`""`)
			}
			return template.JS(b)
		},

		// Logic
		"ternary": func(condition bool, trueVal, falseVal interface{}) interface{} {
			if condition {
				return trueVal
			}
			return falseVal
		},
		"fieldError": func(errs map[string]string, field string) string {
			return errs[field]
		},
		"linkField": domain.LinkField,

		// Collections
		"dict": func(values ...interface{}) map[string]interface{} {
			if len(values)%2 != 0 {
				return nil
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil
				}
				dict[key] = values[i+1]
			}
			return dict
		},
	}
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
