package pipeline

import (
	"strconv"
	"strings"
)

// Helpers for digging product fields out of the heterogeneous parsed
// payloads. The source nests the same logical field under different keys
// depending on payload vintage, so every accessor takes an ordered alias
// list and returns the first defined value.

// lookupPath walks a nested map along the given key path
func lookupPath(obj map[string]interface{}, path ...string) (interface{}, bool) {
	var current interface{} = obj
	for _, key := range path {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// firstMap returns the first nesting path that resolves to a map
func firstMap(obj map[string]interface{}, paths [][]string) (map[string]interface{}, bool) {
	for _, path := range paths {
		if v, ok := lookupPath(obj, path...); ok {
			if m, ok := v.(map[string]interface{}); ok {
				return m, true
			}
		}
	}
	return nil, false
}

// firstSlice returns the first nesting path that resolves to an array
func firstSlice(obj map[string]interface{}, paths [][]string) ([]interface{}, bool) {
	for _, path := range paths {
		if v, ok := lookupPath(obj, path...); ok {
			if s, ok := v.([]interface{}); ok {
				return s, true
			}
		}
	}
	return nil, false
}

// pickString returns the first non-empty string among the aliased keys
func pickString(obj map[string]interface{}, aliases ...string) string {
	for _, key := range aliases {
		if v, ok := obj[key]; ok {
			if s := toString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// pickStringPath is pickString over nested key paths (dot-separated)
func pickStringPath(obj map[string]interface{}, paths ...string) string {
	for _, path := range paths {
		if v, ok := lookupPath(obj, strings.Split(path, ".")...); ok {
			if s := toString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// pickFloatPath is pickFloat over nested key paths (dot-separated)
func pickFloatPath(obj map[string]interface{}, paths ...string) float64 {
	for _, path := range paths {
		if v, ok := lookupPath(obj, strings.Split(path, ".")...); ok {
			if f, ok := toFloat(v); ok {
				return f
			}
		}
	}
	return 0
}

// pickFloat returns the first numeric value among the aliased keys
func pickFloat(obj map[string]interface{}, aliases ...string) float64 {
	for _, key := range aliases {
		if v, ok := obj[key]; ok {
			if f, ok := toFloat(v); ok {
				return f
			}
		}
	}
	return 0
}

// pickStrings returns the first alias resolving to a list of strings
func pickStrings(obj map[string]interface{}, aliases ...string) []string {
	for _, key := range aliases {
		if v, ok := obj[key]; ok {
			if items, ok := v.([]interface{}); ok {
				var out []string
				for _, item := range items {
					if s := toString(item); s != "" {
						out = append(out, s)
					}
				}
				if len(out) > 0 {
					return out
				}
			}
		}
	}
	return nil
}

// toString coerces a JSON scalar into a string; maps and arrays yield ""
func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// toFloat coerces a JSON scalar into a float64
func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// normalizeImageURL makes protocol-relative asset URLs absolute
func normalizeImageURL(src string) string {
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	return src
}
