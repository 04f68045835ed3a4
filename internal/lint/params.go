package lint

import (
	"fmt"
	"maps"
	"sort"
)

// Params holds rule parameters decoded from YAML. Accessors never panic: a
// missing or wrongly typed value yields the zero value and false.
type Params map[string]any

// Merge returns a copy of p overlaid with overrides.
func (p Params) Merge(overrides Params) Params {
	out := make(Params, len(p)+len(overrides))
	maps.Copy(out, p)
	maps.Copy(out, overrides)
	return out
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns a string parameter.
func (p Params) String(key string) (string, bool) {
	s, ok := p[key].(string)
	return s, ok
}

// Int returns an integer parameter.
func (p Params) Int(key string) (int, bool) {
	switch v := p[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

// Bool returns a boolean parameter.
func (p Params) Bool(key string) (bool, bool) {
	b, ok := p[key].(bool)
	return b, ok
}

// StringSliceMap returns a mapping of names to lists of names, e.g.
// {"f_compile": ["compile", "archive"]}. Entries of the wrong shape are
// skipped.
func (p Params) StringSliceMap(key string) (map[string][]string, bool) {
	raw, ok := asMap(p[key])
	if !ok {
		return nil, false
	}
	out := make(map[string][]string, len(raw))
	for k, v := range raw {
		out[k] = toStrings(v)
	}
	return out, true
}

// StringSlices returns a list of lists of strings, e.g. [["a", "b"], ["c"]].
func (p Params) StringSlices(key string) ([][]string, bool) {
	raw, ok := p[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([][]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, toStrings(v))
	}
	return out, true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Params:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	}
	return nil, false
}

func toStrings(v any) []string {
	switch s := v.(type) {
	case string:
		return []string{s}
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
