package loader

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ersinkoc/webruntime/pkg/rterror"
)

// resolveExportsMain resolves the package.json "exports" field for a
// bare import of the package itself (i.e. subpath "."), per spec §4.5.
func resolveExportsMain(raw json.RawMessage, conditions []string) (string, error) {
	return resolveExportsSubpath(raw, "", conditions)
}

// resolveExportsSubpath resolves subpath (e.g. "./lib/util" or "" for
// the package root) against a parsed package.json "exports" field value,
// applying the host condition list in priority order.
func resolveExportsSubpath(raw json.RawMessage, subpath string, conditions []string) (string, error) {
	if subpath == "" {
		subpath = "."
	} else if !strings.HasPrefix(subpath, ".") {
		subpath = "./" + subpath
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", rterror.Wrap(rterror.KindParse, err, "package.json exports")
	}

	switch typed := value.(type) {
	case string:
		if subpath != "." {
			return "", rterror.New(rterror.KindModuleNotFound, "package does not define a subpath export", subpath)
		}
		return typed, nil

	case map[string]interface{}:
		if isSubpathExportsMap(typed) {
			target, ok := matchSubpathExports(typed, subpath)
			if !ok {
				return "", rterror.New(rterror.KindModuleNotFound, "no matching subpath export", subpath)
			}
			return resolveConditionalValue(target, conditions)
		}
		if subpath != "." {
			return "", rterror.New(rterror.KindModuleNotFound, "package does not define a subpath export", subpath)
		}
		return resolveConditionalValue(typed, conditions)

	case []interface{}:
		if subpath != "." {
			return "", rterror.New(rterror.KindModuleNotFound, "package does not define a subpath export", subpath)
		}
		return resolveExportsArray(typed, conditions)

	default:
		return "", rterror.New(rterror.KindModuleNotFound, "unsupported package.json exports shape", subpath)
	}
}

// resolveExportsArray implements spec §4.5's array fallback: entries are
// tried in order and the first one that resolves without error wins.
func resolveExportsArray(entries []interface{}, conditions []string) (string, error) {
	var lastErr error
	for _, entry := range entries {
		target, err := resolveConditionalValue(entry, conditions)
		if err == nil {
			return target, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = rterror.New(rterror.KindModuleNotFound, "empty export array", "")
	}
	return "", lastErr
}

// isSubpathExportsMap reports whether m maps subpaths (keys beginning
// with ".") to targets, as opposed to mapping condition names to
// targets. Node's algorithm requires all keys to be one shape or the
// other; a mix is treated here the same as a subpath map, matching
// Node's own "all keys must start with '.'" validation intent without
// hard-failing on a malformed package.json.
func isSubpathExportsMap(m map[string]interface{}) bool {
	for key := range m {
		if strings.HasPrefix(key, ".") {
			return true
		}
	}
	return false
}

// matchSubpathExports finds the best-matching key in a subpath exports
// map for subpath: an exact match wins outright; otherwise the longest
// single-"*"-wildcard pattern that matches is used. A pattern containing
// more than one "*" is rejected outright (not matched against), since
// Node's own algorithm never produces more than one wildcard capture per
// pattern and a second "*" almost always indicates a typo'd package.json
// rather than an intentional pattern.
func matchSubpathExports(m map[string]interface{}, subpath string) (interface{}, bool) {
	if target, ok := m[subpath]; ok {
		return target, true
	}

	var bestKey string
	var bestTarget interface{}
	for key, target := range m {
		if strings.Count(key, "*") != 1 {
			continue
		}
		ok, err := doublestar.Match(key, subpath)
		if err != nil || !ok {
			continue
		}
		if len(key) > len(bestKey) {
			bestKey = key
			bestTarget = target
		}
	}
	if bestKey == "" {
		return nil, false
	}
	return substituteWildcard(bestTarget, capturedWildcard(bestKey, subpath)), true
}

// capturedWildcard returns the substring of subpath bound by the single
// "*" in pattern (of the form "prefix*suffix"), for substitution into
// the chosen export target per Node's pattern-export semantics.
func capturedWildcard(pattern, subpath string) string {
	idx := strings.IndexByte(pattern, '*')
	prefix, suffix := pattern[:idx], pattern[idx+1:]
	if len(subpath) < len(prefix)+len(suffix) {
		return ""
	}
	return subpath[len(prefix) : len(subpath)-len(suffix)]
}

// substituteWildcard replaces every "*" in value's string leaves with
// captured, recursing into conditional maps so a pattern target like
// {"import": "./lib/*.mjs"} substitutes correctly regardless of which
// condition ultimately wins.
func substituteWildcard(value interface{}, captured string) interface{} {
	switch typed := value.(type) {
	case string:
		return strings.ReplaceAll(typed, "*", captured)
	case map[string]interface{}:
		result := make(map[string]interface{}, len(typed))
		for k, v := range typed {
			result[k] = substituteWildcard(v, captured)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(typed))
		for i, v := range typed {
			result[i] = substituteWildcard(v, captured)
		}
		return result
	default:
		return value
	}
}

// resolveConditionalValue resolves a target value that is either a
// direct path string or a map from condition name to nested target,
// walking conditions in priority order and recursing into nested maps.
// "default" matches unconditionally if present and no earlier condition
// matched.
func resolveConditionalValue(value interface{}, conditions []string) (string, error) {
	switch typed := value.(type) {
	case string:
		return typed, nil
	case map[string]interface{}:
		ordered := append(append([]string(nil), conditions...), "default")
		for _, condition := range ordered {
			nested, ok := typed[condition]
			if !ok {
				continue
			}
			return resolveConditionalValue(nested, conditions)
		}
		return "", rterror.New(rterror.KindModuleNotFound, "no matching export condition", strings.Join(sortedKeys(typed), ","))
	case []interface{}:
		return resolveExportsArray(typed, conditions)
	default:
		return "", rterror.New(rterror.KindModuleNotFound, "unsupported export target shape", "")
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
