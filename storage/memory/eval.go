package memory

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fhirstack/fhirstore/query"
	"github.com/fhirstack/fhirstore/storage"
)

// matchAll evaluates a conjunction of conditions against a document.
func matchAll(doc storage.Document, conds []query.Cond) (bool, error) {
	for _, c := range conds {
		ok, err := match(doc, c)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func match(doc storage.Document, c query.Cond) (bool, error) {
	switch c := c.(type) {
	case query.FieldEquals:
		v, ok := lookup(doc, c.Field)
		if !ok {
			return false, nil
		}
		s, ok := v.(string)
		return ok && s == c.Value, nil
	case query.TokenMatch:
		return matchToken(doc, c), nil
	case query.ReferenceMatch:
		return matchReference(doc, c)
	case query.AnyOf:
		for _, m := range c {
			ok, err := match(doc, m)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case query.AllOf:
		return matchAll(doc, c)
	default:
		return false, fmt.Errorf("memory: cannot evaluate condition %T", c)
	}
}

func matchToken(doc storage.Document, c query.TokenMatch) bool {
	v, ok := lookup(doc, c.Field)
	if !ok {
		return false
	}
	for _, el := range elements(v) {
		code, ok := el[c.CodeField].(string)
		if !ok || code != c.Code {
			continue
		}
		if !c.HasSystem {
			return true
		}
		if sys, ok := el[c.SystemField].(string); ok && sys == c.System {
			return true
		}
	}
	return false
}

func matchReference(doc storage.Document, c query.ReferenceMatch) (bool, error) {
	v, ok := lookup(doc, c.Field)
	if !ok {
		return false, nil
	}
	s, ok := v.(string)
	if !ok {
		return false, nil
	}
	re, err := regexp.Compile(c.Pattern())
	if err != nil {
		return false, err
	}
	return re.MatchString(s), nil
}

// elements normalizes an array-valued field to its map elements.
func elements(v any) []map[string]any {
	switch v := v.(type) {
	case []any:
		var out []map[string]any
		for _, e := range v {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case []map[string]any:
		return v
	default:
		return nil
	}
}

// lookup resolves a dotted field path through nested maps.
func lookup(doc storage.Document, path string) (any, bool) {
	cur := any(doc)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func versionOf(doc storage.Document) string {
	v, _ := lookup(doc, "meta.versionId")
	s, _ := v.(string)
	return s
}

// lastUpdated reads meta.lastUpdated, tolerating the types adapters and
// callers produce for it.
func lastUpdated(doc storage.Document) time.Time {
	v, ok := lookup(doc, "meta.lastUpdated")
	if !ok {
		return time.Time{}
	}
	switch v := v.(type) {
	case time.Time:
		return v
	case interface{ Time() time.Time }:
		return v.Time()
	case string:
		t, _ := time.Parse(time.RFC3339Nano, v)
		return t
	default:
		return time.Time{}
	}
}
