// Package condition implements the pure guard-clause evaluator of §4.4: it
// takes a context of facts/vars/prior-results and a list of conditions and
// reports whether every condition holds. Lookups are dot-path; failure to
// resolve yields "absent" rather than an error, so exists/not-exists work
// uniformly (§3).
package condition

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rustle-deploy/rustle-deploy/internal/plan"
)

// Context is the read-only view a condition evaluates against: collected
// facts, resolved variables, and prior task results on the same host.
type Context struct {
	Facts   map[string]any
	Vars    map[string]any
	Results map[string]any // task id -> arbitrary result fields (e.g. "rc", "changed")
}

// lookup resolves a dot-path against the context's three namespaces, tried
// in that order (facts, then vars, then results), returning (value, true)
// or (nil, false) if absent anywhere.
func (c Context) lookup(path string) (any, bool) {
	segments := strings.Split(path, ".")
	if len(segments) == 0 {
		return nil, false
	}

	for _, root := range []map[string]any{c.Facts, c.Vars, c.Results} {
		if root == nil {
			continue
		}
		if v, ok := resolvePath(root, segments); ok {
			return v, true
		}
	}
	return nil, false
}

func resolvePath(root map[string]any, segments []string) (any, bool) {
	var cur any = root
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// Eval reports whether every condition in conds holds against ctx (logical
// AND). An empty list evaluates true (§8 boundary behavior). Eval is pure:
// calling it twice with the same inputs always returns the same result.
func Eval(conds []plan.Condition, ctx Context) bool {
	for _, c := range conds {
		if !evalOne(c, ctx) {
			return false
		}
	}
	return true
}

func evalOne(c plan.Condition, ctx Context) bool {
	value, present := ctx.lookup(c.Var)

	switch c.Op {
	case plan.OpExists:
		return present
	case plan.OpNotExists:
		return !present
	}

	if !present {
		// Absent is not an error; every comparison operator other than
		// exists/not-exists simply evaluates false (§3, §8).
		return false
	}

	switch c.Op {
	case plan.OpEquals:
		return stringOf(value) == stringOf(c.Value)
	case plan.OpNotEquals:
		return stringOf(value) != stringOf(c.Value)
	case plan.OpContains:
		return strings.Contains(stringOf(value), stringOf(c.Value))
	case plan.OpStartsWith:
		return strings.HasPrefix(stringOf(value), stringOf(c.Value))
	case plan.OpEndsWith:
		return strings.HasSuffix(stringOf(value), stringOf(c.Value))
	case plan.OpGreaterThan:
		a, aok := numberOf(value)
		b, bok := numberOf(c.Value)
		if !aok || !bok {
			return false
		}
		return a > b
	case plan.OpLessThan:
		a, aok := numberOf(value)
		b, bok := numberOf(c.Value)
		if !aok || !bok {
			return false
		}
		return a < b
	default:
		return false
	}
}

func stringOf(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return "" // best-effort: incomparable types never equal a literal
	}
}

// numberOf coerces numeric-looking strings to numbers where possible, per
// §4.4's "numeric operators coerce numeric strings" rule. Comparing
// incompatible types returns ok=false, which callers treat as false rather
// than an error.
func numberOf(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
