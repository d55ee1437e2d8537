package dispatch

import (
	"fmt"

	rerrors "github.com/rustle-deploy/rustle-deploy/pkg/errors"
)

// requireString pulls a required string argument out of args, reporting a
// ValidationError when it is absent or empty.
func requireString(args map[string]any, key, module string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", rerrors.NewValidationError(key, fmt.Sprintf("%s requires %q", module, key), nil)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", rerrors.NewValidationError(key, fmt.Sprintf("%s requires non-empty %q", module, key), nil)
	}
	return s, nil
}

// optionalString reads a string argument, defaulting to def when absent.
func optionalString(args map[string]any, key, def string) string {
	v, ok := args[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return def
	}
	return s
}

// alias copies args[from] into args[to] when to is absent and from is
// present, matching §4.9's alias-rewrite rules (_raw_params -> cmd, pkg ->
// name, dest -> path, ...).
func alias(args map[string]any, from, to string) {
	if _, present := args[to]; present {
		return
	}
	if v, ok := args[from]; ok {
		args[to] = v
	}
}

// oneOf validates that the value of key, when present, is one of allowed.
func oneOf(args map[string]any, key string, allowed []string) error {
	v, ok := args[key]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return rerrors.NewValidationError(key, fmt.Sprintf("%s must be a string", key), nil)
	}
	for _, a := range allowed {
		if s == a {
			return nil
		}
	}
	return rerrors.NewValidationError(key, fmt.Sprintf("%s must be one of %v, got %q", key, allowed, s), nil)
}
