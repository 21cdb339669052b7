package rest

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// Record is one untyped row as decoded from JSON.
type Record = map[string]any

var (
	errInvalidPath = errors.New("rest: invalid input or empty path")
	errNoWildcard  = errors.New("rest: no matching elements found for wildcard path")
)

// Decode copies a record, or a slice of records, into out, which must be a
// pointer. Struct fields are matched by their json tag. Numbers decode into any
// numeric field and RFC 3339 strings into time.Time.
func Decode(in any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return fmt.Errorf("rest: decode: %w", err)
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("rest: decode: %w", err)
	}
	return nil
}

// withID returns a shallow copy of r with "id" set.
func withID(r Record, id string) Record {
	out := make(Record, len(r)+1)
	maps.Copy(out, r)
	out["id"] = id
	return out
}

// Lookup extracts a value from a record using jq-like dotted paths:
// ".owner.name", ".tags[0]", ".members[*].email" or ".members[].email".
// A wildcard applies the rest of the path to every object of the array and
// flattens array results; elements the rest does not resolve in are skipped.
func Lookup(record Record, path string) (any, error) {
	if record == nil || path == "" {
		return nil, errInvalidPath
	}
	steps, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	return walk(record, steps)
}

// LookupString is Lookup converted to a string. JSON null becomes "".
func LookupString(record Record, path string) (string, error) {
	v, err := Lookup(record, path)
	if err != nil {
		return "", err
	}
	return cast.ToStringE(v)
}

// LookupInt is Lookup converted to an int. Fractions are truncated.
func LookupInt(record Record, path string) (int, error) {
	v, err := Lookup(record, path)
	if err != nil {
		return 0, err
	}
	return cast.ToIntE(v)
}

// LookupTime is Lookup parsed as a timestamp, as PostgREST renders
// timestamptz columns.
func LookupTime(record Record, path string) (time.Time, error) {
	v, err := Lookup(record, path)
	if err != nil {
		return time.Time{}, err
	}
	return cast.ToTimeE(v)
}

// pathStep is one dotted segment: a key, optionally followed by [n], [*] or [].
type pathStep struct {
	key     string
	indexed bool
	each    bool
	index   int
}

func parsePath(path string) ([]pathStep, error) {
	var steps []pathStep
	for seg := range strings.SplitSeq(strings.TrimPrefix(path, "."), ".") {
		if seg == "" {
			continue
		}
		key, rest, ok := strings.Cut(seg, "[")
		if !ok {
			steps = append(steps, pathStep{key: seg})
			continue
		}
		inner, ok := strings.CutSuffix(rest, "]")
		if !ok || strings.ContainsAny(inner, "[]") {
			return nil, fmt.Errorf("rest: malformed array syntax in %q", seg)
		}
		step := pathStep{key: key, indexed: true}
		if inner == "" || inner == "*" {
			step.each = true
		} else {
			n, err := strconv.Atoi(inner)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("rest: invalid index %s at key %q", inner, key)
			}
			step.index = n
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func walk(v any, steps []pathStep) (any, error) {
	for i, step := range steps {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("rest: expected object at %q", step.key)
		}
		value, exists := obj[step.key]
		if !exists {
			return nil, fmt.Errorf("rest: key not found: %s", step.key)
		}
		if !step.indexed {
			v = value
			continue
		}

		array, ok := value.([]any)
		if !ok {
			return nil, fmt.Errorf("rest: expected array at key %q", step.key)
		}
		if step.each {
			if i == len(steps)-1 {
				return array, nil
			}
			return walkEach(array, steps[i+1:])
		}
		if step.index >= len(array) {
			return nil, fmt.Errorf("rest: index %d out of range at key %q", step.index, step.key)
		}
		v = array[step.index]
	}
	return v, nil
}

func walkEach(array []any, steps []pathStep) (any, error) {
	results := make([]any, 0, len(array))
	for _, item := range array {
		value, err := walk(item, steps)
		if err != nil {
			continue
		}
		if values, ok := value.([]any); ok {
			results = append(results, values...)
		} else {
			results = append(results, value)
		}
	}
	if len(results) == 0 {
		return nil, errNoWildcard
	}
	return results, nil
}
