package model

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// Params holds sklearn-style hyperparameters keyed by their snake_case name.
//
// Values come from Go literals, YAML documents or gob streams, so numeric
// values may arrive as any integer or float kind. Use the Int/Float/Str/Bool
// helpers to read them.
type Params map[string]interface{}

// Copy returns a shallow copy of p.
func (p Params) Copy() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
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

// Int reads key as an integer. Floats are accepted when they hold an
// integral value (YAML decodes 8 and 8.0 differently).
func (p Params) Int(key string) (int, error) {
	switch v := p[key].(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v == math.Trunc(v) {
			return int(v), nil
		}
	case float32:
		if float64(v) == math.Trunc(float64(v)) {
			return int(v), nil
		}
	}
	return 0, errors.NewValidationError(key, "expected an integer", p[key])
}

// Float reads key as a float64.
func (p Params) Float(key string) (float64, error) {
	switch v := p[key].(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, errors.NewValidationError(key, "expected a number", p[key])
}

// Str reads key as a string.
func (p Params) Str(key string) (string, error) {
	if v, ok := p[key].(string); ok {
		return v, nil
	}
	return "", errors.NewValidationError(key, "expected a string", p[key])
}

// Bool reads key as a bool.
func (p Params) Bool(key string) (bool, error) {
	if v, ok := p[key].(bool); ok {
		return v, nil
	}
	return false, errors.NewValidationError(key, "expected a bool", p[key])
}

// OptionalInt reads key as an integer where nil means "unset" and is
// reported as -1. max_depth=None in sklearn maps to this.
func (p Params) OptionalInt(key string) (int, error) {
	if p[key] == nil {
		return -1, nil
	}
	return p.Int(key)
}

// UnknownParam builds the error returned by SetParams for a name the
// estimator does not recognise.
func UnknownParam(modelName, key string, value interface{}) error {
	return errors.NewValidationError(key, "invalid parameter for estimator "+modelName, value)
}
