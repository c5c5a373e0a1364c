package model

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// ParamsSetter applies a flat hyperparameter map, as produced by the search
// or loaded from best_params.json. Unknown keys are a ValidationError.
type ParamsSetter interface {
	SetParams(params map[string]interface{}) error
}

// IntParam converts a parameter value to int. JSON numbers arrive as float64
// and are accepted when they hold an integral value.
func IntParam(name string, v interface{}) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, errors.NewValidationError(name, "must be an integer", v)
		}
		return int(x), nil
	}
	return 0, errors.NewValidationError(name, fmt.Sprintf("unsupported type %T", v), v)
}

// FloatParam converts a parameter value to float64.
func FloatParam(name string, v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, errors.NewValidationError(name, fmt.Sprintf("unsupported type %T", v), v)
}

// StringParam converts a parameter value to string.
func StringParam(name string, v interface{}) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", errors.NewValidationError(name, "must be a string", v)
}

// BoolParam converts a parameter value to bool.
func BoolParam(name string, v interface{}) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, errors.NewValidationError(name, "must be a boolean", v)
}

// UnknownParam reports a key the model does not accept.
func UnknownParam(modelName, key string, v interface{}) error {
	return errors.NewValidationError(key, "unknown parameter for "+modelName, v)
}
