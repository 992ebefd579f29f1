package expr

import (
	"fmt"
	"math"

	lang "github.com/expr-lang/expr"
)

// functions extends the built-in abs, ceil, floor, round, min and max.
var functions = []lang.Option{
	unary("sqrt", math.Sqrt),
	unary("exp", math.Exp),
	unary("ln", math.Log),
	lang.Function("pow", func(params ...any) (any, error) {
		x, err := toFloat(params[0])
		if err != nil {
			return nil, err
		}
		y, err := toFloat(params[1])
		if err != nil {
			return nil, err
		}
		return math.Pow(x, y), nil
	}, new(func(float64, float64) float64)),
}

func unary(name string, f func(float64) float64) lang.Option {
	return lang.Function(name, func(params ...any) (any, error) {
		x, err := toFloat(params[0])
		if err != nil {
			return nil, err
		}
		return f(x), nil
	}, new(func(float64) float64))
}

// toFloat accepts integer results of built-ins such as abs on literals.
func toFloat(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%w: want number, got %T", ErrType, v)
	}
}
