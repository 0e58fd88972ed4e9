package translator

import (
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
)

var scaleFunctions = map[string]govaluate.ExpressionFunction{
	"round": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("round expects 1 argument, got %d", len(args))
		}
		v, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("round expects a number")
		}
		return math.Round(v), nil
	},
	"min": func(args ...interface{}) (interface{}, error) {
		return fold(args, math.Min)
	},
	"max": func(args ...interface{}) (interface{}, error) {
		return fold(args, math.Max)
	},
}

func fold(args []interface{}, fn func(a, b float64) float64) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one argument required")
	}
	var result float64
	for i, a := range args {
		v, ok := a.(float64)
		if !ok {
			return nil, fmt.Errorf("argument %d is not a number", i+1)
		}
		if i == 0 {
			result = v
		} else {
			result = fn(result, v)
		}
	}
	return result, nil
}

// Scale converts between a native level and Hue brightness using two
// formulas over the variable x.
type Scale struct {
	toHue     *govaluate.EvaluableExpression
	toNative  *govaluate.EvaluableExpression
	nativeMax float64
}

// Default scales.
var (
	// PercentScale maps 0..100 onto 0..254.
	PercentScale = MustScale("x * 254 / 100", "x * 100 / 254", 100)
	// BrightnessScale maps a 0..255 light brightness onto 0..254.
	BrightnessScale = MustScale("x / 255 * 254", "x / 254 * 255", 255)
)

func NewScale(toHue, toNative string, nativeMax float64) (*Scale, error) {
	th, err := govaluate.NewEvaluableExpressionWithFunctions(toHue, scaleFunctions)
	if err != nil {
		return nil, fmt.Errorf("cannot parse formula %q: %w", toHue, err)
	}
	tn, err := govaluate.NewEvaluableExpressionWithFunctions(toNative, scaleFunctions)
	if err != nil {
		return nil, fmt.Errorf("cannot parse formula %q: %w", toNative, err)
	}
	return &Scale{toHue: th, toNative: tn, nativeMax: nativeMax}, nil
}

func MustScale(toHue, toNative string, nativeMax float64) *Scale {
	s, err := NewScale(toHue, toNative, nativeMax)
	if err != nil {
		panic(err)
	}
	return s
}

// Hue converts a native level, rounded but not clamped.
func (s *Scale) Hue(native float64) int {
	return int(math.Round(evaluate(s.toHue, native)))
}

// Native converts a Hue brightness, rounded and clamped to 0..nativeMax.
func (s *Scale) Native(bri int) float64 {
	v := math.Round(evaluate(s.toNative, float64(bri)))
	return math.Max(0, math.Min(v, s.nativeMax))
}

// ToHueFormula and ToNativeFormula return the formula sources.
func (s *Scale) ToHueFormula() string { return s.toHue.String() }
func (s *Scale) ToNativeFormula() string { return s.toNative.String() }

// evaluate returns x unchanged when the formula fails.
func evaluate(expression *govaluate.EvaluableExpression, x float64) float64 {
	result, err := expression.Evaluate(map[string]interface{}{"x": x})
	if err != nil {
		return x
	}
	if val, ok := result.(float64); ok {
		return val
	}
	return x
}
