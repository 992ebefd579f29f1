// Package theory implements scalars tagged as measured (Known) or conjectured
// (Theoretical). Arithmetic is pessimistic: a result is Known only when every
// operand is Known.
package theory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Value is an immutable number plus its Known/Theoretical tag. The zero value
// is Theoretical(0).
type Value struct {
	x     float64
	known bool
}

func Known(x float64) Value {
	return Value{x: x, known: true}
}

func Theoretical(x float64) Value {
	return Value{x: x}
}

// Inner returns the underlying number regardless of the tag.
func (v Value) Inner() float64 {
	return v.x
}

func (v Value) IsKnown() bool {
	return v.known
}

func (v Value) IsTheoretical() bool {
	return !v.known
}

func (v Value) Finite() bool {
	return !math.IsNaN(v.x) && !math.IsInf(v.x, 0)
}

func (v Value) Add(o Value) Value {
	return Value{x: v.x + o.x, known: v.known && o.known}
}

func (v Value) Sub(o Value) Value {
	return Value{x: v.x - o.x, known: v.known && o.known}
}

func (v Value) Mul(o Value) Value {
	return Value{x: v.x * o.x, known: v.known && o.known}
}

// KnownOr returns the number unchanged when Known and f(number) otherwise.
func (v Value) KnownOr(f func(float64) float64) float64 {
	if v.known {
		return v.x
	}
	return f(v.x)
}

// Sqrt keeps the tag.
func (v Value) Sqrt() Value {
	return Value{x: math.Sqrt(v.x), known: v.known}
}

func (v Value) String() string {
	s := strconv.FormatFloat(v.x, 'g', -1, 64)
	if v.known {
		return s
	}
	return s + "?"
}

type wireValue struct {
	Value       float64 `json:"value" yaml:"value"`
	Theoretical bool    `json:"theoretical,omitempty" yaml:"theoretical,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Finite() {
		return nil, fmt.Errorf("theory: cannot encode non-finite value %v", v.x)
	}
	return json.Marshal(wireValue{Value: v.x, Theoretical: !v.known})
}

// UnmarshalJSON accepts either the object form or a bare number, which decodes
// as Known. null leaves v untouched, so a fresh field stays Theoretical(0).
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	var x float64
	if err := json.Unmarshal(data, &x); err == nil {
		*v = Known(x)
		return nil
	}
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("theory: decode value: %w", err)
	}
	*v = Value{x: w.Value, known: !w.Theoretical}
	return nil
}

func (v Value) MarshalYAML() (any, error) {
	if !v.Finite() {
		return nil, fmt.Errorf("theory: cannot encode non-finite value %v", v.x)
	}
	if v.known {
		return v.x, nil
	}
	return wireValue{Value: v.x, Theoretical: true}, nil
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() == "!!null" {
			return nil
		}
		var x float64
		if err := node.Decode(&x); err != nil {
			return fmt.Errorf("theory: decode value: %w", err)
		}
		*v = Known(x)
		return nil
	case yaml.MappingNode:
		var w wireValue
		if err := node.Decode(&w); err != nil {
			return fmt.Errorf("theory: decode value: %w", err)
		}
		*v = Value{x: w.Value, known: !w.Theoretical}
		return nil
	default:
		return errors.New("theory: value must be a number or a mapping")
	}
}
