package models

import (
	"encoding/json"
	"math"
)

// Value is a numeric observation that may be undefined.
type Value struct {
	Float float64
	Valid bool
}

// Some returns a defined value. NaN and infinities are treated as undefined.
func Some(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{Float: f, Valid: true}
}

// None returns an undefined value.
func None() Value { return Value{} }

// Get returns the float and whether it is defined.
func (v Value) Get() (float64, bool) { return v.Float, v.Valid }

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Float)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

var _ json.Marshaler = Value{}
var _ json.Unmarshaler = (*Value)(nil)
