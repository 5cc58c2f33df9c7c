package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Float is a float64 that encodes NaN and ±Inf as JSON null.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// UnmarshalJSON decodes null as NaN.
func (f *Float) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = Float(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Finite reports whether the value is neither NaN nor infinite.
func (f Float) Finite() bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
