package analysis

import (
	"encoding/json"
	"math"
)

// Float is a report number. NaN and ±Inf encode as null in JSON and YAML.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (f Float) MarshalYAML() (interface{}, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, nil
	}
	return v, nil
}

// Valid reports whether f is finite.
func (f Float) Valid() bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func fptr(v float64) *Float {
	f := Float(v)
	return &f
}

func sptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// unavailableBlock is the entire encoding of a report block that could not
// be computed.
type unavailableBlock struct {
	Available bool   `json:"available" yaml:"available"`
	Reason    string `json:"reason,omitempty" yaml:"reason,omitempty"`
}
