package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// Axis names one dimension of a taste profile.
type Axis string

const (
	AxisZB Axis = "ZB" // zintuiglijk
	AxisMG Axis = "MG" // mondgevoel
	AxisLS Axis = "LS" // levensstijl
	AxisPA Axis = "PA" // persoonlijke associatie
	AxisGF Axis = "GF" // gelegenheid
)

// Axes lists the profile axes in display order.
var Axes = []Axis{AxisZB, AxisMG, AxisLS, AxisPA, AxisGF}

const (
	AxisMin     = 0
	AxisMax     = 100
	AxisDefault = 50
)

// Profile is a five-axis taste fingerprint. Every value is kept within
// [AxisMin, AxisMax].
type Profile [5]int

// DefaultProfile returns a profile with every axis at AxisDefault.
func DefaultProfile() Profile {
	var p Profile
	for i := range p {
		p[i] = AxisDefault
	}
	return p
}

func axisIndex(a Axis) (int, bool) {
	for i, ax := range Axes {
		if ax == a {
			return i, true
		}
	}
	return 0, false
}

// Clamp limits v to the axis range.
func Clamp(v int) int {
	if v < AxisMin {
		return AxisMin
	}
	if v > AxisMax {
		return AxisMax
	}
	return v
}

// Get returns the value of axis a, or 0 for an unknown axis.
func (p Profile) Get(a Axis) int {
	i, ok := axisIndex(a)
	if !ok {
		return 0
	}
	return p[i]
}

// Set stores v for axis a, clamped. Unknown axes are ignored.
func (p *Profile) Set(a Axis, v int) {
	if i, ok := axisIndex(a); ok {
		p[i] = Clamp(v)
	}
}

// AddDeltas adds per-axis deltas and clamps the results. Fractional deltas
// are rounded after adding.
func (p *Profile) AddDeltas(deltas map[string]float64) {
	for i, a := range Axes {
		d, ok := deltas[string(a)]
		if !ok {
			continue
		}
		p[i] = Clamp(int(math.Round(float64(p[i]) + d)))
	}
}

// FromValues builds a profile from a wire map. Missing axes take
// AxisDefault, values are rounded and clamped.
func FromValues(values map[string]float64) Profile {
	p := DefaultProfile()
	for i, a := range Axes {
		if v, ok := values[string(a)]; ok {
			p[i] = Clamp(int(math.Round(v)))
		}
	}
	return p
}

// Values returns the profile as an axis-keyed map.
func (p Profile) Values() map[string]int {
	out := make(map[string]int, len(Axes))
	for i, a := range Axes {
		out[string(a)] = p[i]
	}
	return out
}

// MarshalJSON encodes the profile as {"ZB":50,...}.
func (p Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Values())
}

// UnmarshalJSON accepts an axis-keyed object with integer or fractional
// values. A JSON null yields the default profile.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw map[string]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode profile: %w", err)
	}
	values := make(map[string]float64, len(raw))
	for k, v := range raw {
		if v != nil {
			values[k] = *v
		}
	}
	*p = FromValues(values)
	return nil
}

// Scores is a profile as the match endpoint reports it. Only the axes the
// server sent are present; nothing is filled in.
type Scores map[Axis]int

// ScoresOf returns every axis of p as scores.
func ScoresOf(p Profile) Scores {
	s := make(Scores, len(Axes))
	for i, a := range Axes {
		s[a] = p[i]
	}
	return s
}

// Get returns the score of axis a and whether the server sent it.
func (s Scores) Get(a Axis) (int, bool) {
	v, ok := s[a]
	return v, ok
}

// UnmarshalJSON rounds and clamps the known axes. Nulls and unknown keys are
// dropped.
func (s *Scores) UnmarshalJSON(data []byte) error {
	var raw map[string]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode scores: %w", err)
	}
	out := make(Scores, len(raw))
	for _, a := range Axes {
		if v := raw[string(a)]; v != nil {
			out[a] = Clamp(int(math.Round(*v)))
		}
	}
	*s = out
	return nil
}
