package configuration

import (
	"errors"
	"fmt"
	"gopkg.in/yaml.v3"
	"math"
	"strconv"
)

// Offset holds the upper and lower bound of a zone's hysteresis band, in degrees.
//
// Offset is decoded leniently: a malformed offset never fails loading the configuration. Instead, Err() reports
// the problem, so the zone can fall back to the default offsets.
//
// Both the mapping form and the list form are accepted:
//
//	cooling_offset:
//	  upperbound: 0.5
//	  lowerbound: 0.2
//	heating_offset: [0.5, 0.2]
type Offset struct {
	err   error
	Upper float64
	Lower float64
}

// NewOffset returns a valid Offset.
func NewOffset(upper, lower float64) *Offset {
	return &Offset{Upper: upper, Lower: lower}
}

// Err returns why the offset is malformed, or nil if the offset can be used.
func (o *Offset) Err() error {
	return o.err
}

func (o *Offset) UnmarshalYAML(node *yaml.Node) error {
	*o = Offset{}
	var upper, lower *yaml.Node
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			switch node.Content[i].Value {
			case "upperbound":
				upper = node.Content[i+1]
			case "lowerbound":
				lower = node.Content[i+1]
			}
		}
	case yaml.SequenceNode:
		if len(node.Content) != 2 {
			o.err = fmt.Errorf("line %d: expected [upperbound, lowerbound], got %d values", node.Line, len(node.Content))
			return nil
		}
		upper, lower = node.Content[0], node.Content[1]
	default:
		o.err = fmt.Errorf("line %d: expected upperbound/lowerbound", node.Line)
		return nil
	}

	var errUpper, errLower error
	o.Upper, errUpper = parseBound("upperbound", upper)
	o.Lower, errLower = parseBound("lowerbound", lower)
	o.err = errors.Join(errUpper, errLower)
	return nil
}

func parseBound(name string, node *yaml.Node) (float64, error) {
	if node == nil {
		return 0, fmt.Errorf("%s: missing", name)
	}
	if node.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("%s: line %d: not a number", name, node.Line)
	}
	value, err := strconv.ParseFloat(node.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: line %d: invalid number %q", name, node.Line, node.Value)
	}
	if value < 0 || math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, fmt.Errorf("%s: line %d: must be a positive number", name, node.Line)
	}
	return value, nil
}

func (o Offset) MarshalYAML() (any, error) {
	return map[string]float64{"upperbound": o.Upper, "lowerbound": o.Lower}, nil
}
