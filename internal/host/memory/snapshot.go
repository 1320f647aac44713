package memory

import (
	"errors"
	"fmt"
	"gopkg.in/yaml.v3"
	"io"
	"strings"
)

// Load creates a Store from a YAML snapshot. Each top-level key is an entity id. Its value is either the entity's
// state, or a mapping with a "state" and an "attributes" mapping:
//
//	climate.aircon:
//	  state: heat_cool
//	  attributes:
//	    temperature: 22
//	    fan_modes: [low, high, auto]
//	sensor.outside: 30
func Load(r io.Reader) (*Store, error) {
	var doc map[string]yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return New(), nil
		}
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	s := New()
	for entityID, node := range doc {
		switch node.Kind {
		case yaml.ScalarNode:
			s.getOrCreate(entityID).state = node.Value
		case yaml.MappingNode:
			if err := s.loadEntity(entityID, &node); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("snapshot: %s: invalid entry at line %d", entityID, node.Line)
		}
	}
	return s, nil
}

func (s *Store) loadEntity(entityID string, node *yaml.Node) error {
	var entry struct {
		Attributes map[string]yaml.Node `yaml:"attributes"`
		State      yaml.Node            `yaml:"state"`
	}
	if err := node.Decode(&entry); err != nil {
		return fmt.Errorf("snapshot: %s: %w", entityID, err)
	}
	e := s.getOrCreate(entityID)
	e.state = entry.State.Value
	for attribute, value := range entry.Attributes {
		switch value.Kind {
		case yaml.ScalarNode:
			e.attributes[attribute] = value.Value
		case yaml.SequenceNode:
			values := make([]string, len(value.Content))
			for i, item := range value.Content {
				values[i] = item.Value
			}
			e.attributes[attribute] = strings.Join(values, ", ")
		default:
			return fmt.Errorf("snapshot: %s[%s]: attribute must be a scalar or a list", entityID, attribute)
		}
	}
	return nil
}
