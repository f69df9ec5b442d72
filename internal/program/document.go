package program

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the interchange form of a resolved whole program, as written by
// the front end (msgpack) or by hand (YAML/JSON). Field names follow the
// front end's dump format.
type Document struct {
	Program string    `yaml:"program" msgpack:"program" json:"program"`
	Decls   []DeclDoc `yaml:"decls" msgpack:"decls" json:"decls"`
}

// DeclDoc describes one top-level declaration.
type DeclDoc struct {
	Path         string     `yaml:"path" msgpack:"path" json:"path"`
	Kind         string     `yaml:"kind,omitempty" msgpack:"kind,omitempty" json:"kind,omitempty"`
	At           string     `yaml:"at,omitempty" msgpack:"at,omitempty" json:"at,omitempty"`
	Placement    StringList `yaml:"placement,omitempty" msgpack:"placement,omitempty" json:"placement,omitempty"`
	Capabilities StringList `yaml:"capabilities,omitempty" msgpack:"capabilities,omitempty" json:"capabilities,omitempty"`
	Params       []FieldDoc `yaml:"params,omitempty" msgpack:"params,omitempty" json:"params,omitempty"`
	Result       string     `yaml:"result,omitempty" msgpack:"result,omitempty" json:"result,omitempty"`
	Fields       []FieldDoc `yaml:"fields,omitempty" msgpack:"fields,omitempty" json:"fields,omitempty"`
	Calls        []RefDoc   `yaml:"calls,omitempty" msgpack:"calls,omitempty" json:"calls,omitempty"`
	Types        []RefDoc   `yaml:"types,omitempty" msgpack:"types,omitempty" json:"types,omitempty"`
	Reads        []RefDoc   `yaml:"reads,omitempty" msgpack:"reads,omitempty" json:"reads,omitempty"`
}

// FieldDoc is a parameter or aggregate field: name plus type expression.
type FieldDoc struct {
	Name string `yaml:"name" msgpack:"name" json:"name"`
	Type string `yaml:"type" msgpack:"type" json:"type"`
}

// RefDoc is one reference site. In YAML it may be written as a bare target
// string or as a mapping with a location.
type RefDoc struct {
	Target string `yaml:"target" msgpack:"target" json:"target"`
	At     string `yaml:"at,omitempty" msgpack:"at,omitempty" json:"at,omitempty"`
}

// UnmarshalYAML accepts `save` as well as `{target: save, at: app.rv:3:5}`.
func (r *RefDoc) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		r.Target = node.Value
		r.At = ""
		return nil
	case yaml.MappingNode:
		type plain RefDoc
		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}
		*r = RefDoc(p)
		return nil
	}
	return fmt.Errorf("line %d: reference must be a string or a mapping", node.Line)
}

// StringList accepts a single scalar or a sequence of scalars.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			*s = nil
			return nil
		}
		*s = StringList{node.Value}
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := node.Decode(&out); err != nil {
			return err
		}
		*s = out
		return nil
	}
	return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
}
