// Package graphdesc parses the graph description file consumed by the
// module controller: a document listing modules, each with a set of plain
// and timer-driven components.
package graphdesc

import (
	"os"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/hostmesh/hostrt/errors"
)

// Transport describes one reader or writer a component wires up.
type Transport struct {
	Channel string `yaml:"channel_name"`
	Type    string `yaml:"type"`
	QoS     string `yaml:"qos"`
}

// Component is one plain component entry in a module.
type Component struct {
	ClassName      string      `yaml:"class_name"`
	ConfigFilePath string      `yaml:"config_file_path"`
	FlagFilePath   string      `yaml:"flag_file_path"`
	Readers        []Transport `yaml:"readers"`
	Writers        []Transport `yaml:"writers"`
	// Config is the free-form config blob attached inline in the graph
	// file, distinct from ConfigFilePath (a path to a separate file).
	// Optionally checked against a per-class schema via ValidateConfig.
	Config map[string]any `yaml:"config"`
}

// TimerComponent additionally carries a timer name and firing interval.
type TimerComponent struct {
	Component `yaml:",inline"`
	Name      string `yaml:"name"`
	IntervalMS uint32 `yaml:"interval"`
}

// Module is one entry under the graph's top-level "modules" list.
type Module struct {
	Name            string           `yaml:"name"`
	Components      []Component      `yaml:"components"`
	TimerComponents []TimerComponent `yaml:"timer_components"`
}

// Graph is the parsed graph description file.
type Graph struct {
	Modules []Module `yaml:"modules"`
}

// Parse reads and decodes the graph description file at path.
func Parse(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "graphdesc", "Parse", "read "+path)
	}

	var g Graph
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, errors.WrapInvalid(err, "graphdesc", "Parse", "decode "+path)
	}
	return &g, nil
}

// ComponentCount returns the total number of plain plus timer components
// across every module in the graph.
func (g *Graph) ComponentCount() int {
	n := 0
	for _, m := range g.Modules {
		n += len(m.Components) + len(m.TimerComponents)
	}
	return n
}

// HasTimerComponent reports whether any module in the graph declares a
// timer component; the module controller uses this to decide whether the
// process needs to stay alive after instantiation.
func (g *Graph) HasTimerComponent() bool {
	for _, m := range g.Modules {
		if len(m.TimerComponents) > 0 {
			return true
		}
	}
	return false
}

// ValidateConfig checks cfg (typically a Component's Config) against schemaJSON, a JSON Schema
// document typically supplied by the artifact alongside its Register
// function. A nil or empty schema is treated as "no constraint" and always
// passes.
func ValidateConfig(cfg map[string]any, schemaJSON []byte) error {
	if len(schemaJSON) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaJSON)
	docLoader := gojsonschema.NewGoLoader(cfg)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return errors.WrapInvalid(err, "graphdesc", "ValidateConfig", "schema evaluation failed")
	}
	if !result.Valid() {
		msg := "component config failed schema validation:"
		for _, re := range result.Errors() {
			msg += " " + re.String() + ";"
		}
		return errors.WrapInvalid(errors.ErrInvalidConfig, "graphdesc", "ValidateConfig", msg)
	}
	return nil
}
