// Package script builds pipelines from YAML definitions whose entry, jobs and hooks are Lua scripts.
package script

import (
	"bytes"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

// ErrInvalidDefinition is returned when a pipeline file cannot be used.
var ErrInvalidDefinition = errors.New("invalid pipeline definition")

// Definition is a pipeline file.
//
//	name: release
//	stages: [build, test]
//	env:
//	  target: linux
//	entry: |
//	  env.started = true
//	jobs:
//	  - name: compile
//	    stage: build
//	    script: env.binary = "app-" .. env.target
//	hooks:
//	  beforeAll: [{name: setup, script: "env.workdir = '/tmp'"}]
type Definition struct {
	Name   string         `yaml:"name"`
	Stages []string       `yaml:"stages"`
	Env    map[string]any `yaml:"env"`
	Entry  string         `yaml:"entry"`
	Jobs   []Unit         `yaml:"jobs"`
	Hooks  Hooks          `yaml:"hooks"`
}

type Hooks struct {
	BeforeAll  []Unit `yaml:"beforeAll"`
	AfterAll   []Unit `yaml:"afterAll"`
	BeforeEach []Unit `yaml:"beforeEach"`
	AfterEach  []Unit `yaml:"afterEach"`
}

// Unit is a job or a hook. A unit without stage runs in every stage.
type Unit struct {
	Name    string        `yaml:"name"`
	Stage   *string       `yaml:"stage"`
	Script  string        `yaml:"script"`
	Timeout time.Duration `yaml:"timeout"`
}

// Load reads and parses the pipeline file at path.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", path)
	}

	def, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse %s", path)
	}

	return def, nil
}

// Parse decodes a pipeline definition. Unknown fields are rejected.
func Parse(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	def := &Definition{}

	err := dec.Decode(def)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidDefinition, "%v", err)
	}

	err = def.Validate()
	if err != nil {
		return nil, err
	}

	return def, nil
}

// Validate checks the definition can be built.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return errors.Wrap(ErrInvalidDefinition, "name is required")
	}

	for _, group := range d.groups() {
		for idx, unit := range group.units {
			if unit.Script == "" {
				return errors.Wrapf(ErrInvalidDefinition, "%s #%d %q has no script", group.kind, idx, unit.Name)
			}

			if unit.Timeout < 0 {
				return errors.Wrapf(ErrInvalidDefinition, "%s #%d %q has a negative timeout", group.kind, idx, unit.Name)
			}

			if unit.Stage != nil && (group.kind == model.BeforeAllKind || group.kind == model.AfterAllKind) {
				return errors.Wrapf(ErrInvalidDefinition, "%s %q cannot have a stage", group.kind, unit.Name)
			}
		}
	}

	return nil
}

type unitGroup struct {
	kind  model.UnitKind
	units []Unit
}

// groups lists the units by kind, in registration order.
func (d *Definition) groups() []unitGroup {
	return []unitGroup{
		{kind: model.JobKind, units: d.Jobs},
		{kind: model.BeforeAllKind, units: d.Hooks.BeforeAll},
		{kind: model.AfterAllKind, units: d.Hooks.AfterAll},
		{kind: model.BeforeEachKind, units: d.Hooks.BeforeEach},
		{kind: model.AfterEachKind, units: d.Hooks.AfterEach},
	}
}
