package trellis

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// testStep is a single action in a test script.
type testStep struct {
	Action string  `yaml:"action"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	FromX  float64 `yaml:"fromX"`
	FromY  float64 `yaml:"fromY"`
	ToX    float64 `yaml:"toX"`
	ToY    float64 `yaml:"toY"`
	Frames int     `yaml:"frames"`

	// expect
	Element string `yaml:"element"`
	Path    string `yaml:"path"`
	Value   any    `yaml:"value"`
}

type testScript struct {
	Steps []testStep `yaml:"steps"`
}

// TestRunner sequences injected input and value expectations across frames
// for automated UI testing. Attach it to a Scene via SetTestRunner. Scripts
// are YAML (or JSON):
//
//	steps:
//	  - {action: drag, fromX: 5, fromY: 5, toX: 60, toY: 5, frames: 6}
//	  - {action: wait, frames: 2}
//	  - {action: expect, element: bar, path: Width, value: 55}
type TestRunner struct {
	steps     []testStep
	cursor    int
	waitCount int
	done      bool
	failures  []error
}

// LoadTestScript parses a test script and returns a TestRunner ready to be
// attached to a Scene.
func LoadTestScript(data []byte) (*TestRunner, error) {
	var script testScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse test script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("parse test script: no steps")
	}
	for i, st := range script.Steps {
		switch st.Action {
		case "click", "drag", "wait":
		case "expect":
			if st.Element == "" || st.Path == "" {
				return nil, fmt.Errorf("parse test script: step %d: expect needs element and path", i)
			}
		default:
			return nil, fmt.Errorf("parse test script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &TestRunner{steps: script.Steps}, nil
}

// SetTestRunner attaches a TestRunner to the scene. The runner steps once per
// Update, before input processing.
func (s *Scene) SetTestRunner(runner *TestRunner) {
	s.testRunner = runner
}

// Done reports whether all steps in the script have been executed.
func (r *TestRunner) Done() bool {
	return r.done
}

// Err returns every failed expectation, joined, or nil.
func (r *TestRunner) Err() error {
	return errors.Join(r.failures...)
}

// step advances the runner by one frame.
func (r *TestRunner) step(s *Scene) {
	if r.done {
		return
	}
	// injected input drains before the script moves on
	if len(s.injectQueue) > 0 {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "click":
		s.InjectClick(st.X, st.Y)
	case "drag":
		s.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, max(st.Frames, 2))
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this frame counts as one
		}
	case "expect":
		if err := r.expect(s, st); err != nil {
			r.failures = append(r.failures, fmt.Errorf("step %d: %w", r.cursor-1, err))
		}
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && len(s.injectQueue) == 0 {
		r.done = true
	}
}

// expect resolves st.Path on the named element and compares its value.
func (r *TestRunner) expect(s *Scene, st testStep) error {
	e := s.root
	if e.Name != st.Element {
		e = s.root.FindChild(st.Element)
	}
	if e == nil {
		return fmt.Errorf("expect: no element %q", st.Element)
	}
	m, err := ResolveMember(s.bindings.Registry, e.Self(), st.Path)
	if err != nil {
		return fmt.Errorf("expect %s.%s: %w", st.Element, st.Path, err)
	}
	want, err := documentValue(st.Value, m.ValueType(), s.bindings.Converters)
	if err != nil {
		return fmt.Errorf("expect %s.%s: %w", st.Element, st.Path, err)
	}
	if got := m.Value(); !valuesEqual(got, want) {
		return fmt.Errorf("expect %s.%s = %v, got %v", st.Element, st.Path, want, got)
	}
	return nil
}
