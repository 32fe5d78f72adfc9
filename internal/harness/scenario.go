package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pql/internal/event"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// PQL is the pattern under test.
	PQL string `yaml:"pql"`

	// Now is the RFC 3339 instant NOW evaluates to. Default: testutil.Epoch.
	Now string `yaml:"now,omitempty"`

	// Stream is the input, one flat map per event.
	Stream []map[string]any `yaml:"stream"`

	// Rules lists CUE rule files or directories applied to the stream
	// before the pattern. Paths are relative to the scenario file.
	Rules []string `yaml:"rules,omitempty"`

	// Expect describes the pattern's outcome.
	Expect Expect `yaml:"expect"`

	// Assertions check the events emitted by Rules.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect specifies the expected outcome of applying the pattern. Unset
// fields are not checked.
type Expect struct {
	Successful  *bool `yaml:"successful,omitempty"`
	Cardinality *int  `yaml:"cardinality,omitempty"`

	// Bindings are compared exactly and in order. Use [] to expect none.
	Bindings []map[string]any `yaml:"bindings,omitempty"`

	// Error expects the pattern to fail to compile: "syntax",
	// "structural" or "not_implemented".
	Error string `yaml:"error,omitempty"`
}

// Expected compile error kinds.
const (
	ErrorSyntax         = "syntax"
	ErrorStructural     = "structural"
	ErrorNotImplemented = "not_implemented"
)

// Assertion checks the emitted events.
type Assertion struct {
	// Type specifies the assertion type:
	// - "emitted_contains": an emitted event of EventType has Attrs
	// - "emitted_count": exactly Count events of EventType were emitted
	// - "emitted_order": the first events of Types appear in that order
	// - "binding_contains": some binding equals Binding on its names
	Type string `yaml:"type"`

	EventType string `yaml:"event_type,omitempty"`

	// Attrs is a subset match against the emitted event.
	Attrs map[string]any `yaml:"attrs,omitempty"`

	Count int `yaml:"count,omitempty"`

	Types []string `yaml:"types,omitempty"`

	// Binding is a subset match against a binding summary.
	Binding map[string]any `yaml:"binding,omitempty"`
}

// Assertion type constants.
const (
	AssertEmittedContains = "emitted_contains"
	AssertEmittedCount    = "emitted_count"
	AssertEmittedOrder    = "emitted_order"
	AssertBindingContains = "binding_contains"
)

// LoadScenario reads and parses a scenario YAML file. Rule paths are
// resolved relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i, rulePath := range scenario.Rules {
		if !filepath.IsAbs(rulePath) {
			scenario.Rules[i] = filepath.Join(base, rulePath)
		}
	}
	for _, rulePath := range scenario.Rules {
		if _, err := os.Stat(rulePath); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: rules not found: %s", rulePath)
		}
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.PQL == "" {
		return fmt.Errorf("pql is required")
	}
	if s.Now != "" {
		if _, err := time.Parse(time.RFC3339Nano, s.Now); err != nil {
			return fmt.Errorf("now: %w", err)
		}
	}

	for i, attrs := range s.Stream {
		if _, err := event.FromMap(attrs); err != nil {
			return fmt.Errorf("stream[%d]: %w", i, err)
		}
	}

	switch s.Expect.Error {
	case "", ErrorSyntax, ErrorStructural, ErrorNotImplemented:
	default:
		return fmt.Errorf("expect.error: unknown kind %q", s.Expect.Error)
	}
	if s.Expect.Error != "" && (s.Expect.Successful != nil || s.Expect.Cardinality != nil || s.Expect.Bindings != nil) {
		return fmt.Errorf("expect.error excludes successful, cardinality and bindings")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEmittedContains:
		if a.EventType == "" {
			return fmt.Errorf("assertions[%d]: event_type is required for emitted_contains", index)
		}
	case AssertEmittedCount:
		if a.EventType == "" {
			return fmt.Errorf("assertions[%d]: event_type is required for emitted_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for emitted_count", index)
		}
	case AssertEmittedOrder:
		if len(a.Types) == 0 {
			return fmt.Errorf("assertions[%d]: types list is required for emitted_order", index)
		}
	case AssertBindingContains:
		if len(a.Binding) == 0 {
			return fmt.Errorf("assertions[%d]: binding is required for binding_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// events decodes the input stream.
func (s *Scenario) events() (event.Stream, error) {
	stream := make(event.Stream, len(s.Stream))
	for i, attrs := range s.Stream {
		e, err := event.FromMap(attrs)
		if err != nil {
			return nil, fmt.Errorf("stream[%d]: %w", i, err)
		}
		stream[i] = e
	}
	return stream, nil
}
