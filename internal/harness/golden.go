package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/pql/internal/event"
)

// Snapshot captures a scenario's outcome for golden comparison.
type Snapshot struct {
	ScenarioName string
	Successful   bool
	Cardinality  int
	Documents    []map[string]any
	Emitted      event.Stream
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization.
func (s *Snapshot) toCanonicalMap() map[string]any {
	bindings := make([]any, len(s.Documents))
	for i, doc := range s.Documents {
		bindings[i] = doc
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"successful":    s.Successful,
		"cardinality":   s.Cardinality,
		"bindings":      bindings,
	}
	if s.Emitted != nil {
		result["emitted"] = s.Emitted
	}
	return result
}

// Marshal returns the snapshot's canonical JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return event.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its full bindings against
// a golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the bindings don't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{
		ScenarioName: scenarioName,
		Successful:   result.Successful,
		Cardinality:  result.Cardinality,
		Documents:    result.Documents,
		Emitted:      result.Emitted,
	}
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
