package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SuiteResult contains results from running a directory of scenarios.
type SuiteResult struct {
	Total    int            `json:"total"`
	Passed   int            `json:"passed"`
	Failed   int            `json:"failed"`
	Failures []SuiteFailure `json:"failures,omitempty"`
}

// SuiteFailure represents one failed scenario.
type SuiteFailure struct {
	Scenario string   `json:"scenario"`
	Path     string   `json:"path"`
	Errors   []string `json:"errors"`
}

// ScenarioFiles returns the .yaml and .yml files in dir, sorted by name.
func ScenarioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}

// RunDir runs every scenario in dir. A scenario that cannot be loaded or
// run counts as failed; RunDir itself only fails when dir is unreadable.
func RunDir(dir string) (*SuiteResult, error) {
	paths, err := ScenarioFiles(dir)
	if err != nil {
		return nil, err
	}

	suite := &SuiteResult{}
	for _, path := range paths {
		suite.Total++

		name := filepath.Base(path)
		errs := runFile(path, &name)
		if len(errs) == 0 {
			suite.Passed++
			continue
		}
		suite.Failed++
		suite.Failures = append(suite.Failures, SuiteFailure{
			Scenario: name,
			Path:     path,
			Errors:   errs,
		})
	}
	return suite, nil
}

func runFile(path string, name *string) []string {
	scenario, err := LoadScenario(path)
	if err != nil {
		return []string{err.Error()}
	}
	*name = scenario.Name

	result, err := Run(scenario)
	if err != nil {
		return []string{err.Error()}
	}
	return result.Errors
}
