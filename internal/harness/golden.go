package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/jeandet/tscat/internal/value"
)

// Snapshot renders a scenario's trace and final state as canonical JSON.
// The bytes are stable across runs because identities are sequential and
// every map is written with sorted keys.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, event := range result.Trace {
		m := map[string]any{
			"seq":     event.Seq,
			"step":    event.Step,
			"outcome": event.Outcome,
		}
		if event.Label != "" {
			m["label"] = event.Label
		}
		if event.ID != "" {
			m["id"] = event.ID
		}
		trace[i] = m
	}

	snapshot := map[string]any{
		"scenario_name": scenarioName,
		"trace":         trace,
	}
	if len(result.State) > 0 {
		snapshot["state"] = result.State
	}
	return value.MarshalCanonical(snapshot)
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
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

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
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
