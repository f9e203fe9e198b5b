package harness

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeandet/tscat"
	"github.com/jeandet/tscat/internal/testutil"
)

func mustParse(t *testing.T, content string) *Scenario {
	t.Helper()
	scenario, err := ParseScenario([]byte(content))
	require.NoError(t, err)
	return scenario
}

func TestRun_MinimalScenario(t *testing.T) {
	scenario := mustParse(t, `
name: minimal
steps:
  - create_event: { label: e1, start: 2024-01-01, stop: 2024-01-02, author: alice }
assertions:
  - type: events
    expect: [e1]
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, TraceEvent{
		Seq:     1,
		Step:    StepCreateEvent,
		Label:   "e1",
		ID:      testutil.ID(1).String(),
		Outcome: OutcomeOK,
	}, result.Trace[0])
}

func TestRun_DeterministicIdentities(t *testing.T) {
	scenario := mustParse(t, `
name: ids
steps:
  - create_event: { label: e1, start: 2024-01-01, stop: 2024-01-02, author: alice }
  - create_catalogue: { label: c1, name: crossings, author: alice }
`)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, testutil.ID(2).String(), first.Trace[1].ID)
}

func TestRun_UnexpectedErrorFails(t *testing.T) {
	scenario := mustParse(t, `
name: unexpected
steps:
  - create_event: { label: e1, start: 2024-01-02, stop: 2024-01-01, author: alice }
`)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "steps[0] create_event: unexpected error")
	assert.Equal(t, ClassValidation, result.Trace[0].Outcome)
	assert.Empty(t, result.Trace[0].ID, "failed creation binds nothing")
}

func TestRun_ExpectedErrorPasses(t *testing.T) {
	scenario := mustParse(t, `
name: expected
steps:
  - create_catalogue: { label: c1, name: "", author: alice }
    expect_error: validation
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_ExpectedErrorMissing(t *testing.T) {
	scenario := mustParse(t, `
name: missing
steps:
  - create_catalogue: { label: c1, name: crossings, author: alice }
    expect_error: validation
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected validation error, got success")
}

func TestRun_WrongErrorClass(t *testing.T) {
	scenario := mustParse(t, `
name: wrong_class
steps:
  - create_catalogue: { label: c1, name: "", author: alice }
    expect_error: not_found
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected not_found error, got validation")
}

func TestRun_SessionCommits(t *testing.T) {
	scenario := mustParse(t, `
name: session_commit
steps:
  - session:
      steps:
        - create_event: { label: e1, start: 2024-01-01, stop: 2024-01-02, author: alice }
        - create_catalogue: { label: c1, name: crossings, author: alice }
        - add: { catalogue: c1, events: [e1] }
assertions:
  - type: events
    catalogue: c1
    expect: [e1]
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)

	steps := make([]string, len(result.Trace))
	for i, ev := range result.Trace {
		steps[i] = ev.Step
	}
	assert.Equal(t, []string{StepCreateEvent, StepCreateCatalogue, StepAdd, StepSession}, steps,
		"session body is traced before the session itself")
}

func TestRun_SessionRollsBack(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/session_rollback.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)

	var outcomes []string
	for _, ev := range result.Trace {
		if ev.Step == StepSession {
			outcomes = append(outcomes, ev.Outcome)
		}
	}
	assert.Equal(t, []string{ClassOther, ClassPanic}, outcomes)
}

func TestRun_UnknownLabelAborts(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "add to unknown catalogue",
			content: "name: x\nsteps:\n  - add: { catalogue: c9, events: [] }\n",
			wantErr: `unknown catalogue label "c9"`,
		},
		{
			name: "add unknown event",
			content: `name: x
steps:
  - create_catalogue: { label: c1, name: crossings, author: alice }
  - add: { catalogue: c1, events: [e9] }
`,
			wantErr: `unknown event label "e9"`,
		},
		{
			name:    "update unknown label",
			content: "name: x\nsteps:\n  - update: { label: e9, set: { a: 1 } }\n",
			wantErr: `unknown label "e9"`,
		},
		{
			name:    "import unknown document",
			content: "name: x\nsteps:\n  - import: { document: doc }\n",
			wantErr: `unknown document "doc"`,
		},
		{
			name: "label bound twice",
			content: `name: x
steps:
  - create_event: { label: e1, start: 2024-01-01, stop: 2024-01-02, author: alice }
  - create_catalogue: { label: e1, name: crossings, author: alice }
`,
			wantErr: `label "e1" is already bound`,
		},
		{
			name:    "bad time",
			content: "name: x\nsteps:\n  - create_event: { label: e1, start: yesterday, stop: 2024-01-02, author: alice }\n",
			wantErr: `cannot parse "yesterday" as a time`,
		},
		{
			name: "unknown label inside session",
			content: `name: x
steps:
  - session:
      steps:
        - add: { catalogue: c9, events: [] }
`,
			wantErr: "steps[0].session.steps[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(mustParse(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			var bad *ScenarioError
			assert.True(t, errors.As(err, &bad))
		})
	}
}

func TestRun_TimeFieldValues(t *testing.T) {
	scenario := mustParse(t, `
name: times
steps:
  - create_event:
      label: e1
      start: 2024-01-01
      stop: 2024-01-02
      author: alice
      fields: { observed: "@2024-01-01T12:00:00Z", handle: "@@alice" }
assertions:
  - type: events
    filter: "observed > @2024-01-01T06:00:00Z and handle == '@alice'"
    expect: [e1]
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_UpdateEvent(t *testing.T) {
	scenario := mustParse(t, `
name: update
steps:
  - create_event:
      label: e1
      start: 2024-01-01
      stop: 2024-01-02
      author: alice
      fields: { quality: 3, note: draft }
  - update: { label: e1, set: { quality: 5, tags: [reviewed] }, unset: [note] }
assertions:
  - type: events
    filter: "quality == 5 and 'reviewed' in tags and not has(note)"
    expect: [e1]
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_ExampleScenarios(t *testing.T) {
	for _, name := range []string{"membership", "session_rollback", "transfer", "validation"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(fmt.Sprintf("testdata/scenarios/%s.yaml", name))
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"panic", &panicError{value: "boom"}, ClassPanic},
		{"commit", &tscat.CommitError{Err: errors.New("disk full")}, ClassCommit},
		{"commit wrapping validation", &tscat.CommitError{Err: &tscat.ValidationError{Field: "uuid"}}, ClassCommit},
		{"session active", fmt.Errorf("begin: %w", tscat.ErrSessionActive), ClassSession},
		{"session closed", tscat.ErrSessionClosed, ClassSession},
		{"not found", &tscat.NotFoundError{Kind: "event", ID: testutil.ID(1)}, ClassNotFound},
		{"validation", &tscat.ValidationError{Field: "start"}, ClassValidation},
		{"other", errors.New("abandon"), ClassOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
