package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is an executable description of catalogue operations and the
// state they must leave behind.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps run in order against a fresh in-memory store.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated against the committed state after the steps.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation. Exactly one operation field is set.
type Step struct {
	CreateEvent     *EventStep     `yaml:"create_event,omitempty"`
	CreateCatalogue *CatalogueStep `yaml:"create_catalogue,omitempty"`
	Add             *AddStep       `yaml:"add,omitempty"`
	Update          *UpdateStep    `yaml:"update,omitempty"`
	Session         *SessionStep   `yaml:"session,omitempty"`
	Export          *ExportStep    `yaml:"export,omitempty"`
	Import          *ImportStep    `yaml:"import,omitempty"`
	Discard         bool           `yaml:"discard,omitempty"`

	// ExpectError is the error class the step must fail with:
	// validation, not_found, commit, session or panic.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// EventStep creates an event and binds it to Label.
type EventStep struct {
	Label  string         `yaml:"label"`
	Start  string         `yaml:"start"`
	Stop   string         `yaml:"stop"`
	Author string         `yaml:"author"`
	Fields map[string]any `yaml:"fields,omitempty"`
	Tags   []string       `yaml:"tags,omitempty"`
}

// CatalogueStep creates a catalogue and binds it to Label.
type CatalogueStep struct {
	Label  string         `yaml:"label"`
	Name   string         `yaml:"name"`
	Author string         `yaml:"author"`
	Fields map[string]any `yaml:"fields,omitempty"`
	Tags   []string       `yaml:"tags,omitempty"`
}

// AddStep adds labelled events to a labelled catalogue.
type AddStep struct {
	Catalogue string   `yaml:"catalogue"`
	Events    []string `yaml:"events"`
}

// UpdateStep edits the entity bound to Label and writes it back.
type UpdateStep struct {
	Label string         `yaml:"label"`
	Set   map[string]any `yaml:"set,omitempty"`
	Unset []string       `yaml:"unset,omitempty"`
}

// SessionStep runs Steps in one session. A non-empty Fail makes the session
// body return that error; Panic makes it panic. Either way the session
// rolls back.
type SessionStep struct {
	Steps []Step `yaml:"steps"`
	Fail  string `yaml:"fail,omitempty"`
	Panic bool   `yaml:"panic,omitempty"`
}

// ExportStep exports a labelled catalogue and keeps the document as As.
type ExportStep struct {
	Catalogue string `yaml:"catalogue"`
	As        string `yaml:"as"`
}

// ImportStep imports a document kept by an earlier export.
type ImportStep struct {
	Document string `yaml:"document"`
}

// Assertion checks the committed state.
type Assertion struct {
	// Type is one of events, catalogues, event_count, catalogue_count.
	Type string `yaml:"type"`

	// Filter is an optional filter expression.
	Filter string `yaml:"filter,omitempty"`

	// Catalogue restricts events to the members of a labelled catalogue.
	Catalogue string `yaml:"catalogue,omitempty"`

	// Expect lists the labels that must be returned, in creation order.
	Expect []string `yaml:"expect,omitempty"`

	// Count is the expected number of matches (event_count, catalogue_count).
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertEvents         = "events"
	AssertCatalogues     = "catalogues"
	AssertEventCount     = "event_count"
	AssertCatalogueCount = "catalogue_count"
)

// Error classes accepted by Step.ExpectError.
const (
	ClassValidation = "validation"
	ClassNotFound   = "not_found"
	ClassCommit     = "commit"
	ClassSession    = "session"
	ClassPanic      = "panic"
	ClassOther      = "error"
)

var errorClasses = map[string]bool{
	ClassValidation: true,
	ClassNotFound:   true,
	ClassCommit:     true,
	ClassSession:    true,
	ClassPanic:      true,
	ClassOther:      true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and step shapes.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps must contain at least one step")
	}
	for i, step := range s.Steps {
		if err := validateStep(step, fmt.Sprintf("steps[%d]", i), false); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a, i); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step, path string, inSession bool) error {
	n := 0
	for _, set := range []bool{
		step.CreateEvent != nil,
		step.CreateCatalogue != nil,
		step.Add != nil,
		step.Update != nil,
		step.Session != nil,
		step.Export != nil,
		step.Import != nil,
		step.Discard,
	} {
		if set {
			n++
		}
	}
	if n != 1 {
		return fmt.Errorf("%s: exactly one operation is required, found %d", path, n)
	}
	if step.ExpectError != "" && !errorClasses[step.ExpectError] {
		return fmt.Errorf("%s: unknown error class %q", path, step.ExpectError)
	}

	switch {
	case step.CreateEvent != nil:
		if step.CreateEvent.Label == "" {
			return fmt.Errorf("%s: create_event.label is required", path)
		}
	case step.CreateCatalogue != nil:
		if step.CreateCatalogue.Label == "" {
			return fmt.Errorf("%s: create_catalogue.label is required", path)
		}
	case step.Add != nil:
		if step.Add.Catalogue == "" {
			return fmt.Errorf("%s: add.catalogue is required", path)
		}
	case step.Update != nil:
		if step.Update.Label == "" {
			return fmt.Errorf("%s: update.label is required", path)
		}
	case step.Session != nil:
		if inSession {
			return fmt.Errorf("%s: sessions cannot be nested", path)
		}
		for i, inner := range step.Session.Steps {
			if err := validateStep(inner, fmt.Sprintf("%s.session.steps[%d]", path, i), true); err != nil {
				return err
			}
		}
	case step.Export != nil, step.Import != nil, step.Discard:
		if inSession {
			return fmt.Errorf("%s: only create, add and update run inside a session", path)
		}
		if step.Export != nil && (step.Export.Catalogue == "" || step.Export.As == "") {
			return fmt.Errorf("%s: export.catalogue and export.as are required", path)
		}
		if step.Import != nil && step.Import.Document == "" {
			return fmt.Errorf("%s: import.document is required", path)
		}
	}
	return nil
}

// validateAssertion checks type-specific required fields.
func validateAssertion(a Assertion, index int) error {
	switch a.Type {
	case AssertEvents, AssertCatalogues:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	case AssertEventCount, AssertCatalogueCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: a non-negative count is required for %s", index, a.Type)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if a.Catalogue != "" && a.Type != AssertEvents && a.Type != AssertEventCount {
		return fmt.Errorf("assertions[%d]: catalogue only applies to event assertions", index)
	}
	return nil
}
