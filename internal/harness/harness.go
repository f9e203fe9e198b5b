// Package harness runs catalogue scenarios against a fresh in-memory backend.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeandet/tscat"
	"github.com/jeandet/tscat/internal/store"
	"github.com/jeandet/tscat/internal/testutil"
	"github.com/jeandet/tscat/internal/value"
)

// Step names recorded in the trace.
const (
	StepCreateEvent     = "create_event"
	StepCreateCatalogue = "create_catalogue"
	StepAdd             = "add"
	StepUpdate          = "update"
	StepSession         = "session"
	StepExport          = "export"
	StepImport          = "import"
	StepDiscard         = "discard"
)

// OutcomeOK is the trace outcome of a step that succeeded.
const OutcomeOK = "ok"

// Harness executes the steps of one scenario.
//
// Identities come from testutil.SequentialIDs, so the same scenario binds
// the same UUIDs to the same labels on every run.
type Harness struct {
	backend    *tscat.Backend
	logger     *slog.Logger
	events     map[string]*tscat.Event
	catalogues map[string]*tscat.Catalogue
	labels     map[uuid.UUID]string
	docs       map[string][]byte
}

// ScenarioError reports a scenario that cannot be executed at all, such as
// a reference to a label no earlier step bound. It aborts Run instead of
// failing the result.
type ScenarioError struct {
	Msg string
}

func (e *ScenarioError) Error() string {
	return e.Msg
}

func scenarioErrorf(format string, args ...any) error {
	return &ScenarioError{Msg: fmt.Sprintf(format, args...)}
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Open a fresh in-memory backend
// 2. Execute the steps in order, comparing each outcome to expect_error
// 3. Evaluate assertions against the committed state
// 4. Capture that state for golden comparison
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	b, err := tscat.Open(store.MemoryPath,
		tscat.WithLogger(logger),
		tscat.WithIDGenerator(testutil.NewSequentialIDs()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory backend: %w", err)
	}
	defer b.Close()

	h := &Harness{
		backend:    b,
		logger:     logger,
		events:     make(map[string]*tscat.Event),
		catalogues: make(map[string]*tscat.Catalogue),
		labels:     make(map[uuid.UUID]string),
		docs:       make(map[string][]byte),
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.runStep(ctx, nil, step, fmt.Sprintf("steps[%d]", i), result); err != nil {
			return nil, fmt.Errorf("failed to execute scenario %q: %w", scenario.Name, err)
		}
	}

	for _, msg := range h.EvaluateAssertions(ctx, scenario.Assertions) {
		result.AddError(msg)
	}

	state, err := h.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to capture state: %w", err)
	}
	result.State = state
	return result, nil
}

// runStep executes one step inside s, or against the backend when s is nil.
// Only a ScenarioError is returned; operation errors are checked against
// ExpectError and recorded on the result.
func (h *Harness) runStep(ctx context.Context, s *tscat.Session, step Step, path string, result *Result) error {
	name, label, err := h.execute(ctx, s, step, path, result)
	var bad *ScenarioError
	if errors.As(err, &bad) {
		return fmt.Errorf("%s: %w", path, err)
	}

	outcome := OutcomeOK
	if err != nil {
		outcome = Classify(err)
	}
	result.AddTrace(name, label, h.idOf(label), outcome)
	h.logger.Debug("step executed", "path", path, "step", name, "outcome", outcome)

	switch {
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("%s %s: unexpected error: %v", path, name, err))
	case step.ExpectError != "" && err == nil:
		result.AddError(fmt.Sprintf("%s %s: expected %s error, got success", path, name, step.ExpectError))
	case step.ExpectError != "" && outcome != step.ExpectError:
		result.AddError(fmt.Sprintf("%s %s: expected %s error, got %s: %v", path, name, step.ExpectError, outcome, err))
	}
	return nil
}

func (h *Harness) execute(ctx context.Context, s *tscat.Session, step Step, path string, result *Result) (string, string, error) {
	switch {
	case step.CreateEvent != nil:
		return StepCreateEvent, step.CreateEvent.Label, h.createEvent(ctx, s, step.CreateEvent)
	case step.CreateCatalogue != nil:
		return StepCreateCatalogue, step.CreateCatalogue.Label, h.createCatalogue(ctx, s, step.CreateCatalogue)
	case step.Add != nil:
		return StepAdd, step.Add.Catalogue, h.add(ctx, s, step.Add)
	case step.Update != nil:
		return StepUpdate, step.Update.Label, h.update(ctx, s, step.Update)
	case step.Session != nil:
		return StepSession, "", h.session(ctx, step.Session, path, result)
	case step.Export != nil:
		return StepExport, step.Export.Catalogue, h.export(ctx, step.Export)
	case step.Import != nil:
		return StepImport, "", h.importDocument(ctx, step.Import)
	default:
		return StepDiscard, "", h.backend.Discard(ctx)
	}
}

func (h *Harness) createEvent(ctx context.Context, s *tscat.Session, st *EventStep) error {
	if err := h.checkUnbound(st.Label); err != nil {
		return err
	}
	start, err := parseTime(st.Start)
	if err != nil {
		return scenarioErrorf("create_event %q: start: %v", st.Label, err)
	}
	stop, err := parseTime(st.Stop)
	if err != nil {
		return scenarioErrorf("create_event %q: stop: %v", st.Label, err)
	}
	attrs, err := buildAttrs(st.Fields, st.Tags)
	if err != nil {
		return err
	}

	var e *tscat.Event
	if s != nil {
		e, err = s.CreateEvent(start, stop, st.Author, attrs...)
	} else {
		e, err = h.backend.CreateEvent(ctx, start, stop, st.Author, attrs...)
	}
	if err != nil {
		return err
	}
	h.events[st.Label] = e
	h.labels[e.UUID] = st.Label
	return nil
}

func (h *Harness) createCatalogue(ctx context.Context, s *tscat.Session, st *CatalogueStep) error {
	if err := h.checkUnbound(st.Label); err != nil {
		return err
	}
	attrs, err := buildAttrs(st.Fields, st.Tags)
	if err != nil {
		return err
	}

	var c *tscat.Catalogue
	if s != nil {
		c, err = s.CreateCatalogue(st.Name, st.Author, attrs...)
	} else {
		c, err = h.backend.CreateCatalogue(ctx, st.Name, st.Author, attrs...)
	}
	if err != nil {
		return err
	}
	h.catalogues[st.Label] = c
	h.labels[c.UUID] = st.Label
	return nil
}

func (h *Harness) add(ctx context.Context, s *tscat.Session, st *AddStep) error {
	c, err := h.catalogue(st.Catalogue)
	if err != nil {
		return err
	}
	events := make([]*tscat.Event, 0, len(st.Events))
	for _, label := range st.Events {
		e, ok := h.events[label]
		if !ok {
			return scenarioErrorf("unknown event label %q", label)
		}
		events = append(events, e)
	}
	if s != nil {
		return s.AddEventsToCatalogue(ctx, c, events...)
	}
	return h.backend.AddEventsToCatalogue(ctx, c, events...)
}

// update edits the bound entity in place. A rolled-back update leaves the
// in-memory copy edited while the store keeps the committed content.
func (h *Harness) update(ctx context.Context, s *tscat.Session, st *UpdateStep) error {
	if e, ok := h.events[st.Label]; ok {
		if err := applyEdits(e, st); err != nil {
			return err
		}
		if s != nil {
			return s.UpdateEvent(e)
		}
		return h.backend.UpdateEvent(ctx, e)
	}
	if c, ok := h.catalogues[st.Label]; ok {
		if err := applyEdits(c, st); err != nil {
			return err
		}
		if s != nil {
			return s.UpdateCatalogue(c)
		}
		return h.backend.UpdateCatalogue(ctx, c)
	}
	return scenarioErrorf("unknown label %q", st.Label)
}

type editable interface {
	Set(name string, v any) error
	Unset(name string)
}

func applyEdits(target editable, st *UpdateStep) error {
	for _, name := range value.SortedKeys(st.Set) {
		v, err := convertValue(st.Set[name])
		if err != nil {
			return err
		}
		if err := target.Set(name, v); err != nil {
			return err
		}
	}
	for _, name := range st.Unset {
		target.Unset(name)
	}
	return nil
}

// session runs the nested steps in one session. Their outcomes are traced
// before the session's own.
func (h *Harness) session(ctx context.Context, st *SessionStep, path string, result *Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()

	return h.backend.Session(ctx, func(s *tscat.Session) error {
		for i, inner := range st.Steps {
			innerPath := fmt.Sprintf("%s.session.steps[%d]", path, i)
			if err := h.runStep(ctx, s, inner, innerPath, result); err != nil {
				return err
			}
		}
		if st.Panic {
			msg := st.Fail
			if msg == "" {
				msg = "session body panicked"
			}
			panic(msg)
		}
		if st.Fail != "" {
			return errors.New(st.Fail)
		}
		return nil
	})
}

func (h *Harness) export(ctx context.Context, st *ExportStep) error {
	c, err := h.catalogue(st.Catalogue)
	if err != nil {
		return err
	}
	doc, err := h.backend.ExportJSON(ctx, c)
	if err != nil {
		return err
	}
	h.docs[st.As] = doc
	return nil
}

func (h *Harness) importDocument(ctx context.Context, st *ImportStep) error {
	doc, ok := h.docs[st.Document]
	if !ok {
		return scenarioErrorf("unknown document %q", st.Document)
	}
	_, err := h.backend.ImportJSON(ctx, doc)
	return err
}

func (h *Harness) catalogue(label string) (*tscat.Catalogue, error) {
	c, ok := h.catalogues[label]
	if !ok {
		return nil, scenarioErrorf("unknown catalogue label %q", label)
	}
	return c, nil
}

func (h *Harness) checkUnbound(label string) error {
	if _, ok := h.events[label]; ok {
		return scenarioErrorf("label %q is already bound", label)
	}
	if _, ok := h.catalogues[label]; ok {
		return scenarioErrorf("label %q is already bound", label)
	}
	return nil
}

func (h *Harness) idOf(label string) string {
	if e, ok := h.events[label]; ok {
		return e.UUID.String()
	}
	if c, ok := h.catalogues[label]; ok {
		return c.UUID.String()
	}
	return ""
}

// labelOf names an identity by its label, or by the UUID itself for
// entities no step created (imported ones).
func (h *Harness) labelOf(id uuid.UUID) string {
	if label, ok := h.labels[id]; ok {
		return label
	}
	return id.String()
}

// Classify maps an operation error to its error class.
func Classify(err error) string {
	var pe *panicError
	var ce *tscat.CommitError
	switch {
	case errors.As(err, &pe):
		return ClassPanic
	case errors.As(err, &ce):
		return ClassCommit
	case errors.Is(err, tscat.ErrSessionActive), errors.Is(err, tscat.ErrSessionClosed):
		return ClassSession
	case tscat.IsNotFound(err):
		return ClassNotFound
	case tscat.IsValidation(err):
		return ClassValidation
	default:
		return ClassOther
	}
}

// timeLayouts are tried in order by parseTime.
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseTime(text string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a time", text)
}

func buildAttrs(fields map[string]any, tags []string) ([]tscat.Attr, error) {
	attrs := make([]tscat.Attr, 0, len(fields)+1)
	for _, name := range value.SortedKeys(fields) {
		v, err := convertValue(fields[name])
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, tscat.With(name, v))
	}
	if tags != nil {
		attrs = append(attrs, tscat.WithTags(tags...))
	}
	return attrs, nil
}

// convertValue turns a YAML scalar into a field value. Strings starting
// with "@" are times, e.g. "@2024-01-01T00:00:00Z"; "@@" escapes a literal "@".
func convertValue(v any) (any, error) {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, "@") {
		return v, nil
	}
	if strings.HasPrefix(s, "@@") {
		return s[1:], nil
	}
	t, err := parseTime(s[1:])
	if err != nil {
		return nil, scenarioErrorf("field value %q: %v", s, err)
	}
	return t, nil
}
