package transfer

import (
	_ "embed"
	"fmt"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/jeandet/tscat/internal/model"
	"github.com/jeandet/tscat/internal/value"
)

//go:embed export.cue
var schemaSource string

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type document struct {
	Version    int            `json:"version"`
	Events     []eventDoc     `json:"events"`
	Catalogues []catalogueDoc `json:"catalogues"`
}

type attributeDoc struct {
	Type  string              `json:"type"`
	Value jsoniter.RawMessage `json:"value"`
}

type eventDoc struct {
	UUID       string                  `json:"uuid"`
	Start      string                  `json:"start"`
	Stop       string                  `json:"stop"`
	Author     string                  `json:"author"`
	Tags       []string                `json:"tags"`
	Attributes map[string]attributeDoc `json:"attributes"`
}

type catalogueDoc struct {
	UUID       string                  `json:"uuid"`
	Name       string                  `json:"name"`
	Author     string                  `json:"author"`
	Tags       []string                `json:"tags"`
	Attributes map[string]attributeDoc `json:"attributes"`
	Events     []string                `json:"events"`
}

// Decode validates blob against the export schema and rebuilds its
// entities. Every failure is a *model.ValidationError.
//
// Catalogue event references must resolve to events of the same document;
// an identity that appears twice is rejected.
func Decode(blob []byte) (*Bundle, error) {
	if err := validateSchema(blob); err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(blob, &doc); err != nil {
		return nil, model.NewValidationError("document", "%v", err)
	}

	b := &Bundle{Members: make(map[uuid.UUID][]uuid.UUID)}
	seen := make(map[uuid.UUID]bool, len(doc.Events))
	for i, ed := range doc.Events {
		e, err := decodeEvent(ed)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		if seen[e.UUID] {
			return nil, model.NewValidationError(model.FieldUUID, "event %s appears twice", e.UUID)
		}
		seen[e.UUID] = true
		b.Events = append(b.Events, e)
	}

	seenCat := make(map[uuid.UUID]bool, len(doc.Catalogues))
	for i, cd := range doc.Catalogues {
		c, members, err := decodeCatalogue(cd, seen)
		if err != nil {
			return nil, fmt.Errorf("catalogue %d: %w", i, err)
		}
		if seenCat[c.UUID] {
			return nil, model.NewValidationError(model.FieldUUID, "catalogue %s appears twice", c.UUID)
		}
		seenCat[c.UUID] = true
		b.Catalogues = append(b.Catalogues, c)
		b.Members[c.UUID] = members
	}
	return b, nil
}

// validateSchema unifies the document with #Export and requires a concrete
// result.
func validateSchema(blob []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("export.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile export schema: %w", err)
	}

	expr, err := cuejson.Extract("import.json", blob)
	if err != nil {
		return model.NewValidationError("document", "not valid JSON: %v", err)
	}
	data := ctx.BuildExpr(expr)
	if err := data.Err(); err != nil {
		return model.NewValidationError("document", "%v", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Export")).Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return model.NewValidationError("document", "%s", cueerrors.Details(err, nil))
	}
	return nil
}

func decodeEvent(ed eventDoc) (*model.Event, error) {
	id, err := uuid.Parse(ed.UUID)
	if err != nil {
		return nil, model.NewValidationError(model.FieldUUID, "%v", err)
	}
	start, err := time.Parse(time.RFC3339Nano, ed.Start)
	if err != nil {
		return nil, model.NewValidationError(model.FieldStart, "%v", err)
	}
	stop, err := time.Parse(time.RFC3339Nano, ed.Stop)
	if err != nil {
		return nil, model.NewValidationError(model.FieldStop, "%v", err)
	}
	attrs, err := decodeAttributes(ed.Attributes, ed.Tags)
	if err != nil {
		return nil, err
	}
	return model.NewEvent(id, start, stop, ed.Author, attrs...)
}

func decodeCatalogue(cd catalogueDoc, events map[uuid.UUID]bool) (*model.Catalogue, []uuid.UUID, error) {
	id, err := uuid.Parse(cd.UUID)
	if err != nil {
		return nil, nil, model.NewValidationError(model.FieldUUID, "%v", err)
	}
	attrs, err := decodeAttributes(cd.Attributes, cd.Tags)
	if err != nil {
		return nil, nil, err
	}
	c, err := model.NewCatalogue(id, cd.Name, cd.Author, attrs...)
	if err != nil {
		return nil, nil, err
	}

	members := make([]uuid.UUID, 0, len(cd.Events))
	for _, ref := range cd.Events {
		eid, err := uuid.Parse(ref)
		if err != nil {
			return nil, nil, model.NewValidationError("events", "%v", err)
		}
		if !events[eid] {
			return nil, nil, model.NewValidationError("events", "catalogue %s references unknown event %s", id, eid)
		}
		members = append(members, eid)
	}
	return c, members, nil
}

// decodeAttributes turns typed attributes and tags into constructor
// arguments, in name order.
func decodeAttributes(attrs map[string]attributeDoc, tags []string) ([]model.Attr, error) {
	out := make([]model.Attr, 0, len(attrs)+1)
	for _, name := range value.SortedKeys(attrs) {
		v, err := decodeAttribute(attrs[name])
		if err != nil {
			return nil, model.NewValidationError(name, "%v", err)
		}
		out = append(out, model.With(name, v))
	}
	return append(out, model.WithTags(tags...)), nil
}

func decodeAttribute(a attributeDoc) (value.Value, error) {
	switch value.Kind(a.Type) {
	case value.KindString:
		var s string
		if err := json.Unmarshal(a.Value, &s); err != nil {
			return nil, err
		}
		return value.String(s), nil
	case value.KindInt:
		var n int64
		if err := json.Unmarshal(a.Value, &n); err != nil {
			return nil, err
		}
		return value.Int(n), nil
	case value.KindFloat:
		var f float64
		if err := json.Unmarshal(a.Value, &f); err != nil {
			return nil, err
		}
		return value.Float(f), nil
	case value.KindBool:
		var b bool
		if err := json.Unmarshal(a.Value, &b); err != nil {
			return nil, err
		}
		return value.Bool(b), nil
	case value.KindTime:
		var s string
		if err := json.Unmarshal(a.Value, &s); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, err
		}
		return value.NewTime(t)
	default:
		return nil, fmt.Errorf("unknown attribute type %q", a.Type)
	}
}
