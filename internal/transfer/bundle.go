package transfer

import (
	"github.com/google/uuid"

	"github.com/jeandet/tscat/internal/model"
)

// Version is the export document format version.
const Version = 1

// Bundle is the decoded content of an export document.
type Bundle struct {
	Events     []*model.Event
	Catalogues []*model.Catalogue

	// Members maps a catalogue identity to its member events, in document
	// order.
	Members map[uuid.UUID][]uuid.UUID
}
