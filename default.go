package tscat

import (
	"context"
	"sync"
	"time"
)

var (
	defaultMu      sync.RWMutex
	defaultBackend *Backend
)

// SetDefault installs b as the Backend used by the package-level functions.
// Passing nil removes it.
func SetDefault(b *Backend) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultBackend = b
}

// Default returns the installed Backend, or nil.
func Default() *Backend {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultBackend
}

func current() (*Backend, error) {
	if b := Default(); b != nil {
		return b, nil
	}
	return nil, ErrNoBackend
}

// CreateEvent calls CreateEvent on the default Backend.
func CreateEvent(ctx context.Context, start, stop time.Time, author string, attrs ...Attr) (*Event, error) {
	b, err := current()
	if err != nil {
		return nil, err
	}
	return b.CreateEvent(ctx, start, stop, author, attrs...)
}

// CreateCatalogue calls CreateCatalogue on the default Backend.
func CreateCatalogue(ctx context.Context, name, author string, attrs ...Attr) (*Catalogue, error) {
	b, err := current()
	if err != nil {
		return nil, err
	}
	return b.CreateCatalogue(ctx, name, author, attrs...)
}

// AddEventsToCatalogue calls AddEventsToCatalogue on the default Backend.
func AddEventsToCatalogue(ctx context.Context, c *Catalogue, events ...*Event) error {
	b, err := current()
	if err != nil {
		return err
	}
	return b.AddEventsToCatalogue(ctx, c, events...)
}

// UpdateEvent calls UpdateEvent on the default Backend.
func UpdateEvent(ctx context.Context, e *Event) error {
	b, err := current()
	if err != nil {
		return err
	}
	return b.UpdateEvent(ctx, e)
}

// UpdateCatalogue calls UpdateCatalogue on the default Backend.
func UpdateCatalogue(ctx context.Context, c *Catalogue) error {
	b, err := current()
	if err != nil {
		return err
	}
	return b.UpdateCatalogue(ctx, c)
}

// GetEvents calls GetEvents on the default Backend.
func GetEvents(ctx context.Context, q EventQuery) ([]*Event, error) {
	b, err := current()
	if err != nil {
		return nil, err
	}
	return b.GetEvents(ctx, q)
}

// GetCatalogues calls GetCatalogues on the default Backend.
func GetCatalogues(ctx context.Context, p Predicate) ([]*Catalogue, error) {
	b, err := current()
	if err != nil {
		return nil, err
	}
	return b.GetCatalogues(ctx, p)
}

// Discard calls Discard on the default Backend.
func Discard(ctx context.Context) error {
	b, err := current()
	if err != nil {
		return err
	}
	return b.Discard(ctx)
}

// ExportJSON calls ExportJSON on the default Backend.
func ExportJSON(ctx context.Context, c *Catalogue) ([]byte, error) {
	b, err := current()
	if err != nil {
		return nil, err
	}
	return b.ExportJSON(ctx, c)
}

// ImportJSON calls ImportJSON on the default Backend.
func ImportJSON(ctx context.Context, blob []byte) ([]*Catalogue, error) {
	b, err := current()
	if err != nil {
		return nil, err
	}
	return b.ImportJSON(ctx, blob)
}

// Begin calls Begin on the default Backend.
func Begin(ctx context.Context) (*Session, error) {
	b, err := current()
	if err != nil {
		return nil, err
	}
	return b.Begin(ctx)
}

// RunSession calls Session on the default Backend.
func RunSession(ctx context.Context, fn func(*Session) error) error {
	b, err := current()
	if err != nil {
		return err
	}
	return b.Session(ctx, fn)
}
