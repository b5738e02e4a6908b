package schema

import (
	"context"
	"fmt"

	"github.com/banshee-data/pixelgrid/internal/dispatch"
)

// Describer is implemented by sources that know their own schema.
type Describer interface {
	Schema() (Schema, error)
}

// ContextDescriber is a Describer whose lookup does I/O and honors
// cancellation.
type ContextDescriber interface {
	SchemaContext(ctx context.Context) (Schema, error)
}

// Discoverer infers the schema of a source it was registered for.
type Discoverer func(source any) (Schema, error)

// Discoverers holds schema inference for source kinds that cannot implement
// Describer themselves, such as third-party table types.
var Discoverers = dispatch.NewRegistry[Discoverer]("schema")

// RegisterDiscoverer installs d for values of kind k and any kind deriving
// from it.
func RegisterDiscoverer(k dispatch.Kind, d Discoverer) {
	Discoverers.Register(k, d)
}

// Discover infers the schema of source without a deadline.
func Discover(source any) (Schema, error) {
	return DiscoverContext(context.Background(), source)
}

// DiscoverContext infers the schema of source. A ContextDescriber or
// Describer is asked directly; anything else goes through the Discoverers
// registry.
func DiscoverContext(ctx context.Context, source any) (Schema, error) {
	if err := ctx.Err(); err != nil {
		return Schema{}, err
	}
	switch d := source.(type) {
	case ContextDescriber:
		return d.SchemaContext(ctx)
	case Describer:
		return d.Schema()
	}
	d, _, err := Discoverers.Resolve(source)
	if err != nil {
		return Schema{}, fmt.Errorf("%w: %w", ErrUnknownSource, err)
	}
	return d(source)
}
