// Package workctx identifies units of work and keeps per-unit collections.
//
// A unit of work is named by an ID carried in a context.Context. Code that
// never creates one shares the zero ID, the default unit.
package workctx

import (
	"context"

	"github.com/google/uuid"
)

// ID names a unit of work. The zero ID is the shared default unit.
type ID string

// Default is the unit used when a context carries no ID.
const Default ID = ""

type ctxKey struct{}

// New returns a context carrying a fresh unit ID.
func New(ctx context.Context) (context.Context, ID) {
	id := ID(uuid.NewString())
	return WithID(ctx, id), id
}

// WithID returns a context carrying id.
func WithID(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the unit ID carried by ctx, or Default.
func FromContext(ctx context.Context) ID {
	if ctx == nil {
		return Default
	}
	if id, ok := ctx.Value(ctxKey{}).(ID); ok {
		return id
	}
	return Default
}

// String returns the ID, or "default" for the zero ID.
func (id ID) String() string {
	if id == Default {
		return "default"
	}
	return string(id)
}
