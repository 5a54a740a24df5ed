package adapter

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapstore/pkg/dialect"
	"go.uber.org/zap"
)

// ErrAdapterRequired is returned when a connection names no database type.
var ErrAdapterRequired = errors.New("adapter type not specified")

// Factory builds an unconnected adapter. A nil logger discards output.
type Factory func(*zap.Logger) Adapter

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds an adapter factory under a case-insensitive name. Adapter
// packages call it from init(), next to the dialect of the same name.
func Register(name string, factory Factory) {
	if name == "" || factory == nil {
		panic("adapter: Register needs a name and a factory")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = factory
}

// Get retrieves an adapter factory by name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[strings.ToLower(name)]
	return f, ok
}

// NewAdapter returns an unconnected adapter for cfg.Type.
func NewAdapter(cfg Config, logger *zap.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, ErrAdapterRequired
	}
	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, NewUnknownAdapterError(cfg.Type)
	}
	return factory(logger), nil
}

// ListAdapters returns the registered adapter names, sorted.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether an adapter is registered under name.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// UnknownAdapterError is returned when no adapter is registered for a type.
// DialectOnly is set when the type has a registered dialect: SQL can be
// generated for it but the store cannot connect.
type UnknownAdapterError struct {
	Type        string
	Available   []string
	DialectOnly bool
}

// NewUnknownAdapterError describes a missing adapter for typ.
func NewUnknownAdapterError(typ string) *UnknownAdapterError {
	_, hasDialect := dialect.Get(strings.ToLower(typ))
	return &UnknownAdapterError{Type: typ, Available: ListAdapters(), DialectOnly: hasDialect}
}

func (e *UnknownAdapterError) Error() string {
	var b strings.Builder
	if e.DialectOnly {
		fmt.Fprintf(&b, "no adapter for database type %q (its DDL can still be generated)", e.Type)
	} else {
		fmt.Fprintf(&b, "unknown adapter type %q", e.Type)
	}
	fmt.Fprintf(&b, "\nAvailable adapters: %s", strings.Join(e.Available, ", "))
	b.WriteString("\nHint: Check database.type in leapstore.yaml or the --db flag")
	return b.String()
}
