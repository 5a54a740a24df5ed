// Package core defines the shared language of the leapstore system.
//
// This package contains:
//   - Dialect configuration (DialectConfig), pure data read by pkg/dialect
//   - Adapter contract and connection settings (Adapter, AdapterConfig)
//
// The Golden Rule: pkg/core imports only the standard library.
// All other packages depend on core, not the reverse.
package core
