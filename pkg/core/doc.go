// Package core defines the shared language of leapschema.
//
// This package contains:
//   - Manifest entities (Manifest, Node, DeclaredColumn)
//   - Resolution results (ResolvedColumn, ResolvedModelSchema)
//   - Catalog types (AdapterKind, AdapterConfig, TableLocation, ColumnMetadata)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
