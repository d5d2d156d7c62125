package core

import "sort"

// ColumnSource identifies which source first contributed a resolved column.
type ColumnSource int

// ColumnSource values in precedence order.
const (
	SourceDeclared ColumnSource = iota
	SourceIntrospected
	SourceParsed
)

func (s ColumnSource) String() string {
	switch s {
	case SourceDeclared:
		return "declared"
	case SourceIntrospected:
		return "introspected"
	case SourceParsed:
		return "parsed"
	default:
		return "unknown"
	}
}

// ResolvedColumn is one column of a model after all sources are merged.
type ResolvedColumn struct {
	Name             string
	Description      string
	Tags             []string
	Tests            []string
	DataType         string
	CharMaxLength    *int64
	NumericPrecision *int64
	NumericScale     *int64
	Source           ColumnSource
}

// HasMetadata reports whether any catalog metadata is attached.
func (c *ResolvedColumn) HasMetadata() bool {
	return c.DataType != "" || c.CharMaxLength != nil || c.NumericPrecision != nil || c.NumericScale != nil
}

// ResolvedModelSchema is the resolved column list for one model.
// Each per-model task owns its value exclusively until it reaches the emitter.
type ResolvedModelSchema struct {
	NodeID     string
	ModelName  string
	OutputPath string
	Columns    []ResolvedColumn
}

// ColumnNames returns the resolved column names in order.
func (s *ResolvedModelSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

func sortStrings(s []string) {
	sort.Strings(s)
}
