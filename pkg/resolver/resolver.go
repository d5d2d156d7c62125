// Package resolver merges the three column sources of a model into its
// resolved schema.
//
// Precedence is fixed:
//
//  1. Declared columns, in manifest order, each with the default tests.
//  2. Introspected columns: new names are appended in catalog order with
//     their metadata; existing names only have missing metadata filled in.
//  3. Parsed columns: names not yet present are appended, bare.
//
// Names compare as exact strings and a column is never dropped once added.
package resolver

import (
	"slices"

	"github.com/leapstack-labs/leapschema/pkg/core"
)

// DefaultTests is the test list attached to every declared column.
var DefaultTests = []string{"not_null", "unique"}

// Input is everything known about one model.
type Input struct {
	Node         *core.Node
	OutputPath   string
	Introspected []core.ColumnMetadata
	Parsed       []string
}

// Resolve builds the resolved schema for in.Node.
func Resolve(in Input) core.ResolvedModelSchema {
	r := &resolution{index: make(map[string]int)}

	if in.Node != nil {
		for _, dc := range in.Node.Columns {
			r.merge(core.ResolvedColumn{
				Name:        dc.Name,
				Description: dc.Description,
				Tags:        uniqueStrings(dc.Tags),
				Tests:       slices.Clone(DefaultTests),
				DataType:    dc.DataType,
				Source:      core.SourceDeclared,
			})
		}
	}

	for _, ic := range in.Introspected {
		r.merge(core.ResolvedColumn{
			Name:             ic.Name,
			DataType:         ic.DataType,
			CharMaxLength:    ic.CharMaxLength,
			NumericPrecision: ic.NumericPrecision,
			NumericScale:     ic.NumericScale,
			Source:           core.SourceIntrospected,
		})
	}

	for _, name := range in.Parsed {
		r.merge(core.ResolvedColumn{Name: name, Source: core.SourceParsed})
	}

	schema := core.ResolvedModelSchema{
		OutputPath: in.OutputPath,
		Columns:    r.columns,
	}
	if in.Node != nil {
		schema.NodeID = in.Node.ID
		schema.ModelName = in.Node.Name
	}
	return schema
}

type resolution struct {
	columns []core.ResolvedColumn
	index   map[string]int
}

// merge appends col when its name is new, otherwise enriches the existing
// entry with whatever it lacks. Tests are never added to an existing entry.
func (r *resolution) merge(col core.ResolvedColumn) {
	if col.Name == "" {
		return
	}

	i, ok := r.index[col.Name]
	if !ok {
		r.index[col.Name] = len(r.columns)
		r.columns = append(r.columns, col)
		return
	}

	existing := &r.columns[i]
	if existing.DataType == "" {
		existing.DataType = col.DataType
	}
	if existing.CharMaxLength == nil {
		existing.CharMaxLength = col.CharMaxLength
	}
	if existing.NumericPrecision == nil {
		existing.NumericPrecision = col.NumericPrecision
	}
	if existing.NumericScale == nil {
		existing.NumericScale = col.NumericScale
	}
	if existing.Description == "" {
		existing.Description = col.Description
	}
	if len(existing.Tags) == 0 {
		existing.Tags = col.Tags
	}
}

// uniqueStrings drops empty and repeated values, keeping first-seen order.
func uniqueStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
