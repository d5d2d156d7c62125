// Package emitter writes resolved model schemas as dbt schema.yml files.
package emitter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapschema/pkg/core"
	"gopkg.in/yaml.v3"
)

// SchemaVersion is the version marker written at the top of every file.
const SchemaVersion = 2

// FileSuffix replaces the extension of a model's source file.
const FileSuffix = "_schema.yml"

// OutputError reports a schema file that could not be written.
type OutputError struct {
	Path string
	Op   string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OutputError) Unwrap() error {
	return e.Err
}

// Options configures an Emitter.
type Options struct {
	// OutputDir is the root directory for schema files.
	OutputDir string

	// IncludeMetadata adds data_type and meta blocks from the catalog.
	IncludeMetadata bool

	Logger *slog.Logger
}

// Emitter renders and writes schema files.
type Emitter struct {
	outputDir       string
	includeMetadata bool
	logger          *slog.Logger
}

// New creates an Emitter.
func New(opts Options) *Emitter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	return &Emitter{
		outputDir:       dir,
		includeMetadata: opts.IncludeMetadata,
		logger:          logger,
	}
}

// OutputPath returns where the schema for node is written:
// <output_dir>/<original_file_path without extension>_schema.yml.
// Nodes without a source path fall back to the model name. The result never
// escapes the output directory.
func (e *Emitter) OutputPath(node *core.Node) string {
	rel := strings.ReplaceAll(node.OriginalFilePath, `\`, "/")
	if strings.TrimSpace(rel) == "" {
		rel = node.Name
	}
	rel = path.Clean("/" + rel)
	rel = strings.TrimSuffix(rel, path.Ext(rel)) + FileSuffix
	return filepath.Join(e.outputDir, filepath.FromSlash(strings.TrimPrefix(rel, "/")))
}

type document struct {
	Version int        `yaml:"version"`
	Models  []modelDoc `yaml:"models"`
}

type modelDoc struct {
	Name    string      `yaml:"name"`
	Columns []columnDoc `yaml:"columns"`
}

type columnDoc struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	DataType    string      `yaml:"data_type,omitempty"`
	Tests       []string    `yaml:"tests,omitempty,flow"`
	Tags        []string    `yaml:"tags,omitempty,flow"`
	Meta        *columnMeta `yaml:"meta,omitempty"`
}

type columnMeta struct {
	CharacterMaximumLength *int64 `yaml:"character_maximum_length,omitempty"`
	NumericPrecision       *int64 `yaml:"numeric_precision,omitempty"`
	NumericScale           *int64 `yaml:"numeric_scale,omitempty"`
}

// Render returns the YAML document for schema.
func (e *Emitter) Render(schema core.ResolvedModelSchema) ([]byte, error) {
	model := modelDoc{
		Name:    schema.ModelName,
		Columns: make([]columnDoc, 0, len(schema.Columns)),
	}
	for _, c := range schema.Columns {
		col := columnDoc{
			Name:        c.Name,
			Description: c.Description,
			Tests:       c.Tests,
			Tags:        c.Tags,
		}
		if e.includeMetadata {
			col.DataType = c.DataType
			if c.CharMaxLength != nil || c.NumericPrecision != nil || c.NumericScale != nil {
				col.Meta = &columnMeta{
					CharacterMaximumLength: c.CharMaxLength,
					NumericPrecision:       c.NumericPrecision,
					NumericScale:           c.NumericScale,
				}
			}
		}
		model.Columns = append(model.Columns, col)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(document{Version: SchemaVersion, Models: []modelDoc{model}}); err != nil {
		return nil, fmt.Errorf("failed to encode schema for %s: %w", schema.ModelName, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode schema for %s: %w", schema.ModelName, err)
	}
	return buf.Bytes(), nil
}

// Emit renders schema and writes it to schema.OutputPath. The file is
// written to a temporary sibling and renamed into place, so readers and
// concurrent writers of the same path always see a complete file.
func (e *Emitter) Emit(ctx context.Context, schema core.ResolvedModelSchema) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := e.Render(schema)
	if err != nil {
		return &OutputError{Path: schema.OutputPath, Op: "render", Err: err}
	}

	if err := writeFileAtomic(schema.OutputPath, data); err != nil {
		return err
	}

	e.logger.Debug("wrote schema",
		slog.String("model", schema.ModelName),
		slog.String("path", schema.OutputPath),
		slog.Int("columns", len(schema.Columns)))
	return nil
}

func writeFileAtomic(dst string, data []byte) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return &OutputError{Path: dir, Op: "create directory", Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return &OutputError{Path: dst, Op: "create", Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &OutputError{Path: dst, Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &OutputError{Path: dst, Op: "write", Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // schema files are meant to be shared
		_ = os.Remove(tmpName)
		return &OutputError{Path: dst, Op: "write", Err: err}
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return &OutputError{Path: dst, Op: "rename", Err: err}
	}
	return nil
}
