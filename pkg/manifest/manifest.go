// Package manifest loads a dbt-style manifest.json into a core.Manifest.
//
// Only model nodes are kept. A model node that fails to decode is recorded
// in Manifest.Skipped instead of failing the load. Declared columns keep the
// order in which the manifest stores them, which a plain map decode loses,
// so objects whose key order matters are walked token by token.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/leapschema/pkg/core"
)

// Load reads and decodes the manifest at path.
func Load(path string) (*core.Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is the user-supplied manifest
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	m, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	m.Path = path
	return m, nil
}

// Decode decodes a manifest from r. It fails only when r does not hold a
// JSON object with a nodes object.
func Decode(r io.Reader) (*core.Manifest, error) {
	dec := json.NewDecoder(r)
	m := &core.Manifest{Nodes: make(map[string]*core.Node)}

	sawNodes := false
	err := walkObject(dec, func(key string) error {
		switch key {
		case "metadata":
			var meta json.RawMessage
			if err := dec.Decode(&meta); err != nil {
				return err
			}
			if err := json.Unmarshal(meta, &m.Metadata); err != nil {
				return fmt.Errorf("invalid metadata: %w", err)
			}
		case "nodes":
			sawNodes = true
			return decodeNodes(dec, m)
		default:
			var skip json.RawMessage
			return dec.Decode(&skip)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after manifest object")
	}
	if !sawNodes {
		return nil, errors.New("manifest has no nodes object")
	}
	return m, nil
}

// decodeNodes walks the nodes object, keeping model nodes.
func decodeNodes(dec *json.Decoder, m *core.Manifest) error {
	return walkObject(dec, func(id string) error {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		node, err := decodeNode(id, raw)
		if err != nil {
			var nde *NodeDecodeError
			if errors.As(err, &nde) {
				m.Skipped = append(m.Skipped, core.SkippedNode{NodeID: id, Reason: nde.Err.Error()})
				return nil
			}
			return err
		}
		if node != nil {
			m.Nodes[id] = node
		}
		return nil
	})
}

// rawNode mirrors the model fields of a manifest node.
type rawNode struct {
	ResourceType     string          `json:"resource_type"`
	Name             string          `json:"name"`
	Alias            string          `json:"alias"`
	Database         string          `json:"database"`
	Schema           string          `json:"schema"`
	OriginalFilePath string          `json:"original_file_path"`
	CompiledCode     *string         `json:"compiled_code"`
	CompiledSQL      *string         `json:"compiled_sql"`
	Columns          json.RawMessage `json:"columns"`
}

type rawColumn struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	DataType    string   `json:"data_type"`
	Tags        []string `json:"tags"`
}

// decodeNode returns the model node for raw, nil for nodes that are not
// models, or a *NodeDecodeError for a model node with a bad shape.
func decodeNode(id string, raw json.RawMessage) (*core.Node, error) {
	var probe struct {
		ResourceType json.RawMessage `json:"resource_type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		if core.IsModel(id, "") {
			return nil, &NodeDecodeError{NodeID: id, Err: errors.New("node is not an object")}
		}
		return nil, nil
	}

	resourceType := ""
	if len(probe.ResourceType) > 0 && string(probe.ResourceType) != "null" {
		if err := json.Unmarshal(probe.ResourceType, &resourceType); err != nil {
			if core.IsModel(id, "") {
				return nil, &NodeDecodeError{NodeID: id, Err: errors.New("resource_type is not a string")}
			}
			return nil, nil
		}
	}
	if !core.IsModel(id, resourceType) {
		return nil, nil
	}

	var rn rawNode
	if err := json.Unmarshal(raw, &rn); err != nil {
		return nil, &NodeDecodeError{NodeID: id, Err: err}
	}
	if strings.TrimSpace(rn.Name) == "" {
		return nil, &NodeDecodeError{NodeID: id, Err: errors.New("missing name")}
	}

	node := &core.Node{
		ID:               id,
		ResourceType:     core.ResourceTypeModel,
		Name:             rn.Name,
		Alias:            rn.Alias,
		Database:         rn.Database,
		Schema:           rn.Schema,
		OriginalFilePath: rn.OriginalFilePath,
	}
	switch {
	case rn.CompiledCode != nil:
		node.CompiledCode = *rn.CompiledCode
	case rn.CompiledSQL != nil:
		node.CompiledCode = *rn.CompiledSQL
	}

	cols, err := decodeColumns(rn.Columns)
	if err != nil {
		return nil, &NodeDecodeError{NodeID: id, Err: fmt.Errorf("invalid columns: %w", err)}
	}
	node.Columns = cols
	return node, nil
}

// decodeColumns decodes the columns object in stored order. The inner name
// wins over the key when both are present.
func decodeColumns(raw json.RawMessage) ([]core.DeclaredColumn, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	var cols []core.DeclaredColumn
	err := walkObject(dec, func(key string) error {
		var rc rawColumn
		if err := dec.Decode(&rc); err != nil {
			return fmt.Errorf("column %s: %w", key, err)
		}
		name := rc.Name
		if name == "" {
			name = key
		}
		cols = append(cols, core.DeclaredColumn{
			Name:        name,
			Description: rc.Description,
			DataType:    rc.DataType,
			Tags:        rc.Tags,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cols, nil
}

// walkObject reads a JSON object from dec, calling fn for each key. fn must
// consume the key's value.
func walkObject(dec *json.Decoder, fn func(key string) error) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, found %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, found %v", tok)
		}
		if err := fn(key); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
