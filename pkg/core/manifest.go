package core

import "strings"

// ResourceTypeModel is the resource_type of nodes that are in scope.
const ResourceTypeModel = "model"

// ModelNodePrefix is the conventional node id prefix for model nodes.
const ModelNodePrefix = "model."

// ManifestMetadata holds the manifest's metadata block.
type ManifestMetadata struct {
	AdapterType string `json:"adapter_type"`
	DbtVersion  string `json:"dbt_version"`
	GeneratedAt string `json:"generated_at"`
}

// Manifest is a decoded build manifest. It is read-only once loaded and is
// shared across all per-model tasks.
type Manifest struct {
	// Path is the file the manifest was loaded from.
	Path     string
	Metadata ManifestMetadata
	// Nodes maps node id to model node. Only in-scope model nodes are kept.
	Nodes map[string]*Node
	// Skipped lists nodes that looked like models but could not be decoded.
	Skipped []SkippedNode
}

// SkippedNode records a node dropped while loading the manifest.
type SkippedNode struct {
	NodeID string
	Reason string
}

// Adapter returns the adapter kind named by the manifest metadata.
func (m *Manifest) Adapter() AdapterKind {
	return ParseAdapterKind(m.Metadata.AdapterType)
}

// NodeIDs returns the ids of all model nodes in sorted order.
func (m *Manifest) NodeIDs() []string {
	ids := make([]string, 0, len(m.Nodes))
	for id := range m.Nodes {
		ids = append(ids, id)
	}
	sortStrings(ids)
	return ids
}

// Node is a single model entry from the manifest.
type Node struct {
	ID               string
	ResourceType     string
	Name             string
	Alias            string
	Database         string
	Schema           string
	OriginalFilePath string
	CompiledCode     string
	// Columns holds the declared columns in the manifest's stored order.
	// Nil when the manifest declares none.
	Columns []DeclaredColumn
}

// RelationName returns the name of the relation the model materializes to.
func (n *Node) RelationName() string {
	if n.Alias != "" {
		return n.Alias
	}
	return n.Name
}

// Location returns where the model's relation lives in the catalog.
func (n *Node) Location() TableLocation {
	return TableLocation{
		Database: n.Database,
		Schema:   n.Schema,
		Table:    n.RelationName(),
	}
}

// IsModel reports whether a node with the given id and resource type is in scope.
// The resource type decides; the id prefix is only consulted when it is absent.
func IsModel(id, resourceType string) bool {
	if resourceType != "" {
		return resourceType == ResourceTypeModel
	}
	return strings.HasPrefix(id, ModelNodePrefix)
}

// DeclaredColumn is a column listed for a model in the manifest.
type DeclaredColumn struct {
	Name        string
	Description string
	DataType    string
	Tags        []string
}
