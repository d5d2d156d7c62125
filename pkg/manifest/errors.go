package manifest

import "fmt"

// InputError reports a manifest that cannot be read or is not a manifest at
// all. It aborts the run before any model is processed.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("manifest %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// NodeDecodeError reports a model node whose shape does not match a model.
// The node is skipped and loading continues.
type NodeDecodeError struct {
	NodeID string
	Err    error
}

func (e *NodeDecodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.NodeID, e.Err)
}

func (e *NodeDecodeError) Unwrap() error {
	return e.Err
}
