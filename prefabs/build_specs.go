package prefabs

import "gopkg.in/yaml.v3"

// DecodeComponentSpec decodes node over base. Fields the node leaves out
// keep the value they have in base; an empty node returns base unchanged.
func DecodeComponentSpec[T any](node yaml.Node, base T) (T, error) {
	if node.Kind == 0 {
		return base, nil
	}
	out := base
	if err := node.Decode(&out); err != nil {
		return base, err
	}
	return out, nil
}

// EncodeComponentSpec is the inverse of DecodeComponentSpec, used when a
// scene is written back out.
func EncodeComponentSpec[T any](v T) (yaml.Node, error) {
	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return yaml.Node{}, err
	}
	return node, nil
}
