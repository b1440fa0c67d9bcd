// Package workflow models the node graphs submitted to the execution backend
// and the read-only templates they are cloned from.
package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrInvalidGraph = errors.New("invalid workflow graph")

// Ref points at output slot Slot of node NodeID. On the wire it is the
// two-element array ["<node-id>", <slot>].
type Ref struct {
	NodeID string
	Slot   int
}

func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.NodeID, r.Slot})
}

type Meta struct {
	Title string `json:"title,omitempty"`
	Role  Role   `json:"role,omitempty"`
}

// Node is one execution unit. Input values are either literals (string,
// json.Number, bool, nested literal containers) or Ref.
type Node struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
	Meta      Meta           `json:"_meta"`
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var raw struct {
		ClassType string                     `json:"class_type"`
		Inputs    map[string]json.RawMessage `json:"inputs"`
		Meta      Meta                       `json:"_meta"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw.ClassType) == "" {
		return fmt.Errorf("%w: node without class_type", ErrInvalidGraph)
	}
	n.ClassType = raw.ClassType
	n.Meta = raw.Meta
	n.Inputs = make(map[string]any, len(raw.Inputs))
	for name, msg := range raw.Inputs {
		v, err := decodeInput(msg)
		if err != nil {
			return fmt.Errorf("input %q: %w", name, err)
		}
		n.Inputs[name] = v
	}
	return nil
}

func decodeInput(msg json.RawMessage) (any, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(msg, &pair); err == nil && len(pair) == 2 {
		var id string
		var slot int
		if json.Unmarshal(pair[0], &id) == nil && json.Unmarshal(pair[1], &slot) == nil {
			return Ref{NodeID: id, Slot: slot}, nil
		}
	}
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Graph maps node ids to nodes.
type Graph map[string]*Node

// ParseGraph decodes a graph in API format. A top-level "prompt" or "nodes"
// wrapper object is unwrapped.
func ParseGraph(data []byte) (Graph, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGraph, err)
	}
	for _, key := range []string{"prompt", "nodes"} {
		if inner, ok := top[key]; ok && len(top) <= 2 {
			var unwrapped map[string]json.RawMessage
			if err := json.Unmarshal(inner, &unwrapped); err != nil {
				return nil, fmt.Errorf("%w: %q is not an object: %v", ErrInvalidGraph, key, err)
			}
			top = unwrapped
			break
		}
	}
	if len(top) == 0 {
		return nil, fmt.Errorf("%w: no nodes", ErrInvalidGraph)
	}
	g := make(Graph, len(top))
	for id, msg := range top {
		var n Node
		if err := json.Unmarshal(msg, &n); err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}
		g[id] = &n
	}
	return g, nil
}

// IDs returns node ids in a stable order.
func (g Graph) IDs() []string {
	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Clone returns a deep copy that shares nothing with g.
func (g Graph) Clone() Graph {
	out := make(Graph, len(g))
	for id, n := range g {
		inputs := make(map[string]any, len(n.Inputs))
		for k, v := range n.Inputs {
			inputs[k] = cloneValue(v)
		}
		out[id] = &Node{ClassType: n.ClassType, Inputs: inputs, Meta: n.Meta}
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return v
	}
}

// Validate checks that references resolve, that the required roles exist,
// and that the output node is fed by the sampler.
func (g Graph) Validate() error {
	for _, id := range g.IDs() {
		for name, v := range g[id].Inputs {
			ref, ok := v.(Ref)
			if !ok {
				continue
			}
			if _, exists := g[ref.NodeID]; !exists {
				return fmt.Errorf("%w: node %s input %q references missing node %s", ErrInvalidGraph, id, name, ref.NodeID)
			}
		}
	}
	for _, role := range []Role{RolePositiveText, RoleSampler, RoleOutput} {
		if _, ok := g.Find(role); !ok {
			return fmt.Errorf("%w: no %s node", ErrInvalidGraph, role)
		}
	}
	sampler, _ := g.Find(RoleSampler)
	output, _ := g.Find(RoleOutput)
	if !g.reaches(output, sampler) {
		return fmt.Errorf("%w: output node %s is not fed by sampler %s", ErrInvalidGraph, output, sampler)
	}
	return nil
}

func (g Graph) reaches(from, to string) bool {
	seen := map[string]bool{}
	stack := []string{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == to {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		n, ok := g[id]
		if !ok {
			continue
		}
		for _, v := range n.Inputs {
			if ref, ok := v.(Ref); ok {
				stack = append(stack, ref.NodeID)
			}
		}
	}
	return false
}
