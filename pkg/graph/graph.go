// Graphs are the payload served to the migration analysis views: applications, their modules and libraries as
// nodes, and the dependencies between them as edges.

package graph

import (
	"errors"
	"fmt"
)

var (
	ErrGraphNotFound  = errors.New("graph was not found")
	ErrInvalidKey     = errors.New("invalid graph key")
	ErrMalformedGraph = errors.New("malformed graph")
)

// Node is a vertex of a graph, e.g. an application archive or a library it bundles.
type Node struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Kind  string `json:"kind" yaml:"kind"`
}

// Edge is a directed relation between two nodes of the same graph.
type Edge struct {
	From  string `json:"from" yaml:"from"`
	To    string `json:"to" yaml:"to"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Graph is a whole graph document as stored on disk and served to clients.
type Graph struct {
	Key   string `json:"key" yaml:"-"` // Filled from the document name, not its content.
	Title string `json:"title" yaml:"title"`
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Validate makes sure node IDs are non-empty and unique and every edge connects two known nodes.
func (g *Graph) Validate() error {
	nodeIds := make(map[string]struct{}, len(g.Nodes))
	for i, node := range g.Nodes {
		if node.ID == "" {
			return fmt.Errorf("%w: node #%d has no id", ErrMalformedGraph, i)
		}
		if _, exists := nodeIds[node.ID]; exists {
			return fmt.Errorf("%w: duplicate node id '%s'", ErrMalformedGraph, node.ID)
		}
		nodeIds[node.ID] = struct{}{}
	}
	for i, edge := range g.Edges {
		if _, exists := nodeIds[edge.From]; !exists {
			return fmt.Errorf("%w: edge #%d starts at unknown node '%s'", ErrMalformedGraph, i, edge.From)
		}
		if _, exists := nodeIds[edge.To]; !exists {
			return fmt.Errorf("%w: edge #%d ends at unknown node '%s'", ErrMalformedGraph, i, edge.To)
		}
	}
	return nil
}
