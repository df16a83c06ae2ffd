// SPDX-License-Identifier: MIT

// Package inventory describes the build nodes that executor checks count.
package inventory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"
)

// Node is one machine able to run work.
type Node struct {
	Name      string   `yaml:"name" json:"name"`
	Labels    []string `yaml:"labels,omitempty" json:"labels,omitempty"`
	Executors int      `yaml:"executors" json:"executors"`
	Online    bool     `yaml:"online" json:"online"`
}

// HasLabel reports whether n carries label.
func (n Node) HasLabel(label string) bool {
	return slices.Contains(n.Labels, label)
}

func (n Node) String() string {
	state := "online"
	if !n.Online {
		state = "offline"
	}
	return fmt.Sprintf("%s (%d executors, %s)", n.Name, n.Executors, state)
}

// Inventory lists the known nodes, including the controller itself.
type Inventory interface {
	Nodes(ctx context.Context) ([]Node, error)
}

// Static is an Inventory backed by a fixed list that can be swapped at
// runtime.
type Static struct {
	mu    sync.RWMutex
	nodes []Node
}

// NewStatic returns a Static inventory holding nodes.
func NewStatic(nodes ...Node) *Static {
	s := &Static{}
	s.Set(nodes)
	return s
}

// Set replaces the node list.
func (s *Static) Set(nodes []Node) {
	cp := make([]Node, len(nodes))
	for i, n := range nodes {
		n.Labels = slices.Clone(n.Labels)
		cp[i] = n
	}
	s.mu.Lock()
	s.nodes = cp
	s.mu.Unlock()
}

// Nodes returns a copy of the node list.
func (s *Static) Nodes(ctx context.Context) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Node, len(s.nodes))
	for i, n := range s.nodes {
		n.Labels = slices.Clone(n.Labels)
		out[i] = n
	}
	return out, nil
}

// ParseLabels splits a label expression on whitespace and commas, dropping
// empty entries.
func ParseLabels(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}
