// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"strings"

	"github.com/ManuGH/zonewatch/internal/derived"
	"github.com/ManuGH/zonewatch/internal/inventory"
)

// KindExecutor builds an ExecutorCheck.
const KindExecutor = "executor"

// ExecutorCheck fails when fewer than MinExecutors executors are online on
// the nodes carrying any of its labels, or on all nodes when it has none.
type ExecutorCheck struct {
	inv          inventory.Inventory
	minExecutors int
	labels       []string
}

// NewExecutorCheck parses labels (whitespace or comma separated) and returns
// the check.
func NewExecutorCheck(inv inventory.Inventory, minExecutors int, labels string) (*ExecutorCheck, error) {
	if inv == nil {
		return nil, fmt.Errorf("%w: executor check needs an inventory", ErrInvalidParams)
	}
	if minExecutors < 0 {
		return nil, fmt.Errorf("%w: min_executors must not be negative, got %d", ErrInvalidParams, minExecutors)
	}
	return &ExecutorCheck{inv: inv, minExecutors: minExecutors, labels: uniqueLabels(labels)}, nil
}

func uniqueLabels(s string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, l := range inventory.ParseLabels(s) {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// MinExecutors returns the required executor count.
func (c *ExecutorCheck) MinExecutors() int { return c.minExecutors }

// Labels returns the parsed labels.
func (c *ExecutorCheck) Labels() []string { return append([]string(nil), c.labels...) }

// Perform implements Check.
func (c *ExecutorCheck) Perform(ctx context.Context, l *Listener) derived.Result {
	nodes, err := c.inv.Nodes(ctx)
	if err != nil {
		l.Errorf("Cannot list nodes: %v", err)
		return derived.Failure
	}

	found := 0
	for _, n := range nodes {
		if !n.Online || !c.selects(n) {
			continue
		}
		found += n.Executors
	}
	if found < c.minExecutors {
		l.Errorf("Found %d online executors, need at least %d (labels: %s).",
			found, c.minExecutors, strings.Join(c.labels, ","))
		return derived.Failure
	}
	return derived.Success
}

func (c *ExecutorCheck) selects(n inventory.Node) bool {
	if len(c.labels) == 0 {
		return true
	}
	for _, label := range c.labels {
		if n.HasLabel(label) {
			return true
		}
	}
	return false
}

// Describe implements Check.
func (c *ExecutorCheck) Describe() derived.ComponentSpec {
	return derived.ComponentSpec{Kind: KindExecutor, Params: derived.Params{
		"min_executors": c.minExecutors,
		"labels":        strings.Join(c.labels, " "),
	}}
}

func (c *ExecutorCheck) String() string {
	return fmt.Sprintf("ExecutorCheck [label={%s},minExecutors=%d]", strings.Join(c.labels, ","), c.minExecutors)
}

type executorParams struct {
	MinExecutors int    `yaml:"min_executors"`
	Labels       string `yaml:"labels"`
}

func executorConstructor(inv inventory.Inventory) func(derived.Params) (Check, error) {
	return func(p derived.Params) (Check, error) {
		var ep executorParams
		if err := p.Decode(&ep); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
		}
		c, err := NewExecutorCheck(inv, ep.MinExecutors, ep.Labels)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
