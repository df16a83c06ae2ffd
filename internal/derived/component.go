// SPDX-License-Identifier: MIT

package derived

import (
	"context"
	"fmt"
)

// Component is anything that can be derived into a Report on demand.
//
// PerformDerivation may be called any number of times, concurrently when the
// owning zone is queried concurrently. Ordinary failures are reported through
// the Result of the returned report; implementations must not panic for them
// and must not mutate state shared with other components.
type Component[V any] interface {
	PerformDerivation(ctx context.Context) Report[V]
}

// ComponentFunc adapts a function to the Component interface.
type ComponentFunc[V any] func(ctx context.Context) Report[V]

// PerformDerivation calls f(ctx).
func (f ComponentFunc[V]) PerformDerivation(ctx context.Context) Report[V] {
	return f(ctx)
}

// Describer is implemented by components whose configuration can be written
// to a Document and rebuilt by a Factory.
type Describer interface {
	Describe() ComponentSpec
}

// Namer computes the display key of a component inside a zone.
type Namer[V any] func(c Component[V]) string

// DefaultName uses the component's String method when it has one and its
// dynamic type otherwise.
func DefaultName[V any](c Component[V]) string {
	if s, ok := c.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", c)
}
