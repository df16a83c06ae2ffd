// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ManuGH/zonewatch/internal/derived"
)

// KindDebug builds a DebugCheck.
const KindDebug = "debug"

// DebugCheck succeeds for its first ttl runs and fails afterwards. A negative
// ttl never fails. It exists to exercise alerting end to end.
type DebugCheck struct {
	ttl   int
	count atomic.Int64
}

// NewDebugCheck returns a DebugCheck with the given ttl.
func NewDebugCheck(ttl int) *DebugCheck {
	return &DebugCheck{ttl: ttl}
}

// Perform implements Check.
func (c *DebugCheck) Perform(_ context.Context, _ *Listener) derived.Result {
	n := c.count.Add(1)
	if c.ttl >= 0 && n > int64(c.ttl) {
		return derived.Failure
	}
	return derived.Success
}

// Count returns the number of runs so far.
func (c *DebugCheck) Count() int64 { return c.count.Load() }

// Describe implements Check.
func (c *DebugCheck) Describe() derived.ComponentSpec {
	return derived.ComponentSpec{Kind: KindDebug, Params: derived.Params{"ttl": c.ttl}}
}

func (c *DebugCheck) String() string {
	return fmt.Sprintf("DebugCheck [ttl={%d},count=%d]", c.ttl, c.count.Load())
}

type debugParams struct {
	TTL int `yaml:"ttl"`
}

func newDebugCheck(p derived.Params) (Check, error) {
	var dp debugParams
	if err := p.Decode(&dp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return NewDebugCheck(dp.TTL), nil
}
