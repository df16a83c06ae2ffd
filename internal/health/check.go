// SPDX-License-Identifier: MIT

// Package health instantiates the derived-page framework for service health:
// checks report a result and write their diagnostics to a Listener, and an
// adapter turns every check into a derived.Component[string] whose report
// value is the captured text.
package health

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ManuGH/zonewatch/internal/derived"
)

// ErrInvalidParams is returned by check constructors for malformed parameters.
var ErrInvalidParams = errors.New("invalid check parameters")

// Check is a single health check.
type Check interface {
	// Perform runs the check, writing diagnostics to l.
	Perform(ctx context.Context, l *Listener) derived.Result
	// Describe returns the kind and parameters the check was built from.
	Describe() derived.ComponentSpec
	// String is the check's display name inside a zone.
	String() string
}

// Listener collects the diagnostic output of one check run.
type Listener struct {
	mu  sync.Mutex
	buf strings.Builder
}

// NewListener returns an empty Listener.
func NewListener() *Listener { return &Listener{} }

// Write implements io.Writer.
func (l *Listener) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

// Printf appends formatted text.
func (l *Listener) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(l, format, args...)
}

// Errorf appends an error line prefixed with "ERROR: ".
func (l *Listener) Errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	_, _ = l.Write([]byte("ERROR: " + msg))
}

// String returns everything written so far.
func (l *Listener) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

// Component adapts a Check to derived.Component[string].
type Component struct {
	check Check
}

// Adapt wraps c.
func Adapt(c Check) *Component {
	return &Component{check: c}
}

// Check returns the wrapped check.
func (c *Component) Check() Check { return c.check }

// PerformDerivation runs the check with a fresh Listener. The report value is
// the listener output.
func (c *Component) PerformDerivation(ctx context.Context) derived.Report[string] {
	l := NewListener()
	result := c.check.Perform(ctx, l)
	rep, err := derived.NewReport(result, l.String())
	if err != nil {
		return derived.MustReport(derived.Failure, fmt.Sprintf("%s%s returned %v", l.String(), c.check, err))
	}
	return rep
}

func (c *Component) String() string { return c.check.String() }

// Describe implements derived.Describer.
func (c *Component) Describe() derived.ComponentSpec { return c.check.Describe() }

// FailureValue renders the cause of a synthetic failure (timeout, panic) as
// report text.
func FailureValue(err error) string {
	return "ERROR: " + err.Error() + "\n"
}
