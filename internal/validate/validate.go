// SPDX-License-Identifier: MIT

// Package validate accumulates field-level configuration errors so a single
// run reports every problem at once.
package validate

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Error is one failed field.
type Error struct {
	Field   string // dotted config path, e.g. "server.listen"
	Value   any
	Message string
}

// Error implements the error interface
func (e Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Validator accumulates validation errors.
type Validator struct {
	errors []Error
}

// ValidationError bundles every failed field into a single error value.
type ValidationError struct {
	errors []Error
}

// New creates a new validator
func New() *Validator {
	return &Validator{errors: make([]Error, 0)}
}

// AddError records a failed field.
func (v *Validator) AddError(field, message string, value any) {
	v.errors = append(v.errors, Error{Field: field, Value: value, Message: message})
}

// IsValid returns true if no errors have been accumulated
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// Errors returns the accumulated errors.
func (v *Validator) Errors() []Error {
	return v.errors
}

// Err returns nil when valid and a *ValidationError otherwise.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{errors: slices.Clone(v.errors)}
}

// Errors returns the individual failures.
func (e *ValidationError) Errors() []Error {
	return e.errors
}

// Fields returns the names of the failed fields in order.
func (e *ValidationError) Fields() []string {
	out := make([]string, 0, len(e.errors))
	for _, fe := range e.errors {
		out = append(out, fe.Field)
	}
	return out
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.errors))
	for i, fe := range e.errors {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, "; ")
}

// AsValidationError unwraps err to a *ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// ListenAddr validates a host:port listen address. The host may be empty.
func (v *Validator) ListenAddr(field, addr string) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid listen address: %v", err), addr)
		return
	}
	if host != "" && net.ParseIP(host) == nil && strings.ContainsAny(host, " /") {
		v.AddError(field, "invalid host", addr)
		return
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		v.AddError(field, "port must be numeric", addr)
		return
	}
	v.Port(field, n)
}

// URL validates an absolute URL with one of allowedSchemes.
func (v *Validator) URL(field, value string, allowedSchemes []string) {
	if value == "" {
		v.AddError(field, "URL cannot be empty", value)
		return
	}
	u, err := url.Parse(value)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid URL: %v", err), value)
		return
	}
	if u.Host == "" {
		v.AddError(field, "URL must have a host", value)
		return
	}
	if len(allowedSchemes) > 0 && !slices.Contains(allowedSchemes, u.Scheme) {
		v.AddError(field, fmt.Sprintf("unsupported URL scheme %q (allowed: %v)", u.Scheme, allowedSchemes), value)
	}
}

// Port validates a port number (1-65535)
func (v *Validator) Port(field string, port int) {
	if port <= 0 || port > 65535 {
		v.AddError(field, fmt.Sprintf("port must be between 1 and 65535, got %d", port), port)
	}
}

// Range validates that an integer is within [minVal, maxVal].
func (v *Validator) Range(field string, value, minVal, maxVal int) {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("value must be between %d and %d, got %d", minVal, maxVal, value), value)
	}
}

// NotEmpty validates that a string is not empty or whitespace-only
func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "value cannot be empty", value)
	}
}

// OneOf validates that a value is one of the allowed values
func (v *Validator) OneOf(field, value string, allowed []string) {
	if !slices.Contains(allowed, value) {
		v.AddError(field, fmt.Sprintf("value must be one of %v, got %q", allowed, value), value)
	}
}

// NonNegative validates that a number is >= 0.
func (v *Validator) NonNegative(field string, value int) {
	if value < 0 {
		v.AddError(field, fmt.Sprintf("value cannot be negative, got %d", value), value)
	}
}

// PositiveDuration validates that d > 0.
func (v *Validator) PositiveDuration(field string, d time.Duration) {
	if d <= 0 {
		v.AddError(field, fmt.Sprintf("duration must be positive, got %s", d), d)
	}
}

// WritableDirectory validates that path is a directory this process can
// create files in. A missing directory is created unless mustExist is set.
func (v *Validator) WritableDirectory(field, path string, mustExist bool) {
	if path == "" {
		v.AddError(field, "directory path cannot be empty", path)
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid path: %v", err), path)
		return
	}
	info, err := os.Stat(abs)
	switch {
	case os.IsNotExist(err) && mustExist:
		v.AddError(field, "directory does not exist", path)
		return
	case os.IsNotExist(err):
		if err := os.MkdirAll(abs, 0o750); err != nil {
			v.AddError(field, fmt.Sprintf("cannot create directory: %v", err), path)
		}
		return
	case err != nil:
		v.AddError(field, fmt.Sprintf("cannot access directory: %v", err), path)
		return
	case !info.IsDir():
		v.AddError(field, "path is not a directory", path)
		return
	}

	probe, err := os.CreateTemp(abs, ".write-probe-*")
	if err != nil {
		v.AddError(field, fmt.Sprintf("directory is not writable: %v", err), path)
		return
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
}
