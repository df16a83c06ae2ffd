// SPDX-License-Identifier: MIT

package derived

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidResult is returned for an unset or unknown Result.
	ErrInvalidResult = errors.New("invalid result")

	// ErrNilValue is returned when a report is constructed without a value.
	ErrNilValue = errors.New("report value is required")

	// ErrNoFailureValue is returned by NewZone when V can carry neither a
	// string nor an error and WithFailureValue was not given.
	ErrNoFailureValue = errors.New("no failure value for component type")

	// ErrEmptyZoneName is returned when a zone has no name.
	ErrEmptyZoneName = errors.New("zone name is required")

	// ErrNilComponent is returned when a zone is given a nil component.
	ErrNilComponent = errors.New("component is nil")

	// ErrDuplicateZone is returned when two zones in one mapping share a name.
	ErrDuplicateZone = errors.New("duplicate zone name")

	// ErrSharedComponent is returned when one component instance is placed
	// in two zones.
	ErrSharedComponent = errors.New("component instance shared between zones")

	// ErrUnknownKind is returned by the factory for an unregistered kind.
	ErrUnknownKind = errors.New("unknown component kind")

	// ErrKindRegistered is returned when a kind is registered twice.
	ErrKindRegistered = errors.New("component kind already registered")

	// ErrNotDescribable is returned when a component cannot be persisted.
	ErrNotDescribable = errors.New("component does not describe its configuration")

	// ErrInvalidDocument is returned for a document that fails validation.
	ErrInvalidDocument = errors.New("invalid zone document")

	// ErrNoDocument is returned by a Store that holds no document yet.
	ErrNoDocument = errors.New("no persisted zone document")

	// ErrCorruptDocument is returned by a Store whose document cannot be decoded.
	ErrCorruptDocument = errors.New("corrupt zone document")

	// ErrPersist matches every *PersistError via errors.Is.
	ErrPersist = errors.New("persist zone document")
)

// PersistError reports a failed write of the zone document. The in-memory
// mapping is left unchanged when ReplaceAll returns one, so the caller may
// retry the whole operation or call Registry.Persist.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrPersist) true for any PersistError.
func (e *PersistError) Is(target error) bool { return target == ErrPersist }
