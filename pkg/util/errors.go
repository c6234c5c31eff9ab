// Package util provides utility functions and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for precondition failures
var (
	ErrNotConnected       = errors.New("device not connected")
	ErrNotLocked          = errors.New("device not locked for changes")
	ErrAlreadyExists      = errors.New("resource already exists")
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrPreconditionFailed = errors.New("precondition not met")
	ErrValidationFailed   = errors.New("validation failed")
	ErrInUse              = errors.New("resource in use")
	ErrDependencyMissing  = errors.New("required dependency missing")

	// Sentinels for the breakout transaction error kinds.
	ErrSchemaCoverage   = errors.New("table has no yang model coverage")
	ErrMergeShape       = errors.New("merge shape mismatch")
	ErrDBIO             = errors.New("config db or asic db io failure")
	ErrAsicNotConverged = errors.New("asic db did not converge before timeout")
	ErrHasDependencies  = errors.New("port has unresolved dependencies")
)

// PreconditionError represents a failed precondition check with context
type PreconditionError struct {
	Operation    string
	Resource     string
	Precondition string
	Details      string
}

func (e *PreconditionError) Error() string {
	msg := fmt.Sprintf("precondition failed for %s on %s: %s", e.Operation, e.Resource, e.Precondition)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func (e *PreconditionError) Unwrap() error {
	return ErrPreconditionFailed
}

// NewPreconditionError creates a new precondition error
func NewPreconditionError(operation, resource, precondition, details string) *PreconditionError {
	return &PreconditionError{
		Operation:    operation,
		Resource:     resource,
		Precondition: precondition,
		Details:      details,
	}
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddError adds an error message unconditionally
func (v *ValidationBuilder) AddError(message string) *ValidationBuilder {
	v.errors = append(v.errors, message)
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}

// DependencyError represents a missing dependency
type DependencyError struct {
	Resource      string
	DependsOn     string
	DependsOnType string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s requires %s '%s' to exist", e.Resource, e.DependsOnType, e.DependsOn)
}

func (e *DependencyError) Unwrap() error {
	return ErrDependencyMissing
}

// NewDependencyError creates a dependency error
func NewDependencyError(resource, dependsOnType, dependsOn string) *DependencyError {
	return &DependencyError{
		Resource:      resource,
		DependsOn:     dependsOn,
		DependsOnType: dependsOnType,
	}
}

// InUseError represents a resource that cannot be modified because it's in use
type InUseError struct {
	Resource string
	UsedBy   []string
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("%s is in use by: %s", e.Resource, strings.Join(e.UsedBy, ", "))
}

func (e *InUseError) Unwrap() error {
	return ErrInUse
}

// NewInUseError creates an in-use error
func NewInUseError(resource string, usedBy ...string) *InUseError {
	return &InUseError{
		Resource: resource,
		UsedBy:   usedBy,
	}
}

// SchemaCoverageError is returned when a config DB table has no YANG model
// backing it and the store is not configured to tolerate that.
type SchemaCoverageError struct {
	Table string
}

func (e *SchemaCoverageError) Error() string {
	return fmt.Sprintf("table %q has no yang model coverage", e.Table)
}

func (e *SchemaCoverageError) Unwrap() error {
	return ErrSchemaCoverage
}

// NewSchemaCoverageError creates a schema coverage error for a table.
func NewSchemaCoverageError(table string) *SchemaCoverageError {
	return &SchemaCoverageError{Table: table}
}

// MergeShapeError represents a merge where two trees disagree on shape at
// the same path, e.g. a list on one side and a map on the other.
type MergeShapeError struct {
	Path  string
	LeftType  string
	RightType string
}

func (e *MergeShapeError) Error() string {
	return fmt.Sprintf("merge shape mismatch at %q: %s vs %s", e.Path, e.LeftType, e.RightType)
}

func (e *MergeShapeError) Unwrap() error {
	return ErrMergeShape
}

// NewMergeShapeError creates a merge shape error.
func NewMergeShapeError(path, leftType, rightType string) *MergeShapeError {
	return &MergeShapeError{Path: path, LeftType: leftType, RightType: rightType}
}

// DBIOError wraps a failure talking to Config DB or Asic DB.
type DBIOError struct {
	Store string
	Op    string
	Err   error
}

func (e *DBIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Store, e.Op, e.Err)
}

func (e *DBIOError) Unwrap() error {
	return ErrDBIO
}

// NewDBIOError creates a DB IO error.
func NewDBIOError(store, op string, err error) *DBIOError {
	return &DBIOError{Store: store, Op: op, Err: err}
}

// AsicNotConvergedError is returned when the asic db still shows the old
// ports as present after the configured wait budget has elapsed.
type AsicNotConvergedError struct {
	Ports      []string
	WaitedSecs int
}

func (e *AsicNotConvergedError) Error() string {
	return fmt.Sprintf("asic db did not release ports %s after %ds", strings.Join(e.Ports, ","), e.WaitedSecs)
}

func (e *AsicNotConvergedError) Unwrap() error {
	return ErrAsicNotConverged
}

// NewAsicNotConvergedError creates an asic-not-converged error.
func NewAsicNotConvergedError(ports []string, waitedSecs int) *AsicNotConvergedError {
	return &AsicNotConvergedError{Ports: ports, WaitedSecs: waitedSecs}
}

// HasDependenciesError is returned from DEL_PLAN when force=false and one
// or more ports being deleted still have live dependents. Dependencies
// carries the xpaths verbatim so the caller can act on them; no mutation
// has occurred by the time this is returned.
type HasDependenciesError struct {
	Ports        []string
	Dependencies []string
}

func (e *HasDependenciesError) Error() string {
	return fmt.Sprintf("ports %s have %d unresolved dependencies", strings.Join(e.Ports, ","), len(e.Dependencies))
}

func (e *HasDependenciesError) Unwrap() error {
	return ErrHasDependencies
}

// NewHasDependenciesError creates a dependencies error.
func NewHasDependenciesError(ports, dependencies []string) *HasDependenciesError {
	return &HasDependenciesError{Ports: ports, Dependencies: dependencies}
}
