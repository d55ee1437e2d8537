package errors

import (
	"fmt"
	"strings"
)

// ParseError represents a YAML parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures configuration validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExecutionError represents a runtime failure while executing a step.
type ExecutionError struct {
	StepID string
	Err    error
}

// NewExecutionError constructs an ExecutionError.
func NewExecutionError(stepID string, err error) error {
	return &ExecutionError{StepID: stepID, Err: err}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.StepID != "" {
		return fmt.Sprintf("execution error on step %s: %v", e.StepID, e.Err)
	}
	return fmt.Sprintf("execution error: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PluginError indicates issues within plugin registration or execution.
type PluginError struct {
	Plugin  string
	Message string
	Err     error
}

// InvalidSyntax marks malformed plan or inventory JSON at a specific byte
// offset.
type InvalidSyntax struct {
	ByteOffset int64
	Err        error
}

// NewInvalidSyntax constructs an InvalidSyntax error.
func NewInvalidSyntax(byteOffset int64, err error) error {
	return &InvalidSyntax{ByteOffset: byteOffset, Err: err}
}

func (e *InvalidSyntax) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("invalid syntax at byte %d: %v", e.ByteOffset, e.Err)
}

// Unwrap exposes the underlying error.
func (e *InvalidSyntax) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UnknownReference marks a dependency/notify/selector reference that does
// not resolve to anything in the same document.
type UnknownReference struct {
	Kind string
	Name string
}

// NewUnknownReference constructs an UnknownReference error.
func NewUnknownReference(kind, name string) error {
	return &UnknownReference{Kind: kind, Name: name}
}

func (e *UnknownReference) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("unknown %s reference: %q", e.Kind, e.Name)
}

// ConflictingFields marks mutually exclusive fields both being set.
type ConflictingFields struct {
	Path string
}

// NewConflictingFields constructs a ConflictingFields error.
func NewConflictingFields(path string) error {
	return &ConflictingFields{Path: path}
}

func (e *ConflictingFields) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("conflicting fields at %s", e.Path)
}

// CircularGroupDependency reports the full cycle path found while resolving
// the inventory group hierarchy.
type CircularGroupDependency struct {
	Path []string
}

// NewCircularGroupDependency constructs a CircularGroupDependency error.
func NewCircularGroupDependency(path []string) error {
	return &CircularGroupDependency{Path: append([]string(nil), path...)}
}

func (e *CircularGroupDependency) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("circular group dependency: %s", strings.Join(e.Path, " -> "))
}

// DependencyCycle reports the full cycle path found while ordering the task
// DAG.
type DependencyCycle struct {
	Cycle []string
}

// NewDependencyCycle constructs a DependencyCycle error.
func NewDependencyCycle(cycle []string) error {
	return &DependencyCycle{Cycle: append([]string(nil), cycle...)}
}

func (e *DependencyCycle) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Cycle, " -> "))
}

// ResolutionError marks a required variable or path lookup that failed to
// resolve, distinct from the benign "absent" outcome condition evaluation
// tolerates.
type ResolutionError struct {
	Path    string
	Message string
	Err     error
}

// NewResolutionError constructs a ResolutionError.
func NewResolutionError(path, message string, err error) error {
	return &ResolutionError{Path: path, Message: message, Err: err}
}

func (e *ResolutionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("resolution error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ResolutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CapabilityError marks a missing toolchain or unsupported target triple.
type CapabilityError struct {
	Component  string
	Message    string
	Suggestion string
	Err        error
}

// NewCapabilityError constructs a CapabilityError carrying a remediation hint.
func NewCapabilityError(component, message, suggestion string, err error) error {
	return &CapabilityError{Component: component, Message: message, Suggestion: suggestion, Err: err}
}

func (e *CapabilityError) Error() string {
	if e == nil {
		return ""
	}
	if e.Suggestion != "" {
		return fmt.Sprintf("capability error [%s]: %s (%s)", e.Component, e.Message, e.Suggestion)
	}
	return fmt.Sprintf("capability error [%s]: %s", e.Component, e.Message)
}

// Unwrap exposes the underlying error.
func (e *CapabilityError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CompilationError records a non-zero backend exit for a single deployment
// group; it is contained to that group and never aborts the overall run.
type CompilationError struct {
	Backend      string
	TargetTriple string
	Stderr       string
	Err          error
}

// NewCompilationError constructs a CompilationError.
func NewCompilationError(backend, targetTriple, stderr string, err error) error {
	return &CompilationError{Backend: backend, TargetTriple: targetTriple, Stderr: stderr, Err: err}
}

func (e *CompilationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("compilation error [%s/%s]: %v", e.Backend, e.TargetTriple, e.Err)
}

// Unwrap exposes the underlying error.
func (e *CompilationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PlacementError records that every output strategy failed or verification
// mismatched; it is contained to the one deployment group it affects.
type PlacementError struct {
	Destination string
	Message     string
	Err         error
}

// NewPlacementError constructs a PlacementError.
func NewPlacementError(destination, message string, err error) error {
	return &PlacementError{Destination: destination, Message: message, Err: err}
}

func (e *PlacementError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("placement error [%s]: %s", e.Destination, e.Message)
}

// Unwrap exposes the underlying error.
func (e *PlacementError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// InternalError marks an invariant violation; the run aborts with full
// context attached.
type InternalError struct {
	Context string
	Err     error
}

// NewInternalError constructs an InternalError.
func NewInternalError(context string, err error) error {
	return &InternalError{Context: context, Err: err}
}

func (e *InternalError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("internal error [%s]: %v", e.Context, e.Err)
}

// Unwrap exposes the underlying error.
func (e *InternalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ModuleNotFound marks a task whose module name has no registered dispatch
// handler (§4.9 module table).
type ModuleNotFound struct {
	Name string
}

// NewModuleNotFound constructs a ModuleNotFound error.
func NewModuleNotFound(name string) error {
	return &ModuleNotFound{Name: name}
}

func (e *ModuleNotFound) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("module not found: %s", e.Name)
}

// UnsupportedPlatform marks a module invoked on a host platform it does not
// support (§4.9 per-module supported-platforms set).
type UnsupportedPlatform struct {
	Name     string
	Platform string
}

// NewUnsupportedPlatform constructs an UnsupportedPlatform error.
func NewUnsupportedPlatform(name, platform string) error {
	return &UnsupportedPlatform{Name: name, Platform: platform}
}

func (e *UnsupportedPlatform) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("module %s does not support platform %s", e.Name, e.Platform)
}

// NewPluginError constructs a PluginError for the given plugin type.
func NewPluginError(plugin string, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &PluginError{Plugin: plugin, Message: message, Err: err}
}

func (e *PluginError) Error() string {
	if e == nil {
		return ""
	}
	if e.Plugin != "" {
		return fmt.Sprintf("plugin error [%s]: %s", e.Plugin, e.Message)
	}
	return fmt.Sprintf("plugin error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *PluginError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
