// Package vm provides error handling for the script interpreter.
package vm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of runtime error.
type ErrorType string

const (
	ErrorUnsupportedOpcode    ErrorType = "UNSUPPORTED_OPCODE"
	ErrorUnsupportedSubOpcode ErrorType = "UNSUPPORTED_SUBOPCODE"
	ErrorNotImplemented       ErrorType = "NOT_IMPLEMENTED"
	ErrorVariableRange        ErrorType = "VARIABLE_RANGE"
	ErrorIllegalVarBits       ErrorType = "ILLEGAL_VARBITS"
	ErrorArrayBounds          ErrorType = "ARRAY_BOUNDS"
	ErrorInvalidArray         ErrorType = "INVALID_ARRAY"
	ErrorDivisionByZero       ErrorType = "DIVISION_BY_ZERO"
	ErrorSlotExhausted        ErrorType = "SLOT_EXHAUSTED"
	ErrorNestingOverflow      ErrorType = "NESTING_OVERFLOW"
	ErrorCutsceneOverflow     ErrorType = "CUTSCENE_OVERFLOW"
	ErrorResourceNotFound     ErrorType = "RESOURCE_NOT_FOUND"
	ErrorEndOfScript          ErrorType = "END_OF_SCRIPT"
)

// RuntimeError represents a runtime error in the interpreter.
// Opcode/SubOpcode/Variable are -1 when not applicable.
type RuntimeError struct {
	Type      ErrorType
	Message   string
	Opcode    int
	SubOpcode int
	Script    int
	Offset    int
	Variable  int
	Err       error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Type, e.Message)
	if e.Opcode >= 0 {
		fmt.Fprintf(&b, " opcode=0x%02X", e.Opcode)
	}
	if e.SubOpcode >= 0 {
		fmt.Fprintf(&b, " subop=0x%02X", e.SubOpcode)
	}
	if e.Variable >= 0 {
		fmt.Fprintf(&b, " var=%d", e.Variable)
	}
	if e.Script >= 0 {
		fmt.Fprintf(&b, " at script %d:0x%04X", e.Script, e.Offset)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the error aborts the current engine step.
// Every interpreter fault does; the method stays so callers can treat
// RuntimeError like other engine errors.
func (e *RuntimeError) IsFatal() bool {
	return true
}

// NewRuntimeError creates a new RuntimeError.
func NewRuntimeError(errType ErrorType, message string) *RuntimeError {
	return &RuntimeError{
		Type:      errType,
		Message:   message,
		Opcode:    -1,
		SubOpcode: -1,
		Script:    -1,
		Variable:  -1,
	}
}

// NewUnsupportedOpcodeError creates an unsupported opcode error.
func NewUnsupportedOpcodeError(version int, opcode byte) *RuntimeError {
	e := NewRuntimeError(ErrorUnsupportedOpcode, fmt.Sprintf("opcode not supported in v%d", version))
	e.Opcode = int(opcode)
	return e
}

// NewUnsupportedSubOpcodeError creates an unsupported sub-opcode error.
func NewUnsupportedSubOpcodeError(name string, opcode byte, sub int) *RuntimeError {
	e := NewRuntimeError(ErrorUnsupportedSubOpcode, fmt.Sprintf("%s: sub-opcode not supported", name))
	e.Opcode = int(opcode)
	e.SubOpcode = sub
	return e
}

// NewVariableRangeError creates a variable range error.
func NewVariableRangeError(space string, index, limit int) *RuntimeError {
	e := NewRuntimeError(ErrorVariableRange, fmt.Sprintf("%s variable %d out of range (limit %d)", space, index, limit))
	e.Variable = index
	return e
}

// NewDivisionByZeroError creates a division by zero error.
func NewDivisionByZeroError() *RuntimeError {
	return NewRuntimeError(ErrorDivisionByZero, "division by zero")
}

// AsRuntimeError extracts a RuntimeError from an error chain.
func AsRuntimeError(err error) (*RuntimeError, bool) {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsErrorType reports whether err carries a RuntimeError of the given type.
func IsErrorType(err error, t ErrorType) bool {
	re, ok := AsRuntimeError(err)
	return ok && re.Type == t
}
