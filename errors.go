package rad

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// ErrorKind is the error taxonomy from spec §7. It classifies, it does
// not replace, the underlying Go error value.
type ErrorKind int

const (
	ErrInvalidArgument ErrorKind = iota
	ErrInvalidMacroName
	ErrInvalidConversion
	ErrInvalidCommandOption
	ErrInvalidFile
	ErrUnallowedMacroExecution
	ErrAssertFail
	ErrManualPanic
	ErrStorageError
	ErrHookMacroFail
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrInvalidMacroName:
		return "InvalidMacroName"
	case ErrInvalidConversion:
		return "InvalidConversion"
	case ErrInvalidCommandOption:
		return "InvalidCommandOption"
	case ErrInvalidFile:
		return "InvalidFile"
	case ErrUnallowedMacroExecution:
		return "UnallowedMacroExecution"
	case ErrAssertFail:
		return "AssertFail"
	case ErrManualPanic:
		return "ManualPanic"
	case ErrStorageError:
		return "StorageError"
	case ErrHookMacroFail:
		return "HookMacroFail"
	default:
		return "Unknown"
	}
}

// RadError is the error type carried through the Evaluator. It always
// wraps an underlying cause with github.com/pkg/errors so that
// RAD_BACKTRACE can print an extended stack on request (spec §6).
type RadError struct {
	Kind     ErrorKind
	Pos      *SourcePosition
	Macro    string
	cause    error
}

func newRadError(kind ErrorKind, pos *SourcePosition, macro string, format string, args ...interface{}) *RadError {
	return &RadError{
		Kind:  kind,
		Pos:   pos,
		Macro: macro,
		cause: errors.Errorf(format, args...),
	}
}

func wrapRadError(kind ErrorKind, pos *SourcePosition, macro string, err error) *RadError {
	return &RadError{
		Kind:  kind,
		Pos:   pos,
		Macro: macro,
		cause: errors.WithStack(err),
	}
}

func (e *RadError) Error() string {
	if e.Macro != "" {
		return fmt.Sprintf("%s at %s (in %s): %v", e.Kind, e.Pos.String(), e.Macro, e.cause)
	}
	return fmt.Sprintf("%s at %s: %v", e.Kind, e.Pos.String(), e.cause)
}

// Unwrap exposes the wrapped cause so errors.Is/As keep working.
func (e *RadError) Unwrap() error { return e.cause }

// Backtrace renders the error with a stack trace when RAD_BACKTRACE is
// set, or a one-liner otherwise.
func (e *RadError) Backtrace() string {
	if os.Getenv("RAD_BACKTRACE") != "" {
		return fmt.Sprintf("%s at %s: %+v", e.Kind, e.Pos.String(), e.cause)
	}
	return e.Error()
}

// flowSignal distinguishes the exit control-flow transfer from genuine
// errors, per spec §9 ("exceptions for control flow"); handleBodyResult
// raises it only for FlowExit. The outer loop recognizes it with a type
// assertion and never reports it as a diagnostic.
type flowSignal struct {
	flow FlowControl
}

func (f *flowSignal) Error() string { return "flow control: " + flowLabel(f.flow) }

func flowLabel(f FlowControl) string {
	switch f {
	case FlowEscape:
		return "escape"
	case FlowExit:
		return "exit"
	default:
		return "none"
	}
}
