package whidl

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies the error families described by the error-handling design:
// parse errors, width conflicts, elaboration failures, simulation failures,
// provider I/O failures, and non-numeric expression evaluation.
type Kind int

const (
	// KindParse is an unexpected token encountered while scanning or parsing.
	KindParse Kind = iota
	// KindWidth is a width conflict or an ungrounded signal at inference
	// fixed point.
	KindWidth
	// KindElaboration covers duplicate/missing drivers, generic count
	// mismatches, non-numeric widths where concrete ones are required, and
	// references to non-existent ports.
	KindElaboration
	// KindSim is raised when the simulator fails to converge or a primitive
	// short-circuit hits a malformed signal map.
	KindSim
	// KindIO is raised when an HDLProvider cannot return source text.
	KindIO
	// KindNonNumeric is raised when a width expression expected to be
	// numeric still contains a free variable.
	KindNonNumeric
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "PARSE ERROR"
	case KindWidth:
		return "WIDTH ERROR"
	case KindElaboration:
		return "ELABORATION ERROR"
	case KindSim:
		return "SIMULATION ERROR"
	case KindIO:
		return "IO ERROR"
	case KindNonNumeric:
		return "NON-NUMERIC ERROR"
	default:
		return "ERROR"
	}
}

// Error is the single exported error type for all of the kinds above. It
// wraps an underlying cause with github.com/pkg/errors so callers get %+v
// stack traces, while still exposing Kind for kind-specific handling such as
// caret rendering or exit-code mapping.
type Error struct {
	Kind    Kind
	Path    string
	Line    int
	Column  int
	Lexeme  string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// newError constructs an *Error of the given kind whose cause is a fresh
// github.com/pkg/errors error carrying msg, for stack-trace context.
func newError(kind Kind, path string, line, col int, lexeme, msg string) *Error {
	return &Error{
		Kind:    kind,
		Path:    path,
		Line:    line,
		Column:  col,
		Lexeme:  lexeme,
		Message: msg,
		cause:   errors.New(msg),
	}
}

func wrapError(kind Kind, cause error, msg string) *Error {
	wrapped := errors.Wrap(cause, msg)
	return &Error{
		Kind:    kind,
		Message: wrapped.Error(),
		cause:   wrapped,
	}
}

// Render produces the caret-annotated, user-visible rendering described by
// the error handling design:
//
//	-- PARSE ERROR ----------- <path>
//	<n>| <source line n>
//	         ^^^^^^
//	<message>
//
// sourceLine is the full text of the offending line (without trailing
// newline); the caret run spans len(lexeme) columns starting at Column
// (1-indexed).
func (e *Error) Render(sourceLine string) string {
	var b strings.Builder
	banner := fmt.Sprintf("-- %s ", e.Kind.String())
	dashes := 26 - len(banner)
	if dashes < 1 {
		dashes = 1
	}
	fmt.Fprintf(&b, "%s%s %s\n", banner, strings.Repeat("-", dashes), e.Path)
	fmt.Fprintf(&b, "%d| %s\n", e.Line, sourceLine)

	prefix := fmt.Sprintf("%d| ", e.Line)
	pad := strings.Repeat(" ", len(prefix)+max0(e.Column-1))
	caretLen := len(e.Lexeme)
	if caretLen < 1 {
		caretLen = 1
	}
	fmt.Fprintf(&b, "%s%s\n", pad, strings.Repeat("^", caretLen))
	b.WriteString(e.Message)
	return b.String()
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
