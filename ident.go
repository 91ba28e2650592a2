package whidl

import "fmt"

// Identifier carries a name together with enough source position to render
// a diagnostic: the path it came from and the line it appeared on.
type Identifier struct {
	Value string
	Path  string
	Line  int
}

// NewIdentifier builds an Identifier bound to a source location.
func NewIdentifier(value, path string, line int) Identifier {
	return Identifier{Value: value, Path: path, Line: line}
}

func (id Identifier) String() string {
	if id.Path == "" {
		return id.Value
	}
	return fmt.Sprintf("%s (%s:%d)", id.Value, id.Path, id.Line)
}
