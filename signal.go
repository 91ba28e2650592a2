package whidl

import "github.com/pkg/errors"

// Bit is a tri-valued logic level. Unknown propagates through NAND: if
// either operand of a NAND is Unknown, the result is Unknown.
type Bit int

const (
	Unknown Bit = iota
	Zero
	One
)

func (b Bit) String() string {
	switch b {
	case Zero:
		return "0"
	case One:
		return "1"
	case Unknown:
		return "X"
	default:
		return "?"
	}
}

// Nand computes the two-input Unknown-propagating NAND of a and b.
func Nand(a, b Bit) Bit {
	if a == Unknown || b == Unknown {
		return Unknown
	}
	if a == One && b == One {
		return Zero
	}
	return One
}

// Leq is the partial order used by the comparison-file subsumption check:
// Unknown <= Zero, Unknown <= One, and every bit is <= itself.
func (b Bit) Leq(other Bit) bool {
	return b == Unknown || b == other
}

// BoolToBit converts a plain boolean into Zero/One.
func BoolToBit(v bool) Bit {
	if v {
		return One
	}
	return Zero
}

// Bus is a fixed-length vector of bits, addressed right-indexed: index 0 is
// the least significant (and right-most in source text) bit.
type Bus []Bit

// NewBus allocates a width-wide bus, all bits Unknown.
func NewBus(width int) Bus {
	b := make(Bus, width)
	for i := range b {
		b[i] = Unknown
	}
	return b
}

// Slice returns the inclusive sub-range [start,end] of the bus (both
// 0-indexed from the LSB), as a fresh copy.
func (b Bus) Slice(start, end int) (Bus, error) {
	if start < 0 || end >= len(b) || start > end {
		return nil, errors.Errorf("bus slice [%d..%d] out of range for width %d", start, end, len(b))
	}
	out := make(Bus, end-start+1)
	copy(out, b[start:end+1])
	return out, nil
}

// SetSlice writes value into the inclusive range [start,end] of b.
func (b Bus) SetSlice(start, end int, value Bus) error {
	if start < 0 || end >= len(b) || start > end {
		return errors.Errorf("bus slice [%d..%d] out of range for width %d", start, end, len(b))
	}
	if len(value) != end-start+1 {
		return errors.Errorf("bus slice [%d..%d] expects %d bits, got %d", start, end, end-start+1, len(value))
	}
	copy(b[start:end+1], value)
	return nil
}

// Equal reports structural equality including Unknown positions.
func (b Bus) Equal(other Bus) bool {
	if len(b) != len(other) {
		return false
	}
	for i := range b {
		if b[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a fresh copy of b.
func (b Bus) Clone() Bus {
	out := make(Bus, len(b))
	copy(out, b)
	return out
}

// SignalMap is an ordered mapping from signal name to a fixed-length bus of
// tri-valued bits, the storage backing every port and internal wire of an
// elaborated chip.
type SignalMap struct {
	order []string
	bits  map[string]Bus
}

// NewSignalMap returns an empty signal map.
func NewSignalMap() *SignalMap {
	return &SignalMap{bits: make(map[string]Bus)}
}

// Create allocates a new width-wide, all-Unknown bus for name. It is an
// error to create the same name twice.
func (m *SignalMap) Create(name string, width int) error {
	if _, ok := m.bits[name]; ok {
		return errors.Errorf("signal %q already exists", name)
	}
	m.order = append(m.order, name)
	m.bits[name] = NewBus(width)
	return nil
}

// Names returns the signal names in creation order.
func (m *SignalMap) Names() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Width returns the bit width of name.
func (m *SignalMap) Width(name string) (int, bool) {
	b, ok := m.bits[name]
	if !ok {
		return 0, false
	}
	return len(b), true
}

// Get returns the full bus for name.
func (m *SignalMap) Get(name string) (Bus, error) {
	b, ok := m.bits[name]
	if !ok {
		return nil, errors.Errorf("unknown signal %q", name)
	}
	return b, nil
}

// GetRange returns the inclusive sub-range [start,end] of name.
func (m *SignalMap) GetRange(name string, start, end int) (Bus, error) {
	b, ok := m.bits[name]
	if !ok {
		return nil, errors.Errorf("unknown signal %q", name)
	}
	return b.Slice(start, end)
}

// Set overwrites the full bus for name.
func (m *SignalMap) Set(name string, value Bus) error {
	b, ok := m.bits[name]
	if !ok {
		return errors.Errorf("unknown signal %q", name)
	}
	if len(value) != len(b) {
		return errors.Errorf("signal %q expects width %d, got %d", name, len(b), len(value))
	}
	copy(b, value)
	return nil
}

// SetRange overwrites the inclusive sub-range [start,end] of name.
func (m *SignalMap) SetRange(name string, start, end int, value Bus) error {
	b, ok := m.bits[name]
	if !ok {
		return errors.Errorf("unknown signal %q", name)
	}
	return b.SetSlice(start, end, value)
}

// snapshot returns a comparable string encoding of every signal's bits, used
// to detect convergence when iterating a combinational feedback loop.
func (m *SignalMap) snapshot() string {
	var b []byte
	for _, name := range m.order {
		b = append(b, name...)
		b = append(b, '=')
		for _, bit := range m.bits[name] {
			b = append(b, byte('0'+bit))
		}
		b = append(b, ';')
	}
	return string(b)
}

// Clone deep-copies the signal map.
func (m *SignalMap) Clone() *SignalMap {
	out := NewSignalMap()
	for _, name := range m.order {
		out.order = append(out.order, name)
		out.bits[name] = m.bits[name].Clone()
	}
	return out
}
