// Package testscript parses the nand2tetris-style `.tst` instruction
// stream and `.cmp` comparison file format and drives a whidl.Simulator
// through a parsed script, checking each `output` step's signal map
// against the expected row under the Unknown <= {Zero, One} subsumption
// partial order. This is a library, not the out-of-scope standalone test
// runner binary: Run returns its verdict as a value instead of an exit
// code.
package testscript

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/whidl-go/whidl"
)

// NumberSystem identifies how a .tst/.cmp literal's digits are read.
type NumberSystem int

const (
	Decimal NumberSystem = iota
	Binary
	Hex
	StringColumn
)

// OutputColumn describes one column of the `output-list` / `.cmp` header:
// a port name, its number system, and the nand2tetris padding widths
// (spaces before/after, and the number of output columns — the port may
// be truncated or padded to this width for display, independent of its
// simulated bit width).
type OutputColumn struct {
	Port    string
	System  NumberSystem
	Before  int
	Columns int
	After   int
}

// Instruction is one action within a step: Set, Eval, Output, Tick, or
// Tock.
type Instruction struct {
	Kind   InstructionKind
	Port   string
	System NumberSystem
	Value  string
}

type InstructionKind int

const (
	InstrSet InstructionKind = iota
	InstrEval
	InstrOutput
	InstrTick
	InstrTock
)

// Step is one semicolon-terminated sequence of instructions.
type Step struct {
	Instructions []Instruction
}

// Script is a fully parsed `.tst` file.
type Script struct {
	Load        string
	Generics    []int
	OutputFile  string
	ComparePath string
	OutputList  []OutputColumn
	Steps       []Step
}

// ParseScript parses a `.tst` file's text.
func ParseScript(text string) (*Script, error) {
	p := &scriptParser{toks: tokenizeScript(text)}
	return p.parse()
}

type scriptParser struct {
	toks []string
	pos  int
}

func (p *scriptParser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos]
}

func (p *scriptParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *scriptParser) expect(want string) error {
	t := p.next()
	if !strings.EqualFold(t, want) {
		return errors.Errorf("expected %q, found %q", want, t)
	}
	return nil
}

// tokenizeScript splits a .tst file into a flat token stream: words,
// commas, semicolons, and parentheses are each their own token, with
// trailing punctuation split off; commas inside a `<...>` generic list stay
// part of their word.
func tokenizeScript(text string) []string {
	var toks []string
	var cur strings.Builder
	angleDepth := 0
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch r {
		case '<':
			angleDepth++
			cur.WriteRune(r)
		case '>':
			if angleDepth > 0 {
				angleDepth--
			}
			cur.WriteRune(r)
		case ',', ';', '(', ')':
			if angleDepth > 0 {
				cur.WriteRune(r)
				continue
			}
			flush()
			toks = append(toks, string(r))
		case ' ', '\t', '\n', '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

func (p *scriptParser) parse() (*Script, error) {
	s := &Script{}
	if err := p.expect("load"); err != nil {
		return nil, err
	}
	loadTok := p.next()
	name, generics, err := splitGenerics(loadTok)
	if err != nil {
		return nil, err
	}
	s.Load = name
	s.Generics = generics
	if err := p.expect(","); err != nil {
		return nil, err
	}

	if err := p.expect("output-file"); err != nil {
		return nil, err
	}
	s.OutputFile = p.next()
	if err := p.expect(","); err != nil {
		return nil, err
	}

	if err := p.expect("compare-to"); err != nil {
		return nil, err
	}
	s.ComparePath = p.next()
	if err := p.expect(","); err != nil {
		return nil, err
	}

	if err := p.expect("output-list"); err != nil {
		return nil, err
	}
	cols, err := p.outputList()
	if err != nil {
		return nil, err
	}
	s.OutputList = cols
	if err := p.expect(";"); err != nil {
		return nil, err
	}

	steps, err := p.steps()
	if err != nil {
		return nil, err
	}
	s.Steps = steps
	return s, nil
}

func splitGenerics(tok string) (string, []int, error) {
	i := strings.IndexByte(tok, '<')
	if i < 0 {
		return tok, nil, nil
	}
	if !strings.HasSuffix(tok, ">") {
		return "", nil, errors.Errorf("malformed generic argument list %q", tok)
	}
	name := tok[:i]
	inner := tok[i+1 : len(tok)-1]
	var generics []int
	for _, part := range strings.Split(inner, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return "", nil, errors.Wrapf(err, "generic argument %q", part)
		}
		generics = append(generics, n)
	}
	return name, generics, nil
}

func (p *scriptParser) outputList() ([]OutputColumn, error) {
	hasParen := p.peek() == "("
	if hasParen {
		p.next()
	}
	var cols []OutputColumn
	for {
		tok := p.peek()
		if tok == ";" || tok == "" || tok == ")" {
			break
		}
		if tok == "," {
			p.next()
			continue
		}
		col, err := parseOutputColumn(p.next())
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	if hasParen {
		if err := p.expect(")"); err != nil {
			return nil, err
		}
	}
	return cols, nil
}

// parseOutputColumn parses one `ident%{B|D|X|S}sb.cols.sa` token, e.g.
// `out%B2.1.2`.
func parseOutputColumn(tok string) (OutputColumn, error) {
	i := strings.IndexByte(tok, '%')
	if i < 0 {
		return OutputColumn{}, errors.Errorf("malformed output-list entry %q", tok)
	}
	name := tok[:i]
	rest := tok[i+1:]
	if len(rest) == 0 {
		return OutputColumn{}, errors.Errorf("malformed output-list entry %q", tok)
	}
	sys, err := parseNumberSystemLetter(rest[0])
	if err != nil {
		return OutputColumn{}, err
	}
	parts := strings.Split(rest[1:], ".")
	if len(parts) != 3 {
		return OutputColumn{}, errors.Errorf("malformed output-list widths in %q", tok)
	}
	before, err1 := strconv.Atoi(parts[0])
	cols, err2 := strconv.Atoi(parts[1])
	after, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return OutputColumn{}, errors.Errorf("malformed output-list widths in %q", tok)
	}
	return OutputColumn{Port: name, System: sys, Before: before, Columns: cols, After: after}, nil
}

func parseNumberSystemLetter(c byte) (NumberSystem, error) {
	switch c {
	case 'B', 'b':
		return Binary, nil
	case 'D', 'd':
		return Decimal, nil
	case 'X', 'x':
		return Hex, nil
	case 'S', 's':
		return StringColumn, nil
	default:
		return 0, errors.Errorf("unknown number system %q", string(c))
	}
}

func (p *scriptParser) steps() ([]Step, error) {
	var steps []Step
	for p.peek() != "" {
		var instrs []Instruction
		for {
			tok := p.peek()
			if tok == "" {
				return nil, errors.Errorf("unterminated step")
			}
			if tok == ";" {
				p.next()
				break
			}
			if tok == "," {
				p.next()
				continue
			}
			instr, err := p.instruction()
			if err != nil {
				return nil, err
			}
			instrs = append(instrs, instr)
		}
		steps = append(steps, Step{Instructions: instrs})
	}
	return steps, nil
}

func (p *scriptParser) instruction() (Instruction, error) {
	word := p.next()
	switch strings.ToLower(word) {
	case "eval":
		return Instruction{Kind: InstrEval}, nil
	case "output":
		return Instruction{Kind: InstrOutput}, nil
	case "tick":
		return Instruction{Kind: InstrTick}, nil
	case "tock":
		return Instruction{Kind: InstrTock}, nil
	case "set":
		port := p.next()
		value := p.next()
		sys := Decimal
		if strings.HasPrefix(value, "%") {
			var err error
			sys, err = parseNumberSystemLetter(value[1])
			if err != nil {
				return Instruction{}, err
			}
			value = value[2:]
		}
		return Instruction{Kind: InstrSet, Port: port, System: sys, Value: value}, nil
	default:
		return Instruction{}, errors.Errorf("unknown test-script instruction %q", word)
	}
}

// ValueToBus converts a `set` instruction's literal, in its declared
// number system, to a bus of the given width (padded/truncated like the
// reference tool: MSB-first, keeping the low-order bits).
func ValueToBus(sys NumberSystem, literal string, width int) (whidl.Bus, error) {
	switch sys {
	case Binary:
		bus := whidl.NewBus(len(literal))
		for i, c := range literal {
			switch c {
			case '0':
				bus[len(literal)-1-i] = whidl.Zero
			case '1':
				bus[len(literal)-1-i] = whidl.One
			default:
				return nil, errors.Errorf("invalid binary digit %q", string(c))
			}
		}
		return fitBus(bus, width), nil
	case Hex:
		n, err := strconv.ParseUint(literal, 16, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid hex literal %q", literal)
		}
		return fitBus(intToBus(int64(n), width), width), nil
	case Decimal:
		n, err := strconv.ParseInt(literal, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid decimal literal %q", literal)
		}
		return fitBus(intToBus(n, width), width), nil
	default:
		return nil, errors.Errorf("number system does not convert to a bus")
	}
}

func intToBus(n int64, width int) whidl.Bus {
	bus := whidl.NewBus(width)
	for i := 0; i < width; i++ {
		if n&(1<<uint(i)) != 0 {
			bus[i] = whidl.One
		} else {
			bus[i] = whidl.Zero
		}
	}
	return bus
}

func fitBus(b whidl.Bus, width int) whidl.Bus {
	if len(b) == width {
		return b
	}
	out := whidl.NewBus(width)
	for i := 0; i < width; i++ {
		if i < len(b) {
			out[i] = b[i]
		} else {
			out[i] = whidl.Zero
		}
	}
	return out
}

// Mismatch records a single step's single-port comparison failure.
type Mismatch struct {
	Step int
	Port string
	Got  whidl.Bus
	Want whidl.Bus
}

// Row is one parsed `.cmp` comparison line: a bus (nil for a wildcard or
// String-column entry, which is never compared) per output column.
type Row map[string]whidl.Bus

// ParseCmp parses a `.cmp` file's text against the given column order and
// number systems; each value is padded or truncated to its column's
// Columns field, which Run sets to the port's simulated bit width.
func ParseCmp(text string, outputList []OutputColumn) ([]Row, error) {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) == 0 {
		return nil, nil
	}
	// header line is just the column names between pipes; the real
	// column order/widths/number-systems come from the script itself.
	var rows []Row
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		trimmed := strings.Trim(line, "|")
		fields := strings.Split(trimmed, "|")
		if len(fields) != len(outputList) {
			return nil, errors.Errorf("cmp row has %d fields, expected %d: %q", len(fields), len(outputList), line)
		}
		row := make(Row)
		for i, field := range fields {
			field = strings.TrimSpace(field)
			col := outputList[i]
			if col.System == StringColumn || strings.Contains(field, "*") {
				continue
			}
			bus, err := ValueToBus(col.System, field, col.Columns)
			if err != nil {
				return nil, errors.Wrapf(err, "cmp row %q column %q", line, col.Port)
			}
			row[col.Port] = bus
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Run executes script against provider (which must serve both the `.hdl`
// chip referenced by Load and, reusing the same GetHDL method, the text of
// the `.cmp` file named by ComparePath — both are simply named text
// resources from the provider's point of view). It returns whether every
// `output` step subsumed its expected row under Unknown <= {Zero,One},
// the list of mismatches found, and any simulation/parse error.
func Run(script *Script, provider whidl.HDLProvider) (ok bool, diffs []Mismatch, err error) {
	hdlText, err := provider.GetHDL(script.Load)
	if err != nil {
		return false, nil, err
	}
	ast, err := whidl.Parse(hdlText, provider.GetPath(script.Load))
	if err != nil {
		return false, nil, err
	}
	generics := make([]*whidl.Width, len(script.Generics))
	for i, g := range script.Generics {
		generics[i] = whidl.Num(g)
	}

	root, err := whidl.Elaborate(ast, provider, generics, false)
	if err != nil {
		return false, nil, err
	}
	sim := whidl.NewSimulator(root, whidl.NewElaborator(provider))

	cmpText, err := provider.GetHDL(script.ComparePath)
	if err != nil {
		return false, nil, errors.Wrap(err, "reading comparison file")
	}
	// comparison values are sized to each port's simulated width, not to the
	// column's display width
	cmpCols := make([]OutputColumn, len(script.OutputList))
	for i, col := range script.OutputList {
		cmpCols[i] = col
		if w, has := root.Signals.Width(col.Port); has {
			cmpCols[i].Columns = w
		}
	}
	rows, err := ParseCmp(cmpText, cmpCols)
	if err != nil {
		return false, nil, err
	}

	inputs := make(map[string]whidl.Bus)
	outputIdx := 0
	ok = true
	for stepIdx, step := range script.Steps {
		for _, instr := range step.Instructions {
			switch instr.Kind {
			case InstrSet:
				w, has := root.Signals.Width(instr.Port)
				if !has {
					return false, nil, errors.Errorf("step %d: unknown port %q", stepIdx+1, instr.Port)
				}
				bus, err := ValueToBus(instr.System, instr.Value, w)
				if err != nil {
					return false, nil, err
				}
				inputs[instr.Port] = bus
			case InstrEval:
				if _, err := sim.Run(inputs); err != nil {
					return false, nil, err
				}
			case InstrTick:
				if _, err := sim.Run(inputs); err != nil {
					return false, nil, err
				}
			case InstrTock:
				if err := sim.Tick(); err != nil {
					return false, nil, err
				}
				if _, err := sim.Run(inputs); err != nil {
					return false, nil, err
				}
			case InstrOutput:
				if outputIdx >= len(rows) {
					return false, nil, errors.Errorf("step %d: no comparison row left for output", stepIdx+1)
				}
				row := rows[outputIdx]
				outputIdx++
				for name, want := range row {
					got, err := root.Signals.Get(name)
					if err != nil {
						return false, nil, err
					}
					if !subsumes(want, got) {
						ok = false
						diffs = append(diffs, Mismatch{Step: stepIdx + 1, Port: name, Got: got.Clone(), Want: want})
					}
				}
			}
		}
	}
	return ok, diffs, nil
}

// subsumes reports whether got satisfies want under the Unknown <=
// {Zero,One} bitwise partial order (want is the expected row, which may
// itself carry Unknown bits that are satisfied by anything).
func subsumes(want, got whidl.Bus) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if !want[i].Leq(got[i]) {
			return false
		}
	}
	return true
}
