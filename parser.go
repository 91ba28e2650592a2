package whidl

import (
	"fmt"
	"strconv"
)

// Parser is a recursive-descent parser over a Scanner's token stream,
// buffering up to two tokens of lookahead so it can disambiguate the
// assignment operator `<=` (LeftAngle immediately followed by Equal) from a
// generic argument list's opening LeftAngle.
type Parser struct {
	sc   *Scanner
	buf  []Token
	path string
}

// NewParser returns a Parser over text, labeling diagnostics with path.
func NewParser(text, path string) *Parser {
	return &Parser{sc: NewScanner(text, path), path: path}
}

// Parse lexes and parses a single CHIP declaration from text.
func Parse(text, path string) (*ChipAST, error) {
	p := NewParser(text, path)
	return p.parseChip()
}

func (p *Parser) peekN(n int) Token {
	for len(p.buf) <= n {
		p.buf = append(p.buf, p.sc.Next())
	}
	return p.buf[n]
}

func (p *Parser) peek() Token { return p.peekN(0) }

func (p *Parser) next() Token {
	t := p.peekN(0)
	p.buf = p.buf[1:]
	return t
}

func (p *Parser) parseErr(tok Token, msg string) error {
	return newError(KindParse, tok.Path, tok.Line, tok.Column, tok.Lexeme, msg)
}

// expect consumes the next token and requires it to be of kind. Where an
// identifier is expected, a keyword token (e.g. the `in`/`out` port names)
// is accepted as one.
func (p *Parser) expect(kind TokenKind, what string) (Token, error) {
	tok := p.next()
	if kind == TokIdentifier && tok.Kind >= TokChip && tok.Kind <= TokGenerate {
		return tok, nil
	}
	if tok.Kind != kind {
		return tok, p.parseErr(tok, fmt.Sprintf("expected %s, found %q", what, tok.Lexeme))
	}
	return tok, nil
}

func (p *Parser) ident(tok Token) Identifier {
	return NewIdentifier(tok.Lexeme, tok.Path, tok.Line)
}

// parseChip implements: chip := 'CHIP' ident [ '<' ident {',' ident} '>' ]
// '{' 'IN' portlist 'OUT' portlist 'PARTS' ':' parts '}'
func (p *Parser) parseChip() (*ChipAST, error) {
	if _, err := p.expect(TokChip, "CHIP"); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(TokIdentifier, "chip name")
	if err != nil {
		return nil, err
	}

	var generics []Identifier
	if p.peek().Kind == TokLeftAngle {
		p.next()
		for {
			g, err := p.expect(TokIdentifier, "generic parameter name")
			if err != nil {
				return nil, err
			}
			generics = append(generics, p.ident(g))
			if p.peek().Kind == TokComma {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expect(TokRightAngle, "'>'"); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(TokLeftCurly, "'{'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokIn, "IN"); err != nil {
		return nil, err
	}
	inPorts, err := p.parsePortList(In)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokOut, "OUT"); err != nil {
		return nil, err
	}
	outPorts, err := p.parsePortList(Out)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokParts, "PARTS"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokColon, "':'"); err != nil {
		return nil, err
	}
	parts, err := p.parseParts()
	if err != nil {
		return nil, err
	}

	ports := make([]Port, 0, len(inPorts)+len(outPorts))
	ports = append(ports, inPorts...)
	ports = append(ports, outPorts...)

	return &ChipAST{
		Name:     p.ident(nameTok),
		Generics: generics,
		Ports:    ports,
		Parts:    parts,
		Path:     p.path,
	}, nil
}

// parsePortList implements: portlist := ident [ '[' expr ']' ] {',' ident [
// '[' expr ']' ]} ';'. A port without a bracketed width denotes width 1.
func (p *Parser) parsePortList(dir Direction) ([]Port, error) {
	var ports []Port
	for {
		nameTok, err := p.expect(TokIdentifier, "port name")
		if err != nil {
			return nil, err
		}
		width := Num(1)
		if p.peek().Kind == TokLeftBracket {
			p.next()
			width, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokRightBracket, "']'"); err != nil {
				return nil, err
			}
		}
		ports = append(ports, Port{Name: p.ident(nameTok), Direction: dir, Width: width})
		if p.peek().Kind == TokComma {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(TokSemicolon, "';'"); err != nil {
		return nil, err
	}
	return ports, nil
}

// parseParts implements: parts := { component | loop } '}'. The closing
// brace belongs to the parts loop itself; it is the same brace that closes
// the enclosing chip declaration (see DESIGN.md's Open Question decision).
func (p *Parser) parseParts() ([]Part, error) {
	var parts []Part
	for {
		if p.peek().Kind == TokRightCurly {
			p.next()
			return parts, nil
		}
		if p.peek().Kind == TokEOF {
			return nil, p.parseErr(p.peek(), "unexpected end of input in PARTS block")
		}
		if p.peek().Kind == TokFor {
			loop, err := p.parseLoop()
			if err != nil {
				return nil, err
			}
			parts = append(parts, Part{Loop: loop})
			continue
		}
		part, err := p.parseComponentOrAssignment()
		if err != nil {
			return nil, err
		}
		parts = append(parts, *part)
	}
}

// parseLoop implements: loop := 'FOR' ident 'IN' expr 'TO' expr 'GENERATE'
// '{' {component} '}'. The body holds only Component instantiations: no
// nested loops, no assignments.
func (p *Parser) parseLoop() (*Loop, error) {
	if _, err := p.expect(TokFor, "FOR"); err != nil {
		return nil, err
	}
	iterTok, err := p.expect(TokIdentifier, "loop variable name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokIn, "IN"); err != nil {
		return nil, err
	}
	start, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokTo, "TO"); err != nil {
		return nil, err
	}
	end, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokGenerate, "GENERATE"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLeftCurly, "'{'"); err != nil {
		return nil, err
	}
	var body []Component
	for {
		if p.peek().Kind == TokRightCurly {
			p.next()
			break
		}
		if p.peek().Kind == TokEOF {
			return nil, p.parseErr(p.peek(), "unexpected end of input in FOR-GENERATE body")
		}
		part, err := p.parseComponentOrAssignment()
		if err != nil {
			return nil, err
		}
		if part.Component == nil {
			return nil, p.parseErr(p.peek(), "assignments are not allowed inside a FOR-GENERATE body")
		}
		body = append(body, *part.Component)
	}
	return &Loop{Iterator: p.ident(iterTok), Start: start, End: end, Body: body}, nil
}

// parseComponentOrAssignment implements: component := ident [ '[' slice ']'
// ] ( assignment | instantiation ), disambiguating on a LeftAngle
// immediately followed by Equal (the `<=` assignment operator) versus a
// generic argument list. A bracketed slice is only legal on the assignment
// path: bracket-bearing identifiers never name an instantiated chip type,
// so a bracket not followed by `<=` is always rejected, whether this call
// is parsing a top-level part or the body of a FOR-GENERATE loop.
func (p *Parser) parseComponentOrAssignment() (*Part, error) {
	nameTok, err := p.expect(TokIdentifier, "identifier")
	if err != nil {
		return nil, err
	}
	name := p.ident(nameTok)
	bus := WholeBus(name)
	hasBracket := false
	if p.peek().Kind == TokLeftBracket {
		hasBracket = true
		p.next()
		start, end, err := p.parseSlice()
		if err != nil {
			return nil, err
		}
		bus = BitRange(name, start, end)
		if _, err := p.expect(TokRightBracket, "']'"); err != nil {
			return nil, err
		}
	}

	isAssignment := p.peek().Kind == TokLeftAngle && p.peekN(1).Kind == TokEqual
	if isAssignment {
		p.next() // '<'
		p.next() // '='
		rhsTok, err := p.expect(TokIdentifier, "identifier")
		if err != nil {
			return nil, err
		}
		rhsName := p.ident(rhsTok)
		rhsBus := WholeBus(rhsName)
		if p.peek().Kind == TokLeftBracket {
			p.next()
			start, end, err := p.parseSlice()
			if err != nil {
				return nil, err
			}
			rhsBus = BitRange(rhsName, start, end)
			if _, err := p.expect(TokRightBracket, "']'"); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(TokSemicolon, "';'"); err != nil {
			return nil, err
		}
		return &Part{Assignment: &Assignment{Left: bus, Right: rhsBus}}, nil
	}

	if hasBracket {
		return nil, p.parseErr(p.peek(), "unexpected bracketed slice before chip instantiation")
	}

	var generics []*Width
	if p.peek().Kind == TokLeftAngle {
		p.next()
		for {
			g, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			generics = append(generics, g)
			if p.peek().Kind == TokComma {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expect(TokRightAngle, "'>'"); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(TokLeftParen, "'('"); err != nil {
		return nil, err
	}
	mappings, err := p.parseMappings()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRightParen, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemicolon, "';'"); err != nil {
		return nil, err
	}

	return &Part{Component: &Component{
		ChipName:     name,
		GenericArgs:  generics,
		PortMappings: mappings,
		SourceLine:   nameTok.Line,
	}}, nil
}

// parseMappings implements: mappings := portmap {',' portmap}
func (p *Parser) parseMappings() ([]PortMapping, error) {
	var mappings []PortMapping
	for {
		pm, err := p.parsePortMap()
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, pm)
		if p.peek().Kind == TokComma {
			p.next()
			continue
		}
		break
	}
	return mappings, nil
}

// parsePortMap implements: portmap := ident [ '[' slice ']' ] '=' ident [
// '[' slice ']' ]
func (p *Parser) parsePortMap() (PortMapping, error) {
	portTok, err := p.expect(TokIdentifier, "port name")
	if err != nil {
		return PortMapping{}, err
	}
	portName := p.ident(portTok)
	portBus := WholeBus(portName)
	if p.peek().Kind == TokLeftBracket {
		p.next()
		start, end, err := p.parseSlice()
		if err != nil {
			return PortMapping{}, err
		}
		portBus = BitRange(portName, start, end)
		if _, err := p.expect(TokRightBracket, "']'"); err != nil {
			return PortMapping{}, err
		}
	}
	if _, err := p.expect(TokEqual, "'='"); err != nil {
		return PortMapping{}, err
	}
	wireTok, err := p.expect(TokIdentifier, "wire name")
	if err != nil {
		return PortMapping{}, err
	}
	wireName := p.ident(wireTok)
	wireBus := WholeBus(wireName)
	if p.peek().Kind == TokLeftBracket {
		p.next()
		start, end, err := p.parseSlice()
		if err != nil {
			return PortMapping{}, err
		}
		wireBus = BitRange(wireName, start, end)
		if _, err := p.expect(TokRightBracket, "']'"); err != nil {
			return PortMapping{}, err
		}
	}
	return PortMapping{PortBus: portBus, WireBus: wireBus, Origin: portName}, nil
}

// parseSlice implements: slice := expr [ '..' expr ]. The range operator is
// two consecutive Dot tokens (the scanner has no dedicated Range token).
// [a] with no range means [a..a].
func (p *Parser) parseSlice() (start, end *Width, err error) {
	start, err = p.parseExpr()
	if err != nil {
		return nil, nil, err
	}
	if p.peek().Kind == TokDot && p.peekN(1).Kind == TokDot {
		p.next()
		p.next()
		end, err = p.parseExpr()
		if err != nil {
			return nil, nil, err
		}
		return start, end, nil
	}
	return start, start, nil
}

// parseExpr implements: expr := term [ ('+'|'-') term ], flat with no
// precedence beyond one operator.
func (p *Parser) parseExpr() (*Width, error) {
	t1, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	switch p.peek().Kind {
	case TokPlus:
		p.next()
		t2, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		return Add(t1, t2), nil
	case TokMinus:
		p.next()
		t2, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		return Sub(t1, t2), nil
	default:
		return t1, nil
	}
}

// parseTerm implements the terminal production: a Number literal or an
// identifier variable.
func (p *Parser) parseTerm() (*Width, error) {
	tok := p.next()
	switch tok.Kind {
	case TokNumber:
		n, convErr := strconv.Atoi(tok.Lexeme)
		if convErr != nil {
			return nil, p.parseErr(tok, fmt.Sprintf("malformed number %q", tok.Lexeme))
		}
		return Num(n), nil
	case TokIdentifier:
		return Var(p.ident(tok)), nil
	default:
		return nil, p.parseErr(tok, fmt.Sprintf("expected a number or identifier, found %q", tok.Lexeme))
	}
}
