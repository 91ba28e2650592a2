package whidl_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whidl-go/whidl"
)

func tokenKinds(t *testing.T, src string) []whidl.TokenKind {
	t.Helper()
	s := whidl.NewScanner(src, "t.hdl")
	var kinds []whidl.TokenKind
	for {
		tok := s.Next()
		kinds = append(kinds, tok.Kind)
		if tok.Kind == whidl.TokEOF {
			return kinds
		}
	}
}

func TestScannerRecognizesKeywordsCaseInsensitively(t *testing.T) {
	kinds := tokenKinds(t, "chip CHIP Chip in IN out OUT parts PARTS for FOR to TO generate GENERATE")
	for _, k := range kinds[:len(kinds)-1] {
		require.NotEqual(t, whidl.TokIdentifier, k)
	}
}

func TestScannerIdentifiersRemainCaseSensitive(t *testing.T) {
	s := whidl.NewScanner("FooBar fooBar", "t.hdl")
	a := s.Next()
	b := s.Next()
	require.Equal(t, whidl.TokIdentifier, a.Kind)
	require.Equal(t, whidl.TokIdentifier, b.Kind)
	require.NotEqual(t, a.Lexeme, b.Lexeme)
}

func TestScannerSkipsLineAndBlockComments(t *testing.T) {
	src := "a // trailing comment\nb /* a block\ncomment */ c"
	s := whidl.NewScanner(src, "t.hdl")
	var lexemes []string
	for {
		tok := s.Next()
		if tok.Kind == whidl.TokEOF {
			break
		}
		lexemes = append(lexemes, tok.Lexeme)
	}
	require.Equal(t, []string{"a", "b", "c"}, lexemes)
}

func TestScannerPeekDoesNotConsume(t *testing.T) {
	s := whidl.NewScanner("a b", "t.hdl")
	first := s.Peek()
	second := s.Peek()
	require.Equal(t, first, second)
	require.Equal(t, "a", s.Next().Lexeme)
	require.Equal(t, "b", s.Next().Lexeme)
}

func TestScannerScansNumbersAndPunctuation(t *testing.T) {
	s := whidl.NewScanner("a[16] <= b;", "t.hdl")
	var kinds []whidl.TokenKind
	for i := 0; i < 7; i++ {
		kinds = append(kinds, s.Next().Kind)
	}
	require.Equal(t, []whidl.TokenKind{
		whidl.TokIdentifier, whidl.TokLeftBracket, whidl.TokNumber, whidl.TokRightBracket,
		whidl.TokLeftAngle, whidl.TokEqual, whidl.TokIdentifier,
	}, kinds)
}

func TestScannerLineNumbersAdvanceAcrossNewlines(t *testing.T) {
	s := whidl.NewScanner("a\nb\nc", "t.hdl")
	first := s.Next()
	s.Next()
	third := s.Next()
	require.Equal(t, 1, first.Line)
	require.Equal(t, 3, third.Line)
}
