package whidl_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whidl-go/whidl"
)

func TestParseSimpleChip(t *testing.T) {
	src := `CHIP And {
	    IN a, b;
	    OUT out;

	    PARTS:
	    Nand(a=a, b=b, out=w);
	    Nand(a=w, b=w, out=out);
	}`
	ast, err := whidl.Parse(src, "And.hdl")
	require.NoError(t, err)
	require.Equal(t, "And", ast.Name.Value)
	require.Len(t, ast.PortsByDirection(whidl.In), 2)
	require.Len(t, ast.PortsByDirection(whidl.Out), 1)
	require.Len(t, ast.Parts, 2)
}

func TestParseDirectAssignment(t *testing.T) {
	src := `CHIP Pass {
	    IN in;
	    OUT out;

	    PARTS:
	    out <= in;
	}`
	ast, err := whidl.Parse(src, "Pass.hdl")
	require.NoError(t, err)
	require.Len(t, ast.Parts, 1)
	require.NotNil(t, ast.Parts[0].Assignment)
	require.Equal(t, "out", ast.Parts[0].Assignment.Left.Name.Value)
	require.Equal(t, "in", ast.Parts[0].Assignment.Right.Name.Value)
}

func TestParseGenericsAndBitRanges(t *testing.T) {
	src := `CHIP Slice<n> {
	    IN in[n];
	    OUT out[1];

	    PARTS:
	    out <= in[0..0];
	}`
	ast, err := whidl.Parse(src, "Slice.hdl")
	require.NoError(t, err)
	require.Len(t, ast.Generics, 1)
	require.Equal(t, "n", ast.Generics[0].Value)

	rhs := ast.Parts[0].Assignment.Right
	require.True(t, rhs.HasRange)
}

func TestParseForGenerateLoop(t *testing.T) {
	src := `CHIP Not8 {
	    IN in[8];
	    OUT out[8];

	    PARTS:
	    FOR i IN 0 TO 7 GENERATE {
	        Nand(a=in[i..i], b=in[i..i], out=out[i..i]);
	    }
	}`
	ast, err := whidl.Parse(src, "Not8.hdl")
	require.NoError(t, err)
	require.Len(t, ast.Parts, 1)
	require.NotNil(t, ast.Parts[0].Loop)
	require.Equal(t, "i", ast.Parts[0].Loop.Iterator.Value)
	require.Len(t, ast.Parts[0].Loop.Body, 1)
}

func TestParseRejectsAssignmentInsideLoopBody(t *testing.T) {
	src := `CHIP Bad {
	    IN in;
	    OUT out;

	    PARTS:
	    FOR i IN 0 TO 0 GENERATE {
	        out <= in;
	    }
	}`
	_, err := whidl.Parse(src, "Bad.hdl")
	require.Error(t, err)
}

func TestParseErrorOnMissingParts(t *testing.T) {
	src := `CHIP Bad {
	    IN in;
	    OUT out;
	}`
	_, err := whidl.Parse(src, "Bad.hdl")
	require.Error(t, err)
}

func TestParseErrorPositionsReportLine(t *testing.T) {
	src := "CHIP Bad {\n    IN in;\n    OUT out;\n\n    PARTS:\n    @@@\n}"
	_, err := whidl.Parse(src, "Bad.hdl")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Bad.hdl")
	var perr *whidl.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, 6, perr.Line)
}
