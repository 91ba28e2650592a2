package whidl_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whidl-go/whidl"
)

func TestWidthArithmeticFoldsNumericOperands(t *testing.T) {
	sum := whidl.Add(whidl.Num(3), whidl.Num(4))
	require.True(t, sum.IsNumeric())
	require.Equal(t, "7", sum.String())

	diff := whidl.Sub(whidl.Num(10), whidl.Num(3))
	require.Equal(t, "7", diff.String())

	max := whidl.Max(whidl.Num(3), whidl.Num(9))
	require.Equal(t, "9", max.String())
}

func TestWidthMaxStaysSymbolicOverVariables(t *testing.T) {
	n := whidl.Var(whidl.NewIdentifier("n", "", 0))
	max := whidl.Max(whidl.Num(3), n)
	require.False(t, max.IsNumeric())
	require.Equal(t, "3 MAXIMUM n", max.String())
}

func TestWidthEvalSubstitutesBoundVariables(t *testing.T) {
	n := whidl.Var(whidl.NewIdentifier("n", "", 0))
	expr := whidl.Add(n, whidl.Num(1))
	env := whidl.Env{"n": whidl.Num(7)}

	got, err := whidl.EvalNumeric(expr, env)
	require.NoError(t, err)
	require.Equal(t, 8, got)
}

func TestWidthEvalNumericRejectsFreeVariables(t *testing.T) {
	n := whidl.Var(whidl.NewIdentifier("n", "", 0))
	_, err := whidl.EvalNumeric(n, nil)
	require.Error(t, err)
}

func TestWidthSubstituteReplacesNamedVariableEverywhere(t *testing.T) {
	n := whidl.Var(whidl.NewIdentifier("n", "", 0))
	expr := whidl.Max(whidl.Add(n, whidl.Num(1)), n)
	replaced := whidl.Substitute(expr, "n", whidl.Num(4))

	got, err := whidl.EvalNumeric(replaced, nil)
	require.NoError(t, err)
	require.Equal(t, 5, got)
}
