package testscript_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whidl-go/whidl"
	"github.com/whidl-go/whidl/builtins"
	"github.com/whidl-go/whidl/testscript"
)

// mapProvider layers a few named in-memory text resources (the .tst and
// .cmp files under test) over the bundled builtins, so a script can load
// "And" while the .cmp comparison text lives only in the test.
type mapProvider struct {
	texts map[string]string
	inner whidl.HDLProvider
}

func (m *mapProvider) GetHDL(name string) (string, error) {
	if t, ok := m.texts[name]; ok {
		return t, nil
	}
	return m.inner.GetHDL(name)
}

func (m *mapProvider) GetPath(name string) string {
	if _, ok := m.texts[name]; ok {
		return "mem://" + name
	}
	return m.inner.GetPath(name)
}

func TestParseScript(t *testing.T) {
	src := `load And.hdl, output-file And.out, compare-to And.cmp, output-list a%B1.1.1 b%B1.1.1 out%B1.1.1;
set a 0, set b 0, eval, output;
set a 1, set b 1, eval, output;`
	s, err := testscript.ParseScript(src)
	require.NoError(t, err)
	require.Equal(t, "And.hdl", s.Load)
	require.Equal(t, "And.out", s.OutputFile)
	require.Equal(t, "And.cmp", s.ComparePath)
	require.Len(t, s.OutputList, 3)
	require.Len(t, s.Steps, 2)
	require.Len(t, s.Steps[0].Instructions, 4)
}

func TestRunAndMatchesComparisonFile(t *testing.T) {
	src := `load And.hdl, output-file And.out, compare-to And.cmp, output-list a%B1.1.1 b%B1.1.1 out%B1.1.1;
set a 0, set b 0, eval, output;
set a 1, set b 0, eval, output;
set a 1, set b 1, eval, output;`
	cmp := `|  a  |  b  | out |
|  0  |  0  |  0  |
|  1  |  0  |  0  |
|  1  |  1  |  1  |
`
	p := &mapProvider{
		texts: map[string]string{"And.cmp": cmp},
		inner: builtins.NewProvider(),
	}
	script, err := testscript.ParseScript(src)
	require.NoError(t, err)

	ok, diffs, err := testscript.Run(script, p)
	require.NoError(t, err)
	require.Empty(t, diffs)
	require.True(t, ok)
}

func TestRunDetectsMismatch(t *testing.T) {
	src := `load And.hdl, output-file And.out, compare-to And.cmp, output-list a%B1.1.1 b%B1.1.1 out%B1.1.1;
set a 1, set b 1, eval, output;`
	cmp := `|  a  |  b  | out |
|  1  |  1  |  0  |
`
	p := &mapProvider{
		texts: map[string]string{"And.cmp": cmp},
		inner: builtins.NewProvider(),
	}
	script, err := testscript.ParseScript(src)
	require.NoError(t, err)

	ok, diffs, err := testscript.Run(script, p)
	require.NoError(t, err)
	require.False(t, ok)
	require.Len(t, diffs, 1)
	require.Equal(t, "out", diffs[0].Port)
}
