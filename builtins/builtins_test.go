package builtins_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whidl-go/whidl"
	"github.com/whidl-go/whidl/builtins"
)

func load(t *testing.T, p whidl.HDLProvider, name string) *whidl.ChipAST {
	t.Helper()
	text, err := p.GetHDL(name)
	require.NoError(t, err)
	ast, err := whidl.Parse(text, p.GetPath(name))
	require.NoError(t, err)
	return ast
}

func bit(v bool) whidl.Bus {
	if v {
		return whidl.Bus{whidl.One}
	}
	return whidl.Bus{whidl.Zero}
}

func word(v uint16) whidl.Bus {
	b := whidl.NewBus(16)
	for i := 0; i < 16; i++ {
		if v&(1<<uint(i)) != 0 {
			b[i] = whidl.One
		} else {
			b[i] = whidl.Zero
		}
	}
	return b
}

func wordValue(t *testing.T, b whidl.Bus) uint16 {
	t.Helper()
	require.Len(t, b, 16)
	var v uint16
	for i, bit := range b {
		if bit == whidl.One {
			v |= 1 << uint(i)
		}
	}
	return v
}

func TestNot(t *testing.T) {
	p := builtins.NewProvider()
	ast := load(t, p, "Not")
	out, err := whidl.Simulate(ast, p, nil, map[string]whidl.Bus{"in": bit(false)})
	require.NoError(t, err)
	got, err := out.Get("out")
	require.NoError(t, err)
	require.Equal(t, bit(true), got)
}

func TestAnd(t *testing.T) {
	p := builtins.NewProvider()
	ast := load(t, p, "And")
	cases := []struct{ a, b, want bool }{
		{false, false, false},
		{false, true, false},
		{true, false, false},
		{true, true, true},
	}
	for _, c := range cases {
		out, err := whidl.Simulate(ast, p, nil, map[string]whidl.Bus{"a": bit(c.a), "b": bit(c.b)})
		require.NoError(t, err)
		got, err := out.Get("out")
		require.NoError(t, err)
		require.Equal(t, bit(c.want), got, "And(%v,%v)", c.a, c.b)
	}
}

func TestMux(t *testing.T) {
	p := builtins.NewProvider()
	ast := load(t, p, "Mux")
	out, err := whidl.Simulate(ast, p, nil, map[string]whidl.Bus{"a": bit(false), "b": bit(true), "sel": bit(true)})
	require.NoError(t, err)
	got, err := out.Get("out")
	require.NoError(t, err)
	require.Equal(t, bit(true), got)
}

func TestNot16(t *testing.T) {
	p := builtins.NewProvider()
	ast := load(t, p, "Not16")
	out, err := whidl.Simulate(ast, p, nil, map[string]whidl.Bus{"in": word(0x0000)})
	require.NoError(t, err)
	got, err := out.Get("out")
	require.NoError(t, err)
	require.Equal(t, uint16(0xFFFF), wordValue(t, got))
}

func TestBitLatchesOnTick(t *testing.T) {
	p := builtins.NewProvider()
	ast := load(t, p, "Bit")
	root, err := whidl.Elaborate(ast, p, nil, false)
	require.NoError(t, err)
	sim := whidl.NewSimulator(root, whidl.NewElaborator(p))

	_, err = sim.Run(map[string]whidl.Bus{"in": bit(true), "load": bit(true)})
	require.NoError(t, err)
	out, err := root.Signals.Get("out")
	require.NoError(t, err)
	require.Equal(t, bit(false), out, "out must not change before tick")

	require.NoError(t, sim.Tick())

	_, err = sim.Run(map[string]whidl.Bus{"in": bit(false), "load": bit(false)})
	require.NoError(t, err)
	out, err = root.Signals.Get("out")
	require.NoError(t, err)
	require.Equal(t, bit(true), out)

	require.NoError(t, sim.Tick())

	_, err = sim.Run(map[string]whidl.Bus{"in": bit(false), "load": bit(false)})
	require.NoError(t, err)
	out, err = root.Signals.Get("out")
	require.NoError(t, err)
	require.Equal(t, bit(true), out)
}

func TestRAM8WriteThenRead(t *testing.T) {
	p := builtins.NewProvider()
	ast := load(t, p, "RAM8")
	root, err := whidl.Elaborate(ast, p, nil, false)
	require.NoError(t, err)
	sim := whidl.NewSimulator(root, whidl.NewElaborator(p))

	_, err = sim.Run(map[string]whidl.Bus{
		"in":      word(0xFFFF),
		"load":    bit(true),
		"address": word3(2),
	})
	require.NoError(t, err)
	require.NoError(t, sim.Tick())

	out, err := sim.Run(map[string]whidl.Bus{
		"in":      word(0x0000),
		"load":    bit(false),
		"address": word3(2),
	})
	require.NoError(t, err)
	got, err := out.Get("out")
	require.NoError(t, err)
	require.Equal(t, uint16(0xFFFF), wordValue(t, got))

	out, err = sim.Run(map[string]whidl.Bus{
		"in":      word(0x0000),
		"load":    bit(false),
		"address": word3(5),
	})
	require.NoError(t, err)
	got, err = out.Get("out")
	require.NoError(t, err)
	require.Equal(t, uint16(0x0000), wordValue(t, got))
}

func word3(v uint8) whidl.Bus {
	b := whidl.NewBus(3)
	for i := 0; i < 3; i++ {
		if v&(1<<uint(i)) != 0 {
			b[i] = whidl.One
		} else {
			b[i] = whidl.Zero
		}
	}
	return b
}
