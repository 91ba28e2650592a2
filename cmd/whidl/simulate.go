package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/whidl-go/whidl"
	"github.com/whidl-go/whidl/testscript"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate NAME",
	Short: "Simulate one evaluation cycle of a chip against explicit inputs",
	Long: "Simulate elaborates the chip, applies each --input NAME=VALUE to its input ports " +
		"(as a decimal number), runs one combinational pass, optionally ticks, and prints every output port.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawInputs, _ := cmd.Flags().GetStringArray("input")
		rawGenerics, _ := cmd.Flags().GetStringArray("generic")
		tick, _ := cmd.Flags().GetBool("tick")

		generics, err := parseGenerics(rawGenerics)
		if err != nil {
			return err
		}
		ast, provider, err := loadAST(cmd, args[0])
		if err != nil {
			return err
		}
		root, err := whidl.Elaborate(ast, provider, generics, false)
		if err != nil {
			return err
		}
		sim := whidl.NewSimulator(root, whidl.NewElaborator(provider))

		inputs, err := parseInputs(root, rawInputs)
		if err != nil {
			return err
		}
		out, err := sim.Run(inputs)
		if err != nil {
			return err
		}
		if tick {
			if err := sim.Tick(); err != nil {
				return err
			}
		}
		for _, p := range root.AST.PortsByDirection(whidl.Out) {
			bus, err := out.Get(p.Name.Value)
			if err != nil {
				return err
			}
			fmt.Printf("%s = %s\n", p.Name.Value, busString(bus))
		}
		return nil
	},
}

func init() {
	simulateCmd.Flags().StringArrayP("input", "n", nil, "NAME=VALUE input assignment (repeatable)")
	simulateCmd.Flags().StringArray("generic", nil, "bind a generic parameter, in declaration order (repeatable)")
	simulateCmd.Flags().Bool("tick", false, "commit pending DFFs after evaluating")
}

func parseInputs(root *whidl.Chip, raw []string) (map[string]whidl.Bus, error) {
	inputs := make(map[string]whidl.Bus)
	for _, kv := range raw {
		name, literal, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("malformed --input %q, expected NAME=VALUE", kv)
		}
		width, ok := root.Signals.Width(name)
		if !ok {
			return nil, fmt.Errorf("no such input port %q", name)
		}
		bus, err := testscript.ValueToBus(testscript.Decimal, literal, width)
		if err != nil {
			return nil, err
		}
		inputs[name] = bus
	}
	return inputs, nil
}

func busString(b whidl.Bus) string {
	var sb strings.Builder
	for i := len(b) - 1; i >= 0; i-- {
		sb.WriteString(b[i].String())
	}
	return sb.String()
}
