package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/whidl-go/whidl"
)

var elaborateCmd = &cobra.Command{
	Use:   "elaborate NAME",
	Short: "Elaborate a chip and print its component graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("full")
		rawGenerics, _ := cmd.Flags().GetStringArray("generic")
		generics, err := parseGenerics(rawGenerics)
		if err != nil {
			return err
		}

		ast, provider, err := loadAST(cmd, args[0])
		if err != nil {
			return err
		}
		root, err := whidl.Elaborate(ast, provider, generics, full)
		if err != nil {
			return err
		}
		printChip(root, "")
		return nil
	},
}

func init() {
	elaborateCmd.Flags().Bool("full", false, "recursively elaborate every sub-chip instead of one level deep")
	elaborateCmd.Flags().StringArray("generic", nil, "bind a generic parameter, in declaration order (repeatable)")
}

func printChip(c *whidl.Chip, indent string) {
	fmt.Printf("%s%s (%d nodes)\n", indent, c.Name, len(c.Graph.Nodes))
	for i, n := range c.Graph.Nodes {
		fmt.Printf("%s  node %d: %s\n", indent, i, n.Name)
		for _, e := range c.Graph.OutEdges(whidl.NodeID(i)) {
			fmt.Printf("%s    %s[%d:%d] -> node %d %s[%d:%d]\n", indent,
				e.SourceBus, e.SourceStart, e.SourceEnd, e.Target, e.TargetBus, e.TargetStart, e.TargetEnd)
		}
	}
}
