package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse NAME",
	Short: "Parse a chip and print its port list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ast, _, err := loadAST(cmd, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("CHIP %s", ast.Name.Value)
		if len(ast.Generics) > 0 {
			names := make([]string, len(ast.Generics))
			for i, g := range ast.Generics {
				names[i] = g.Value
			}
			fmt.Printf("<%s>", strings.Join(names, ", "))
		}
		fmt.Println()
		for _, p := range ast.Ports {
			fmt.Printf("  %-3s %s[%s]\n", p.Direction, p.Name.Value, p.Width)
		}
		fmt.Printf("parts: %d\n", len(ast.Parts))
		return nil
	},
}
