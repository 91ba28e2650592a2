package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/whidl-go/whidl"
)

var tableCmd = &cobra.Command{
	Use:   "table NAME",
	Short: "Print a chip's full truth table",
	Long:  "table enumerates every combination of a chip's input bits (refusing chips with more than 10) and prints one row per combination.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawGenerics, _ := cmd.Flags().GetStringArray("generic")
		generics, err := parseGenerics(rawGenerics)
		if err != nil {
			return err
		}
		ast, provider, err := loadAST(cmd, args[0])
		if err != nil {
			return err
		}
		columns, rows, err := whidl.FullTruthTable(ast, provider, generics)
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(columns, "\t"))
		for _, row := range rows {
			vals := make([]string, len(columns))
			for i, col := range columns {
				bus, err := row.Get(col)
				if err != nil {
					return err
				}
				vals[i] = busString(bus)
			}
			fmt.Println(strings.Join(vals, "\t"))
		}
		return nil
	},
}

func init() {
	tableCmd.Flags().StringArray("generic", nil, "bind a generic parameter, in declaration order (repeatable)")
}
