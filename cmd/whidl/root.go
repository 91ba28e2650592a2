package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/whidl-go/whidl"
	"github.com/whidl-go/whidl/builtins"
)

var rootCmd = &cobra.Command{
	Use:   "whidl",
	Short: "A hardware description language compiler and gate-level simulator",
	Long:  "whidl parses, elaborates and simulates nand2tetris-style HDL chip definitions.",
}

func init() {
	rootCmd.PersistentFlags().StringArrayP("hdl-path", "I", nil, "directory to search for chip definitions (repeatable)")
	rootCmd.PersistentFlags().Bool("no-builtins", false, "do not fall back to the bundled standard-cell library")
	rootCmd.PersistentFlags().StringP("log-level", "v", "warn", "log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(elaborateCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(tableCmd)

	cobra.OnInitialize(initLogging)
}

// initLogging wires -v/--log-level (falling back to WHIDL_LOG_LEVEL) into
// both this binary's own logger and the core package's injectable one, so a
// single flag controls elaboration/simulation diagnostics as well as CLI
// output.
func initLogging() {
	level := rootCmd.PersistentFlags().Lookup("log-level").Value.String()
	if !rootCmd.PersistentFlags().Changed("log-level") {
		if env := os.Getenv("WHIDL_LOG_LEVEL"); env != "" {
			level = env
		}
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.WarnLevel
	}
	logrus.SetLevel(parsed)
	whidl.SetLogger(logrus.StandardLogger())
}

// hdlPaths resolves the -I flags, falling back to WHIDL_HDL_PATH (a
// PATH-style colon-separated list) when no flag was given.
func hdlPaths(cmd *cobra.Command) []string {
	paths, _ := cmd.Flags().GetStringArray("hdl-path")
	if len(paths) > 0 {
		return paths
	}
	if env := os.Getenv("WHIDL_HDL_PATH"); env != "" {
		return strings.Split(env, string(os.PathListSeparator))
	}
	return nil
}

// buildProvider chains an FSProvider per -I directory (searched in order)
// and, unless --no-builtins was given, the bundled standard-cell library as
// the final fallback.
func buildProvider(cmd *cobra.Command) whidl.HDLProvider {
	var providers []whidl.HDLProvider
	for _, dir := range hdlPaths(cmd) {
		providers = append(providers, whidl.NewFSProvider(dir))
	}
	providers = append(providers, whidl.NewFSProvider("."))
	if noBuiltins, _ := cmd.Flags().GetBool("no-builtins"); !noBuiltins {
		providers = append(providers, builtins.NewProvider())
	}
	return whidl.NewChainProvider(providers...)
}

// parseGenerics converts the CLI's repeated "--generic N" integers into
// Width literals suitable for whidl.Elaborate/whidl.Simulate.
func parseGenerics(raw []string) ([]*whidl.Width, error) {
	var out []*whidl.Width
	for _, r := range raw {
		n, err := strconv.Atoi(strings.TrimSpace(r))
		if err != nil {
			return nil, err
		}
		out = append(out, whidl.Num(n))
	}
	return out, nil
}

func loadAST(cmd *cobra.Command, name string) (*whidl.ChipAST, whidl.HDLProvider, error) {
	p := buildProvider(cmd)
	text, err := p.GetHDL(name)
	if err != nil {
		return nil, nil, err
	}
	ast, err := whidl.Parse(text, p.GetPath(name))
	if err != nil {
		return nil, nil, err
	}
	return ast, p, nil
}
