package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"latc/internal/driver"
	"latc/internal/llvmtool"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:     "latc <file.lat>",
	Short:   "latc compiles a Latte source file to LLVM IR and bitcode",
	Args:    cobra.ExactArgs(1),
	Version: "1.0.0",
	RunE:    runCompile,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log the compile's progress steps as they run")
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		color.NoColor = true
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runCompile(cmd *cobra.Command, args []string) error {
	path := args[0]
	stem := strings.TrimSuffix(path, filepath.Ext(path))

	step("reading and compiling %s", path)
	start := time.Now()

	res, err := driver.Compile(path)
	if err != nil {
		if derr, ok := err.(*driver.Error); ok {
			fmt.Fprintln(os.Stderr, "ERROR")
			for _, d := range derr.Diagnostics {
				fmt.Fprintf(os.Stderr, "%s: %s\n", d.Position, d.Message)
			}
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "ERROR")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	step("lowered and printed IR (%s, %d runtime symbol(s) referenced)", humanize.Bytes(uint64(len(res.IR))), len(res.Symbols))

	llPath := stem + ".ll"
	if err := os.WriteFile(llPath, []byte(res.IR), 0o644); err != nil {
		return err
	}
	step("wrote %s", llPath)

	bc, err := llvmtool.Assemble(res.IR)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	linked, err := llvmtool.Link(bc)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	bcPath := stem + ".bc"
	if err := os.WriteFile(bcPath, linked, 0o644); err != nil {
		return err
	}
	step("wrote %s", bcPath)

	step("done in %s", humanize.RelTime(start, time.Now(), "", ""))

	fmt.Fprintln(os.Stderr, "OK")
	return nil
}

func step(format string, args ...any) {
	if !verbose {
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", color.New(color.FgCyan).Sprint("=>"), fmt.Sprintf(format, args...))
}
