package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"bcstat/internal/bcfile"
	"bcstat/internal/bcstat/log"
	"bcstat/internal/freq"
	"bcstat/internal/ui/colorize"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print the full sequential disassembly",
	Long: `Dump walks the code region from the start and prints one line per
instruction with its byte offset, up to and including the halt marker.`,
	Example: `
# Disassemble a bytecode file
bcstat dump program.bc
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		log.Setup(debug)
		return runDump(args[0], useColor(cmd), os.Stdout)
	},
}

func runDump(path string, color bool, w io.Writer) error {
	f, err := bcfile.Open(path)
	if err != nil {
		return err
	}
	logOpened(f)

	stream, err := freq.Disassemble(f)
	if err != nil {
		return err
	}
	for _, in := range stream {
		if color {
			fmt.Fprintln(w, colorize.DumpLine(fmt.Sprintf("%08x", in.Off), in.Text))
			continue
		}
		fmt.Fprintf(w, "%08x: %s\n", in.Off, in.Text)
	}
	return nil
}
