// Package cmd implements the bcstat command-line interface.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"bcstat/internal/bcfile"
	"bcstat/internal/bcstat/log"
	"bcstat/internal/freq"
	"bcstat/internal/logging"
	"bcstat/internal/ui/colorize"
)

var rootCmd = &cobra.Command{
	Use:   "bcstat <file>",
	Short: "Bytecode disassembler and instruction-frequency reporter",
	Long: `Bcstat decodes a stack-VM bytecode file and reports how often each
distinct instruction occurs, sorted by descending frequency. Instructions
are identical when their full disassembly text, operands included, is
identical.`,
	Example: `
# Report instruction frequencies
bcstat program.bc

# Only the ten most frequent instructions, with debug logging
bcstat -d --top 10 program.bc
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		log.Setup(debug)

		// Setup CPU profiling if requested
		cpuprofile, _ := cmd.Flags().GetString("cpuprofile")
		if cpuprofile != "" {
			f, err := os.Create(cpuprofile)
			if err != nil {
				return fmt.Errorf("could not create CPU profile: %v", err)
			}
			defer f.Close()
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("could not start CPU profile: %v", err)
			}
			defer pprof.StopCPUProfile()
		}

		// Setup memory profiling if requested
		memprofile, _ := cmd.Flags().GetString("memprofile")
		if memprofile != "" {
			defer func() {
				f, err := os.Create(memprofile)
				if err != nil {
					fmt.Fprintf(os.Stderr, "could not create memory profile: %v\n", err)
					return
				}
				defer f.Close()
				if err := pprof.WriteHeapProfile(f); err != nil {
					fmt.Fprintf(os.Stderr, "could not write memory profile: %v\n", err)
				}
			}()
		}

		top, _ := cmd.Flags().GetInt("top")
		return runReport(args[0], top, useColor(cmd), os.Stdout)
	},
}

// useColor decides whether listing output is colorized: never when
// redirected, never when disabled by flag or environment.
func useColor(cmd *cobra.Command) bool {
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		return false
	}
	return term.IsTerminal(os.Stdout.Fd()) && colorize.Enabled()
}

func runReport(path string, top int, color bool, w io.Writer) error {
	lg := logging.NewLogger()
	defer lg.Close()

	start := time.Now()
	f, err := bcfile.Open(path)
	if err != nil {
		return err
	}
	report, err := freq.Count(f)
	if err != nil {
		return err
	}
	lg.Debug("counted instructions",
		"file", path,
		"code_bytes", f.CodeSize(),
		"distinct", len(report),
		"total", report.Total(),
		"elapsed", time.Since(start))

	if top > 0 && len(report) > top {
		report = report[:top]
	}
	if !color {
		_, err := report.WriteTo(w)
		return err
	}
	for _, e := range report {
		fmt.Fprintln(w, colorize.ReportLine(strconv.Itoa(e.Count), e.Text))
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colorized output")
	rootCmd.Flags().IntP("top", "t", 0, "Limit the report to the first N lines (0 = all)")
	rootCmd.Flags().String("cpuprofile", "", "Write CPU profile to file")
	rootCmd.Flags().String("memprofile", "", "Write memory profile to file")

	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(symbolsCmd)
}

func Execute() {
	// Bypass fang's rendering when output is being piped so report
	// lines stay byte-exact.
	if !term.IsTerminal(os.Stdout.Fd()) {
		os.Setenv("BCSTAT_NO_COLOR", "1")
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// logOpened records a successful container load on the default logger.
func logOpened(f *bcfile.File) {
	slog.Debug("loaded bytecode container",
		"path", f.Path,
		"stringtab_size", f.StringtabSize,
		"global_area", f.GlobalAreaSize,
		"public_symbols", f.PublicSymbolsNum,
		"code_bytes", f.CodeSize())
}
