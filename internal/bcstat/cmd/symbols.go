package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"bcstat/internal/bcfile"
	"bcstat/internal/bcstat/log"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols <file>",
	Short: "List the public-symbol index",
	Long: `Symbols decodes the public-symbol index that precedes the string
table and prints each entry's code address and name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		log.Setup(debug)
		return runSymbols(args[0], os.Stdout)
	},
}

func runSymbols(path string, w io.Writer) error {
	f, err := bcfile.Open(path)
	if err != nil {
		return err
	}
	logOpened(f)

	for _, sym := range f.PublicSymbols() {
		name, err := f.LookupString(sym.NameOffset)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%08x %s\n", sym.Address, name)
	}
	return nil
}
