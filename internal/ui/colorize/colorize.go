// Package colorize applies terminal syntax highlighting to bytecode
// disassembly listings and frequency reports.
package colorize

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss/v2"
)

// countStyle renders the "<count> x" column of the frequency report.
var countStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)

// offsetStyle renders the leading byte offset of a dump listing line.
var offsetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

// Enabled reports whether colorized output is allowed. BCSTAT_NO_COLOR
// disables it unconditionally.
func Enabled() bool {
	return os.Getenv("BCSTAT_NO_COLOR") == ""
}

// getListingLexer returns an assembly-flavored lexer with fallbacks.
// The VM mnemonics tokenize well enough under the generic assembler
// lexers for highlighting purposes.
func getListingLexer() chroma.Lexer {
	candidates := []string{"nasm", "gas", "GAS", "Gas", "armasm"}
	for _, name := range candidates {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

// getListingStyle returns the listing style with fallbacks.
func getListingStyle() *chroma.Style {
	candidates := []string{"bcstat-dark", "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns an appropriate terminal formatter.
func getTerminalFormatter() chroma.Formatter {
	candidates := []string{"terminal16m", "terminal256"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Listing colorizes a disassembly text block. On any failure the plain
// text is returned unchanged so output never degrades below the
// uncolored listing.
func Listing(code string) string {
	if !Enabled() {
		return code
	}

	lexer := getListingLexer()
	if lexer == nil {
		return code
	}

	_ = ListingDark // force style registration

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, getListingStyle(), iterator); err != nil {
		return code
	}
	return buf.String()
}

// ReportLine colorizes one "<count> x <text>" frequency report line,
// styling the count column separately from the instruction text.
func ReportLine(count, text string) string {
	if !Enabled() {
		return count + " x " + text
	}
	return countStyle.Render(count+" x") + " " + strings.TrimRight(Listing(text), "\n")
}

// DumpLine colorizes one "<offset>: <text>" sequential listing line.
func DumpLine(offset, text string) string {
	if !Enabled() {
		return offset + ": " + text
	}
	return offsetStyle.Render(offset+":") + " " + strings.TrimRight(Listing(text), "\n")
}
