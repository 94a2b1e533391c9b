// Package freq walks a bytecode file's code region and aggregates
// instruction frequencies keyed by canonical disassembly text.
package freq

import (
	"fmt"
	"io"
	"sort"

	"bcstat/internal/bcfile"
	"bcstat/internal/disasm"
)

// Entry is one line of the frequency report.
type Entry struct {
	Text  string
	Count int
}

// Report is the sorted frequency table: count descending, ties broken
// by ascending byte-wise order of the canonical text.
type Report []Entry

// Count decodes the code region in a single linear pass and returns the
// sorted report. The walk ends at the first halt marker, which is not
// itself recorded; reaching the end of the region without one is also a
// normal termination. Any decode error aborts the run with no partial
// report.
func Count(f *bcfile.File) (Report, error) {
	counts := make(map[string]int)
	for off := 0; off < f.CodeSize(); {
		in, err := disasm.Decode(f, off)
		if err != nil {
			return nil, err
		}
		if in.IsHalt() {
			break
		}
		counts[in.Text]++
		off += in.Size
	}

	report := make(Report, 0, len(counts))
	for text, n := range counts {
		report = append(report, Entry{Text: text, Count: n})
	}
	sort.Slice(report, func(i, j int) bool {
		if report[i].Count != report[j].Count {
			return report[i].Count > report[j].Count
		}
		return report[i].Text < report[j].Text
	})
	return report, nil
}

// Disassemble decodes the same walk as Count but keeps every
// instruction in order, including the terminal halt marker.
func Disassemble(f *bcfile.File) (disasm.Stream, error) {
	var stream disasm.Stream
	for off := 0; off < f.CodeSize(); {
		in, err := disasm.Decode(f, off)
		if err != nil {
			return nil, err
		}
		stream = append(stream, in)
		if in.IsHalt() {
			break
		}
		off += in.Size
	}
	return stream, nil
}

// Total returns the sum of all counts, the number of instructions that
// were aggregated.
func (r Report) Total() int {
	total := 0
	for _, e := range r {
		total += e.Count
	}
	return total
}

// WriteTo writes the report in its final textual form, one
// "<count> x <text>" line per distinct instruction.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for _, e := range r {
		n, err := fmt.Fprintf(w, "%d x %s\n", e.Count, e.Text)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
