package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"genomefetch/internal/entrez"
	"genomefetch/internal/pipeline"
)

const consoleRule = "------------------------------------------------"

// console renders run progress for a person at a terminal. It implements
// pipeline.Observer.
type console struct {
	out     io.Writer
	printer *message.Printer
	green   *color.Color
	yellow  *color.Color
	red     *color.Color
}

var _ pipeline.Observer = (*console)(nil)

func newConsole(out io.Writer, colorize bool) *console {
	return &console{
		out:     out,
		printer: message.NewPrinter(language.English),
		green:   paint(color.FgGreen, colorize),
		yellow:  paint(color.FgYellow, colorize),
		red:     paint(color.FgRed, colorize),
	}
}

func (c *console) println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

func (c *console) rule() {
	fmt.Fprintln(c.out, consoleRule)
}

func (c *console) SearchCompleted(_ string, count int) {
	c.rule()
	c.printer.Fprintf(c.out, "Found %d projects from NCBI BioProject Database.\n", count)
	c.rule()
}

func (c *console) Linked(count int) {
	c.printer.Fprintf(c.out, "Cross-referenced BioProject IDs with %d Assembly IDs.\n", count)
}

func (c *console) SummariesParsed(count int) {
	c.printer.Fprintf(c.out, "Fetched summaries for %d genomes.\n", count)
	c.rule()
}

func (c *console) Downloaded(asm entrez.Assembly, bytes int64) {
	fmt.Fprintf(c.out, "%s%s. %s%s (%s)\n",
		c.green.Sprint("Found: "), asm.Organism,
		c.green.Sprint("Downloaded file: "), asm.ArchiveFile(),
		humanize.IBytes(uint64(max(bytes, 0))),
	)
}

func (c *console) Loading(archive string) {
	fmt.Fprintf(c.out, "%s%s\n", c.yellow.Sprint("Loading: "), archive)
}

func (c *console) Outcome(o pipeline.Outcome) {
	subject := o.Organism
	if subject == "" {
		subject = o.Folder
	}
	switch o.Status {
	case pipeline.StatusConverted:
		fmt.Fprintf(c.out, "%s writing to %s\n", c.green.Sprint("GBK file validated:"), c.yellow.Sprint(o.Output))
	case pipeline.StatusSkipped:
		fmt.Fprintf(c.out, "Genome for %s already downloaded and converted. Skipping\n", subject)
	case pipeline.StatusNotFound:
		file := entrez.Assembly{Accession: o.Accession, Name: o.Name}.ArchiveFile()
		fmt.Fprintf(c.out, "%sfile not found for %s %s, it is likely an old assembly\n",
			c.red.Sprint("Error: "), subject, file)
	case pipeline.StatusInvalid:
		fmt.Fprintf(c.out, "%s skipping file (%s)\n", c.red.Sprint("GBK file missing DNA sequence:"), o.Reason)
	case pipeline.StatusFailed:
		fmt.Fprintf(c.out, "%s%s: %s\n", c.red.Sprint("Error: "), subject, o.Reason)
	}
}

// prompt writes question without a trailing newline.
func (c *console) prompt(question string) {
	fmt.Fprint(c.out, c.yellow.Sprint(question))
}

func (c *console) summary(report *pipeline.Report) {
	c.rule()
	fmt.Fprintf(c.out, "Searched for: %s\n", report.SearchTerm)
	c.rule()
	c.printer.Fprintf(c.out, "Resulted in downloading and unpacking %d files\n", report.Produced)
	if len(report.Outcomes) == 0 {
		return
	}
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, renderOutcomeTable(report.Outcomes))
	fmt.Fprintln(c.out, c.statusCounts(report))
}

func (c *console) statusCounts(report *pipeline.Report) string {
	parts := make([]string, 0, len(pipeline.Statuses))
	for _, status := range pipeline.Statuses {
		if n := report.Count(status); n > 0 {
			parts = append(parts, c.printer.Sprintf("%s %d", strings.ReplaceAll(string(status), "_", " "), n))
		}
	}
	return strings.Join(parts, ", ")
}
