package outfmt

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Millstreamu/StockTrak/ledger"
)

// MarkdownWriter renders tables as GitHub-flavored Markdown.
type MarkdownWriter struct {
	W io.Writer
}

func (w *MarkdownWriter) writer() io.Writer {
	if w.W != nil {
		return w.W
	}
	return os.Stdout
}

// PrintRenderTable implements Writer.
func (w *MarkdownWriter) PrintRenderTable(outType OutputType, title string, tableModel *ledger.RenderTable) error {
	out := w.writer()
	if title != "" {
		fmt.Fprintf(out, "## %s\n\n", title)
	}

	writeRow := func(cells []string) {
		escaped := make([]string, len(cells))
		for i, c := range cells {
			escaped[i] = strings.ReplaceAll(c, "|", "\\|")
		}
		fmt.Fprintf(out, "| %s |\n", strings.Join(escaped, " | "))
	}

	writeRow(tableModel.Header)
	sep := make([]string, len(tableModel.Header))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)
	for _, row := range tableModel.Rows {
		writeRow(row)
	}
	if len(tableModel.Footer) > 0 {
		writeRow(tableModel.Footer)
	}
	fmt.Fprintln(out)

	for _, note := range tableModel.Notes {
		fmt.Fprintf(out, "_%s_\n", strings.TrimSpace(note))
	}
	return nil
}
