package outfmt

import (
	"fmt"
	"io"
	"os"

	tw "github.com/olekukonko/tablewriter"

	"github.com/Millstreamu/StockTrak/ledger"
)

// StdWriter renders tables to stdout (or W when set).
type StdWriter struct {
	W io.Writer
}

func (w *StdWriter) writer() io.Writer {
	if w.W != nil {
		return w.W
	}
	return os.Stdout
}

// PrintRenderTable implements Writer.
func (w *StdWriter) PrintRenderTable(outType OutputType, title string, tableModel *ledger.RenderTable) error {
	out := w.writer()
	for _, err := range tableModel.Errors {
		fmt.Fprintf(out, "[!] %v. Printing parsed information state:\n", err)
	}
	if title != "" {
		fmt.Fprintf(out, "%s\n", title)
	}

	table := tw.NewWriter(out)
	table.SetHeader(tableModel.Header)
	table.SetBorder(false)
	table.SetRowLine(true)

	for _, row := range tableModel.Rows {
		table.Append(row)
	}
	if len(tableModel.Footer) > 0 {
		table.SetFooter(tableModel.Footer)
	}
	table.Render()

	for _, note := range tableModel.Notes {
		fmt.Fprintln(out, note)
	}
	return nil
}
