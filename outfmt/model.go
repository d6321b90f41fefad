package outfmt

import (
	"fmt"

	"github.com/Millstreamu/StockTrak/ledger"
)

type OutputType int

const (
	Transactions OutputType = iota
	Lots
	Disposals
	Positions
	AggregateGains
	Actionables
)

func (t OutputType) String() string {
	switch t {
	case Transactions:
		return "transactions"
	case Lots:
		return "lots"
	case Disposals:
		return "disposals"
	case Positions:
		return "positions"
	case AggregateGains:
		return "aggregate-gains"
	case Actionables:
		return "actionables"
	default:
		return "unknown"
	}
}

// Writer renders a RenderTable to some output medium.
type Writer interface {
	PrintRenderTable(outType OutputType, title string, tableModel *ledger.RenderTable) error
}

// New returns the writer for a --format value: "table", "csv" or "md".
func New(format string, outDir string) (Writer, error) {
	switch format {
	case "", "table":
		return &StdWriter{}, nil
	case "csv":
		return NewCSVWriter(outDir)
	case "md", "markdown":
		return &MarkdownWriter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, csv or md)", format)
	}
}
