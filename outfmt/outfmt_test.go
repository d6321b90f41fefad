package outfmt

import (
	"bytes"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Millstreamu/StockTrak/ledger"
)

func sampleTable() *ledger.RenderTable {
	return &ledger.RenderTable{
		Header: []string{"Symbol", "Qty"},
		Rows:   [][]string{{"CSL", "10"}, {"BHP", "100"}},
		Footer: []string{"Total", "110"},
		Notes:  []string{" * a note"},
	}
}

func TestNewWriterSelection(t *testing.T) {
	w, err := New("table", "")
	require.NoError(t, err)
	require.IsType(t, &StdWriter{}, w)

	w, err = New("md", "")
	require.NoError(t, err)
	require.IsType(t, &MarkdownWriter{}, w)

	w, err = New("csv", t.TempDir())
	require.NoError(t, err)
	require.IsType(t, &CSVWriter{}, w)

	_, err = New("xml", "")
	require.Error(t, err)
}

func TestStdWriterOutput(t *testing.T) {
	var buf bytes.Buffer
	w := &StdWriter{W: &buf}
	require.NoError(t, w.PrintRenderTable(Positions, "Positions", sampleTable()))

	out := buf.String()
	require.Contains(t, out, "Positions")
	require.Contains(t, out, "CSL")
	require.Contains(t, out, "110")
	require.Contains(t, out, "* a note")
}

func TestMarkdownWriterEscapesPipes(t *testing.T) {
	table := sampleTable()
	table.Rows = append(table.Rows, []string{"A|B", "1"})

	var buf bytes.Buffer
	w := &MarkdownWriter{W: &buf}
	require.NoError(t, w.PrintRenderTable(Positions, "Positions", table))

	out := buf.String()
	require.Contains(t, out, "## Positions")
	require.Contains(t, out, "| Symbol | Qty |")
	require.Contains(t, out, `A\|B`)
	require.Contains(t, out, "_* a note_")
}

func TestCSVWriterWritesFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewCSVWriter(dir)
	require.NoError(t, err)
	require.NoError(t, w.PrintRenderTable(Lots, "Lots", sampleTable()))

	data, err := os.ReadFile(path.Join(dir, "lots.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Equal(t, "Symbol,Qty", lines[0])
	require.Contains(t, lines, "CSL,10")
	require.Contains(t, lines, "Total,110")
}
