package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Millstreamu/StockTrak/app"
	"github.com/Millstreamu/StockTrak/config"
	"github.com/Millstreamu/StockTrak/log"
	"github.com/Millstreamu/StockTrak/outfmt"
)

var ConfigPath string
var OutputFormat string
var OutputDir = "out"

func cmdName() string {
	binName := os.Args[0]
	return filepath.Base(binName)
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   cmdName(),
	Short: "Australian CGT lot tracking tool",
	Long: `A cli tool which tracks share purchases as cost-base lots, matches
sales against them (FIFO, HIFO or specific identification), and reports
realized capital gains by Australian financial year.

The transaction ledger is the only source of truth. Lots and disposals are
derived state: every change to the ledger triggers a full deterministic
replay, so reports never drift from the transactions behind them.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags, which are global to the app cli
	RootCmd.PersistentFlags().BoolVarP(&log.VerboseEnabled, "verbose", "v", false,
		"Print verbose output")
	RootCmd.PersistentFlags().StringVar(&ConfigPath, "config", "",
		"Config file path (default "+config.DefaultPath+", or $STOCKTRAK_CONFIG)")
	RootCmd.PersistentFlags().StringVar(&OutputFormat, "format", "table",
		"Output format: table, csv or md")
	RootCmd.PersistentFlags().StringVar(&OutputDir, "out-dir", OutputDir,
		"Directory for csv output files")
}

func newApp() (*app.App, error) {
	return app.New(ConfigPath)
}

func newWriter() (outfmt.Writer, error) {
	return outfmt.New(OutputFormat, OutputDir)
}
