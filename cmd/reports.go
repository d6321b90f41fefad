package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Millstreamu/StockTrak/ledger"
	"github.com/Millstreamu/StockTrak/outfmt"
)

var lotsSymbol string
var cgtYear string
var positionsWithPrices bool

func runListCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	w, err := newWriter()
	if err != nil {
		return err
	}

	txs, err := a.Store.ListTransactions(cmd.Context())
	if err != nil {
		return err
	}
	table := ledger.TransactionsRenderTable(txs, a.Cfg.RoundingPlaces)
	return w.PrintRenderTable(outfmt.Transactions, "Transactions", table)
}

func runLotsCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	w, err := newWriter()
	if err != nil {
		return err
	}

	lots, err := a.Store.ListLots(cmd.Context(), lotsSymbol)
	if err != nil {
		return err
	}
	title := "Lots"
	if lotsSymbol != "" {
		title = "Lots for " + lotsSymbol
	}
	table := ledger.LotsRenderTable(lots, a.Cfg.RoundingPlaces)
	return w.PrintRenderTable(outfmt.Lots, title, table)
}

func runDisposalsCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	w, err := newWriter()
	if err != nil {
		return err
	}

	table, err := a.DisposalsTable(cmd.Context())
	if err != nil {
		return err
	}
	return w.PrintRenderTable(outfmt.Disposals, "Disposals", table)
}

func runCgtCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	w, err := newWriter()
	if err != nil {
		return err
	}

	years, err := a.CGTReport(cmd.Context())
	if err != nil {
		return err
	}
	if cgtYear != "" {
		endingYear, err := strconv.Atoi(cgtYear)
		if err != nil {
			return err
		}
		var filtered []ledger.YearGains
		for _, yg := range years {
			if int(yg.Year) == endingYear {
				filtered = append(filtered, yg)
			}
		}
		years = filtered
	}
	table := ledger.GainsByYearRenderTable(years, a.Cfg.RoundingPlaces)
	return w.PrintRenderTable(outfmt.AggregateGains, "Realized capital gains by financial year", table)
}

func runPositionsCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	w, err := newWriter()
	if err != nil {
		return err
	}

	positions, _, err := a.Positions(cmd.Context(), positionsWithPrices)
	if err != nil {
		return err
	}
	table := ledger.PositionsRenderTable(positions, a.Cfg.RoundingPlaces)
	return w.PrintRenderTable(outfmt.Positions, "Positions", table)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the transaction ledger",
	Args:  cobra.NoArgs,
	RunE:  runListCmd,
}

var lotsCmd = &cobra.Command{
	Use:   "lots",
	Short: "List cost-base lots, consumed ones included",
	Args:  cobra.NoArgs,
	RunE:  runLotsCmd,
}

var disposalsCmd = &cobra.Command{
	Use:   "disposals",
	Short: "List the disposal ledger",
	Args:  cobra.NoArgs,
	RunE:  runDisposalsCmd,
}

var cgtCmd = &cobra.Command{
	Use:   "cgt",
	Short: "Report realized gains by Australian financial year",
	Long: `Summarizes realized gains, losses and discount-eligible gains per
Australian financial year (1 July - 30 June). Discountable gains are reported
gross; applying the discount rate is left to the taxpayer's return.`,
	Args: cobra.NoArgs,
	RunE: runCgtCmd,
}

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Report open positions aggregated from lots",
	Args:  cobra.NoArgs,
	RunE:  runPositionsCmd,
}

func init() {
	RootCmd.AddCommand(listCmd)
	RootCmd.AddCommand(lotsCmd)
	RootCmd.AddCommand(disposalsCmd)
	RootCmd.AddCommand(cgtCmd)
	RootCmd.AddCommand(positionsCmd)

	lotsCmd.Flags().StringVar(&lotsSymbol, "symbol", "", "Only show lots for this symbol")
	cgtCmd.Flags().StringVar(&cgtYear, "fy", "",
		"Only show the financial year ending in this calendar year, e.g. 2025")
	positionsCmd.Flags().BoolVar(&positionsWithPrices, "prices", false,
		"Fetch current prices for market values and weights")
}
