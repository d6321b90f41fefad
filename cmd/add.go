package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Millstreamu/StockTrak/date"
	"github.com/Millstreamu/StockTrak/ledger"
)

var addSide string
var addSymbol string
var addQty string
var addPrice string
var addFees string
var addDate string
var addBrokerRef string
var addExchange string
var addNotes string
var addLots []string

// parseSourceLots parses --lots values of the form BUY_TXN_ID:QTY.
func parseSourceLots(opts []string) ([]ledger.SourceLot, error) {
	var picks []ledger.SourceLot
	for _, opt := range opts {
		parts := strings.Split(opt, ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid lot selection %q (want BUY_TXN_ID:QTY)", opt)
		}
		buyID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid lot selection %q: %v", opt, err)
		}
		qty, err := decimal.NewFromString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid lot selection %q: %v", opt, err)
		}
		picks = append(picks, ledger.SourceLot{BuyTransactionID: buyID, Quantity: qty})
	}
	return picks, nil
}

func runAddCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	loc, err := a.Cfg.Location()
	if err != nil {
		return err
	}
	ts, err := date.ParseInLocation(addDate, loc)
	if err != nil {
		return err
	}
	side, err := ledger.ParseSide(addSide)
	if err != nil {
		return err
	}
	qty, err := decimal.NewFromString(addQty)
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %v", addQty, err)
	}
	price, err := decimal.NewFromString(addPrice)
	if err != nil {
		return fmt.Errorf("invalid price %q: %v", addPrice, err)
	}
	fees, err := decimal.NewFromString(addFees)
	if err != nil {
		return fmt.Errorf("invalid fees %q: %v", addFees, err)
	}
	picks, err := parseSourceLots(addLots)
	if err != nil {
		return err
	}

	tx := &ledger.Transaction{
		Timestamp: ts,
		Side:      side,
		Symbol:    strings.ToUpper(addSymbol),
		Quantity:  qty,
		Price:     price,
		Fees:      fees,
		BrokerRef: addBrokerRef,
		Exchange:  addExchange,
		Notes:     addNotes,
	}
	id, err := a.RecordTrade(cmd.Context(), tx, picks)
	if err != nil {
		return err
	}
	fmt.Printf("Recorded transaction %d (%s %s %s)\n", id, tx.Side, tx.Quantity, tx.Symbol)
	return nil
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a trade and rebuild derived state",
	Long: `Records a BUY or SELL in the ledger and replays the full transaction
history. If the new ledger cannot be replayed (for example a sell larger than
the open lots for its symbol), the trade is rejected and nothing changes.

A SELL may nominate specific lots with --lots, referencing the BUY
transactions that created them:

  stocktrak add --side SELL --symbol CSL --qty 30 --price 310 \
    --date 2025-03-01 --lots 2:20 --lots 5:10`,
	Args: cobra.NoArgs,
	RunE: runAddCmd,
}

func init() {
	RootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVar(&addSide, "side", "", "BUY or SELL (required)")
	addCmd.Flags().StringVar(&addSymbol, "symbol", "", "Ticker symbol (required)")
	addCmd.Flags().StringVar(&addQty, "qty", "", "Number of shares (required)")
	addCmd.Flags().StringVar(&addPrice, "price", "", "Price per share (required)")
	addCmd.Flags().StringVar(&addFees, "fees", "0", "Brokerage fees for the trade")
	addCmd.Flags().StringVar(&addDate, "date", "", "Trade date, 2006-01-02 or RFC 3339 (required)")
	addCmd.Flags().StringVar(&addBrokerRef, "broker-ref", "", "Broker confirmation reference")
	addCmd.Flags().StringVar(&addExchange, "exchange", "ASX", "Listing exchange")
	addCmd.Flags().StringVar(&addNotes, "notes", "", "Free-form notes")
	addCmd.Flags().StringSliceVar(&addLots, "lots", nil,
		"Specific lot picks for a SELL, as BUY_TXN_ID:QTY. May be repeated.")
	addCmd.MarkFlagRequired("side")
	addCmd.MarkFlagRequired("symbol")
	addCmd.MarkFlagRequired("qty")
	addCmd.MarkFlagRequired("price")
	addCmd.MarkFlagRequired("date")
}
