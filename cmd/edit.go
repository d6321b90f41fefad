package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Millstreamu/StockTrak/date"
)

var editSymbol string
var editQty string
var editPrice string
var editFees string
var editDate string
var editBrokerRef string
var editExchange string
var editNotes string

func runEditCmd(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid transaction id %q", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	tx, err := a.Store.GetTransaction(cmd.Context(), id)
	if err != nil {
		return err
	}

	// Only flags actually set override the stored values.
	flags := cmd.Flags()
	if flags.Changed("symbol") {
		tx.Symbol = strings.ToUpper(editSymbol)
	}
	if flags.Changed("qty") {
		if tx.Quantity, err = decimal.NewFromString(editQty); err != nil {
			return fmt.Errorf("invalid quantity %q: %v", editQty, err)
		}
	}
	if flags.Changed("price") {
		if tx.Price, err = decimal.NewFromString(editPrice); err != nil {
			return fmt.Errorf("invalid price %q: %v", editPrice, err)
		}
	}
	if flags.Changed("fees") {
		if tx.Fees, err = decimal.NewFromString(editFees); err != nil {
			return fmt.Errorf("invalid fees %q: %v", editFees, err)
		}
	}
	if flags.Changed("date") {
		loc, err := a.Cfg.Location()
		if err != nil {
			return err
		}
		if tx.Timestamp, err = date.ParseInLocation(editDate, loc); err != nil {
			return err
		}
	}
	if flags.Changed("broker-ref") {
		tx.BrokerRef = editBrokerRef
	}
	if flags.Changed("exchange") {
		tx.Exchange = editExchange
	}
	if flags.Changed("notes") {
		tx.Notes = editNotes
	}

	if err := a.EditTrade(cmd.Context(), tx); err != nil {
		return err
	}
	fmt.Printf("Updated transaction %d and rebuilt derived state\n", id)
	return nil
}

var editCmd = &cobra.Command{
	Use:   "edit TXN_ID",
	Short: "Amend a recorded trade and rebuild derived state",
	Long: `Amends fields of an existing transaction and replays the full ledger.
If the amended history no longer replays cleanly, the original transaction is
restored and the edit is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: runEditCmd,
}

func init() {
	RootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVar(&editSymbol, "symbol", "", "New ticker symbol")
	editCmd.Flags().StringVar(&editQty, "qty", "", "New share quantity")
	editCmd.Flags().StringVar(&editPrice, "price", "", "New price per share")
	editCmd.Flags().StringVar(&editFees, "fees", "", "New brokerage fees")
	editCmd.Flags().StringVar(&editDate, "date", "", "New trade date")
	editCmd.Flags().StringVar(&editBrokerRef, "broker-ref", "", "New broker reference")
	editCmd.Flags().StringVar(&editExchange, "exchange", "", "New listing exchange")
	editCmd.Flags().StringVar(&editNotes, "notes", "", "New notes")
}
