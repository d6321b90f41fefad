package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func runDeleteCmd(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid transaction id %q", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.DeleteTrade(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Printf("Deleted transaction %d and rebuilt derived state\n", id)
	return nil
}

var deleteCmd = &cobra.Command{
	Use:   "delete TXN_ID",
	Short: "Remove a trade and rebuild derived state",
	Long: `Removes a transaction from the ledger and replays the remaining
history. If the surviving ledger no longer replays cleanly (for example a BUY
whose shares a later SELL depends on), the transaction is restored and the
delete is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: runDeleteCmd,
}

func init() {
	RootCmd.AddCommand(deleteCmd)
}
