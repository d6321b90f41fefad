package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func runRebuildCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Rebuild(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Rebuilt derived state: %d lots, %d disposals\n",
		len(res.Lots), len(res.Disposals))
	return nil
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Replay the full ledger and replace derived state",
	Long: `Recomputes every lot and disposal from the transaction ledger and
swaps them into the database in one transaction. The replay is deterministic,
so rebuilding an unchanged ledger is a no-op apart from write time. Useful
after changing the lot matching method or fee allocation in the config.`,
	Args: cobra.NoArgs,
	RunE: runRebuildCmd,
}

func init() {
	RootCmd.AddCommand(rebuildCmd)
}
