package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yolodolo42/ethsign/internal/chain"
	"github.com/yolodolo42/ethsign/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the local signature history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded signatures, newest first",
	RunE:  runHistoryList,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one history entry by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the history, optionally for a single address",
	RunE:  runHistoryClear,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)

	historyListCmd.Flags().String("address", "", "only show entries for this address")
	historyClearCmd.Flags().String("address", "", "only clear entries for this address")
}

func openHistory() (*history.Store, error) {
	return history.NewStore(dataDir(), newLogger())
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}

	filter, _ := cmd.Flags().GetString("address")
	entries := store.Load(filter)
	if len(entries) == 0 {
		fmt.Println("No signatures recorded.")
		return nil
	}

	for _, entry := range entries {
		fmt.Printf("%s  %s  %s\n", entry.ID, chain.FormatTimestamp(entry.Timestamp), chain.FormatAddress(entry.Address))
		fmt.Printf("  message:   %s\n", entry.Message)
		fmt.Printf("  signature: %s\n", entry.Signature)
	}
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	if err := store.DeleteOne(args[0]); err != nil {
		return err
	}
	fmt.Println("Entry deleted.")
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	filter, _ := cmd.Flags().GetString("address")
	if err := store.ClearAll(filter); err != nil {
		return err
	}
	if filter != "" {
		fmt.Printf("History cleared for %s.\n", filter)
	} else {
		fmt.Println("History cleared.")
	}
	return nil
}
