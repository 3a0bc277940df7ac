package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yolodolo42/ethsign/internal/history"
	"github.com/yolodolo42/ethsign/internal/provider"
	"github.com/yolodolo42/ethsign/internal/session"
	"github.com/yolodolo42/ethsign/internal/signing"
)

var signCmd = &cobra.Command{
	Use:   "sign <message>",
	Short: "Sign a message with the connected wallet",
	Long: `Signs an arbitrary text message using EIP-191 personal_sign and records
the result in the local signature history.`,
	Args: cobra.ExactArgs(1),
	RunE: runSign,
}

func init() {
	rootCmd.AddCommand(signCmd)
}

func runSign(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger()

	transport, err := newTransport(ctx)
	if err != nil {
		return err
	}

	gateway := provider.New(transport, logger)
	machine := session.New(gateway, logger)
	defer machine.Close()

	machine.Resume(ctx)
	if machine.State() != session.StateConnected {
		if err := machine.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect wallet: %w", err)
		}
	}

	account := pickAccount(machine.Session().Account)

	store, err := history.NewStore(dataDir(), logger)
	if err != nil {
		return err
	}

	service := signing.New(gateway, store, logger)
	signature, err := service.Sign(ctx, args[0], account)
	if err != nil {
		return err
	}

	fmt.Printf("Address:   %s\n", account)
	fmt.Printf("Signature: %s\n", signature)
	return nil
}
