package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yolodolo42/ethsign/internal/chain"
	"github.com/yolodolo42/ethsign/internal/provider"
	"github.com/yolodolo42/ethsign/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and drive the wallet session",
}

var sessionConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to the wallet provider and show the session",
	RunE:  runSessionConnect,
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session without prompting",
	RunE:  runSessionStatus,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionConnectCmd)
	sessionCmd.AddCommand(sessionStatusCmd)
}

func newMachine(cmd *cobra.Command) (*session.Machine, error) {
	transport, err := newTransport(cmd.Context())
	if err != nil {
		return nil, err
	}
	logger := newLogger()
	return session.New(provider.New(transport, logger), logger), nil
}

func runSessionConnect(cmd *cobra.Command, args []string) error {
	machine, err := newMachine(cmd)
	if err != nil {
		return err
	}
	defer machine.Close()

	if err := machine.Connect(cmd.Context()); err != nil {
		return fmt.Errorf("failed to connect wallet: %w", err)
	}
	printSession(machine)
	return nil
}

func runSessionStatus(cmd *cobra.Command, args []string) error {
	machine, err := newMachine(cmd)
	if err != nil {
		return err
	}
	defer machine.Close()

	machine.Resume(cmd.Context())
	printSession(machine)
	return nil
}

func printSession(machine *session.Machine) {
	state := machine.State()
	fmt.Printf("State:   %s\n", state)
	if state != session.StateConnected {
		return
	}

	sess := machine.Session()
	fmt.Printf("Account: %s\n", sess.Account)
	fmt.Printf("Network: %s (%s)\n", chain.NetworkName(sess.ChainID), sess.ChainID)
	fmt.Printf("Balance: %s ETH\n", chain.FormatBalance(sess.Balance))
}
