package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/yolodolo42/ethsign/internal/provider"
)

// newTransport builds the wallet transport: a JSON-RPC endpoint when
// rpc_url is configured, otherwise the local encrypted keystore (which
// prompts for the account password).
func newTransport(ctx context.Context) (provider.Transport, error) {
	if url := viper.GetString("rpc_url"); url != "" {
		return provider.DialRPC(ctx, url)
	}
	return unlockKeystore()
}

func unlockKeystore() (provider.Transport, error) {
	km, err := provider.NewKeystoreManager(dataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open keystore: %w", err)
	}

	accounts := km.ListAccounts()
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no wallet found: create one with 'ethsign wallet create' or set --rpc-url")
	}

	address := accounts[0].Address
	if flagged := viper.GetString("account"); flagged != "" {
		found := false
		for _, acc := range accounts {
			if strings.EqualFold(acc.Address.Hex(), flagged) {
				address = acc.Address
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("account %s not found in keystore", flagged)
		}
	}

	password, err := readPassword(fmt.Sprintf("Enter password for %s: ", address.Hex()))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}

	return km.Unlock(address, password, viper.GetString("chain_id"))
}

// pickAccount resolves the account a command should act as, preferring the
// --account flag over the session's active account.
func pickAccount(sessionAccount string) string {
	if flagged := viper.GetString("account"); flagged != "" {
		return strings.ToLower(flagged)
	}
	return sessionAccount
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // newline after password input
	if err != nil {
		return "", err
	}
	return string(password), nil
}
