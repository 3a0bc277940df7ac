package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yolodolo42/ethsign/internal/provider"
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage keystore wallets",
	Long:  `Create, import, and list the encrypted local accounts used for signing.`,
}

var walletCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new wallet",
	RunE:  runWalletCreate,
}

var walletImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a wallet from a private key",
	RunE:  runWalletImport,
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all wallets",
	RunE:  runWalletList,
}

func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletCreateCmd)
	walletCmd.AddCommand(walletImportCmd)
	walletCmd.AddCommand(walletListCmd)

	walletImportCmd.Flags().String("key", "", "Private key to import (hex, with or without 0x prefix)")
}

func runWalletCreate(cmd *cobra.Command, args []string) error {
	km, err := provider.NewKeystoreManager(dataDir())
	if err != nil {
		return fmt.Errorf("failed to initialize keystore: %w", err)
	}

	password, err := readPassword("Enter password for new wallet: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read password confirmation: %w", err)
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	account, err := km.CreateAccount(password)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	fmt.Println("\nWallet created successfully!")
	fmt.Printf("Address: %s\n", account.Address.Hex())
	fmt.Printf("Keystore: %s\n", account.URL.Path)
	fmt.Println("\nIMPORTANT: Back up your keystore file and remember your password!")
	return nil
}

func runWalletImport(cmd *cobra.Command, args []string) error {
	privateKey, _ := cmd.Flags().GetString("key")
	if privateKey == "" {
		fmt.Print("Enter private key (hex): ")
		var input string
		_, _ = fmt.Scanln(&input)
		privateKey = strings.TrimSpace(input)
	}
	if privateKey == "" {
		return fmt.Errorf("private key is required")
	}

	km, err := provider.NewKeystoreManager(dataDir())
	if err != nil {
		return fmt.Errorf("failed to initialize keystore: %w", err)
	}

	password, err := readPassword("Enter password to encrypt the key: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	account, err := km.ImportKey(privateKey, password)
	if err != nil {
		return fmt.Errorf("failed to import key: %w", err)
	}

	fmt.Println("\nWallet imported successfully!")
	fmt.Printf("Address: %s\n", account.Address.Hex())
	return nil
}

func runWalletList(cmd *cobra.Command, args []string) error {
	km, err := provider.NewKeystoreManager(dataDir())
	if err != nil {
		return fmt.Errorf("failed to initialize keystore: %w", err)
	}

	accounts := km.ListAccounts()
	if len(accounts) == 0 {
		fmt.Println("No wallets found. Create one with 'ethsign wallet create'.")
		return nil
	}

	fmt.Printf("Found %d wallet(s):\n", len(accounts))
	for i, account := range accounts {
		fmt.Printf("%d. %s\n", i+1, account.Address.Hex())
	}
	return nil
}
