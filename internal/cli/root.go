// Package cli wires the cobra command surface. Commands are presentation
// glue over the core packages and hold no signing or verification logic.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool

	rootCmd = &cobra.Command{
		Use:   "ethsign",
		Short: "Sign and verify Ethereum personal messages",
		Long: `ethsign connects to an Ethereum wallet provider, signs arbitrary text
messages (EIP-191 personal_sign), keeps a local history of signatures,
and verifies message/signature/address triples with real secp256k1
public-key recovery.`,
	}
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ethsign/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("rpc-url", "", "JSON-RPC endpoint exposing wallet methods (falls back to the local keystore)")
	rootCmd.PersistentFlags().String("account", "", "account address to use when several are available")
	rootCmd.PersistentFlags().String("chain-id", "0x1", "chain id reported by the local keystore wallet")
	_ = viper.BindPFlag("rpc_url", rootCmd.PersistentFlags().Lookup("rpc-url"))
	_ = viper.BindPFlag("account", rootCmd.PersistentFlags().Lookup("account"))
	_ = viper.BindPFlag("chain_id", rootCmd.PersistentFlags().Lookup("chain-id"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir := dataDir()
		if err := os.MkdirAll(configDir, 0700); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config directory: %v\n", err)
		}

		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("ETHSIGN")
	viper.AutomaticEnv()

	// A missing config file is fine; flags and env cover everything.
	_ = viper.ReadInConfig()
}

func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ethsign"
	}
	return filepath.Join(home, ".ethsign")
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
