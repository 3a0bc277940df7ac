package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yolodolo42/ethsign/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <message> <signature> <address>",
	Short: "Verify a signature against a message and address",
	Long: `Recovers the signer from the signature via secp256k1 public-key recovery
and compares it to the claimed address. Exits non-zero when the signature
does not match.`,
	Args: cobra.ExactArgs(3),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	message, signature, address := args[0], args[1], args[2]

	ok, err := verify.Verify(message, signature, address)
	if err != nil {
		return err
	}

	if !ok {
		if recovered, rerr := verify.RecoverSigner(message, signature); rerr == nil {
			return fmt.Errorf("signature INVALID: signed by %s, not %s", recovered.Hex(), address)
		}
		return fmt.Errorf("signature INVALID for %s", address)
	}

	fmt.Printf("Signature valid: %s signed this message\n", address)
	return nil
}
