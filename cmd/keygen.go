package cmd

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mmw/crypto"
)

var keygenOut string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a signer key",
	Long:  "Generate a secp256k1 signer key and print its wallet address.",
	RunE: func(cmd *cobra.Command, args []string) error {
		priv, err := crypto.GeneratePrivateKey()
		if err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}

		privHex := hex.EncodeToString(priv.Serialize())
		address := crypto.PubkeyToAddress(priv.PubKey())

		if keygenOut != "" {
			if err := os.WriteFile(keygenOut, []byte(privHex), 0o600); err != nil {
				return fmt.Errorf("failed to write key file: %w", err)
			}
			fmt.Printf("address: %s\nkey written to %s\n", address, keygenOut)
			return nil
		}

		fmt.Printf("address: %s\nprivate_key: %s\n", address, privHex)
		return nil
	},
}

func init() {
	keygenCmd.Flags().StringVar(&keygenOut, "out", "", "Write the private key hex to this file instead of stdout")
	rootCmd.AddCommand(keygenCmd)
}
