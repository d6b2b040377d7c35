package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Coinversable/validana-core/foundation/blockchain/keys"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Args:  cobra.ExactArgs(1),
	Short: "Generate a new account key and print its address",
	RunE: func(cmd *cobra.Command, args []string) error {
		acctName := args[0]

		path, err := rootCmd.Flags().GetString("account-path")
		if err != nil {
			return err
		}

		dest := keyPath(acctName, path)

		return runKeyGen(dest)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func runKeyGen(dest string) error {
	priv, err := keys.GeneratePrivateKey()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(dest, []byte(priv.WIF()), 0o600); err != nil {
		return err
	}

	fmt.Println(priv.Address().AsString())

	return nil
}
