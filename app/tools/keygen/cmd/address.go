package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Coinversable/validana-core/foundation/blockchain/keys"
)

// addressCmd represents the address command
var addressCmd = &cobra.Command{
	Use:   "address",
	Args:  cobra.ExactArgs(1),
	Short: "Print the address derived from an existing account key",
	RunE: func(cmd *cobra.Command, args []string) error {
		acctName := args[0]

		path, err := rootCmd.Flags().GetString("account-path")
		if err != nil {
			return err
		}

		return runAddress(keyPath(acctName, path))
	},
}

func init() {
	rootCmd.AddCommand(addressCmd)
}

func runAddress(src string) error {
	raw, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	priv, err := keys.NewPrivateKeyFromWIF(string(raw))
	if err != nil {
		return err
	}

	fmt.Println(priv.Address().AsString())

	return nil
}
