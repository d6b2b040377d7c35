// This program generates secp256k1 key material for accounts that sign
// transactions against a validana-core processor: a thin cobra CLI
// wrapping foundation/blockchain/keys.
package main

import "github.com/Coinversable/validana-core/app/tools/keygen/cmd"

func main() {
	cmd.Execute()
}
