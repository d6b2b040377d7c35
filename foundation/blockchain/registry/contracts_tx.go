package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ExistsTx reports whether a contract row with hash already exists in
// basics.contracts. It runs on tx, the same pgx.Tx the enclosing
// create-contract transaction has already switched to role
// smartcontractmanager (spec §4.7.1, §6.2), never on a separate
// connection.
func ExistsTx(ctx context.Context, tx pgx.Tx, hash [32]byte) (bool, error) {
	var count int64
	row := tx.QueryRow(ctx, "SELECT count(*) FROM basics.contracts WHERE contract_hash = $1;", hash[:])
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("registry: check existence: %w", err)
	}
	return count > 0, nil
}

// InsertTx records a newly created contract row on tx. Called once the
// create-contract handler's init script has run and the SQL
// transaction has switched back to role smartcontractmanager (spec
// §4.7.1): the INSERT commits or rolls back atomically with the rest
// of the transaction, since it never leaves sqlTx.
func InsertTx(ctx context.Context, tx pgx.Tx, e Entry) error {
	tmplBytes, err := json.Marshal(e.Template)
	if err != nil {
		return fmt.Errorf("registry: encode template: %w", err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO basics.contracts
		(contract_hash, contract_type, contract_version, description, creator, contract_template, code, validana_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
		e.ContractHash[:], e.ContractType, e.ContractVersion, e.Description, e.Creator, tmplBytes, e.Code, e.ValidanaVersion)
	if err != nil {
		return fmt.Errorf("registry: insert contract: %w", err)
	}
	return nil
}

// DeleteTx removes rows matching hash and creator on tx, returning the
// number of rows affected (spec §4.7.2 rejects on zero). The single
// conditional DELETE is both the ownership and existence check, issued
// on the enclosing transaction's own connection so a rollback of tx
// undoes it along with everything else the transaction touched.
func DeleteTx(ctx context.Context, tx pgx.Tx, hash [32]byte, creator string) (int64, error) {
	tag, err := tx.Exec(ctx, "DELETE FROM basics.contracts WHERE contract_hash = $1 AND creator = $2;", hash[:], creator)
	if err != nil {
		return 0, fmt.Errorf("registry: delete contract: %w", err)
	}
	return tag.RowsAffected(), nil
}
