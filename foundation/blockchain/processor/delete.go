package processor

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Coinversable/validana-core/foundation/blockchain/registry"
	"github.com/Coinversable/validana-core/foundation/blockchain/validator"
	"github.com/Coinversable/validana-core/foundation/blockchain/wire"
)

// deleteContractPayload is the JSON payload shape for a transaction
// targeting registry.ReservedDeleteHash, per spec §4.7.2.
type deleteContractPayload struct {
	ContractHash string `json:"hash"`
}

// processDeleteContract removes a contract the sender created. It
// runs no guest code: deletion is a pure registry/store mutation,
// issued on sqlTx so it commits or rolls back atomically with the rest
// of the enclosing transaction (spec §3.5, §5).
func (p *Processor) processDeleteContract(ctx context.Context, sqlTx pgx.Tx, tx *wire.Transaction, _ Context) (Result, error) {
	// TemplateMatching (spec §4.7) against the built-in delete-contract
	// template, same as processCreateContract.
	if reason := validator.Validate(tx.Payload(), deleteContractTemplate, builtinValidanaVersion); reason != "" {
		return Result{Outcome: OutcomeRejected, Reason: reason}, nil
	}

	var payload deleteContractPayload
	if err := json.Unmarshal(tx.Payload(), &payload); err != nil {
		return Result{Outcome: OutcomeRejected, Reason: "delete-contract payload is invalid json"}, nil
	}

	raw, err := hex.DecodeString(payload.ContractHash)
	if err != nil || len(raw) != 32 {
		return Result{Outcome: OutcomeRejected, Reason: "delete-contract hash is not a valid 32-byte hex string"}, nil
	}
	var hash [32]byte
	copy(hash[:], raw)

	from := tx.From().AsString()

	// A single conditional DELETE is both the ownership check and the
	// existence check (spec §4.7.2): rowCount==0 covers "wrong creator"
	// and "no such contract" alike, and there is no TOCTOU between a
	// separate lookup and the delete.
	affected, err := registry.DeleteTx(ctx, sqlTx, hash, from)
	if err != nil {
		return Result{}, fmt.Errorf("processor: delete contract: %w", err)
	}
	if affected == 0 {
		return Result{Outcome: OutcomeRejected, Reason: fmt.Sprintf("Not creator of contract or contract: %x does not exist.", hash)}, nil
	}

	p.registry.Remove(hash)
	p.evictCompiled(hash)

	return Result{Outcome: OutcomeAccepted, ReturnValue: fmt.Sprintf("%x", hash)}, nil
}
