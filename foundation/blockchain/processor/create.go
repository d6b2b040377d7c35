package processor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Coinversable/validana-core/foundation/blockchain/crypto"
	"github.com/Coinversable/validana-core/foundation/blockchain/dbadapter"
	"github.com/Coinversable/validana-core/foundation/blockchain/registry"
	"github.com/Coinversable/validana-core/foundation/blockchain/sandbox"
	"github.com/Coinversable/validana-core/foundation/blockchain/validator"
	"github.com/Coinversable/validana-core/foundation/blockchain/wire"
)

// strictModePrologue is prepended, byte-for-byte, to every validanaVersion
// 2 contract's init/code source before it is hashed or compiled (spec
// §4.7.1). v1 contracts run without it for backward compatibility.
const strictModePrologue = "\"use strict\";\n"

// Field and payload length limits enforced on a create-contract
// transaction, per spec §4.7.1.
const (
	maxContractTypeLen        = 64
	maxContractVersionLen     = 32
	maxContractDescriptionLen = 256
	maxTemplateKeyLen         = 64
	maxTemplateFieldNameLen   = 64
	maxTemplateFieldDescLen   = 256
)

// tryCatchPattern flags any occurrence of `try` eventually followed by
// `catch` with at least one character between them, anywhere in guest
// source. Contracts must use `.catch()` on awaited query futures
// instead (spec §4.7.1, §7).
var tryCatchPattern = regexp.MustCompile(`(?s)try.+catch`)

// createContractPayload is the JSON payload shape for a transaction
// targeting registry.ReservedCreateHash, per spec §4.7.1.
type createContractPayload struct {
	ContractType    string          `json:"type"`
	ContractVersion string          `json:"version"`
	Description     string          `json:"description"`
	Template        json.RawMessage `json:"template"`
	Init            string          `json:"init"`
	Code            string          `json:"code"`
	ValidanaVersion *int            `json:"validanaVersion"`
}

// processCreateContract runs the create-contract handler: it decodes
// and validates the payload, runs the contract's one-time init script
// (if any) with statement_timeout disabled, and on success inserts
// the new contract into basics.contracts through the open SQL
// transaction and installs it in the in-memory registry.
func (p *Processor) processCreateContract(ctx context.Context, sqlTx pgx.Tx, tx *wire.Transaction, blockCtx Context) (Result, error) {
	if tx.From().AsString() != p.address {
		return Result{Outcome: OutcomeRejected, Reason: "only the processor's own address may create a contract"}, nil
	}

	// TemplateMatching (spec §4.7) runs the built-in create-contract
	// template through the same generic checker (validator.Validate)
	// user-contract payloads go through, so an extra top-level key is
	// rejected here exactly as S2 requires, rather than silently
	// accepted by json.Unmarshal below.
	if reason := validator.Validate(tx.Payload(), createContractTemplate, builtinValidanaVersion); reason != "" {
		return Result{Outcome: OutcomeRejected, Reason: reason}, nil
	}

	var payload createContractPayload
	if err := json.Unmarshal(tx.Payload(), &payload); err != nil {
		return Result{Outcome: OutcomeRejected, Reason: "create-contract payload is invalid json"}, nil
	}

	if len(payload.ContractType) > maxContractTypeLen {
		return Result{Outcome: OutcomeRejected, Reason: "create-contract type is too long"}, nil
	}
	if len(payload.ContractVersion) > maxContractVersionLen {
		return Result{Outcome: OutcomeRejected, Reason: "create-contract version is too long"}, nil
	}
	if len(payload.Description) > maxContractDescriptionLen {
		return Result{Outcome: OutcomeRejected, Reason: "create-contract description is too long"}, nil
	}

	validanaVersion := 1
	if payload.ValidanaVersion != nil {
		validanaVersion = *payload.ValidanaVersion
	}
	if validanaVersion != 1 && validanaVersion != 2 {
		return Result{Outcome: OutcomeRejected, Reason: "create-contract validanaVersion must be 1 or 2"}, nil
	}

	templateRaw := payload.Template
	if len(templateRaw) == 0 {
		templateRaw = json.RawMessage("{}")
	}
	tmpl, reason := parseCreateTemplate(templateRaw)
	if reason != "" {
		return Result{Outcome: OutcomeRejected, Reason: reason}, nil
	}

	if payload.Init == "" && payload.Code == "" {
		return Result{Outcome: OutcomeRejected, Reason: "init and code must not both be empty"}, nil
	}

	code, reason := decodeGuestSource(payload.Code, validanaVersion)
	if reason != "" {
		return Result{Outcome: OutcomeRejected, Reason: "create-contract code: " + reason}, nil
	}

	contractHash := crypto.Hash256([]byte(code))
	if contractHash == registry.ReservedCreateHash || contractHash == registry.ReservedDeleteHash {
		return Result{Outcome: OutcomeRejected, Reason: "contract hash collides with a reserved hash"}, nil
	}

	exists, err := registry.ExistsTx(ctx, sqlTx, contractHash)
	if err != nil {
		return Result{}, fmt.Errorf("processor: check contract existence: %w", err)
	}
	if exists {
		return Result{Outcome: OutcomeRejected, Reason: "a contract with this code already exists"}, nil
	}

	entry := registry.Entry{
		ContractHash:    contractHash,
		ContractType:    payload.ContractType,
		ContractVersion: payload.ContractVersion,
		Description:     payload.Description,
		Creator:         tx.From().AsString(),
		Template:        tmpl,
		Code:            []byte(code),
		ValidanaVersion: validanaVersion,
	}

	if payload.Init != "" {
		initSource, reason := decodeGuestSource(payload.Init, validanaVersion)
		if reason != "" {
			return Result{Outcome: OutcomeRejected, Reason: "create-contract init: " + reason}, nil
		}

		result, err := p.runInit(ctx, sqlTx, contractHash, validanaVersion, initSource, tx, blockCtx)
		if err != nil {
			return Result{}, err
		}
		if result.Outcome != OutcomeAccepted {
			return result, nil
		}
	}

	// InsertTx runs on sqlTx itself, the transaction whose commit or
	// rollback also decides whether this transaction was ever accepted
	// (spec §3.5, §5): a failed sqlTx.Commit now undoes the insert along
	// with everything else, instead of leaving a durably registered
	// contract behind a rolled-back creating transaction.
	if err := registry.InsertTx(ctx, sqlTx, entry); err != nil {
		return Result{Outcome: OutcomeInvalid, Reason: err.Error()}, nil
	}
	p.registry.Install(entry)

	if err := p.db.SetRole(ctx, sqlTx, dbadapter.RoleSmartContract); err != nil {
		return Result{}, fmt.Errorf("processor: finalize role: %w", err)
	}

	return Result{Outcome: OutcomeAccepted, ReturnValue: fmt.Sprintf("%x", contractHash)}, nil
}

// decodeGuestSource decodes a base64 init/code field, prepends the
// strict-mode prologue for validanaVersion != 1, and enforces the two
// source-level bans spec §4.7.1 requires before the result is ever
// hashed or compiled: no `try...catch` anywhere, and no bare `query(`
// that isn't immediately preceded by `await `.
func decodeGuestSource(encoded string, validanaVersion int) (source string, reason string) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", "is not valid base64"
	}

	source = string(raw)
	if validanaVersion != 1 {
		source = strictModePrologue + source
	}

	if tryCatchPattern.MatchString(source) {
		return "", "source must not contain try...catch"
	}
	if hasBareQueryCall(source) {
		return "", "source must not call query( without await"
	}

	return source, ""
}

// hasBareQueryCall reports whether source contains a `query(` call
// that is not immediately preceded by the literal `await `.
func hasBareQueryCall(source string) bool {
	const call = "query("
	const awaited = "await "

	for start := 0; ; {
		idx := strings.Index(source[start:], call)
		if idx < 0 {
			return false
		}
		idx += start

		if idx < len(awaited) || source[idx-len(awaited):idx] != awaited {
			return true
		}
		start = idx + len(call)
	}
}

// parseCreateTemplate validates a create-contract payload's template
// against spec §4.7.1: it must be a JSON object (not array/null), each
// value must be an object with exactly the keys type/name/desc (each a
// string, type/name ≤64, desc ≤256), and every template key ≤64 chars.
func parseCreateTemplate(raw json.RawMessage) (validator.Template, string) {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") {
		return nil, "create-contract template must be a json object"
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, "create-contract template is invalid json"
	}

	tmpl := make(validator.Template, len(fields))
	for key, rawField := range fields {
		if len(key) > maxTemplateKeyLen {
			return nil, "create-contract template key is too long"
		}

		var parts map[string]json.RawMessage
		if err := json.Unmarshal(rawField, &parts); err != nil || len(parts) != 3 {
			return nil, "create-contract template field must have exactly type, name and desc"
		}

		var field validator.Field
		typRaw, hasType := parts["type"]
		nameRaw, hasName := parts["name"]
		descRaw, hasDesc := parts["desc"]
		if !hasType || !hasName || !hasDesc {
			return nil, "create-contract template field must have exactly type, name and desc"
		}
		if err := json.Unmarshal(typRaw, &field.Type); err != nil {
			return nil, "create-contract template field type must be a string"
		}
		if err := json.Unmarshal(nameRaw, &field.Name); err != nil {
			return nil, "create-contract template field name must be a string"
		}
		if err := json.Unmarshal(descRaw, &field.Desc); err != nil {
			return nil, "create-contract template field desc must be a string"
		}

		if len(field.Type) > maxTemplateFieldNameLen || len(field.Name) > maxTemplateFieldNameLen {
			return nil, "create-contract template field type/name is too long"
		}
		if len(field.Desc) > maxTemplateFieldDescLen {
			return nil, "create-contract template field desc is too long"
		}

		tmpl[key] = field
	}

	return tmpl, ""
}

// runInit executes a contract's init script once, as role smartcontract
// with the SQL transaction's statement_timeout disabled (spec §4.7.1):
// initialization may need to run arbitrary DDL for the contract's own
// tables, which can legitimately take longer than a single guest query.
func (p *Processor) runInit(ctx context.Context, sqlTx pgx.Tx, contractHash [32]byte, validanaVersion int, source string, tx *wire.Transaction, blockCtx Context) (Result, error) {
	if err := p.db.SetRole(ctx, sqlTx, dbadapter.RoleSmartContract); err != nil {
		return Result{}, fmt.Errorf("processor: set role for init: %w", err)
	}

	previous, err := p.db.CurrentStatementTimeout(ctx, sqlTx)
	if err != nil {
		return Result{}, fmt.Errorf("processor: read statement_timeout: %w", err)
	}
	if err := p.db.SetStatementTimeout(ctx, sqlTx, 0); err != nil {
		return Result{}, fmt.Errorf("processor: disable statement_timeout: %w", err)
	}
	defer func() {
		_ = restoreStatementTimeout(ctx, p, sqlTx, previous)
		_ = p.db.SetRole(ctx, sqlTx, dbadapter.RoleSmartContractManager)
	}()

	compiled, err := sandbox.Compile(source)
	if err != nil {
		return Result{Outcome: OutcomeRejected, Reason: "init script does not compile: " + err.Error()}, nil
	}

	args := sandbox.CallArgs{
		From:                   tx.From().AsString(),
		Block:                  blockCtx.BlockID,
		Processor:              p.address,
		PreviousBlockTimestamp: blockCtx.PreviousBlockTimestamp,
		PreviousBlockHash:      fmt.Sprintf("%x", blockCtx.PreviousBlockHash),
		TransactionID:          fmt.Sprintf("%x", tx.ID()),
		CurrentBlockTimestamp:  blockCtx.CurrentBlockTimestamp,
	}

	return p.execute(ctx, contractHash, true, validanaVersion, compiled, args)
}

func restoreStatementTimeout(ctx context.Context, p *Processor, sqlTx pgx.Tx, previous string) error {
	// Postgres reports "0" for "no timeout" and otherwise a value with
	// one of the units ms, s, min, h or d; "min" and "d" have no Go
	// duration unit, so they are mapped to minutes and 24 hours before
	// parsing. A value that still does not parse restores 0.
	normalized := strings.Replace(previous, "min", "m", 1)
	multiplier := time.Duration(1)
	if days, ok := strings.CutSuffix(normalized, "d"); ok {
		normalized, multiplier = days+"h", 24
	}
	d, err := time.ParseDuration(normalized)
	if err != nil {
		return p.db.SetStatementTimeout(ctx, sqlTx, 0)
	}
	return p.db.SetStatementTimeout(ctx, sqlTx, d*multiplier)
}
