// Package processor implements the transaction processor FSM: the
// single-fiber state machine that validates one transaction, matches
// its payload against the target contract's template, executes the
// contract inside the sandbox, and reports a definitive outcome.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/Coinversable/validana-core/foundation/blockchain/dbadapter"
	"github.com/Coinversable/validana-core/foundation/blockchain/registry"
	"github.com/Coinversable/validana-core/foundation/blockchain/sandbox"
	"github.com/Coinversable/validana-core/foundation/blockchain/validator"
	"github.com/Coinversable/validana-core/foundation/blockchain/wire"
)

// Outcome is the final disposition processTx assigns a transaction.
type Outcome int

const (
	// OutcomeAccepted means the contract ran to completion without
	// rejecting and every guest query succeeded.
	OutcomeAccepted Outcome = iota
	// OutcomeV1Rejected mirrors OutcomeRejected but is reported
	// separately for contracts declared at validanaVersion 1, whose
	// looser template rules predate the '?' optional-field syntax.
	OutcomeV1Rejected
	// OutcomeRejected means the contract, its template, or the target
	// lookup deterministically refused the transaction. Rejected
	// transactions are still included in the block: rejection is a
	// legitimate, replicated outcome, not a fault.
	OutcomeRejected
	// OutcomeInvalid means the transaction failed a check that must
	// hold before a contract even runs (expired, badly signed) or the
	// contract crashed. Invalid transactions are dropped, never
	// included in a block.
	OutcomeInvalid
	// OutcomeRetry means a transient fault (lost DB connection) kept
	// the processor from reaching a verdict; the caller should requeue
	// the transaction rather than accept, reject or drop it.
	OutcomeRetry
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeV1Rejected:
		return "v1Rejected"
	case OutcomeRejected:
		return "rejected"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// Result is what processTx reports for one transaction.
type Result struct {
	Outcome     Outcome
	Reason      string
	ReturnValue string
}

// ErrAlreadyProcessing is returned when ProcessTransaction is called
// while a previous call on the same Processor hasn't returned yet.
// The FSM is single-fiber by construction (spec §4.6): there is never
// a legitimate reason to observe this.
var ErrAlreadyProcessing = errors.New("processor: already processing a transaction")

// Processor mediates every transaction against the registry and the
// sandboxed contract runtime. A Processor is not safe for concurrent
// use; ProcessTransaction enforces that with a re-entrancy guard.
type Processor struct {
	registry   *registry.Registry
	db         *dbadapter.Client
	sandbox    *sandbox.Runtime
	log        *zap.SugaredLogger
	signPrefix []byte
	address    string

	// statementTimeout bounds any individual SQL call issued on the
	// per-transaction sqlTx (spec §4.6/§5), not just the create-contract
	// init override/restore dance in create.go, which still disables it
	// entirely for the duration of a contract's one-time init.
	statementTimeout time.Duration

	mu           sync.Mutex
	isProcessing bool
	compiled     map[[32]byte]*sandbox.CompiledContract
}

// New constructs a Processor bound to db. address identifies this
// processor instance in the "processor" argument every contract call
// receives. Create/delete-contract handlers write basics.contracts on
// the same pgx.Tx a call's guest queries run on (see create.go,
// delete.go), never through a separate connection, so db is the only
// database handle the processor needs. statementTimeout is applied to
// every per-transaction sqlTx before dispatch.
func New(reg *registry.Registry, db *dbadapter.Client, log *zap.SugaredLogger, signPrefix []byte, address string, statementTimeout time.Duration) *Processor {
	p := &Processor{
		registry:         reg,
		db:               db,
		log:              log,
		signPrefix:       signPrefix,
		address:          address,
		statementTimeout: statementTimeout,
		compiled:         make(map[[32]byte]*sandbox.CompiledContract),
	}
	p.sandbox = sandbox.New(p.runGuestQuery, log)
	return p
}

// Context carries the per-block values every contract call receives
// alongside a transaction's own fields.
type Context struct {
	BlockID                uint64
	PreviousBlockHash      [32]byte
	PreviousBlockTimestamp uint64
	CurrentBlockTimestamp  uint64
}

// ProcessTransaction runs the full Idle -> Validating ->
// TemplateMatching -> Executing -> Finishing -> Idle cycle for tx,
// wrapping the contract's guest queries in one SQL transaction that
// commits only on OutcomeAccepted.
func (p *Processor) ProcessTransaction(ctx context.Context, tx *wire.Transaction, blockCtx Context) (Result, error) {
	p.mu.Lock()
	if p.isProcessing {
		p.mu.Unlock()
		return Result{}, ErrAlreadyProcessing
	}
	p.isProcessing = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.isProcessing = false
		p.mu.Unlock()
	}()

	if reason := p.validate(tx, blockCtx); reason != "" {
		return Result{Outcome: OutcomeInvalid, Reason: reason}, nil
	}

	hash := tx.ContractHash()
	isSpecial := hash == registry.ReservedCreateHash || hash == registry.ReservedDeleteHash

	sqlTx, err := p.db.Begin(ctx)
	if err != nil {
		class, fatalErr := dbadapter.ClassifyFatal(err)
		if class == dbadapter.ClassRetryableConnectivity {
			return Result{Outcome: OutcomeRetry, Reason: err.Error()}, nil
		}
		return Result{}, fmt.Errorf("processor: begin transaction: %w", fatalErr)
	}

	role := dbadapter.RoleSmartContract
	if isSpecial {
		role = dbadapter.RoleSmartContractManager
	}
	if err := p.db.SetRole(ctx, sqlTx, role); err != nil {
		_ = sqlTx.Rollback(ctx)
		return Result{}, fmt.Errorf("processor: set role: %w", err)
	}
	if err := p.db.SetStatementTimeout(ctx, sqlTx, p.statementTimeout); err != nil {
		_ = sqlTx.Rollback(ctx)
		return Result{}, fmt.Errorf("processor: set statement timeout: %w", err)
	}

	txCtx := withTx(ctx, sqlTx)

	var result Result
	switch hash {
	case registry.ReservedCreateHash:
		result, err = p.processCreateContract(txCtx, sqlTx, tx, blockCtx)
	case registry.ReservedDeleteHash:
		result, err = p.processDeleteContract(txCtx, sqlTx, tx, blockCtx)
	default:
		result, err = p.processUserContract(txCtx, tx, blockCtx, hash)
	}
	if err != nil {
		_ = sqlTx.Rollback(ctx)
		return Result{}, err
	}

	// A create/delete that rejects for any reason is promoted to
	// invalid (spec §4.7 Finishing): unlike a user contract's rejection,
	// a failed create/delete never belongs in a block.
	if isSpecial && result.Outcome == OutcomeRejected {
		result.Outcome = OutcomeInvalid
	}

	if result.Outcome == OutcomeAccepted {
		if commitErr := sqlTx.Commit(ctx); commitErr != nil {
			class, fatalErr := dbadapter.ClassifyFatal(commitErr)
			if class == dbadapter.ClassRetryableConnectivity {
				return Result{Outcome: OutcomeRetry, Reason: commitErr.Error()}, nil
			}
			return Result{}, fmt.Errorf("processor: commit: %w", fatalErr)
		}
		return result, nil
	}

	_ = sqlTx.Rollback(ctx)
	return result, nil
}

// validate is the FSM's Validating state: signature and expiry checks
// that must hold before any contract lookup happens. Only the first
// reason wins (spec §7), so the signature check runs before the
// valid-till check, matching spec §4.7's step order.
func (p *Processor) validate(tx *wire.Transaction, blockCtx Context) string {
	if !tx.VerifySignature(p.signPrefix) {
		return "Invalid signature."
	}
	if tx.ValidTill() != 0 && blockCtx.PreviousBlockTimestamp >= tx.ValidTill() {
		return "Transaction valid till expired."
	}
	return ""
}

func (p *Processor) processUserContract(ctx context.Context, tx *wire.Transaction, blockCtx Context, hash [32]byte) (Result, error) {
	entry, ok := p.registry.Get(hash)
	if !ok {
		return Result{Outcome: OutcomeRejected, Reason: "Contract does not exist."}, nil
	}

	if reason := validator.Validate(tx.Payload(), entry.Template, entry.ValidanaVersion); reason != "" {
		outcome := OutcomeRejected
		if entry.ValidanaVersion == 1 {
			outcome = OutcomeV1Rejected
		}
		return Result{Outcome: outcome, Reason: reason}, nil
	}

	compiled, err := p.compileFor(hash, entry.Code)
	if err != nil {
		return Result{Outcome: OutcomeInvalid, Reason: err.Error()}, nil
	}

	args := sandbox.CallArgs{
		Payload:                tx.Payload(),
		From:                   tx.From().AsString(),
		Block:                  blockCtx.BlockID,
		Processor:              p.address,
		PreviousBlockTimestamp: blockCtx.PreviousBlockTimestamp,
		PreviousBlockHash:      fmt.Sprintf("%x", blockCtx.PreviousBlockHash),
		TransactionID:          fmt.Sprintf("%x", tx.ID()),
		CurrentBlockTimestamp:  blockCtx.CurrentBlockTimestamp,
	}

	return p.execute(ctx, hash, false, entry.ValidanaVersion, compiled, args)
}

// execute runs compiled inside the sandbox and turns its result (or
// failure) into a Result, per the Executing/Finishing states.
func (p *Processor) execute(ctx context.Context, hash [32]byte, isSpecial bool, validanaVersion int, compiled *sandbox.CompiledContract, args sandbox.CallArgs) (Result, error) {
	p.sandbox.Enter(ctx, hash, isSpecial)
	defer p.sandbox.Leave()

	isString, value, callErr := p.sandbox.Call(compiled, args)

	if reason := p.sandbox.RejectReason(); reason != nil {
		return Result{Outcome: OutcomeRejected, Reason: *reason}, nil
	}

	if callErr != nil {
		outcome, reason, isRetry, fatal := classifyGuestFailure(callErr)
		if fatal != nil {
			return Result{}, fatal
		}
		if isRetry {
			return Result{Outcome: OutcomeRetry, Reason: reason}, nil
		}
		return Result{Outcome: outcome, Reason: reason}, nil
	}

	if fastErrs := p.sandbox.DrainFastQueryErrors(); len(fastErrs) > 0 {
		for _, ferr := range fastErrs {
			class, fatalErr := dbadapter.ClassifyFatal(ferr)
			switch class {
			case dbadapter.ClassFatalCorruption, dbadapter.ClassLockConflict:
				return Result{}, fatalErr
			case dbadapter.ClassRetryableConnectivity:
				return Result{Outcome: OutcomeRetry, Reason: ferr.Error()}, nil
			}
		}
		return Result{Outcome: OutcomeInvalid, Reason: fastErrs[0].Error()}, nil
	}

	outcome, message := classifyContractReturn(validanaVersion, isString, value)
	if outcome == OutcomeAccepted {
		return Result{Outcome: OutcomeAccepted, ReturnValue: message}, nil
	}
	return Result{Outcome: outcome, Reason: message}, nil
}

// classifyContractReturn maps a guest function's return value to an
// outcome and message, per spec §4.7's last paragraph. A non-string
// return always surfaces as "Unknown result type". validanaVersion 1
// additionally demotes anything but the exact string "OK" to
// v1Rejected; version 2 accepts any return, string or not, with the
// guest's own string as the message when it returned one.
func classifyContractReturn(validanaVersion int, isString bool, value string) (Outcome, string) {
	message := value
	if !isString {
		message = "Unknown result type"
	}

	if validanaVersion == 1 {
		if isString && value == "OK" {
			return OutcomeAccepted, message
		}
		return OutcomeV1Rejected, message
	}

	return OutcomeAccepted, message
}

// classifyGuestFailure inspects an error returned by sandbox.Call and
// decides whether it represents a transient environment fault (retry),
// a fault demanding a graceful shutdown (fatal), or a permanent
// contract fault (invalid). A failure raised through vm.NewGoError
// unwraps (through *goja.Exception) back to the original Go error. Only
// an error whose chain holds a *pgconn.PgError is passed to
// dbadapter.ClassifyFatal, which inspects its SQLSTATE; every other
// failure, whether a Go error without a SQLSTATE (e.g. an address
// decoding failure) or a JS-thrown value (a plain TypeError, an explicit
// guest Promise.reject), is invalid.
func classifyGuestFailure(callErr error) (outcome Outcome, reason string, isRetry bool, fatal error) {
	var pgErr *pgconn.PgError
	if errors.As(callErr, &pgErr) {
		class, fatalErr := dbadapter.ClassifyFatal(pgErr)
		switch class {
		case dbadapter.ClassFatalCorruption, dbadapter.ClassLockConflict:
			return 0, "", false, fatalErr
		case dbadapter.ClassRetryableConnectivity:
			return OutcomeRetry, pgErr.Error(), true, nil
		}
	}
	return OutcomeInvalid, callErr.Error(), false, nil
}

// compileFor returns a cached compiled contract, compiling and caching
// it on first use.
func (p *Processor) compileFor(hash [32]byte, code []byte) (*sandbox.CompiledContract, error) {
	p.mu.Lock()
	if c, ok := p.compiled[hash]; ok {
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	compiled, err := sandbox.Compile(string(code))
	if err != nil {
		return nil, fmt.Errorf("processor: compile contract %x: %w", hash, err)
	}

	p.mu.Lock()
	p.compiled[hash] = compiled
	p.mu.Unlock()

	return compiled, nil
}

// evictCompiled drops a contract's cached program. Called by the
// delete-contract handler once its DELETE has matched a row, before the
// enclosing SQL transaction commits, since the hash may later be
// reused by unrelated content under a hash-collision-free assumption
// this system otherwise never revisits.
func (p *Processor) evictCompiled(hash [32]byte) {
	p.mu.Lock()
	delete(p.compiled, hash)
	p.mu.Unlock()
}

// runGuestQuery is the sandbox.QueryFunc bound to this Processor's
// database client, resolving the active SQL transaction from ctx.
func (p *Processor) runGuestQuery(ctx context.Context, query string, params []any, isSpecial bool) (dbadapter.Result, error) {
	tx := currentTx(ctx)
	if tx == nil {
		return dbadapter.Result{}, errors.New("processor: no active SQL transaction")
	}
	return p.db.Query(ctx, tx, query, params, isSpecial)
}
