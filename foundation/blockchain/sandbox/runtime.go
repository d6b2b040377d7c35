// Package sandbox implements the deterministic guest execution
// environment: a single reused JavaScript isolate (github.com/dop251/goja)
// with every non-deterministic host primitive removed, and the guest
// API (crypto, address, reject, query, queryFast) bound onto it.
//
// A Runtime is process-wide, owned by exactly one transaction processor
// (spec §9's "process-wide mutable state"): Enter/Leave toggle the
// isSandboxed flag and the current contract hash; nothing else about
// the isolate's globals changes between cycles.
package sandbox

import (
	"context"
	"sync"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/Coinversable/validana-core/foundation/blockchain/dbadapter"
)

// QueryFunc performs one guest-issued SQL call against the database
// adapter's current transaction, honoring the restricted grammar.
type QueryFunc func(ctx context.Context, query string, params []any, isSpecialContract bool) (dbadapter.Result, error)

// Runtime owns a single goja isolate and the guest-facing bindings
// installed on it. It is not safe for concurrent use.
type Runtime struct {
	vm  *goja.Runtime
	log *zap.SugaredLogger

	mu                sync.Mutex
	isSandboxed       bool
	currentContractID [32]byte
	isSpecialContract bool

	query QueryFunc
	ctx   context.Context //nolint:containedctx // bound per Enter, cleared on Leave; matches the single-fiber FSM's per-call context

	rejectReason  *string
	fastQueryErrs []error
}

// New constructs a Runtime, installing the deterministic globals and
// the guest API. query performs the actual SQL round-trip; it is
// supplied by the transaction processor so the sandbox package itself
// never depends on how the enclosing SQL transaction is managed.
func New(query QueryFunc, log *zap.SugaredLogger) *Runtime {
	rt := &Runtime{
		vm:    goja.New(),
		log:   log,
		query: query,
	}
	installDeterminismGuards(rt.vm)
	installGuestAPI(rt)
	return rt
}

// Enter begins sandboxed execution for the given contract hash. It is
// idempotent: entering while already sandboxed just updates the
// current contract hash.
func (rt *Runtime) Enter(ctx context.Context, contractHash [32]byte, isSpecialContract bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.isSandboxed = true
	rt.currentContractID = contractHash
	rt.isSpecialContract = isSpecialContract
	rt.ctx = ctx
	rt.rejectReason = nil
	rt.fastQueryErrs = nil
}

// Leave ends sandboxed execution. It is idempotent.
func (rt *Runtime) Leave() {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.isSandboxed = false
	rt.ctx = nil
}

// IsSandboxed reports whether a contract is currently executing.
func (rt *Runtime) IsSandboxed() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.isSandboxed
}

// RejectReason returns the reason passed to the guest's reject(...)
// call during the current cycle, if any.
func (rt *Runtime) RejectReason() *string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.rejectReason
}

// DrainFastQueryErrors returns and clears every error observed by a
// queryFast call issued during the current cycle. The processor calls
// this while finishing a transaction, per spec §4.6/§5: all fast
// queries are awaited before processTx returns, and any failure
// invalidates the transaction once observed.
func (rt *Runtime) DrainFastQueryErrors() []error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	errs := rt.fastQueryErrs
	rt.fastQueryErrs = nil
	return errs
}

// VM exposes the underlying goja runtime for compiling and invoking
// user contract scripts (see script.go). Only the processor package,
// which owns the sandbox lifecycle, should call this.
func (rt *Runtime) VM() *goja.Runtime {
	return rt.vm
}
