package sandbox

import (
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"
)

// userFunctionParams is the fixed parameter list every guest function
// (both a contract's code and its one-time init) receives, in order,
// per spec §4.7. init never receives payload; the compiled wrapper
// simply leaves that argument undefined for init calls.
var userFunctionParams = "payload, from, block, processor, previousBlockTimestamp, previousBlockHash, transactionId, currentBlockTimestamp"

// CompiledContract is a parsed guest function body, ready to be
// invoked repeatedly against a Runtime without re-parsing.
type CompiledContract struct {
	source string
	prog   *goja.Program
}

// Compile parses source (the raw contract "code" or "init" field) into
// a callable guest function. The source is wrapped exactly once in an
// async function expression so guest code sees the documented parameter
// names as free variables, matching the calling convention historical
// Validana contracts are written against, and so that `await query(...)`
// (create.go's decodeGuestSource requires the `await`) is legal: query
// and queryFast both resolve through a real Promise (spec §4.6).
func Compile(source string) (*CompiledContract, error) {
	wrapped := fmt.Sprintf("(async function (%s) {\n%s\n})", userFunctionParams, source)
	prog, err := goja.Compile("contract", wrapped, true)
	if err != nil {
		return nil, fmt.Errorf("sandbox: compile: %w", err)
	}
	return &CompiledContract{source: source, prog: prog}, nil
}

// CallArgs is the set of per-invocation values bound to a compiled
// contract's parameter list.
type CallArgs struct {
	Payload                json.RawMessage
	From                   string
	Block                  uint64
	Processor              string
	PreviousBlockTimestamp uint64
	PreviousBlockHash      string
	TransactionID          string
	CurrentBlockTimestamp  uint64
}

// Call runs a compiled contract to completion inside rt, which must
// already be sandboxed (see Runtime.Enter). It reports whether the
// guest function's return value was itself a JS string (callers need
// the distinction: spec §4.7's v1/v2 acceptance rule treats a raw
// string return differently from any other result type) alongside
// that value: the raw string text when isString is true, or a JSON
// encoding of whatever was returned otherwise.
//
// Because Compile wraps every contract in an async function, invoking
// it always yields a Promise (never the settled value directly): Call
// drains the job queue and unwraps that promise's final state before
// returning, so a guest's `.catch()` around an awaited query() has
// already run by the time this function returns.
func (rt *Runtime) Call(compiled *CompiledContract, args CallArgs) (isString bool, value string, err error) {
	vm := rt.vm

	fnVal, err := vm.RunProgram(compiled.prog)
	if err != nil {
		return false, "", fmt.Errorf("sandbox: instantiate: %w", err)
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return false, "", fmt.Errorf("sandbox: compiled contract is not callable")
	}

	var payloadVal goja.Value
	if len(args.Payload) == 0 {
		payloadVal = goja.Undefined()
	} else {
		parsed, perr := parseJSONIntoJS(vm, args.Payload)
		if perr != nil {
			return false, "", fmt.Errorf("sandbox: payload: %w", perr)
		}
		payloadVal = parsed
	}

	callArgs := []goja.Value{
		payloadVal,
		vm.ToValue(args.From),
		vm.ToValue(args.Block),
		vm.ToValue(args.Processor),
		vm.ToValue(args.PreviousBlockTimestamp),
		vm.ToValue(args.PreviousBlockHash),
		vm.ToValue(args.TransactionID),
		vm.ToValue(args.CurrentBlockTimestamp),
	}

	result, callErr := fn(goja.Undefined(), callArgs...)
	if callErr != nil {
		return false, "", callErr
	}

	promise, ok := result.Export().(*goja.Promise)
	if !ok {
		return false, "", fmt.Errorf("sandbox: compiled contract did not return a promise")
	}

	// fn() above was invoked directly through the Callable goja.AssertFunction
	// returns, not through RunProgram/RunString, so the runtime's job queue
	// (the promise reactions an `await` inside the contract enqueues) is not
	// yet drained. Running an empty top-level script forces that drain
	// before the promise's final state is read below.
	if _, err := vm.RunString(""); err != nil {
		return false, "", fmt.Errorf("sandbox: drain jobs: %w", err)
	}

	switch promise.State() {
	case goja.PromiseStatePending:
		return false, "", fmt.Errorf("sandbox: contract's promise never settled")
	case goja.PromiseStateRejected:
		reason := promise.Result()
		if rejected, ok := reason.Export().(error); ok {
			return false, "", rejected
		}
		return false, "", fmt.Errorf("sandbox: contract rejected: %s", reason.String())
	}

	exported := promise.Result().Export()
	if str, ok := exported.(string); ok {
		return true, str, nil
	}

	encoded, err := json.Marshal(exported)
	if err != nil {
		return false, "", fmt.Errorf("sandbox: encode return value: %w", err)
	}
	return false, string(encoded), nil
}
