package sandbox

import (
	"encoding/json"

	"github.com/dop251/goja"

	vcrypto "github.com/Coinversable/validana-core/foundation/blockchain/crypto"
	"github.com/Coinversable/validana-core/foundation/blockchain/keys"
)

// installDeterminismGuards strips or replaces every host primitive
// goja exposes by default that could make two runs of the same
// contract on the same inputs diverge, per spec §4.6.
func installDeterminismGuards(vm *goja.Runtime) {
	// Date is frozen to the epoch whenever the guest asks for "now"
	// (the zero-argument constructor and Date.now()); parsing a stored
	// timestamp string or millisecond value still works normally, since
	// contracts routinely format values they already read from storage.
	if _, err := vm.RunString(`(function() {
		var _Date = Date;
		function FrozenDate() {
			if (arguments.length === 0) return new _Date(0);
			var bound = Function.prototype.bind.apply(_Date, [null].concat(Array.prototype.slice.call(arguments)));
			return new bound();
		}
		FrozenDate.prototype = _Date.prototype;
		FrozenDate.now = function() { return 0; };
		FrozenDate.parse = _Date.parse;
		FrozenDate.UTC = _Date.UTC;
		Date = FrozenDate;
	})();`); err != nil {
		panic(err)
	}

	// Locale-sensitive conversions and local-time (as opposed to UTC)
	// Date accessors both depend on host configuration a contract author
	// never controls, so both are disabled outright (spec §4.6: "no
	// locale-sensitive conversion operations"; "no operations that
	// depend on the host timezone; only UTC-only date arithmetic is
	// permitted"). The UTC family (getUTCFullYear, toISOString,
	// toUTCString, ...) and value-based arithmetic (getTime, valueOf)
	// are left untouched.
	if _, err := vm.RunString(`(function() {
		function disabled(name) {
			return function() { throw new TypeError(name + " is disabled in contract code"); };
		}
		var dateLocalMethods = [
			"toLocaleString", "toLocaleDateString", "toLocaleTimeString",
			"getTimezoneOffset",
			"getFullYear", "getMonth", "getDate", "getDay",
			"getHours", "getMinutes", "getSeconds", "getMilliseconds", "getYear",
			"setFullYear", "setMonth", "setDate",
			"setHours", "setMinutes", "setSeconds", "setMilliseconds", "setYear"
		];
		for (var i = 0; i < dateLocalMethods.length; i++) {
			Date.prototype[dateLocalMethods[i]] = disabled("Date.prototype." + dateLocalMethods[i]);
		}
		Number.prototype.toLocaleString = disabled("Number.prototype.toLocaleString");
		String.prototype.toLocaleUpperCase = disabled("String.prototype.toLocaleUpperCase");
		String.prototype.toLocaleLowerCase = disabled("String.prototype.toLocaleLowerCase");
		String.prototype.localeCompare = disabled("String.prototype.localeCompare");
		if (typeof Intl !== "undefined") {
			Intl = undefined;
		}
	})();`); err != nil {
		panic(err)
	}

	mathVal := vm.Get("Math")
	if math, ok := mathVal.(*goja.Object); ok {
		_ = math.Set("random", func(goja.FunctionCall) goja.Value {
			panic(vm.NewTypeError("Math.random is disabled in contract code"))
		})
	}

	disabled := func(name string) {
		vm.Set(name, func(goja.FunctionCall) goja.Value {
			panic(vm.NewTypeError(name + " is disabled in contract code"))
		})
	}
	disabled("setTimeout")
	disabled("setInterval")
	disabled("setImmediate")
	disabled("clearTimeout")
	disabled("clearInterval")
	disabled("clearImmediate")
	disabled("eval")

	// Function.prototype.toString normally reflects the source text,
	// which would leak formatting/whitespace differences between
	// otherwise-equivalent deployments. Pin it to a constant.
	fnProto := vm.Get("Function").(*goja.Object).Get("prototype").(*goja.Object)
	_ = fnProto.Set("toString", func(goja.FunctionCall) goja.Value {
		return vm.ToValue("function () { [native code] }")
	})

	// JSON.parse throws SyntaxError on bad input in stock JS; guest
	// contracts consistently receive undefined instead, so a malformed
	// stored value can't fork execution between validator runs.
	jsonVal := vm.Get("JSON").(*goja.Object)
	nativeParse, _ := goja.AssertFunction(jsonVal.Get("parse"))
	_ = jsonVal.Set("parse", func(call goja.FunctionCall) goja.Value {
		v, err := nativeParse(goja.Undefined(), call.Arguments...)
		if err != nil {
			return goja.Undefined()
		}
		return v
	})
}

// installGuestAPI binds the crypto, address, reject, query and
// queryFast globals contracts call, per spec §4.7/§4.8.
func installGuestAPI(rt *Runtime) {
	vm := rt.vm

	cryptoObj := vm.NewObject()
	_ = cryptoObj.Set("sha1", func(s string) string { d := vcrypto.SHA1([]byte(s)); return vcrypto.HexEncode(d[:]) })
	_ = cryptoObj.Set("sha256", func(s string) string { d := vcrypto.SHA256([]byte(s)); return vcrypto.HexEncode(d[:]) })
	_ = cryptoObj.Set("sha512", func(s string) string { d := vcrypto.SHA512([]byte(s)); return vcrypto.HexEncode(d[:]) })
	_ = cryptoObj.Set("md5", func(s string) string { d := vcrypto.MD5([]byte(s)); return vcrypto.HexEncode(d[:]) })
	_ = cryptoObj.Set("ripemd160", func(s string) string { d := vcrypto.RIPEMD160([]byte(s)); return vcrypto.HexEncode(d[:]) })
	_ = cryptoObj.Set("hash160", func(s string) string { d := vcrypto.Hash160([]byte(s)); return vcrypto.HexEncode(d[:]) })
	_ = cryptoObj.Set("hash256", func(s string) string { d := vcrypto.Hash256([]byte(s)); return vcrypto.HexEncode(d[:]) })
	_ = cryptoObj.Set("isValidHex", func(s string) bool { return vcrypto.IsHex(s) })
	vm.Set("crypto", cryptoObj)

	addressObj := vm.NewObject()
	_ = addressObj.Set("isValid", func(s string) bool { return keys.IsValidAddress(s) })
	_ = addressObj.Set("fromPublicKey", func(pubHex string) (string, error) {
		raw, err := vcrypto.HexDecode(pubHex)
		if err != nil {
			return "", err
		}
		pub, err := keys.NewPublicKey(raw)
		if err != nil {
			return "", err
		}
		return pub.Address().AsString(), nil
	})
	vm.Set("address", addressObj)

	vm.Set("reject", func(reason string) {
		rt.mu.Lock()
		defer rt.mu.Unlock()
		r := reason
		rt.rejectReason = &r
	})

	vm.Set("query", func(call goja.FunctionCall) goja.Value {
		return rt.runGuestQuery(call, false)
	})
	vm.Set("queryFast", func(call goja.FunctionCall) goja.Value {
		return rt.runGuestQuery(call, true)
	})
}

// runGuestQuery implements the query/queryFast guest bindings. The
// underlying database round-trip is a synchronous Go call, but both
// bindings still return a Promise (spec §4.6: query is "a ... Future
// that resolves with {rows, rowCount}"): the call resolves or rejects
// that promise before returning, so `await query(...)` and its
// `.catch()` see ordinary, already-settled Promise semantics. queryFast
// additionally records a failure in fastQueryErrs regardless of
// whether the guest ever awaits or catches the returned promise, so
// the processor can still invalidate the transaction on its own.
func (rt *Runtime) runGuestQuery(call goja.FunctionCall, isFast bool) goja.Value {
	vm := rt.vm

	if len(call.Arguments) == 0 {
		panic(vm.NewTypeError("query requires a SQL string"))
	}

	query := call.Arguments[0].String()
	var params []any
	if len(call.Arguments) > 1 {
		raw := call.Arguments[1].Export()
		if arr, ok := raw.([]interface{}); ok {
			params = arr
		}
	}

	rt.mu.Lock()
	ctx := rt.ctx
	isSpecial := rt.isSpecialContract
	rt.mu.Unlock()

	promise, resolve, reject := vm.NewPromise()

	result, err := rt.query(ctx, query, params, isSpecial)
	if err != nil {
		if isFast {
			// Fire-and-forget: the processor invalidates the transaction
			// once it drains this slice while finishing the cycle, even
			// if the guest never awaits or catches the returned promise.
			rt.mu.Lock()
			rt.fastQueryErrs = append(rt.fastQueryErrs, err)
			rt.mu.Unlock()
		}
		reject(vm.NewGoError(err))
		return vm.ToValue(promise)
	}

	payload, marshalErr := json.Marshal(map[string]any{
		"rows":     result.Rows,
		"rowCount": result.RowCount,
	})
	if marshalErr != nil {
		reject(vm.NewGoError(marshalErr))
		return vm.ToValue(promise)
	}

	parsed, parseErr := parseJSONIntoJS(vm, payload)
	if parseErr != nil {
		reject(vm.NewGoError(parseErr))
		return vm.ToValue(promise)
	}

	resolve(parsed)
	return vm.ToValue(promise)
}

func parseJSONIntoJS(vm *goja.Runtime, raw []byte) (goja.Value, error) {
	jsonVal := vm.Get("JSON").(*goja.Object)
	parseFn, _ := goja.AssertFunction(jsonVal.Get("parse"))
	return parseFn(goja.Undefined(), vm.ToValue(string(raw)))
}
