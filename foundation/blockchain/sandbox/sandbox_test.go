package sandbox_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Coinversable/validana-core/foundation/blockchain/dbadapter"
	"github.com/Coinversable/validana-core/foundation/blockchain/sandbox"
)

func newTestRuntime(t *testing.T, query sandbox.QueryFunc) *sandbox.Runtime {
	t.Helper()
	if query == nil {
		query = func(context.Context, string, []any, bool) (dbadapter.Result, error) {
			return dbadapter.Result{}, nil
		}
	}
	log := zap.NewNop().Sugar()
	return sandbox.New(query, log)
}

func TestEnterLeaveIsIdempotent(t *testing.T) {
	rt := newTestRuntime(t, nil)
	require.False(t, rt.IsSandboxed())

	var hash [32]byte
	rt.Enter(context.Background(), hash, false)
	rt.Enter(context.Background(), hash, false)
	require.True(t, rt.IsSandboxed())

	rt.Leave()
	rt.Leave()
	require.False(t, rt.IsSandboxed())
}

func TestDateNowIsFrozenToEpoch(t *testing.T) {
	rt := newTestRuntime(t, nil)
	compiled, err := sandbox.Compile("return Date.now();")
	require.NoError(t, err)

	var hash [32]byte
	rt.Enter(context.Background(), hash, false)
	defer rt.Leave()

	isString, out, err := rt.Call(compiled, sandbox.CallArgs{})
	require.NoError(t, err)
	require.False(t, isString)
	require.Equal(t, "0", out)
}

func TestMathRandomIsDisabled(t *testing.T) {
	rt := newTestRuntime(t, nil)
	compiled, err := sandbox.Compile("return Math.random();")
	require.NoError(t, err)

	var hash [32]byte
	rt.Enter(context.Background(), hash, false)
	defer rt.Leave()

	_, _, err = rt.Call(compiled, sandbox.CallArgs{})
	require.Error(t, err)
}

func TestRejectReasonIsCaptured(t *testing.T) {
	rt := newTestRuntime(t, nil)
	compiled, err := sandbox.Compile(`reject("not allowed"); return true;`)
	require.NoError(t, err)

	var hash [32]byte
	rt.Enter(context.Background(), hash, false)
	defer rt.Leave()

	_, _, err = rt.Call(compiled, sandbox.CallArgs{})
	require.NoError(t, err)
	require.NotNil(t, rt.RejectReason())
	require.Equal(t, "not allowed", *rt.RejectReason())
}

func TestQueryBindingRoundTripsRows(t *testing.T) {
	seen := struct {
		query  string
		params []any
	}{}
	rt := newTestRuntime(t, func(_ context.Context, query string, params []any, isSpecial bool) (dbadapter.Result, error) {
		seen.query = query
		seen.params = params
		require.False(t, isSpecial)
		return dbadapter.Result{Rows: []map[string]any{{"id": int64(1)}}, RowCount: 1}, nil
	})

	compiled, err := sandbox.Compile(`
		var result = await query("SELECT * FROM test WHERE id = $1", [1]);
		return result.rowCount;
	`)
	require.NoError(t, err)

	var hash [32]byte
	rt.Enter(context.Background(), hash, false)
	defer rt.Leave()

	isString, out, err := rt.Call(compiled, sandbox.CallArgs{})
	require.NoError(t, err)
	require.False(t, isString)
	require.Equal(t, "1", out)
	require.Equal(t, "SELECT * FROM test WHERE id = $1", seen.query)
	require.Equal(t, []any{int64(1)}, seen.params)
}

func TestQueryRejectionPropagatesWhenUncaught(t *testing.T) {
	rt := newTestRuntime(t, func(context.Context, string, []any, bool) (dbadapter.Result, error) {
		return dbadapter.Result{}, &dbadapter.ErrForbiddenQuery{Reason: "denied"}
	})

	compiled, err := sandbox.Compile(`
		var result = await query("SELECT 1", []);
		return result.rowCount;
	`)
	require.NoError(t, err)

	var hash [32]byte
	rt.Enter(context.Background(), hash, false)
	defer rt.Leave()

	_, _, err = rt.Call(compiled, sandbox.CallArgs{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "denied")
}

func TestQueryRejectionIsCatchableByGuest(t *testing.T) {
	rt := newTestRuntime(t, func(context.Context, string, []any, bool) (dbadapter.Result, error) {
		return dbadapter.Result{}, &dbadapter.ErrForbiddenQuery{Reason: "denied"}
	})

	compiled, err := sandbox.Compile(`
		var recovered;
		await query("SELECT 1", []).catch(function(e) { recovered = e.message; });
		return recovered;
	`)
	require.NoError(t, err)

	var hash [32]byte
	rt.Enter(context.Background(), hash, false)
	defer rt.Leave()

	isString, out, err := rt.Call(compiled, sandbox.CallArgs{})
	require.NoError(t, err)
	require.True(t, isString)
	require.Contains(t, out, "denied")
}

func TestQueryFastErrorIsDrainedByProcessor(t *testing.T) {
	rt := newTestRuntime(t, func(context.Context, string, []any, bool) (dbadapter.Result, error) {
		return dbadapter.Result{}, &dbadapter.ErrForbiddenQuery{Reason: "denied"}
	})

	compiled, err := sandbox.Compile(`queryFast("SELECT 1", []); return true;`)
	require.NoError(t, err)

	var hash [32]byte
	rt.Enter(context.Background(), hash, false)
	_, _, err = rt.Call(compiled, sandbox.CallArgs{})
	require.NoError(t, err)

	errs := rt.DrainFastQueryErrors()
	require.Len(t, errs, 1)
	rt.Leave()
}

func TestLocaleAndTimezoneMethodsAreDisabled(t *testing.T) {
	cases := []string{
		"return new Date().toLocaleDateString();",
		"return new Date().toLocaleString();",
		"return new Date().getHours();",
		"return new Date().getTimezoneOffset();",
		"return (1234.5).toLocaleString();",
		`return "a".localeCompare("b");`,
		"return typeof Intl === 'undefined';",
	}
	for _, src := range cases {
		rt := newTestRuntime(t, nil)
		compiled, err := sandbox.Compile(src)
		require.NoError(t, err, src)

		var hash [32]byte
		rt.Enter(context.Background(), hash, false)

		_, out, callErr := rt.Call(compiled, sandbox.CallArgs{})
		if src == "return typeof Intl === 'undefined';" {
			require.NoError(t, callErr, src)
			require.Equal(t, "true", out)
		} else {
			require.Error(t, callErr, src)
		}
		rt.Leave()

		// Once installed, the guards are never uninstalled: they are a
		// property of the shared isolate, not the per-cycle sandboxed
		// flag, so a call issued after Leave() still panics (spec §8.11
		// mirrors §8.7's "throw again" behavior for the other guards).
		_, _, callErr = rt.Call(compiled, sandbox.CallArgs{})
		if src != "return typeof Intl === 'undefined';" {
			require.Error(t, callErr, src)
		}
	}
}

func TestFunctionToStringIsPinned(t *testing.T) {
	rt := newTestRuntime(t, nil)
	compiled, err := sandbox.Compile(`
		function secret() { return 42; }
		return secret.toString();
	`)
	require.NoError(t, err)

	var hash [32]byte
	rt.Enter(context.Background(), hash, false)
	defer rt.Leave()

	isString, out, err := rt.Call(compiled, sandbox.CallArgs{})
	require.NoError(t, err)
	require.True(t, isString)
	require.Equal(t, "function () { [native code] }", out)
}
