package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/dop251/goja"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/Coinversable/validana-core/foundation/blockchain/dbadapter"
	"github.com/Coinversable/validana-core/foundation/blockchain/keys"
	"github.com/Coinversable/validana-core/foundation/blockchain/wire"
)

func TestOutcomeStrings(t *testing.T) {
	cases := map[Outcome]string{
		OutcomeAccepted:   "accepted",
		OutcomeV1Rejected: "v1Rejected",
		OutcomeRejected:   "rejected",
		OutcomeInvalid:    "invalid",
		OutcomeRetry:      "retry",
		Outcome(99):       "unknown",
	}
	for outcome, want := range cases {
		require.Equal(t, want, outcome.String())
	}
}

func newSignedTestTx(t *testing.T, validTill uint64, payload []byte) *wire.Transaction {
	t.Helper()

	priv, err := keys.GeneratePrivateKey()
	require.NoError(t, err)

	var id [16]byte
	id[0] = 1
	var contractHash [32]byte
	contractHash[0] = 2

	preimage, err := wire.BuildTransactionPreimage(id, contractHash, validTill, payload)
	require.NoError(t, err)

	sig, err := keys.Sign(append([]byte("test"), preimage...), priv)
	require.NoError(t, err)
	var sigArr [64]byte
	copy(sigArr[:], sig)

	tx, err := wire.NewTransaction(id, contractHash, validTill, payload, sigArr, priv.PublicKey())
	require.NoError(t, err)
	return tx
}

func TestValidateRejectsExpiredTransaction(t *testing.T) {
	tx := newSignedTestTx(t, 1000, []byte(`{}`))
	p := &Processor{signPrefix: []byte("test")}

	reason := p.validate(tx, Context{PreviousBlockTimestamp: 2000})
	require.Equal(t, "Transaction valid till expired.", reason)
}

func TestValidateAcceptsValidTillAfterPreviousBlockTimestamp(t *testing.T) {
	tx := newSignedTestTx(t, 1000, []byte(`{}`))
	p := &Processor{signPrefix: []byte("test")}

	reason := p.validate(tx, Context{PreviousBlockTimestamp: 999})
	require.Empty(t, reason)
}

func TestValidateRejectsBadSignature(t *testing.T) {
	tx := newSignedTestTx(t, 0, []byte(`{}`))
	p := &Processor{signPrefix: []byte("different-prefix")}

	reason := p.validate(tx, Context{PreviousBlockTimestamp: 1})
	require.Equal(t, "Invalid signature.", reason)
}

func TestValidateSignatureWinsOverExpiry(t *testing.T) {
	tx := newSignedTestTx(t, 1000, []byte(`{}`))
	p := &Processor{signPrefix: []byte("different-prefix")}

	reason := p.validate(tx, Context{PreviousBlockTimestamp: 2000})
	require.Equal(t, "Invalid signature.", reason)
}

func TestValidateAcceptsWellFormedTransaction(t *testing.T) {
	tx := newSignedTestTx(t, 0, []byte(`{}`))
	p := &Processor{signPrefix: []byte("test")}

	reason := p.validate(tx, Context{PreviousBlockTimestamp: 1})
	require.Empty(t, reason)
}

func TestClassifyGuestFailureRetriesOnConnectivityError(t *testing.T) {
	vm := goja.New()
	connErr := &pgconn.PgError{Code: "08006", Message: "connection failure"}
	vm.Set("boom", func() {
		panic(vm.NewGoError(connErr))
	})

	_, err := vm.RunString("boom();")
	require.Error(t, err)

	outcome, reason, isRetry, fatal := classifyGuestFailure(err)
	require.True(t, isRetry)
	require.Nil(t, fatal)
	require.Equal(t, OutcomeRetry, outcome)
	require.Contains(t, reason, "connection failure")
}

func TestClassifyGuestFailureIsFatalOnCorruption(t *testing.T) {
	vm := goja.New()
	corruptErr := &pgconn.PgError{Code: "XX001", Message: "index corruption"}
	vm.Set("boom", func() {
		panic(vm.NewGoError(corruptErr))
	})

	_, err := vm.RunString("boom();")
	require.Error(t, err)

	_, _, isRetry, fatal := classifyGuestFailure(err)
	require.False(t, isRetry)
	require.Error(t, fatal)

	var fatalErr *dbadapter.FatalError
	require.True(t, errors.As(fatal, &fatalErr))
	require.Equal(t, 51, fatalErr.ExitCode())
}

func TestClassifyGuestFailureIsFatalOnLockConflict(t *testing.T) {
	vm := goja.New()
	lockErr := &pgconn.PgError{Code: "53300", Message: "advisory lock held"}
	vm.Set("boom", func() {
		panic(vm.NewGoError(lockErr))
	})

	_, err := vm.RunString("boom();")
	require.Error(t, err)

	_, _, _, fatal := classifyGuestFailure(err)
	require.Error(t, fatal)

	var fatalErr *dbadapter.FatalError
	require.True(t, errors.As(fatal, &fatalErr))
	require.Equal(t, 50, fatalErr.ExitCode())
}

func TestClassifyGuestFailureIsInvalidOnPlainError(t *testing.T) {
	vm := goja.New()
	vm.Set("boom", func() {
		panic(vm.NewGoError(errors.New("boom")))
	})

	_, err := vm.RunString("boom();")
	require.Error(t, err)

	outcome, _, isRetry, fatal := classifyGuestFailure(err)
	require.False(t, isRetry)
	require.Nil(t, fatal)
	require.Equal(t, OutcomeInvalid, outcome)
}

// TP8 (spec §8.8): invoking ProcessTransaction while a previous call on
// the same Processor is still in flight must raise ErrAlreadyProcessing
// without ever touching the database. isProcessing is checked and the
// re-entrancy error returned before ProcessTransaction calls p.db.Begin,
// so this needs no DB setup at all.
func TestProcessTransactionRejectsReentrantCall(t *testing.T) {
	p := &Processor{isProcessing: true}

	result, err := p.ProcessTransaction(context.Background(), nil, Context{})
	require.ErrorIs(t, err, ErrAlreadyProcessing)
	require.Equal(t, Result{}, result)
}

func TestClassifyContractReturnV1RequiresExactOK(t *testing.T) {
	outcome, message := classifyContractReturn(1, true, "OK")
	require.Equal(t, OutcomeAccepted, outcome)
	require.Equal(t, "OK", message)

	outcome, message = classifyContractReturn(1, true, "not ok")
	require.Equal(t, OutcomeV1Rejected, outcome)
	require.Equal(t, "not ok", message)

	outcome, message = classifyContractReturn(1, false, "")
	require.Equal(t, OutcomeV1Rejected, outcome)
	require.Equal(t, "Unknown result type", message)
}

func TestClassifyContractReturnV2AcceptsAnyString(t *testing.T) {
	outcome, message := classifyContractReturn(2, true, "3")
	require.Equal(t, OutcomeAccepted, outcome)
	require.Equal(t, "3", message)

	outcome, message = classifyContractReturn(2, false, "42")
	require.Equal(t, OutcomeAccepted, outcome)
	require.Equal(t, "Unknown result type", message)
}
