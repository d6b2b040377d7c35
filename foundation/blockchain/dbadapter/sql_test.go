package dbadapter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Coinversable/validana-core/foundation/blockchain/dbadapter"
)

func TestGuestGrammarRejections(t *testing.T) {
	rejected := []string{
		"SELECT localtime;",
		"SELECT 1; SELECT 2;",
		"SELECT 1 -- comment",
		"CREATE SEQUENCE s;",
	}
	for _, q := range rejected {
		normalized := dbadapter.NormalizeGuestQuery(q)
		err := dbadapter.ValidateGuestQuery(normalized, false)
		require.Error(t, err, q)
	}
}

func TestGuestGrammarAcceptances(t *testing.T) {
	accepted := []string{
		"SELECT 1",
		"  select 1  ;  ",
		"SeLeCt 1;",
	}
	for _, q := range accepted {
		normalized := dbadapter.NormalizeGuestQuery(q)
		err := dbadapter.ValidateGuestQuery(normalized, false)
		require.NoError(t, err, q)
	}
}

func TestSpecialContractExceptionsOnlyForSpecialContracts(t *testing.T) {
	q := "SET LOCAL ROLE smartcontract;"
	require.NoError(t, dbadapter.ValidateGuestQuery(q, true))
	require.Error(t, dbadapter.ValidateGuestQuery(q, false))
}

func TestPrivateTableIsolation(t *testing.T) {
	var a, b [32]byte
	a[0] = 0x01
	b[0] = 0x02

	sa := dbadapter.PrivateTableSuffix(a)
	sb := dbadapter.PrivateTableSuffix(b)
	require.NotEqual(t, sa, sb)
	require.Len(t, sa, 33) // "_" + 32 hex chars
}

func TestLegacyTranslation(t *testing.T) {
	var hash [32]byte
	q, err := dbadapter.TranslateLegacyQuery(dbadapter.LegacySelect, "test", "*", hash, false)
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM test;", q)

	q, err = dbadapter.TranslateLegacyQuery(dbadapter.LegacySelect, "test", "*", hash, true)
	require.NoError(t, err)
	require.Contains(t, q, "test_")
}
