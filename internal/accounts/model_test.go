package accounts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalBalanceMapping(t *testing.T) {
	cases := map[AccountType]NormalBalance{
		TypeAsset:     NormalDebit,
		TypeExpense:   NormalDebit,
		TypeLiability: NormalCredit,
		TypeEquity:    NormalCredit,
		TypeRevenue:   NormalCredit,
		TypeOther:     NormalCredit,
	}
	for typ, want := range cases {
		require.Equal(t, want, typ.NormalBalance(), "type %s", typ)
	}
}

func TestNormalBalanceStable(t *testing.T) {
	for i := 0; i < 100; i++ {
		require.Equal(t, NormalDebit, TypeAsset.NormalBalance())
		require.Equal(t, NormalCredit, TypeRevenue.NormalBalance())
	}
}

func TestNormalBalanceTotal(t *testing.T) {
	// Even an unmapped value must produce a side, never panic.
	require.Equal(t, NormalCredit, AccountType("BOGUS").NormalBalance())
	require.False(t, AccountType("BOGUS").Valid())
}

func TestAccountDerivesNormalBalance(t *testing.T) {
	acc := Account{Code: "1111", Type: TypeAsset}
	require.Equal(t, NormalDebit, acc.NormalBalance())
}
