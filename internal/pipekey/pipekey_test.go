package pipekey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalizeSymmetry(t *testing.T) {
	cases := []struct {
		token, p1, p2 string
	}{
		{"", "SP1AAA", "SP2BBB"},
		{"", "SP2BBB", "SP1AAA"},
		{"SPTOKEN.ft", "SPZZZ", "SPAAA"},
		{"SPTOKEN.ft", "SPAAA", "SPZZZ"},
		{"", "SP000000000000000000002Q6VF78", "SP000000000000000000002Q6VF78"},
	}

	for _, c := range cases {
		forward := Canonicalize(c.token, c.p1, c.p2)
		backward := Canonicalize(c.token, c.p2, c.p1)
		require.Equal(t, forward, backward)
		require.Equal(t, ID(forward), ID(backward))
	}
}

func TestCanonicalizeOrdersLexicographically(t *testing.T) {
	key := Canonicalize("", "SPZZZ", "SPAAA")
	require.Equal(t, "SPAAA", key.PrincipalLow)
	require.Equal(t, "SPZZZ", key.PrincipalHigh)
}

func TestIDStableAcrossCalls(t *testing.T) {
	key := Canonicalize("", "SP1AAA", "SP2BBB")
	require.Equal(t, ID(key), ID(key))
	require.Len(t, ID(key), 64) // sha256 hex digest
}

func TestSideAndOther(t *testing.T) {
	key := Canonicalize("", "SP1AAA", "SP2BBB")

	low, ok := Side(key, "SP1AAA")
	require.True(t, ok)
	require.True(t, low)

	_, ok = Side(key, "SPUNKNOWN")
	require.False(t, ok)

	other, ok := Other(key, "SP1AAA")
	require.True(t, ok)
	require.Equal(t, "SP2BBB", other)
}
