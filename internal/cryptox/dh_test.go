package cryptox

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/phantomchat/internal/common"
)

func TestExchange_BothSidesAgree(t *testing.T) {
	server := NewExchange()
	client := NewExchange()

	serverPriv, serverPub, err := server.Begin()
	require.NoError(t, err)
	clientPriv, clientPub, err := client.Begin()
	require.NoError(t, err)

	serverKey, err := server.Complete(clientPub, serverPriv)
	require.NoError(t, err)
	clientKey, err := client.Complete(serverPub, clientPriv)
	require.NoError(t, err)

	assert.Equal(t, serverKey, clientKey, "both sides must derive the same session key")
	assert.Len(t, serverKey, SessionKeySize)
}

func TestExchange_IndependentRunsDiverge(t *testing.T) {
	e := NewExchange()

	priv1, pub1, err := e.Begin()
	require.NoError(t, err)
	priv2, pub2, err := e.Begin()
	require.NoError(t, err)

	require.NotEqual(t, pub1, pub2, "two runs must sample distinct exponents")

	// Keys from unrelated runs must not collide.
	key1, err := e.Complete(pub2, priv1)
	require.NoError(t, err)
	key2, err := e.Complete(pub1, priv1)
	require.NoError(t, err)
	assert.NotEqual(t, key1, key2)

	_ = priv2
}

func TestExchange_PublicValueInRange(t *testing.T) {
	e := NewExchange()

	_, pubHex, err := e.Begin()
	require.NoError(t, err)

	pub, ok := new(big.Int).SetString(pubHex, 16)
	require.True(t, ok, "public value must be valid hex")
	require.NoError(t, e.checkPublic(pub))
}

func TestExchange_Complete_RejectsBadPeerValues(t *testing.T) {
	e := NewExchange()
	priv, _, err := e.Begin()
	require.NoError(t, err)

	pMinusOne := new(big.Int).Sub(e.p, big.NewInt(1))

	tests := []struct {
		name string
		peer string
	}{
		{name: "not hex", peer: "zzzz"},
		{name: "empty", peer: ""},
		{name: "zero", peer: "0"},
		{name: "one", peer: "1"},
		{name: "p-1", peer: pMinusOne.Text(16)},
		{name: "p", peer: e.p.Text(16)},
		{name: "negative", peer: "-2a"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Complete(tc.peer, priv)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrorHandshake)
		})
	}
}

func TestExchange_Complete_UsesTheGenuinePrivateExponent(t *testing.T) {
	// Completing with an exponent other than the one Begin returned must not
	// reproduce the peer's key. This pins down the classic bug of feeding an
	// unrelated encoded blob into the second exponentiation.
	server := NewExchange()
	client := NewExchange()

	serverPriv, serverPub, err := server.Begin()
	require.NoError(t, err)
	clientPriv, clientPub, err := client.Begin()
	require.NoError(t, err)

	clientKey, err := client.Complete(serverPub, clientPriv)
	require.NoError(t, err)

	bogus := new(big.Int).Add(serverPriv, big.NewInt(1))
	bogusKey, err := server.Complete(clientPub, bogus)
	require.NoError(t, err)

	assert.NotEqual(t, clientKey, bogusKey)
}
