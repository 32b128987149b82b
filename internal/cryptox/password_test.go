package cryptox

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordDigest_DeterministicPerUser(t *testing.T) {
	d1 := PasswordDigest("alice", "pass1")
	d2 := PasswordDigest("alice", "pass1")
	assert.Equal(t, d1, d2)
}

func TestPasswordDigest_FixedLengthHex(t *testing.T) {
	d := PasswordDigest("alice", "pass1")
	assert.Len(t, d, argonKeyLen*2)

	_, err := hex.DecodeString(d)
	require.NoError(t, err)
}

func TestPasswordDigest_DistinguishesInputs(t *testing.T) {
	base := PasswordDigest("alice", "pass1")

	assert.NotEqual(t, base, PasswordDigest("alice", "pass2"), "different password")
	assert.NotEqual(t, base, PasswordDigest("bob", "pass1"), "same password, different user")
}
