package cryptox

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

// Argon2id cost parameters for the password digest.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// PasswordDigest derives the fixed-length digest stored in the credential
// store for the given username/password pair.
//
// The digest must be deterministic per user so that authentication is a
// straight digest comparison against the persisted record, and the record
// layout stays two fields (username:digest). The argon2id salt is therefore
// derived from the username rather than stored alongside; two users with the
// same password still get unrelated digests.
func PasswordDigest(userName, password string) string {
	salt := sha256.Sum256([]byte("phantomchat/" + userName))
	digest := argon2.IDKey([]byte(password), salt[:16], argonTime, argonMemory, argonThreads, argonKeyLen)
	return hex.EncodeToString(digest)
}
