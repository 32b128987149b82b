// Package users implements the credential store: a persisted mapping of
// username to password digest, loaded at startup and rewritten on every
// successful registration. Records are immutable once created; there is no
// password change flow.
package users

// User is one credential record. PasswordDigest is the fixed-length hex
// digest produced by cryptox.PasswordDigest; the plaintext password is never
// stored or compared.
type User struct {
	UserName       string
	PasswordDigest string
}
