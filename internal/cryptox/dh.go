// Package cryptox implements the cryptographic core of PhantomChat: the
// per-session Diffie-Hellman key exchange, the AES-CBC secure channel codec,
// and the password digest used by the credential store.
package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"

	"github.com/dmitrijs2005/phantomchat/internal/common"
)

// group14Hex is the 2048-bit MODP prime from RFC 3526, group 14. Both ends of
// every handshake use this modulus with generator 2; the values are public.
const group14Hex = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E08" +
	"8A67CC74020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F1437" +
	"4FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7EDEE386BFB" +
	"5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF0598DA48361C55D39A" +
	"69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB9ED529077096966D670C354E" +
	"4ABC9804F1746C08CA18217C32905E462E36CE3BE39E772C180E86039B2783A2EC07A28F" +
	"B5C55DF06F4C52C9DE2BCBF6955817183995497CEA956AE515D2261898FA051015728E5A" +
	"8AACAA68FFFFFFFFFFFFFFFF"

// SessionKeySize is the size of the derived symmetric session key in bytes.
const SessionKeySize = sha256.Size

// Exchange performs an ephemeral Diffie-Hellman handshake over the fixed
// group. Both the server session and the client run the identical
// computation; only the hex-encoded public values cross the wire.
type Exchange struct {
	p *big.Int
	g *big.Int
}

// NewExchange returns an Exchange bound to RFC 3526 group 14.
func NewExchange() *Exchange {
	p, ok := new(big.Int).SetString(group14Hex, 16)
	if !ok {
		panic("cryptox: invalid group modulus")
	}
	return &Exchange{p: p, g: big.NewInt(2)}
}

// Begin samples a fresh private exponent and returns it together with the
// hex-encoded public value g^private mod p.
//
// The private exponent must be kept and passed unchanged to Complete; the
// shared secret only agrees on both ends when the same scalar is used in
// both exponentiation steps.
func (e *Exchange) Begin() (*big.Int, string, error) {
	// Sample from [2, p-2].
	limit := new(big.Int).Sub(e.p, big.NewInt(3))
	private, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, "", fmt.Errorf("sampling private exponent: %w", err)
	}
	private.Add(private, big.NewInt(2))

	public := new(big.Int).Exp(e.g, private, e.p)
	return private, public.Text(16), nil
}

// Complete validates the peer's hex-encoded public value, computes the shared
// secret peer^private mod p and derives the 256-bit session key as
// SHA-256(secret bytes).
//
// It fails with common.ErrorHandshake if the peer value is not a well-formed
// positive integer or lies outside [2, p-2]. The degenerate values 0, 1 and
// p-1 would collapse the shared secret to a trivially guessable element, so
// they are rejected outright.
func (e *Exchange) Complete(peerPublicHex string, private *big.Int) ([]byte, error) {
	peer, ok := new(big.Int).SetString(strings.TrimSpace(peerPublicHex), 16)
	if !ok {
		return nil, fmt.Errorf("%w: malformed public value", common.ErrorHandshake)
	}
	if err := e.checkPublic(peer); err != nil {
		return nil, err
	}

	secret := new(big.Int).Exp(peer, private, e.p)
	key := sha256.Sum256(secret.Bytes())
	return key[:], nil
}

// checkPublic rejects peer values outside [2, p-2].
func (e *Exchange) checkPublic(peer *big.Int) error {
	two := big.NewInt(2)
	pMinusTwo := new(big.Int).Sub(e.p, two)
	if peer.Cmp(two) < 0 || peer.Cmp(pMinusTwo) > 0 {
		return fmt.Errorf("%w: public value out of range", common.ErrorHandshake)
	}
	return nil
}
