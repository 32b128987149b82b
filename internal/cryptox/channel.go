package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/awnumar/memguard"

	"github.com/dmitrijs2005/phantomchat/internal/common"
)

// Channel is the per-session secure channel codec. Every chat line exchanged
// after the handshake is one wire token: base64(IV ‖ AES-256-CBC ciphertext)
// with PKCS#7 padding and a fresh random 16-byte IV per Encode call.
//
// The session key lives in a memguard locked buffer for the lifetime of the
// channel and is wiped on Close.
type Channel struct {
	key   *memguard.LockedBuffer
	block cipher.Block
}

// NewChannel builds a codec from a 32-byte session key. The key slice is
// consumed: memguard wipes it as part of taking custody.
func NewChannel(key []byte) (*Channel, error) {
	if len(key) != SessionKeySize {
		common.WipeByteArray(key)
		return nil, fmt.Errorf("session key must be %d bytes, got %d", SessionKeySize, len(key))
	}

	buf := memguard.NewBufferFromBytes(key)
	block, err := aes.NewCipher(buf.Bytes())
	if err != nil {
		buf.Destroy()
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	return &Channel{key: buf, block: block}, nil
}

// Encode encrypts plaintext into one wire token. The IV is drawn from a
// cryptographically secure source on every call and is never reused within
// a session.
func (c *Channel) Encode(plaintext string) (string, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generating iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(ciphertext, padded)

	return base64.StdEncoding.EncodeToString(append(iv, ciphertext...)), nil
}

// Decode reverses Encode. It fails with common.ErrorDecode if the token is
// not valid base64, is shorter than IV plus one cipher block, is not
// block-aligned, or if padding validation fails after decryption. Callers
// treat any of these as a corrupt or forged message: drop it, never tear
// down the session loop.
func (c *Channel) Decode(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64", common.ErrorDecode)
	}
	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: truncated token", common.ErrorDecode)
	}

	iv, ciphertext := raw[:aes.BlockSize], raw[aes.BlockSize:]
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

// Close destroys the session key material. The channel must not be used
// afterwards.
func (c *Channel) Close() {
	if c.key != nil {
		c.key.Destroy()
		c.key = nil
	}
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: misaligned plaintext", common.ErrorDecode)
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("%w: bad padding", common.ErrorDecode)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: bad padding", common.ErrorDecode)
		}
	}
	return data[:len(data)-n], nil
}
