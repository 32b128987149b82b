package common

// Wire-protocol markers shared by the server session and the CLI client.
// Everything before HandshakeConfirmation travels in clear text; after it,
// every chat line is a base64 wire token.
const (
	// HandshakePrefix introduces the server's Diffie-Hellman public value,
	// hex-encoded, as one line: "HANDSHAKE <hex>". The client answers with
	// a bare hex line carrying its own public value.
	HandshakePrefix = "HANDSHAKE "

	// HandshakeConfirmation is sent by the server once the session key has
	// been derived on both ends.
	HandshakeConfirmation = "SECURE"

	// GoodbyeLine acknowledges /exit. It is a status line, not chat payload,
	// and is deliberately sent unencrypted right before the server closes
	// the connection.
	GoodbyeLine = "Goodbye."
)
