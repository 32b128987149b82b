package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clientconfig "github.com/dmitrijs2005/phantomchat/internal/client/config"
	"github.com/dmitrijs2005/phantomchat/internal/common"
	"github.com/dmitrijs2005/phantomchat/internal/cryptox"
	"github.com/dmitrijs2005/phantomchat/internal/netx"
)

// syncBuffer collects the client's terminal output.
type syncBuffer struct {
	strings.Builder
}

func newTestApp(t *testing.T, stdin string) (*App, net.Conn, *syncBuffer) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	require.NoError(t, serverConn.SetDeadline(time.Now().Add(10*time.Second)))

	cfg := &clientconfig.Config{ServerEndpointAddr: "test", DialTimeout: time.Second}
	out := &syncBuffer{}
	app := &App{
		config: cfg,
		reader: bufio.NewReader(strings.NewReader(stdin)),
		out:    out,
		dial: func(ctx context.Context) (net.Conn, error) {
			return clientConn, nil
		},
	}
	return app, serverConn, out
}

// fakeServer drives the server side of the dialogue over lc, mirroring the
// real session's order of prompts, handshake, and encrypted relay.
type fakeServer struct {
	t       *testing.T
	lc      *netx.LineConn
	channel *cryptox.Channel
}

func (f *fakeServer) send(lines ...string) {
	for _, line := range lines {
		require.NoError(f.t, f.lc.WriteLine(line))
	}
}

func (f *fakeServer) recv() string {
	line, err := f.lc.ReadLine()
	require.NoError(f.t, err)
	return line
}

func (f *fakeServer) handshake() {
	exchange := cryptox.NewExchange()
	private, publicHex, err := exchange.Begin()
	require.NoError(f.t, err)
	f.send(common.HandshakePrefix + publicHex)

	peerHex := f.recv()
	key, err := exchange.Complete(peerHex, private)
	require.NoError(f.t, err)
	f.channel, err = cryptox.NewChannel(key)
	require.NoError(f.t, err)

	f.send(common.HandshakeConfirmation)
}

func (f *fakeServer) recvPlain() string {
	plaintext, err := f.channel.Decode(f.recv())
	require.NoError(f.t, err)
	return plaintext
}

func (f *fakeServer) sendPlain(message string) {
	token, err := f.channel.Encode(message)
	require.NoError(f.t, err)
	f.send(token)
}

func TestApp_LoginChatAndExit(t *testing.T) {
	app, serverConn, out := newTestApp(t, "1\nalice\npass1234\nhello\n/exit\n")

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		f := &fakeServer{t: t, lc: netx.NewLineConn(serverConn)}
		defer f.lc.Close()

		f.send("1. Login / 2. Register", "Choose:")
		assert.Equal(t, "1", f.recv())
		f.send("Enter your username:")
		assert.Equal(t, "alice", f.recv())
		f.send("Enter your password:")
		assert.Equal(t, "pass1234", f.recv())

		f.handshake()
		f.sendPlain("alice has joined the chat.")

		assert.Equal(t, "hello", f.recvPlain())
		f.sendPlain("alice: hello")

		assert.Equal(t, "/exit", f.recvPlain())
		f.send(common.GoodbyeLine)
	}()

	require.NoError(t, app.Run(context.Background()))
	<-serverDone

	output := out.String()
	assert.Contains(t, output, "1. Login / 2. Register")
	assert.Contains(t, output, "Secure channel established.")
	assert.Contains(t, output, "alice has joined the chat.")
	assert.Contains(t, output, "alice: hello")
	assert.Contains(t, output, common.GoodbyeLine)
	assert.NotContains(t, output, "pass1234", "the password must never be echoed")
}

func TestApp_ServerDisconnectBeforeHandshake(t *testing.T) {
	app, serverConn, out := newTestApp(t, "")

	go func() {
		lc := netx.NewLineConn(serverConn)
		_ = lc.WriteLine("Too many failed attempts. Disconnecting...")
		_ = lc.Close()
	}()

	require.NoError(t, app.Run(context.Background()))
	assert.Contains(t, out.String(), "Too many failed attempts. Disconnecting...")
	assert.Contains(t, out.String(), "Server closed the connection.")
}

func TestApp_StdinEOFLeavesChatCleanly(t *testing.T) {
	// Stdin ends right after authentication; the client must send /exit on
	// its own instead of hanging.
	app, serverConn, _ := newTestApp(t, "1\nalice\npass1234\n")

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		f := &fakeServer{t: t, lc: netx.NewLineConn(serverConn)}
		defer f.lc.Close()

		f.send("Choose:")
		assert.Equal(t, "1", f.recv())
		f.send("Enter your username:")
		assert.Equal(t, "alice", f.recv())
		f.send("Enter your password:")
		assert.Equal(t, "pass1234", f.recv())

		f.handshake()

		assert.Equal(t, "/exit", f.recvPlain())
		f.send(common.GoodbyeLine)
	}()

	require.NoError(t, app.Run(context.Background()))
	<-serverDone
}

func TestApp_ServerDropMidChatIsAnnounced(t *testing.T) {
	app, serverConn, out := newTestApp(t, "1\nalice\npass1234\n")

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		f := &fakeServer{t: t, lc: netx.NewLineConn(serverConn)}

		f.send("Choose:")
		assert.Equal(t, "1", f.recv())
		f.send("Enter your username:")
		assert.Equal(t, "alice", f.recv())
		f.send("Enter your password:")
		assert.Equal(t, "pass1234", f.recv())

		f.handshake()

		// The server vanishes without a goodbye.
		require.NoError(t, f.lc.Close())
	}()

	require.NoError(t, app.Run(context.Background()))
	<-serverDone

	assert.Contains(t, out.String(), "Connection to the server was lost.")
	assert.NotContains(t, out.String(), common.GoodbyeLine)
}

func TestApp_DialFailure(t *testing.T) {
	cfg := &clientconfig.Config{ServerEndpointAddr: "nowhere", DialTimeout: time.Second}
	app := &App{
		config: cfg,
		reader: bufio.NewReader(strings.NewReader("")),
		out:    io.Discard,
		dial: func(ctx context.Context) (net.Conn, error) {
			return nil, errors.New("connection refused")
		},
	}
	require.Error(t, app.Run(context.Background()))
}
