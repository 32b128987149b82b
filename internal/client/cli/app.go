// Package cli implements the interactive chat client: it answers the
// server's authentication prompts, mirrors the key exchange, and then relays
// between the terminal and the encrypted channel.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dmitrijs2005/phantomchat/internal/client/config"
	"github.com/dmitrijs2005/phantomchat/internal/common"
	"github.com/dmitrijs2005/phantomchat/internal/cryptox"
	"github.com/dmitrijs2005/phantomchat/internal/netx"
)

type App struct {
	config *config.Config
	reader *bufio.Reader
	out    io.Writer
	dial   func(ctx context.Context) (net.Conn, error)

	// isTerminal gates the no-echo password path; piped input falls back
	// to plain line reads.
	isTerminal bool
}

func NewApp(c *config.Config) (*App, error) {
	dialer := &net.Dialer{Timeout: c.DialTimeout}
	return &App{
		config: c,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		dial: func(ctx context.Context) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp", c.ServerEndpointAddr)
		},
		isTerminal: term.IsTerminal(int(os.Stdin.Fd())),
	}, nil
}

// Run connects to the server and drives the whole conversation: the
// plaintext authentication dialogue, then the key exchange, then the
// encrypted chat loop. It returns when the server says goodbye, the
// connection drops, or ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	conn, err := a.dial(ctx)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", a.config.ServerEndpointAddr, err)
	}
	lc := netx.NewLineConn(conn)
	defer lc.Close()

	stop := context.AfterFunc(ctx, func() { _ = lc.Close() })
	defer stop()

	channel, err := a.converse(lc)
	if err != nil {
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(a.out, "Server closed the connection.")
			return nil
		}
		return err
	}
	defer channel.Close()

	fmt.Fprintln(a.out, "Secure channel established. Type /exit to leave.")
	return a.chat(lc, channel)
}

// converse handles the plaintext phase. Server lines ending in ":" are
// prompts expecting one reply; a line starting with the handshake prefix
// switches to the key exchange. Everything else is information for the user.
func (a *App) converse(lc *netx.LineConn) (*cryptox.Channel, error) {
	for {
		line, err := lc.ReadLine()
		if err != nil {
			return nil, err
		}

		switch {
		case strings.HasPrefix(line, common.HandshakePrefix):
			return a.handshake(lc, strings.TrimPrefix(line, common.HandshakePrefix))

		case strings.HasSuffix(line, ":"):
			reply, err := a.promptReply(line)
			if err != nil {
				return nil, err
			}
			if err := lc.WriteLine(reply); err != nil {
				return nil, err
			}

		default:
			fmt.Fprintln(a.out, line)
		}
	}
}

func (a *App) promptReply(prompt string) (string, error) {
	if a.isTerminal && strings.Contains(strings.ToLower(prompt), "password") {
		pw, err := GetPassword(prompt, a.out)
		if err != nil {
			return "", err
		}
		reply := string(pw)
		common.WipeByteArray(pw)
		return reply, nil
	}
	return GetSimpleText(a.reader, prompt, a.out)
}

// handshake mirrors the server's key exchange: derive our key pair, send
// the public value, and wait for the confirmation line.
func (a *App) handshake(lc *netx.LineConn, serverPublicHex string) (*cryptox.Channel, error) {
	exchange := cryptox.NewExchange()
	private, publicHex, err := exchange.Begin()
	if err != nil {
		return nil, err
	}
	if err := lc.WriteLine(publicHex); err != nil {
		return nil, err
	}

	confirmation, err := lc.ReadLine()
	if err != nil {
		return nil, err
	}
	if confirmation != common.HandshakeConfirmation {
		return nil, fmt.Errorf("%w: unexpected reply %q", common.ErrorHandshake, confirmation)
	}

	key, err := exchange.Complete(serverPublicHex, private)
	if err != nil {
		return nil, err
	}
	return cryptox.NewChannel(key)
}

// chat relays until either side ends the conversation. Incoming lines are
// decoded and printed on a separate goroutine so messages from other users
// appear while the local user is typing.
func (a *App) chat(lc *netx.LineConn, channel *cryptox.Channel) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			line, err := lc.ReadLine()
			if err != nil {
				// The notice prints as soon as the connection drops, not
				// on the next keystroke; the local reader is still parked
				// on stdin, so tell the user how to get out.
				fmt.Fprintln(a.out, "Connection to the server was lost. Press Enter to quit.")
				return
			}
			if line == common.GoodbyeLine {
				fmt.Fprintln(a.out, line)
				return
			}
			message, err := channel.Decode(line)
			if err != nil {
				// A corrupt line; skip it rather than kill the chat.
				continue
			}
			fmt.Fprintln(a.out, message)
		}
	}()

	for {
		select {
		case <-done:
			return nil
		default:
		}

		line, err := a.reader.ReadString('\n')
		if err != nil {
			// Local input is gone; leave the chat cleanly.
			line = "/exit"
		}
		text := strings.TrimSpace(line)
		if text == "" && err == nil {
			continue
		}

		token, encErr := channel.Encode(text)
		if encErr != nil {
			return encErr
		}
		if wErr := lc.WriteLine(token); wErr != nil {
			<-done
			return nil
		}

		if text == "/exit" || err != nil {
			<-done
			return nil
		}
	}
}
