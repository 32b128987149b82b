// Package session implements the per-connection protocol state machine:
// credential authentication, the Diffie-Hellman handshake, and the encrypted
// message-relay loop. One session runs on one goroutine for the lifetime of
// its connection and never touches another session's state; everything
// shared goes through the credential service or the router.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/phantomchat/internal/common"
	"github.com/dmitrijs2005/phantomchat/internal/cryptox"
	"github.com/dmitrijs2005/phantomchat/internal/logging"
	"github.com/dmitrijs2005/phantomchat/internal/netx"
	"github.com/dmitrijs2005/phantomchat/internal/server/router"
	"github.com/dmitrijs2005/phantomchat/internal/server/users"
)

// State of the session lifecycle. Transitions only move forward; Closed is
// terminal and reached from any state on I/O error, handshake failure, or
// explicit exit.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateKeyExchange
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateKeyExchange:
		return "key_exchange"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// handshakeTimeout bounds the single synchronous round-trip of the key
// exchange, so a peer that connects and then stalls cannot pin a goroutine
// forever.
const handshakeTimeout = 30 * time.Second

// Options tune per-session behavior; the zero value of ReadTimeout disables
// idle expiry.
type Options struct {
	MaxAuthAttempts int
	ReadTimeout     time.Duration
}

// Session is the server-side state for one connected client. It is owned
// exclusively by its serving goroutine; the router references it only
// through the Deliver method.
type Session struct {
	id     string
	conn   *netx.LineConn
	users  *users.Service
	router *router.Router
	log    logging.Logger

	maxAuthAttempts int
	readTimeout     time.Duration

	state    State
	userName string
	channel  *cryptox.Channel
	joined   bool
}

func New(conn net.Conn, usersSvc *users.Service, rt *router.Router, log logging.Logger, opts Options) *Session {
	if opts.MaxAuthAttempts <= 0 {
		opts.MaxAuthAttempts = 3
	}
	id := uuid.NewString()
	return &Session{
		id:              id,
		conn:            netx.NewLineConn(conn),
		users:           usersSvc,
		router:          rt,
		log:             log.With("module", "session", "session", id),
		maxAuthAttempts: opts.MaxAuthAttempts,
		readTimeout:     opts.ReadTimeout,
		state:           StateConnecting,
	}
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// UserName returns the bound username, empty until authentication succeeds.
func (s *Session) UserName() string {
	return s.userName
}

// Run drives the session from accept to close. It always leaves the
// registry consistent: the deferred cleanup deregisters unconditionally,
// whatever state the session died in.
func (s *Session) Run(ctx context.Context) {
	defer s.close(ctx)

	// Server shutdown closes the connection, which unblocks any pending
	// read and lets the session fall through its normal cleanup path.
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	s.log.Info(ctx, "session started", "remote", s.conn.RemoteAddr().String())

	s.state = StateAuthenticating
	userName, err := s.authenticate(ctx)
	if err != nil {
		s.log.Info(ctx, "authentication did not complete", "error", err)
		return
	}
	s.userName = userName
	s.log = s.log.With("user", userName)

	s.state = StateKeyExchange
	channel, err := s.handshake()
	if err != nil {
		s.log.Warn(ctx, "handshake failed", "error", err)
		return
	}
	s.channel = channel

	s.state = StateActive
	if err := s.router.Join(ctx, userName, s); err != nil {
		// Lost the race against another login for the same name; the
		// established session stays untouched.
		_ = s.Deliver("User " + userName + " is already logged in.")
		s.log.Info(ctx, "join conflict", "error", err)
		return
	}
	s.joined = true
	s.router.Broadcast(ctx, userName+" has joined the chat.")

	s.loop(ctx)
}

// Deliver implements router.Handle: encrypt under this session's key and
// write as one line. Called with the router mutex held, so deliveries never
// interleave with registry mutation.
func (s *Session) Deliver(message string) error {
	token, err := s.channel.Encode(message)
	if err != nil {
		return err
	}
	return s.conn.WriteLine(token)
}

// authenticate runs the menu loop until a login succeeds, the failure budget
// is exhausted, or the connection dies. Successful registration does not
// consume an attempt; the user is expected to log in next.
func (s *Session) authenticate(ctx context.Context) (string, error) {
	attempts := 0
	for attempts < s.maxAuthAttempts {
		if err := s.conn.WriteLine("1. Login / 2. Register"); err != nil {
			return "", err
		}
		choice, err := s.prompt("Choose:")
		if err != nil {
			return "", err
		}

		switch choice {
		case "1":
			userName, err := s.login(ctx)
			if err == nil {
				return userName, nil
			}
			if !isAuthFailure(err) {
				return "", err
			}
			attempts++
			s.reject(loginFailureNotice(userName, err), s.maxAuthAttempts-attempts)

		case "2":
			err := s.register(ctx)
			if err == nil {
				continue
			}
			if !isAuthFailure(err) {
				return "", err
			}
			attempts++
			s.reject(registerFailureNotice(err), s.maxAuthAttempts-attempts)

		default:
			attempts++
			s.reject("Invalid choice.", s.maxAuthAttempts-attempts)
		}
	}

	_ = s.conn.WriteLine("Too many failed attempts. Disconnecting...")
	return "", common.ErrorUnauthorized
}

func (s *Session) login(ctx context.Context) (string, error) {
	userName, err := s.prompt("Enter your username:")
	if err != nil {
		return "", err
	}
	password, err := s.prompt("Enter your password:")
	if err != nil {
		return "", err
	}

	if err := s.users.Authenticate(ctx, userName, password); err != nil {
		return userName, err
	}
	// Login is exclusive. The authoritative check is Join after the
	// handshake; this one just gives the honest majority of duplicates a
	// readable answer before any key exchange work.
	if s.router.IsOnline(userName) {
		return userName, common.ErrorConflict
	}
	return userName, nil
}

func (s *Session) register(ctx context.Context) error {
	userName, err := s.prompt("Enter your desired username:")
	if err != nil {
		return err
	}
	password, err := s.prompt("Enter your password:")
	if err != nil {
		return err
	}

	if err := s.users.Register(ctx, userName, password); err != nil {
		return err
	}
	return s.conn.WriteLine("Registration successful. You can now log in.")
}

// handshake runs the server side of the key exchange: send our public
// value, read the peer's, derive the session key. Any failure here is fatal
// to the session.
func (s *Session) handshake() (*cryptox.Channel, error) {
	exchange := cryptox.NewExchange()
	private, publicHex, err := exchange.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorHandshake, err)
	}

	if err := s.conn.WriteLine(common.HandshakePrefix + publicHex); err != nil {
		return nil, err
	}

	_ = s.conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	peerHex, err := s.conn.ReadLine()
	_ = s.conn.SetReadDeadline(time.Time{})
	if err != nil {
		return nil, err
	}

	key, err := exchange.Complete(peerHex, private)
	if err != nil {
		return nil, err
	}

	channel, err := cryptox.NewChannel(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorHandshake, err)
	}

	if err := s.conn.WriteLine(common.HandshakeConfirmation); err != nil {
		channel.Close()
		return nil, err
	}
	return channel, nil
}

// loop relays decoded lines until exit or connection loss. Undecodable
// tokens are dropped without feedback about their content; the session
// itself survives them.
func (s *Session) loop(ctx context.Context) {
	for {
		line, err := s.readLine()
		if err != nil {
			s.log.Info(ctx, "connection closed", "error", err)
			return
		}

		plaintext, err := s.channel.Decode(line)
		if err != nil {
			s.log.Warn(ctx, "dropping undecodable message", "error", err)
			continue
		}

		cmd := ParseCommand(plaintext)
		switch cmd.Kind {
		case CommandExit:
			_ = s.conn.WriteLine(common.GoodbyeLine)
			return

		case CommandListUsers:
			s.notify("Online: " + strings.Join(s.router.ListOnline(), ", "))

		case CommandDirect:
			err := s.router.Direct(ctx, s.userName, cmd.Target, "[DM from "+s.userName+"]: "+cmd.Text)
			if errors.Is(err, common.ErrorUserOffline) {
				s.notify("User " + cmd.Target + " is not online.")
			}

		case CommandCloseDM:
			if s.router.CloseDM(s.userName, cmd.Target) {
				s.notify("Closed DM with " + cmd.Target)
			} else {
				s.notify("No active DM session with " + cmd.Target)
			}

		case CommandInvalid:
			s.notify(cmd.Usage)

		default:
			s.router.Broadcast(ctx, s.userName+": "+cmd.Text)
		}
	}
}

// close is the single cleanup path for every way a session can end.
// Deregistration is unconditional so the registry never keeps a dangling
// username, even after an abnormal termination mid-handshake.
func (s *Session) close(ctx context.Context) {
	if s.state == StateClosed {
		return
	}
	s.state = StateClosed

	if s.joined {
		s.router.Leave(ctx, s.userName)
		s.router.Broadcast(ctx, s.userName+" has left the chat.")
	}
	if s.channel != nil {
		s.channel.Close()
	}
	_ = s.conn.Close()
	s.log.Info(ctx, "session closed")
}

// notify sends a status line to this session only. A write failure here
// means the connection is gone; the read loop will notice on its next
// iteration.
func (s *Session) notify(message string) {
	_ = s.Deliver(message)
}

func (s *Session) prompt(text string) (string, error) {
	if err := s.conn.WriteLine(text); err != nil {
		return "", err
	}
	line, err := s.readLine()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (s *Session) readLine() (string, error) {
	if s.readTimeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}
	return s.conn.ReadLine()
}

// reject reports an authentication failure with the remaining budget.
func (s *Session) reject(reason string, attemptsLeft int) {
	if attemptsLeft > 0 {
		_ = s.conn.WriteLine(fmt.Sprintf("%s (%d attempts left)", reason, attemptsLeft))
	}
}

// isAuthFailure separates recoverable authentication errors, which consume
// an attempt, from I/O errors, which end the session.
func isAuthFailure(err error) bool {
	return errors.Is(err, common.ErrorUnauthorized) ||
		errors.Is(err, common.ErrorConflict) ||
		errors.Is(err, common.ErrorAlreadyExists) ||
		errors.Is(err, common.ErrorInvalidFormat) ||
		errors.Is(err, common.ErrorInternal)
}

func loginFailureNotice(userName string, err error) string {
	if errors.Is(err, common.ErrorConflict) {
		return "User " + userName + " is already logged in."
	}
	if errors.Is(err, common.ErrorInternal) {
		return "Server error. Try again."
	}
	return "Invalid username or password."
}

func registerFailureNotice(err error) string {
	switch {
	case errors.Is(err, common.ErrorAlreadyExists):
		return "Username is already taken. Try another one."
	case errors.Is(err, common.ErrorInvalidFormat):
		return capitalize(strings.TrimPrefix(err.Error(), common.ErrorInvalidFormat.Error()+": "))
	default:
		return "Registration failed. Try again."
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
