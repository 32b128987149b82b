// Package netx implements the newline-delimited line transport both ends of
// the chat protocol speak: UTF-8 text lines over a byte stream, one protocol
// unit per line.
package netx

import (
	"bufio"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// MaxLineLen bounds a single protocol line. Handshake public values are
// ~512 hex chars; chat tokens grow with message size, so the cap is generous
// but finite to keep a misbehaving peer from ballooning memory.
const MaxLineLen = 64 * 1024

// LineConn wraps a net.Conn with line-oriented reads and writes.
//
// Reads must stay on a single goroutine (the session loop). Writes are
// serialized internally: the router delivers into a session from other
// goroutines while the session writes its own replies.
type LineConn struct {
	conn    net.Conn
	scanner *bufio.Scanner

	wmu sync.Mutex
}

func NewLineConn(conn net.Conn) *LineConn {
	s := bufio.NewScanner(conn)
	s.Buffer(make([]byte, 0, 4096), MaxLineLen)
	return &LineConn{conn: conn, scanner: s}
}

// ReadLine blocks until one full line arrives and returns it without the
// trailing newline. A closed or reset connection surfaces as io.EOF or the
// underlying network error.
func (c *LineConn) ReadLine() (string, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimRight(c.scanner.Text(), "\r"), nil
}

// WriteLine writes one line, appending the newline delimiter.
func (c *LineConn) WriteLine(line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := io.WriteString(c.conn, line+"\n")
	return err
}

// SetReadDeadline applies a deadline to subsequent reads. The zero time
// disables the deadline.
func (c *LineConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *LineConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *LineConn) Close() error {
	return c.conn.Close()
}
