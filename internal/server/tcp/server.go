// Package tcp accepts client connections and hands each one to its own
// session goroutine.
package tcp

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/dmitrijs2005/phantomchat/internal/logging"
	"github.com/dmitrijs2005/phantomchat/internal/server/router"
	"github.com/dmitrijs2005/phantomchat/internal/server/session"
	"github.com/dmitrijs2005/phantomchat/internal/server/users"
)

type Server struct {
	address string
	users   *users.Service
	router  *router.Router
	logger  logging.Logger
	opts    session.Options

	mu       sync.Mutex
	listener net.Listener
}

func NewServer(a string, l logging.Logger, us *users.Service, rt *router.Router, opts session.Options) *Server {
	return &Server{
		address: a,
		logger:  l.With("module", "tcp_server"),
		users:   us,
		router:  rt,
		opts:    opts,
	}
}

// Addr returns the bound address, valid once Run has announced it.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run accepts connections until ctx is canceled, then closes the listener
// and waits for every session goroutine to finish its cleanup.
func (s *Server) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = listen
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping TCP server...")
		_ = listen.Close()
	}()

	s.logger.Info(ctx, "Starting TCP server", "address", listen.Addr().String())

	var wg sync.WaitGroup
	for {
		conn, err := listen.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			// Transient accept errors (fd exhaustion and the like); back
			// off briefly and keep serving.
			s.logger.Warn(ctx, "accept failed", "error", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			session.New(conn, s.users, s.router, s.logger, s.opts).Run(ctx)
		}()
	}

	wg.Wait()
	return nil
}
