// Package router maintains the server-wide registry of active sessions and
// implements message delivery: broadcasts, direct messages, and the
// presentation-only set of open DM threads.
package router

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/phantomchat/internal/common"
	"github.com/dmitrijs2005/phantomchat/internal/logging"
)

// Handle is the delivery endpoint for one active session. Deliver encrypts
// the message under that session's own key and writes it as one line; the
// router never sees key material.
type Handle interface {
	Deliver(message string) error
}

// Router owns the username→handle table. A single mutex guards both registry
// mutation and delivery, so one message is fully delivered to every current
// recipient before the next delivery begins; without that, concurrent
// broadcasts could interleave at different receivers.
//
// A username is present iff an Active session is bound to it, and at most
// one session per username exists at any time.
type Router struct {
	log logging.Logger

	mu      sync.Mutex
	handles map[string]Handle
	// dms records open direct-message threads. Advisory only: Direct
	// delivers regardless of whether a thread is recorded.
	dms map[string]map[string]struct{}
}

func New(log logging.Logger) *Router {
	return &Router{
		log:     log.With("module", "router"),
		handles: make(map[string]Handle),
		dms:     make(map[string]map[string]struct{}),
	}
}

// Join registers an active session under its username. Fails with
// common.ErrorConflict when the name is already bound; the caller closes the
// newcomer and leaves the existing session untouched.
func (r *Router) Join(ctx context.Context, userName string, h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handles[userName]; exists {
		return common.ErrorConflict
	}
	r.handles[userName] = h
	r.log.Info(ctx, "user joined", "user", userName, "online", len(r.handles))
	return nil
}

// Leave removes the username from the registry and clears its DM threads.
// Idempotent: leaving twice, or without ever joining, is a no-op.
func (r *Router) Leave(ctx context.Context, userName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handles[userName]; !exists {
		return
	}
	r.drop(userName)
	r.log.Info(ctx, "user left", "user", userName, "online", len(r.handles))
}

// Broadcast delivers message to every registered session. A handle that
// fails (peer gone mid-delivery) is logged and dropped from the registry,
// but delivery to the remaining recipients continues.
func (r *Router) Broadcast(ctx context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userName, h := range r.handles {
		if err := h.Deliver(message); err != nil {
			r.log.Warn(ctx, "dropping unreachable session", "user", userName, "error", err)
			r.drop(userName)
		}
	}
}

// Direct delivers message only to toUser. When toUser is not registered it
// returns common.ErrorUserOffline without side effects; on success the DM
// thread between the two users is recorded.
func (r *Router) Direct(ctx context.Context, fromUser, toUser, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handles[toUser]
	if !ok {
		return common.ErrorUserOffline
	}
	if err := h.Deliver(message); err != nil {
		r.log.Warn(ctx, "dropping unreachable session", "user", toUser, "error", err)
		r.drop(toUser)
		return common.ErrorUserOffline
	}

	r.link(fromUser, toUser)
	return nil
}

// CloseDM removes the recorded DM thread between the two users. Reports
// whether such a thread existed.
func (r *Router) CloseDM(userName, otherUser string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.dms[userName]
	if !ok {
		return false
	}
	if _, ok := set[otherUser]; !ok {
		return false
	}
	r.unlink(userName, otherUser)
	return true
}

// ListOnline returns a sorted snapshot of registered usernames. The snapshot
// may be stale by the time it is read.
func (r *Router) ListOnline() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.handles))
	for name := range r.handles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsOnline reports whether a session is currently bound to userName.
func (r *Router) IsOnline(userName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.handles[userName]
	return ok
}

// drop removes a username and its DM threads. Callers hold the mutex.
func (r *Router) drop(userName string) {
	delete(r.handles, userName)
	for other := range r.dms[userName] {
		r.unlink(userName, other)
	}
}

func (r *Router) link(a, b string) {
	if r.dms[a] == nil {
		r.dms[a] = make(map[string]struct{})
	}
	if r.dms[b] == nil {
		r.dms[b] = make(map[string]struct{})
	}
	r.dms[a][b] = struct{}{}
	r.dms[b][a] = struct{}{}
}

func (r *Router) unlink(a, b string) {
	delete(r.dms[a], b)
	delete(r.dms[b], a)
	if len(r.dms[a]) == 0 {
		delete(r.dms, a)
	}
	if len(r.dms[b]) == 0 {
		delete(r.dms, b)
	}
}
