package auth

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Target is any capability object reachable by targetId on a connection:
// an *auth.RootAccess, an *session.AuthorAccess, or a *session.Session
// (§4.5).
// The apiserver package is the only caller that needs to type-switch on
// concrete target kinds when dispatching a method call.
type Target interface{}

// Context is a live targetId -> Target map (§4.5), shared by every
// connection in its scope. A single process-lifetime Context serves all
// PostConnection/WsConnection traffic against the api surface.
type Context struct {
	mu      sync.RWMutex
	targets map[string]Target
}

// NewContext builds an empty Context.
func NewContext() *Context {
	return &Context{targets: make(map[string]Target)}
}

// Attach registers target under a freshly minted targetId and returns it.
func (c *Context) Attach(target Target) string {
	id := uuid.NewString()
	c.mu.Lock()
	c.targets[id] = target
	c.mu.Unlock()
	return id
}

// Lookup resolves targetId to its live Target.
func (c *Context) Lookup(targetId string) (Target, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.targets[targetId]
	return t, ok
}

// Detach removes targetId from the context (e.g. on session_end).
func (c *Context) Detach(targetId string) {
	c.mu.Lock()
	delete(c.targets, targetId)
	c.mu.Unlock()
}

// ErrUnknownTarget describes a targetId that no longer resolves. The
// apiserver dispatcher does not return it; it reports an unknown
// targetId as a badId wire error instead.
type ErrUnknownTarget struct {
	TargetId string
}

func (e *ErrUnknownTarget) Error() string {
	return fmt.Sprintf("unknown target %q", e.TargetId)
}
