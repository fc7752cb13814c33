// Package session owns the single answer to "who is using this client".
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"local.dev/gymmit/internal/docstore"
	"local.dev/gymmit/internal/identity"
	"local.dev/gymmit/internal/logger"
	"local.dev/gymmit/internal/models"
)

type Status int

const (
	// Unknown until the identity gateway reports for the first time.
	Unknown Status = iota
	SignedOut
	SignedIn
)

func (s Status) String() string {
	switch s {
	case SignedOut:
		return "signed_out"
	case SignedIn:
		return "signed_in"
	}
	return "unknown"
}

type State struct {
	Status   Status
	Identity *identity.Identity // set only when SignedIn
}

func (s State) SignedIn() bool { return s.Status == SignedIn && s.Identity != nil }

func (s State) UserID() string {
	if !s.SignedIn() {
		return ""
	}
	return s.Identity.ID
}

func (s State) PhotoURL() string {
	if !s.SignedIn() {
		return ""
	}
	return s.Identity.PhotoURL
}

type Controller struct {
	gateway identity.Gateway
	store   docstore.Store
	log     *slog.Logger
	now     func() time.Time

	mu          sync.RWMutex
	state       State
	ctx         context.Context
	unsubscribe func()
}

func NewController(gw identity.Gateway, store docstore.Store, log *slog.Logger) *Controller {
	return &Controller{
		gateway: gw,
		store:   store,
		log:     logger.Component(log, "session"),
		now:     time.Now,
		ctx:     context.Background(),
	}
}

// Start subscribes to identity changes. Calling it again is a no-op until Close.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.mu.Unlock()
		return
	}
	c.ctx = ctx
	c.mu.Unlock()

	unsub := c.gateway.Observe(c.handle)

	c.mu.Lock()
	c.unsubscribe = unsub
	c.mu.Unlock()
}

// Close drops the identity subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	unsub := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := c.state
	if st.Identity != nil {
		cp := *st.Identity
		st.Identity = &cp
	}
	return st
}

func (c *Controller) SignIn(ctx context.Context, credential string) (*identity.Identity, error) {
	return c.gateway.SignIn(ctx, credential)
}

func (c *Controller) SignOut(ctx context.Context) error {
	return c.gateway.SignOut(ctx)
}

func (c *Controller) handle(id *identity.Identity) {
	c.mu.Lock()
	if id == nil {
		c.state = State{Status: SignedOut}
		ctx := c.ctx
		c.mu.Unlock()
		c.log.InfoContext(ctx, "signed out")
		return
	}
	c.state = State{Status: SignedIn, Identity: id}
	ctx := c.ctx
	c.mu.Unlock()

	c.log.InfoContext(ctx, "signed in", slog.String("user_id", id.ID))
	c.ensureProfile(ctx, id)
}

// ensureProfile writes the default profile the first time an identity signs
// in. Failures are logged and left for a later write path to repair.
func (c *Controller) ensureProfile(ctx context.Context, id *identity.Identity) {
	_, err := c.store.Get(ctx, models.UsersCollection, id.ID)
	if err == nil {
		c.log.DebugContext(ctx, "user already exists", slog.String("user_id", id.ID))
		return
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		c.log.ErrorContext(ctx, "fetch user profile failed", slog.String("user_id", id.ID), slog.Any("error", err))
		return
	}

	p := models.NewProfile(id.ID, id.DisplayName, c.now())
	err = c.store.Create(ctx, models.UsersCollection, id.ID, p.Fields())
	switch {
	case errors.Is(err, docstore.ErrAlreadyExists):
		// another sign-in of the same identity got there first
		c.log.InfoContext(ctx, "user provisioned concurrently", slog.String("user_id", id.ID))
	case err != nil:
		c.log.ErrorContext(ctx, "create user profile failed", slog.String("user_id", id.ID), slog.Any("error", err))
	default:
		c.log.InfoContext(ctx, "new user added", slog.String("user_id", id.ID))
	}
}
