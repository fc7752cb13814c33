// Package profile implements the profile view: username editing with
// debounced uniqueness checks, and bio editing.
package profile

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"local.dev/gymmit/internal/docstore"
	"local.dev/gymmit/internal/logger"
	"local.dev/gymmit/internal/models"
)

const DefaultDebounce = 500 * time.Millisecond

const (
	MsgUsernameTaken = "Username is already taken. Please choose another one."
	MsgUsernameEmpty = "Username cannot be empty."
	MsgCheckFailed   = "Could not check the username. Keep typing to retry."
)

type Status int

const (
	Valid Status = iota
	Validating
	Invalid
)

func (s Status) String() string {
	switch s {
	case Validating:
		return "validating"
	case Invalid:
		return "invalid"
	}
	return "valid"
}

// View is a point-in-time copy of the editor state.
type View struct {
	UserID            string `json:"userId"`
	Username          string `json:"username"`
	LastValidUsername string `json:"lastValidUsername"`
	Bio               string `json:"bio"`
	Status            string `json:"status"`
	Message           string `json:"message,omitempty"`
}

// Editor edits one user's profile.
//
// Every username keystroke bumps a generation number and reschedules the
// validation pass. A pass only applies its result, and only writes, while its
// generation is still the latest; writes are serialized by writeMu so an older
// pass can never land after a newer one.
type Editor struct {
	store  docstore.Store
	log    *slog.Logger
	userID string
	delay  time.Duration
	base   context.Context

	mu        sync.Mutex
	username  string
	lastValid string
	bio       string
	status    Status
	message   string
	gen       uint64
	timer     *time.Timer
	pending   sync.WaitGroup

	writeMu sync.Mutex
}

// NewEditor binds an editor to userID. Validation passes run on ctx, which
// should outlive single requests. A non-positive delay means DefaultDebounce.
func NewEditor(ctx context.Context, store docstore.Store, userID string, delay time.Duration, log *slog.Logger) *Editor {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Editor{
		store:  store,
		log:    logger.Component(log, "profile").With(slog.String("user_id", userID)),
		userID: userID,
		delay:  delay,
		base:   ctx,
	}
}

func (e *Editor) UserID() string { return e.userID }

// Enter loads the stored profile into the editor.
func (e *Editor) Enter(ctx context.Context) {
	doc, err := e.store.Get(ctx, models.UsersCollection, e.userID)
	if err != nil {
		e.log.ErrorContext(ctx, "fetch user data failed", slog.Any("error", err))
		return
	}
	p := models.ProfileFromDoc(*doc)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.username = p.Username
	e.lastValid = p.Username
	e.bio = p.Bio
	e.status = Valid
	e.message = ""
}

// SetUsername records a keystroke. Whitespace is stripped and the local text
// changes at once; validation runs after the debounce delay.
func (e *Editor) SetUsername(text string) string {
	candidate := stripSpace(text)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.username = candidate
	e.gen++
	g := e.gen
	e.cancelPendingLocked()
	e.pending.Add(1)
	e.timer = time.AfterFunc(e.delay, func() {
		defer e.pending.Done()
		e.validate(g, candidate)
	})
	return candidate
}

// cancelPendingLocked stops a scheduled pass that has not started yet.
func (e *Editor) cancelPendingLocked() {
	if e.timer != nil && e.timer.Stop() {
		e.pending.Done()
	}
	e.timer = nil
}

func (e *Editor) current(g uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return g == e.gen
}

func (e *Editor) validate(g uint64, candidate string) {
	ctx := e.base

	e.mu.Lock()
	if g != e.gen {
		e.mu.Unlock()
		return
	}
	e.status = Validating
	e.mu.Unlock()

	ok, msg := e.check(ctx, candidate)

	e.mu.Lock()
	if g != e.gen {
		e.mu.Unlock()
		e.log.DebugContext(ctx, "discarding stale validation", slog.String("candidate", candidate))
		return
	}
	if !ok {
		e.status = Invalid
		e.message = msg
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	stored := strings.ToLower(candidate)
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if !e.current(g) {
		return
	}
	err := e.store.Update(ctx, models.UsersCollection, e.userID, docstore.Fields{"username": stored})
	if err != nil {
		e.log.ErrorContext(ctx, "update username failed", slog.Any("error", err))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		e.lastValid = stored
	}
	if g == e.gen {
		e.status = Valid
		e.message = ""
	}
}

// check reports whether candidate is free for this user. The lookup and the
// later write are not atomic: two users can claim the same name at once.
func (e *Editor) check(ctx context.Context, candidate string) (bool, string) {
	if candidate == "" {
		return false, MsgUsernameEmpty
	}
	docs, err := e.store.QueryEquals(ctx, models.UsersCollection, "username", strings.ToLower(candidate))
	if err != nil {
		e.log.ErrorContext(ctx, "username lookup failed", slog.Any("error", err))
		return false, MsgCheckFailed
	}
	for _, d := range docs {
		if d.ID != e.userID {
			return false, MsgUsernameTaken
		}
	}
	return true, ""
}

// SetBio stores the bio right away, without debounce or validation.
func (e *Editor) SetBio(ctx context.Context, bio string) {
	e.mu.Lock()
	e.bio = bio
	e.mu.Unlock()

	if err := e.store.Update(ctx, models.UsersCollection, e.userID, docstore.Fields{"bio": bio}); err != nil {
		e.log.ErrorContext(ctx, "update bio failed", slog.Any("error", err))
	}
}

// Leave closes the editor. Pending and in-flight passes are abandoned; if the
// visible username was not accepted it reverts to the last valid one, which is
// written back to the store.
func (e *Editor) Leave(ctx context.Context) {
	e.mu.Lock()
	e.cancelPendingLocked()
	e.gen++
	dirty := e.status != Valid || !strings.EqualFold(e.username, e.lastValid)
	if dirty {
		e.username = e.lastValid
		e.status = Valid
		e.message = ""
	}
	revert := e.lastValid
	e.mu.Unlock()

	if !dirty {
		return
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if err := e.store.Update(ctx, models.UsersCollection, e.userID, docstore.Fields{"username": revert}); err != nil {
		e.log.ErrorContext(ctx, "revert username failed", slog.Any("error", err))
	}
}

// Wait blocks until no validation pass is scheduled or running.
func (e *Editor) Wait() { e.pending.Wait() }

func (e *Editor) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return View{
		UserID:            e.userID,
		Username:          e.username,
		LastValidUsername: e.lastValid,
		Bio:               e.bio,
		Status:            e.status.String(),
		Message:           e.message,
	}
}

func (e *Editor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
