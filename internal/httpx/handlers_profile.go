package httpx

import (
	"context"
	"net/http"

	"local.dev/gymmit/internal/guard"
	"local.dev/gymmit/internal/profile"
	"local.dev/gymmit/internal/session"
)

// openEditor replaces any open editor with a fresh one for userID.
func (app *AppCtx) openEditor(ctx context.Context, userID string) *profile.Editor {
	app.leaveEditor(ctx)
	ed := profile.NewEditor(app.baseCtx(), app.Store, userID, app.Debounce, app.Log)
	ed.Enter(ctx)
	app.mu.Lock()
	app.editor = ed
	app.mu.Unlock()
	return ed
}

// editorFor returns the open editor of userID, opening one if needed.
func (app *AppCtx) editorFor(ctx context.Context, userID string) *profile.Editor {
	app.mu.Lock()
	ed := app.editor
	app.mu.Unlock()
	if ed != nil && ed.UserID() == userID {
		return ed
	}
	return app.openEditor(ctx, userID)
}

// leaveEditor closes the open editor, rolling back an unaccepted username.
func (app *AppCtx) leaveEditor(ctx context.Context) {
	app.mu.Lock()
	ed := app.editor
	app.editor = nil
	app.mu.Unlock()
	if ed != nil {
		ed.Leave(ctx)
	}
}

func (app *AppCtx) baseCtx() context.Context {
	if app.BaseCtx != nil {
		return app.BaseCtx
	}
	return context.Background()
}

func profileResponse(st session.State, ed *profile.Editor) profileView {
	return profileView{View: guard.Profile.String(), Session: toSessionView(st), Profile: ed.View()}
}

// GET /profile
func HandleProfile(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, st, ok := app.guarded(w, guard.PathProfile)
		if !ok {
			return
		}
		ed := app.openEditor(r.Context(), st.UserID())
		writeJSON(w, http.StatusOK, profileResponse(st, ed))
	}
}

// PUT /profile/username {username}
// The answer comes before validation; GET /profile/state shows the outcome.
func HandleSetUsername(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, st, ok := app.guarded(w, guard.PathProfile)
		if !ok {
			return
		}
		var in struct {
			Username string `json:"username"`
		}
		if err := decodeJSON(r, &in); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad json"})
			return
		}
		ed := app.editorFor(r.Context(), st.UserID())
		ed.SetUsername(in.Username)
		writeJSON(w, http.StatusAccepted, profileResponse(st, ed))
	}
}

// PUT /profile/bio {bio}
func HandleSetBio(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, st, ok := app.guarded(w, guard.PathProfile)
		if !ok {
			return
		}
		var in struct {
			Bio string `json:"bio"`
		}
		if err := decodeJSON(r, &in); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad json"})
			return
		}
		ed := app.editorFor(r.Context(), st.UserID())
		ed.SetBio(r.Context(), in.Bio)
		writeJSON(w, http.StatusOK, profileResponse(st, ed))
	}
}

// GET /profile/state reads the open editor without re-entering it.
func HandleProfileState(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, st, ok := app.guarded(w, guard.PathProfile)
		if !ok {
			return
		}
		ed := app.editorFor(r.Context(), st.UserID())
		writeJSON(w, http.StatusOK, profileResponse(st, ed))
	}
}

// POST /profile/leave
func HandleLeaveProfile(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := app.guarded(w, guard.PathProfile); !ok {
			return
		}
		app.leaveEditor(r.Context())
		redirect(w, guard.PathHome)
	}
}
