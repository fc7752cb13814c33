package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"local.dev/gymmit/internal/guard"
	"local.dev/gymmit/internal/identity"
)

// GET /
func HandleLoginView(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := app.guarded(w, guard.PathLogin); !ok {
			return
		}
		writeJSON(w, http.StatusOK, loginView{View: guard.Login.String()})
	}
}

// POST /login. Signing in as someone else switches the account.
func HandleLogin(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cred := credential(r)
		if cred == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing credential"})
			return
		}
		prev := app.Session.Snapshot().UserID()
		id, err := app.Session.SignIn(r.Context(), cred)
		if err != nil {
			if !errors.Is(err, identity.ErrInvalidCredential) {
				app.Log.ErrorContext(r.Context(), "sign in failed", slog.Any("error", err))
			}
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid credential"})
			return
		}
		if prev != id.ID {
			app.leaveEditor(r.Context())
			app.Thread.Reset()
		}
		redirect(w, guard.PathHome)
	}
}

// POST /logout
func HandleLogout(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app.leaveEditor(r.Context())
		app.Thread.Reset()
		if err := app.Session.SignOut(r.Context()); err != nil {
			app.Log.ErrorContext(r.Context(), "sign out failed", slog.Any("error", err))
		}
		redirect(w, guard.PathLogin)
	}
}

// GET /session
func HandleSession(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, toSessionView(app.Session.Snapshot()))
	}
}

func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
