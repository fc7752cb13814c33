package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"local.dev/gymmit/internal/guard"
)

// GET /topic/{id}
// A missing topic still renders, with found=false.
func HandleTopic(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		_, st, ok := app.guarded(w, guard.TopicPath(id))
		if !ok {
			return
		}
		app.leaveEditor(r.Context())
		app.Thread.Enter(r.Context(), id, st.UserID())
		writeJSON(w, http.StatusOK, app.topicView(st))
	}
}

// POST /topic/{id}/comments {text}
func HandleAddComment(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		_, st, ok := app.guarded(w, guard.TopicPath(id))
		if !ok {
			return
		}
		var in struct {
			Text string `json:"text"`
		}
		if err := decodeJSON(r, &in); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad json"})
			return
		}
		// The author tag belongs to whoever entered the thread.
		if app.Thread.TopicID() != id || app.Thread.UserID() != st.UserID() {
			app.Thread.Enter(r.Context(), id, st.UserID())
		}
		status := http.StatusOK
		if c := app.Thread.AddComment(r.Context(), in.Text); c != nil {
			status = http.StatusCreated
		}
		writeJSON(w, status, app.topicView(st))
	}
}
