package httpx

import (
	"errors"
	"net/http"

	"local.dev/gymmit/internal/guard"
	"local.dev/gymmit/internal/topics"
)

// GET /home?q=
// Every visit reloads the topic list; q filters it locally.
func HandleHome(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, st, ok := app.guarded(w, guard.PathHome)
		if !ok {
			return
		}
		app.leaveEditor(r.Context())
		app.Topics.Load(r.Context())
		writeJSON(w, http.StatusOK, app.homeView(st, r.URL.Query().Get("q")))
	}
}

// POST /home/topics {title}
func HandleAddTopic(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, st, ok := app.guarded(w, guard.PathHome)
		if !ok {
			return
		}
		var in struct {
			Title string `json:"title"`
		}
		if err := decodeJSON(r, &in); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad json"})
			return
		}
		t, err := app.Topics.Add(r.Context(), in.Title)
		switch {
		case errors.Is(err, topics.ErrTopicExists):
			writeJSON(w, http.StatusConflict, app.homeView(st, ""))
		case t != nil:
			writeJSON(w, http.StatusCreated, app.homeView(st, ""))
		default:
			writeJSON(w, http.StatusOK, app.homeView(st, ""))
		}
	}
}
