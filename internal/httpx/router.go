package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter wires the view surface.
func NewRouter(app *AppCtx) http.Handler {
	r := chi.NewRouter()
	r.Use(Recover(app.Log), RequestLog(app.Log, app.Session), CORS(app.Origin))

	r.Get("/healthz", HandleHealth())
	if app.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", app.Metrics)
	}

	r.Get("/", HandleLoginView(app))
	r.Post("/login", HandleLogin(app))
	r.Post("/logout", HandleLogout(app))
	r.Get("/session", HandleSession(app))

	r.Get("/home", HandleHome(app))
	r.Post("/home/topics", HandleAddTopic(app))

	r.Route("/profile", func(r chi.Router) {
		r.Get("/", HandleProfile(app))
		r.Get("/state", HandleProfileState(app))
		r.Put("/username", HandleSetUsername(app))
		r.Put("/bio", HandleSetBio(app))
		r.Post("/leave", HandleLeaveProfile(app))
	})

	r.Get("/topic/{id}", HandleTopic(app))
	r.Post("/topic/{id}/comments", HandleAddComment(app))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		if _, _, ok := app.guarded(w, req.URL.Path); ok {
			writeJSON(w, http.StatusNotFound, loginView{View: "not_found"})
		}
	})
	return r
}
