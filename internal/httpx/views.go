package httpx

import (
	"net/http"

	"local.dev/gymmit/internal/guard"
	"local.dev/gymmit/internal/models"
	"local.dev/gymmit/internal/profile"
	"local.dev/gymmit/internal/session"
)

type sessionView struct {
	Status          string `json:"status"`
	UserID          string `json:"userId"`
	IsSignedIn      bool   `json:"isSignedIn"`
	DisplayPhotoURL string `json:"displayPhotoUrl"`
	DisplayName     string `json:"displayName,omitempty"`
	Email           string `json:"email,omitempty"`
}

func toSessionView(st session.State) sessionView {
	v := sessionView{
		Status:          st.Status.String(),
		UserID:          st.UserID(),
		IsSignedIn:      st.SignedIn(),
		DisplayPhotoURL: st.PhotoURL(),
	}
	if st.SignedIn() {
		v.DisplayName = st.Identity.DisplayName
		v.Email = st.Identity.Email
	}
	return v
}

type loginView struct {
	View string `json:"view"`
}

type homeView struct {
	View       string         `json:"view"`
	Session    sessionView    `json:"session"`
	Query      string         `json:"query"`
	Topics     []models.Topic `json:"topics"`
	Message    string         `json:"message,omitempty"`
	LoadFailed bool           `json:"loadFailed"`
}

type profileView struct {
	View    string       `json:"view"`
	Session sessionView  `json:"session"`
	Profile profile.View `json:"profile"`
}

type topicView struct {
	View     string           `json:"view"`
	Session  sessionView      `json:"session"`
	Found    bool             `json:"found"`
	Topic    *models.Topic    `json:"topic,omitempty"`
	Comments []models.Comment `json:"comments"`
	Username string           `json:"username"`
}

// guarded runs the router guard for path. When the view must not render it
// writes the redirect, placeholder or not-found answer and returns false.
func (app *AppCtx) guarded(w http.ResponseWriter, path string) (guard.Decision, session.State, bool) {
	st := app.Session.Snapshot()
	d := guard.ResolvePath(st, path)
	switch {
	case d.Redirect != "":
		redirect(w, d.Redirect)
		return d, st, false
	case d.View == guard.None:
		writeJSON(w, http.StatusAccepted, loginView{View: guard.None.String()})
		return d, st, false
	case d.View == guard.NotFound:
		writeJSON(w, http.StatusNotFound, loginView{View: guard.NotFound.String()})
		return d, st, false
	}
	return d, st, true
}

func (app *AppCtx) homeView(st session.State, q string) homeView {
	return homeView{
		View:       guard.Home.String(),
		Session:    toSessionView(st),
		Query:      q,
		Topics:     app.Topics.Filter(q),
		Message:    app.Topics.Message(),
		LoadFailed: app.Topics.LoadFailed(),
	}
}

func (app *AppCtx) topicView(st session.State) topicView {
	comments := app.Thread.Comments()
	if comments == nil {
		comments = []models.Comment{}
	}
	return topicView{
		View:     guard.TopicThread.String(),
		Session:  toSessionView(st),
		Found:    app.Thread.Found(),
		Topic:    app.Thread.Topic(),
		Comments: comments,
		Username: app.Thread.Username(),
	}
}
