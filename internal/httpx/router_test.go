package httpx

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"local.dev/gymmit/internal/docstore"
	"local.dev/gymmit/internal/docstore/docstoretest"
	"local.dev/gymmit/internal/identity"
	"local.dev/gymmit/internal/logger"
	"local.dev/gymmit/internal/metrics"
	"local.dev/gymmit/internal/models"
	"local.dev/gymmit/internal/session"
	"local.dev/gymmit/internal/thread"
	"local.dev/gymmit/internal/topics"
)

type testEnv struct {
	app    *AppCtx
	store  *docstoretest.Store
	sess   *session.Controller
	router http.Handler
}

func newTestEnv(t *testing.T, start bool) *testEnv {
	t.Helper()
	log := logger.Setup(io.Discard)
	store := docstoretest.New()
	sess := session.NewController(identity.NewDev(), store, log)
	if start {
		sess.Start(context.Background())
		t.Cleanup(sess.Close)
	}
	reg := prometheus.NewRegistry()
	col := metrics.NewCollector(reg)
	app := &AppCtx{
		Session:  sess,
		Store:    docstore.Instrument(store, col),
		Topics:   topics.NewManager(store, log),
		Thread:   thread.NewManager(store, log),
		Log:      log,
		Metrics:  metrics.Handler(reg),
		Debounce: 10 * time.Millisecond,
		Origin:   "*",
	}
	return &testEnv{app: app, store: store, sess: sess, router: NewRouter(app)}
}

func (e *testEnv) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, id string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/login", "", "Authorization", "Debug "+id)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login: status = %d, body = %s", rec.Code, rec.Body)
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body, err)
	}
	return v
}

func wantRedirect(t *testing.T, rec *httptest.ResponseRecorder, to string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303 (body %s)", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("Location"); got != to {
		t.Errorf("Location = %q, want %q", got, to)
	}
}

func TestUnknownSessionRendersNothing(t *testing.T) {
	env := newTestEnv(t, false)

	for _, path := range []string{"/", "/home", "/profile", "/topic/t1"} {
		rec := env.do(t, http.MethodGet, path, "")
		if rec.Code != http.StatusAccepted {
			t.Errorf("GET %s: status = %d, want 202", path, rec.Code)
		}
		if v := decode[loginView](t, rec); v.View != "none" {
			t.Errorf("GET %s: view = %q, want none", path, v.View)
		}
	}
}

func TestSignedOutRedirectsToLogin(t *testing.T) {
	env := newTestEnv(t, true)

	for _, path := range []string{"/home", "/profile", "/topic/t1"} {
		wantRedirect(t, env.do(t, http.MethodGet, path, ""), "/")
	}
	rec := env.do(t, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || decode[loginView](t, rec).View != "login" {
		t.Errorf("GET /: status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestLoginProvisionsAndRedirects(t *testing.T) {
	env := newTestEnv(t, true)

	env.login(t, "u1")

	wantRedirect(t, env.do(t, http.MethodGet, "/", ""), "/home")
	sv := decode[sessionView](t, env.do(t, http.MethodGet, "/session", ""))
	if !sv.IsSignedIn || sv.UserID != "u1" || sv.Status != "signed_in" {
		t.Errorf("session = %+v", sv)
	}
	if _, err := env.store.Memory.Get(context.Background(), models.UsersCollection, "u1"); err != nil {
		t.Errorf("profile not provisioned: %v", err)
	}
}

func TestLoginRejectsBadCredential(t *testing.T) {
	env := newTestEnv(t, true)

	if rec := env.do(t, http.MethodPost, "/login", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no header: status = %d, want 401", rec.Code)
	}
	rec := env.do(t, http.MethodPost, "/login", "", "Authorization", "Bearer not-a-jwt")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, true)
	env.login(t, "u1")

	wantRedirect(t, env.do(t, http.MethodPost, "/logout", ""), "/")
	wantRedirect(t, env.do(t, http.MethodGet, "/home", ""), "/")
}

func TestHomeTopics(t *testing.T) {
	env := newTestEnv(t, true)
	env.login(t, "u1")

	rec := env.do(t, http.MethodPost, "/home/topics", `{"title":"  LegDay "}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: status = %d, body = %s", rec.Code, rec.Body)
	}
	rec = env.do(t, http.MethodPost, "/home/topics", `{"title":"LegDay"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: status = %d, want 409", rec.Code)
	}
	hv := decode[homeView](t, rec)
	if hv.Message != topics.MsgTopicExists || len(hv.Topics) != 1 {
		t.Errorf("duplicate view = %+v", hv)
	}
	env.do(t, http.MethodPost, "/home/topics", `{"title":"Cardio"}`)

	hv = decode[homeView](t, env.do(t, http.MethodGet, "/home?q=leg", ""))
	if len(hv.Topics) != 1 || hv.Topics[0].Title != "LegDay" {
		t.Errorf("filtered topics = %+v", hv.Topics)
	}
	if hv.LoadFailed {
		t.Error("LoadFailed = true")
	}
}

func TestHomeLoadFailureIsReported(t *testing.T) {
	env := newTestEnv(t, true)
	env.login(t, "u1")
	env.store.FailOn("all", io.ErrUnexpectedEOF)

	rec := env.do(t, http.MethodGet, "/home", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !decode[homeView](t, rec).LoadFailed {
		t.Error("LoadFailed = false after a failed load")
	}
}

func TestProfileUsernameFlow(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	_ = env.store.Memory.Set(ctx, models.UsersCollection, "u2", docstore.Fields{"username": "bob"})
	env.login(t, "u1")

	pv := decode[profileView](t, env.do(t, http.MethodGet, "/profile", ""))
	if pv.View != "profile" || pv.Profile.UserID != "u1" {
		t.Fatalf("profile view = %+v", pv)
	}

	rec := env.do(t, http.MethodPut, "/profile/username", `{"username":"Bob"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("set username: status = %d", rec.Code)
	}
	env.app.editorFor(ctx, "u1").Wait()
	pv = decode[profileView](t, env.do(t, http.MethodGet, "/profile/state", ""))
	if pv.Profile.Status != "invalid" {
		t.Errorf("status = %q, want invalid", pv.Profile.Status)
	}

	wantRedirect(t, env.do(t, http.MethodPost, "/profile/leave", ""), "/home")
	doc, err := env.store.Memory.Get(ctx, models.UsersCollection, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.String("username"); got != "" {
		t.Errorf("stored username = %q, want empty after rollback", got)
	}

	env.do(t, http.MethodGet, "/profile", "")
	env.do(t, http.MethodPut, "/profile/username", `{"username":"Al"}`)
	env.app.editorFor(ctx, "u1").Wait()
	doc, _ = env.store.Memory.Get(ctx, models.UsersCollection, "u1")
	if got := doc.String("username"); got != "al" {
		t.Errorf("stored username = %q, want al", got)
	}
}

func TestProfileBio(t *testing.T) {
	env := newTestEnv(t, true)
	env.login(t, "u1")

	rec := env.do(t, http.MethodPut, "/profile/bio", `{"bio":"deadlifts"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	doc, _ := env.store.Memory.Get(context.Background(), models.UsersCollection, "u1")
	if got := doc.String("bio"); got != "deadlifts" {
		t.Errorf("stored bio = %q", got)
	}
}

func TestTopicThread(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	_ = env.store.Memory.Set(ctx, models.TopicsCollection, "t1", docstore.Fields{"title": "LegDay"})
	env.login(t, "u1")
	_ = env.store.Memory.Update(ctx, models.UsersCollection, "u1", docstore.Fields{"username": "al"})

	tv := decode[topicView](t, env.do(t, http.MethodGet, "/topic/t1", ""))
	if !tv.Found || tv.Username != "al" || len(tv.Comments) != 0 {
		t.Fatalf("topic view = %+v", tv)
	}

	rec := env.do(t, http.MethodPost, "/topic/t1/comments", `{"text":"nice"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("comment: status = %d", rec.Code)
	}
	tv = decode[topicView](t, rec)
	if len(tv.Comments) != 1 || tv.Comments[0].Username != "al" {
		t.Errorf("comments = %+v", tv.Comments)
	}

	rec = env.do(t, http.MethodPost, "/topic/t1/comments", `{"text":"   "}`)
	if rec.Code != http.StatusOK || len(decode[topicView](t, rec).Comments) != 1 {
		t.Errorf("blank comment: status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestMissingTopicRendersEmpty(t *testing.T) {
	env := newTestEnv(t, true)
	env.login(t, "u1")

	rec := env.do(t, http.MethodGet, "/topic/nope", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if decode[topicView](t, rec).Found {
		t.Error("Found = true for a missing topic")
	}
}

func TestUnknownPathIsNotFound(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodOptions, "/home/topics", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, true)
	env.login(t, "u1")
	env.do(t, http.MethodGet, "/profile", "")

	if rec := env.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
	rec := env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "gymmit_store_calls_total") {
		t.Error("store metrics missing from /metrics")
	}
}

func TestRecoverReturns500(t *testing.T) {
	h := Recover(logger.Setup(io.Discard))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestCommentTaggedWithCurrentUserAfterSwitch(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	_ = env.store.Memory.Set(ctx, models.TopicsCollection, "t1", docstore.Fields{"title": "LegDay"})
	_ = env.store.Memory.Set(ctx, models.UsersCollection, "alice", docstore.Fields{"username": "alice"})
	_ = env.store.Memory.Set(ctx, models.UsersCollection, "bob", docstore.Fields{"username": "bob"})

	env.login(t, "alice")
	if tv := decode[topicView](t, env.do(t, http.MethodGet, "/topic/t1", "")); tv.Username != "alice" {
		t.Fatalf("username = %q, want alice", tv.Username)
	}
	env.do(t, http.MethodPost, "/logout", "")
	env.login(t, "bob")

	rec := env.do(t, http.MethodPost, "/topic/t1/comments", `{"text":"hi from bob"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	docs, err := env.store.Memory.All(ctx, models.CommentsCollection("t1"))
	if err != nil || len(docs) != 1 {
		t.Fatalf("stored comments = %d, err = %v", len(docs), err)
	}
	if got := docs[0].String("username"); got != "bob" {
		t.Errorf("stored comment username = %q, want bob", got)
	}
}

func TestSwitchAccountWithoutLogoutRetagsComments(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	_ = env.store.Memory.Set(ctx, models.TopicsCollection, "t1", docstore.Fields{"title": "LegDay"})
	_ = env.store.Memory.Set(ctx, models.UsersCollection, "alice", docstore.Fields{"username": "alice"})
	_ = env.store.Memory.Set(ctx, models.UsersCollection, "bob", docstore.Fields{"username": "bob"})

	env.login(t, "alice")
	env.do(t, http.MethodGet, "/topic/t1", "")
	env.login(t, "bob")

	tv := decode[topicView](t, env.do(t, http.MethodPost, "/topic/t1/comments", `{"text":"switched"}`))
	if len(tv.Comments) != 1 || tv.Comments[0].Username != "bob" {
		t.Errorf("comments = %+v, want one by bob", tv.Comments)
	}
}
