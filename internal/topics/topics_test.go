package topics

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"local.dev/gymmit/internal/docstore"
	"local.dev/gymmit/internal/docstore/docstoretest"
	"local.dev/gymmit/internal/logger"
	"local.dev/gymmit/internal/models"
)

func newTestManager(t *testing.T) (*Manager, *docstoretest.Store) {
	t.Helper()
	store := docstoretest.New()
	m := NewManager(store, logger.Setup(io.Discard))
	m.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return m, store
}

func seed(t *testing.T, store *docstoretest.Store, titles ...string) {
	t.Helper()
	for _, title := range titles {
		if _, err := store.Memory.Add(context.Background(), models.TopicsCollection, docstore.Fields{"title": title}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestLoad_FetchesWholeCollection(t *testing.T) {
	m, store := newTestManager(t)
	seed(t, store, "LegDay", "Cardio", "Protein")

	m.Load(context.Background())

	if got := len(m.Topics()); got != 3 {
		t.Errorf("len(Topics) = %d, want 3", got)
	}
	if m.LoadFailed() {
		t.Error("LoadFailed = true after a successful load")
	}
}

func TestLoad_FailureKeepsPreviousList(t *testing.T) {
	m, store := newTestManager(t)
	seed(t, store, "LegDay")
	ctx := context.Background()
	m.Load(ctx)

	store.FailOn("all", errors.New("unavailable"))
	m.Load(ctx)

	if got := len(m.Topics()); got != 1 {
		t.Errorf("len(Topics) = %d, want 1", got)
	}
	if !m.LoadFailed() {
		t.Error("LoadFailed = false after a failed load")
	}

	store.FailOn("all", nil)
	m.Load(ctx)
	if m.LoadFailed() {
		t.Error("LoadFailed should clear after a successful retry")
	}
}

func TestLoad_FirstFailureLeavesEmptyList(t *testing.T) {
	m, store := newTestManager(t)
	store.FailOn("all", errors.New("unavailable"))

	m.Load(context.Background())

	if got := len(m.Topics()); got != 0 {
		t.Errorf("len(Topics) = %d, want 0", got)
	}
}

func TestAdd_NewTitleAppearsOnce(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	topic, err := m.Add(ctx, "  LegDay  ")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if topic == nil || topic.ID == "" || topic.Title != "LegDay" {
		t.Fatalf("topic = %+v", topic)
	}

	count := 0
	for _, tp := range m.Topics() {
		if tp.Title == "LegDay" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("LegDay appears %d times, want 1", count)
	}

	doc, err := store.Memory.Get(ctx, models.TopicsCollection, topic.ID)
	if err != nil {
		t.Fatalf("stored topic: %v", err)
	}
	if doc.String("title") != "LegDay" {
		t.Errorf("stored title = %q", doc.String("title"))
	}
}

func TestAdd_DuplicateTitle(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	if _, err := m.Add(ctx, "LegDay"); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	before := len(m.Topics())

	_, err := m.Add(ctx, "LegDay")
	if !errors.Is(err, ErrTopicExists) {
		t.Fatalf("err = %v, want ErrTopicExists", err)
	}
	if got := m.Message(); got != "A topic with this title already exists." {
		t.Errorf("Message = %q", got)
	}
	if got := len(m.Topics()); got != before {
		t.Errorf("len(Topics) = %d, want %d", got, before)
	}

	if _, err := m.Add(ctx, "Cardio"); err != nil {
		t.Fatalf("Add Cardio: %v", err)
	}
	if m.Message() != "" {
		t.Errorf("Message = %q, want cleared after a successful add", m.Message())
	}
}

func TestAdd_TitleCheckIsCaseSensitive(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	_, _ = m.Add(ctx, "LegDay")

	if _, err := m.Add(ctx, "legday"); err != nil {
		t.Errorf("Add(legday) err = %v, want nil", err)
	}
}

func TestAdd_BlankIsNoop(t *testing.T) {
	for _, title := range []string{"", " ", "\t\n  "} {
		m, store := newTestManager(t)
		topic, err := m.Add(context.Background(), title)
		if topic != nil || err != nil {
			t.Errorf("Add(%q) = %v, %v, want nil, nil", title, topic, err)
		}
		if store.TotalCalls() != 0 {
			t.Errorf("Add(%q) made %d store calls, want 0", title, store.TotalCalls())
		}
		if len(m.Topics()) != 0 || m.Message() != "" {
			t.Errorf("Add(%q) changed state", title)
		}
	}
}

func TestAdd_StoreFailureIsSwallowed(t *testing.T) {
	m, store := newTestManager(t)
	store.FailOn("add", errors.New("unavailable"))

	topic, err := m.Add(context.Background(), "LegDay")
	if topic != nil || err != nil {
		t.Errorf("Add = %v, %v, want nil, nil", topic, err)
	}
	if len(m.Topics()) != 0 {
		t.Error("failed insert must not reach the local list")
	}
}

func TestFilter(t *testing.T) {
	m, store := newTestManager(t)
	seed(t, store, "LegDay", "Cardio", "Leg press form", "Protein")
	m.Load(context.Background())

	if got := len(m.Filter("")); got != 4 {
		t.Errorf("Filter(\"\") = %d topics, want 4", got)
	}

	got := titles(m.Filter("leg"))
	if len(got) != 2 || !got["LegDay"] || !got["Leg press form"] {
		t.Errorf("Filter(leg) = %v", got)
	}
	if got := titles(m.Filter("ARDI")); !got["Cardio"] || len(got) != 1 {
		t.Errorf("Filter(ARDI) = %v", got)
	}
	if got := m.Filter("yoga"); len(got) != 0 {
		t.Errorf("Filter(yoga) = %v, want empty", got)
	}
}

func TestFilter_NoNetworkAndIdempotent(t *testing.T) {
	m, store := newTestManager(t)
	seed(t, store, "LegDay")
	m.Load(context.Background())
	calls := store.TotalCalls()

	a := m.Filter("leg")
	b := m.Filter("leg")

	if store.TotalCalls() != calls {
		t.Error("Filter called the store")
	}
	if len(a) != len(b) || a[0] != b[0] {
		t.Errorf("Filter is not idempotent: %v vs %v", a, b)
	}
}

func titles(ts []models.Topic) map[string]bool {
	out := map[string]bool{}
	for _, t := range ts {
		out[t.Title] = true
	}
	return out
}
