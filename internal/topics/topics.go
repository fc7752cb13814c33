// Package topics keeps the home view's local copy of the topic collection.
package topics

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"local.dev/gymmit/internal/docstore"
	"local.dev/gymmit/internal/logger"
	"local.dev/gymmit/internal/models"
)

var ErrTopicExists = errors.New("topic already exists")

// MsgTopicExists is shown when a title is already taken.
const MsgTopicExists = "A topic with this title already exists."

// Manager is safe for concurrent use. Remote calls run without the lock held.
//
// Add checks for an existing title and inserts in two round-trips with no
// transaction, so two clients submitting the same title at once can both
// insert it.
type Manager struct {
	store docstore.Store
	log   *slog.Logger
	now   func() time.Time

	mu         sync.RWMutex
	topics     []models.Topic
	message    string
	loadFailed bool
}

func NewManager(store docstore.Store, log *slog.Logger) *Manager {
	return &Manager{
		store: store,
		log:   logger.Component(log, "topics"),
		now:   time.Now,
	}
}

// Load replaces the local list with the whole collection. On failure the
// previous list stays and LoadFailed reports true until a later Load succeeds.
func (m *Manager) Load(ctx context.Context) {
	docs, err := m.store.All(ctx, models.TopicsCollection)
	if err != nil {
		m.log.ErrorContext(ctx, "fetch topics failed", slog.Any("error", err))
		m.mu.Lock()
		m.loadFailed = true
		m.mu.Unlock()
		return
	}
	list := make([]models.Topic, 0, len(docs))
	for _, d := range docs {
		list = append(list, models.TopicFromDoc(d))
	}
	m.mu.Lock()
	m.topics = list
	m.loadFailed = false
	m.mu.Unlock()
}

// Add creates a topic. Blank titles are ignored (nil, nil). A title that is
// already taken sets the view message and returns ErrTopicExists. Store
// failures are logged and swallowed.
func (m *Manager) Add(ctx context.Context, title string) (*models.Topic, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}

	existing, err := m.store.QueryEquals(ctx, models.TopicsCollection, "title", title)
	if err != nil {
		m.log.ErrorContext(ctx, "check topic title failed", slog.String("title", title), slog.Any("error", err))
		return nil, nil
	}
	if len(existing) > 0 {
		m.mu.Lock()
		m.message = MsgTopicExists
		m.mu.Unlock()
		return nil, ErrTopicExists
	}

	t := models.Topic{Title: title, CreatedAt: m.now().UTC()}
	id, err := m.store.Add(ctx, models.TopicsCollection, t.Fields())
	if err != nil {
		m.log.ErrorContext(ctx, "add topic failed", slog.String("title", title), slog.Any("error", err))
		return nil, nil
	}
	t.ID = id

	m.mu.Lock()
	m.topics = append(m.topics, t)
	m.message = ""
	m.mu.Unlock()

	m.log.InfoContext(ctx, "topic added", slog.String("topic_id", id))
	return &t, nil
}

// Filter matches query case-insensitively anywhere in the title. It only
// reads the local list.
func (m *Manager) Filter(query string) []models.Topic {
	q := strings.ToLower(query)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Topic, 0, len(m.topics))
	for _, t := range m.topics {
		if strings.Contains(strings.ToLower(t.Title), q) {
			out = append(out, t)
		}
	}
	return out
}

func (m *Manager) Topics() []models.Topic { return m.Filter("") }

// Message is the user-visible text of the last Add, empty after a success.
func (m *Manager) Message() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.message
}

func (m *Manager) LoadFailed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadFailed
}
