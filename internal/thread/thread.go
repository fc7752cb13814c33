// Package thread keeps the topic view: one topic and its comments.
package thread

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"local.dev/gymmit/internal/docstore"
	"local.dev/gymmit/internal/logger"
	"local.dev/gymmit/internal/models"
)

// Manager holds the thread the user is looking at. Entering another topic
// replaces it. Safe for concurrent use; remote calls run without the lock.
type Manager struct {
	store docstore.Store
	log   *slog.Logger
	now   func() time.Time

	mu       sync.RWMutex
	topicID  string
	userID   string
	topic    *models.Topic
	comments []models.Comment
	username string
}

func NewManager(store docstore.Store, log *slog.Logger) *Manager {
	return &Manager{
		store:    store,
		log:      logger.Component(log, "thread"),
		now:      time.Now,
		username: models.AnonymousAuthor,
	}
}

// Enter loads topicID with its comments in ascending createdAt order, and the
// username new comments are tagged with. userID may be empty when signed out.
// A missing topic leaves the thread empty.
func (m *Manager) Enter(ctx context.Context, topicID, userID string) {
	m.mu.Lock()
	m.topicID = topicID
	m.userID = userID
	m.topic = nil
	m.comments = nil
	m.username = models.AnonymousAuthor
	m.mu.Unlock()

	doc, err := m.store.Get(ctx, models.TopicsCollection, topicID)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		m.log.InfoContext(ctx, "topic not found", slog.String("topic_id", topicID))
		return
	case err != nil:
		m.log.ErrorContext(ctx, "fetch topic failed", slog.String("topic_id", topicID), slog.Any("error", err))
		return
	}
	topic := models.TopicFromDoc(*doc)

	var comments []models.Comment
	docs, err := m.store.QueryOrdered(ctx, models.CommentsCollection(topicID), "createdAt", docstore.Asc)
	if err != nil {
		m.log.ErrorContext(ctx, "fetch comments failed", slog.String("topic_id", topicID), slog.Any("error", err))
	}
	for _, d := range docs {
		comments = append(comments, models.CommentFromDoc(d))
	}

	username := m.lookupUsername(ctx, userID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.topicID != topicID || m.userID != userID {
		return
	}
	m.topic = &topic
	m.comments = comments
	m.username = username
}

func (m *Manager) lookupUsername(ctx context.Context, userID string) string {
	if userID == "" {
		return models.AnonymousAuthor
	}
	doc, err := m.store.Get(ctx, models.UsersCollection, userID)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			m.log.ErrorContext(ctx, "fetch username failed", slog.String("user_id", userID), slog.Any("error", err))
		}
		return models.AnonymousAuthor
	}
	if u := doc.String("username"); u != "" {
		return u
	}
	return models.AnonymousAuthor
}

// AddComment posts text to the current topic. Blank text and a missing topic
// are no-ops.
func (m *Manager) AddComment(ctx context.Context, text string) *models.Comment {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	m.mu.RLock()
	topicID, userID, found, username := m.topicID, m.userID, m.topic != nil, m.username
	m.mu.RUnlock()
	if !found {
		return nil
	}

	c := models.Comment{Text: text, CreatedAt: models.ISO(m.now()), Username: username}
	id, err := m.store.Add(ctx, models.CommentsCollection(topicID), c.Fields())
	if err != nil {
		m.log.ErrorContext(ctx, "add comment failed", slog.String("topic_id", topicID), slog.Any("error", err))
		return nil
	}
	c.ID = id

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.topicID == topicID && m.userID == userID {
		m.comments = append(m.comments, c)
		sortComments(m.comments)
	}
	return &c
}

// sortComments orders by createdAt so a comment stamped by a skewed clock
// still lands where a reload would put it.
func sortComments(cs []models.Comment) {
	sort.SliceStable(cs, func(i, j int) bool {
		return models.ParseISO(cs[i].CreatedAt).Before(models.ParseISO(cs[j].CreatedAt))
	})
}

// Found reports whether the last Enter located its topic.
func (m *Manager) Found() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.topic != nil
}

// Reset forgets the open thread, e.g. when the signed-in user changes.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topicID = ""
	m.userID = ""
	m.topic = nil
	m.comments = nil
	m.username = models.AnonymousAuthor
}

// UserID is the user the author tag was resolved for.
func (m *Manager) UserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userID
}

func (m *Manager) TopicID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.topicID
}

func (m *Manager) Topic() *models.Topic {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.topic == nil {
		return nil
	}
	t := *m.topic
	return &t
}

func (m *Manager) Comments() []models.Comment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Comment(nil), m.comments...)
}

func (m *Manager) Username() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.username
}
