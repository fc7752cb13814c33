package models

import (
	"time"

	"local.dev/gymmit/internal/docstore"
)

const (
	UsersCollection  = "users"
	TopicsCollection = "topics"

	DefaultName     = "New User"
	AnonymousAuthor = "Anonymous"
)

// CommentsCollection is the comments subcollection of a topic.
func CommentsCollection(topicID string) string {
	return docstore.Path(TopicsCollection, topicID, "comments")
}

type UserProfile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	CreatedAt string `json:"createdAt"` // ISO 8601
}

type Topic struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

type Comment struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"` // ISO 8601, millisecond precision
	Username  string `json:"username"`
}

// ISO formats t the way comment and profile timestamps are stored.
func ISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// ParseISO returns the zero time when s is not RFC 3339.
func ParseISO(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// NewProfile builds the document written on first sign-in.
func NewProfile(id, displayName string, now time.Time) UserProfile {
	name := displayName
	if name == "" {
		name = DefaultName
	}
	return UserProfile{ID: id, Name: name, CreatedAt: ISO(now)}
}

func (p UserProfile) Fields() docstore.Fields {
	return docstore.Fields{
		"name":      p.Name,
		"username":  p.Username,
		"bio":       p.Bio,
		"createdAt": p.CreatedAt,
	}
}

func ProfileFromDoc(d docstore.Document) UserProfile {
	return UserProfile{
		ID:        d.ID,
		Name:      d.String("name"),
		Username:  d.String("username"),
		Bio:       d.String("bio"),
		CreatedAt: d.String("createdAt"),
	}
}

func (t Topic) Fields() docstore.Fields {
	return docstore.Fields{
		"title":     t.Title,
		"createdAt": t.CreatedAt,
	}
}

func TopicFromDoc(d docstore.Document) Topic {
	return Topic{
		ID:        d.ID,
		Title:     d.String("title"),
		CreatedAt: timeField(d.Fields["createdAt"]),
	}
}

func (c Comment) Fields() docstore.Fields {
	return docstore.Fields{
		"text":      c.Text,
		"createdAt": c.CreatedAt,
		"username":  c.Username,
	}
}

func CommentFromDoc(d docstore.Document) Comment {
	c := Comment{
		ID:        d.ID,
		Text:      d.String("text"),
		CreatedAt: d.String("createdAt"),
		Username:  d.String("username"),
	}
	if c.Username == "" {
		c.Username = AnonymousAuthor
	}
	return c
}

// timeField accepts a native timestamp or its RFC 3339 form (file store reloads).
func timeField(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		return ParseISO(t)
	}
	return time.Time{}
}
