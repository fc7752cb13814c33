// Package docstore is the narrow gateway to the remote document database.
//
// Collections are addressed by slash-joined paths ("users", "topics/{id}/comments"),
// the same shape Firestore uses, so every backend can be swapped behind Store.
package docstore

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
)

// Fields is the payload of a document.
type Fields = map[string]any

type Document struct {
	ID     string
	Fields Fields
}

// String returns the string field k, or "" when missing or not a string.
func (d Document) String(k string) string {
	if s, ok := d.Fields[k].(string); ok {
		return s
	}
	return ""
}

type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// Store is implemented by the Firestore gateway and the file-backed memory store.
type Store interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Set(ctx context.Context, collection, id string, fields Fields) error
	// Create writes only when the document does not exist yet.
	Create(ctx context.Context, collection, id string, fields Fields) error
	Update(ctx context.Context, collection, id string, fields Fields) error
	Add(ctx context.Context, collection string, fields Fields) (string, error)
	All(ctx context.Context, collection string) ([]Document, error)
	QueryEquals(ctx context.Context, collection, field string, value any) ([]Document, error)
	QueryOrdered(ctx context.Context, collection, field string, dir Direction) ([]Document, error)
}

// Path joins collection and document segments: Path("topics", id, "comments").
func Path(segments ...string) string {
	return strings.Join(segments, "/")
}

func copyFields(in Fields) Fields {
	out := make(Fields, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
