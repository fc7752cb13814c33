package docstore

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore adapts a Cloud Firestore client to Store.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

func (f *Firestore) Close() error { return f.client.Close() }

func (f *Firestore) coll(path string) (*firestore.CollectionRef, error) {
	c := f.client.Collection(path)
	if c == nil {
		return nil, fmt.Errorf("invalid collection path %q", path)
	}
	return c, nil
}

func (f *Firestore) Get(ctx context.Context, collection, id string) (*Document, error) {
	c, err := f.coll(collection)
	if err != nil {
		return nil, err
	}
	snap, err := c.Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return &Document{ID: snap.Ref.ID, Fields: snap.Data()}, nil
}

func (f *Firestore) Set(ctx context.Context, collection, id string, fields Fields) error {
	c, err := f.coll(collection)
	if err != nil {
		return err
	}
	if _, err := c.Doc(id).Set(ctx, fields); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (f *Firestore) Create(ctx context.Context, collection, id string, fields Fields) error {
	c, err := f.coll(collection)
	if err != nil {
		return err
	}
	_, err = c.Doc(id).Create(ctx, fields)
	if status.Code(err) == codes.AlreadyExists {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	return nil
}

func (f *Firestore) Update(ctx context.Context, collection, id string, fields Fields) error {
	c, err := f.coll(collection)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, firestore.Update{Path: k, Value: fields[k]})
	}
	_, err = c.Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return nil
}

func (f *Firestore) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	c, err := f.coll(collection)
	if err != nil {
		return "", err
	}
	ref, _, err := c.Add(ctx, fields)
	if err != nil {
		return "", fmt.Errorf("add %s: %w", collection, err)
	}
	return ref.ID, nil
}

func (f *Firestore) All(ctx context.Context, collection string) ([]Document, error) {
	c, err := f.coll(collection)
	if err != nil {
		return nil, err
	}
	return collect(c.Documents(ctx), collection)
}

func (f *Firestore) QueryEquals(ctx context.Context, collection, field string, value any) ([]Document, error) {
	c, err := f.coll(collection)
	if err != nil {
		return nil, err
	}
	return collect(c.Where(field, "==", value).Documents(ctx), collection)
}

func (f *Firestore) QueryOrdered(ctx context.Context, collection, field string, dir Direction) ([]Document, error) {
	c, err := f.coll(collection)
	if err != nil {
		return nil, err
	}
	fd := firestore.Asc
	if dir == Desc {
		fd = firestore.Desc
	}
	return collect(c.OrderBy(field, fd).Documents(ctx), collection)
}

func collect(it *firestore.DocumentIterator, collection string) ([]Document, error) {
	snaps, err := it.GetAll()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	out := make([]Document, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, Document{ID: s.Ref.ID, Fields: s.Data()})
	}
	return out, nil
}
