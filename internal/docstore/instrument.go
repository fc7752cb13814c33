package docstore

import (
	"context"
	"time"
)

// Recorder receives one call per Store operation.
type Recorder interface {
	RecordStoreCall(op string, elapsed time.Duration, err error)
}

type instrumented struct {
	next Store
	rec  Recorder
}

// Instrument wraps s so that every operation is reported to rec.
func Instrument(s Store, rec Recorder) Store {
	if rec == nil {
		return s
	}
	return &instrumented{next: s, rec: rec}
}

func (s *instrumented) done(op string, start time.Time, err error) {
	s.rec.RecordStoreCall(op, time.Since(start), err)
}

func (s *instrumented) Get(ctx context.Context, collection, id string) (*Document, error) {
	start := time.Now()
	doc, err := s.next.Get(ctx, collection, id)
	s.done("get", start, err)
	return doc, err
}

func (s *instrumented) Set(ctx context.Context, collection, id string, fields Fields) error {
	start := time.Now()
	err := s.next.Set(ctx, collection, id, fields)
	s.done("set", start, err)
	return err
}

func (s *instrumented) Create(ctx context.Context, collection, id string, fields Fields) error {
	start := time.Now()
	err := s.next.Create(ctx, collection, id, fields)
	s.done("create", start, err)
	return err
}

func (s *instrumented) Update(ctx context.Context, collection, id string, fields Fields) error {
	start := time.Now()
	err := s.next.Update(ctx, collection, id, fields)
	s.done("update", start, err)
	return err
}

func (s *instrumented) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	start := time.Now()
	id, err := s.next.Add(ctx, collection, fields)
	s.done("add", start, err)
	return id, err
}

func (s *instrumented) All(ctx context.Context, collection string) ([]Document, error) {
	start := time.Now()
	docs, err := s.next.All(ctx, collection)
	s.done("all", start, err)
	return docs, err
}

func (s *instrumented) QueryEquals(ctx context.Context, collection, field string, value any) ([]Document, error) {
	start := time.Now()
	docs, err := s.next.QueryEquals(ctx, collection, field, value)
	s.done("query_equals", start, err)
	return docs, err
}

func (s *instrumented) QueryOrdered(ctx context.Context, collection, field string, dir Direction) ([]Document, error) {
	start := time.Now()
	docs, err := s.next.QueryOrdered(ctx, collection, field, dir)
	s.done("query_ordered", start, err)
	return docs, err
}
