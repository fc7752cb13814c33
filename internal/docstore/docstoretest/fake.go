// Package docstoretest provides an in-memory docstore.Store that counts calls
// and lets tests inject failures or block individual operations.
package docstoretest

import (
	"context"
	"sync"

	"local.dev/gymmit/internal/docstore"
)

type Store struct {
	*docstore.Memory

	mu    sync.Mutex
	calls map[string]int
	errs  map[string]error

	// BeforeFn, when set, runs before every operation and may block it.
	BeforeFn func(op string, collection string)
}

func New() *Store {
	return &Store{
		Memory: docstore.NewMemory(),
		calls:  map[string]int{},
		errs:   map[string]error{},
	}
}

// FailOn makes every later call of op return err; a nil err clears it.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.errs, op)
		return
	}
	s.errs[op] = err
}

// Calls reports how many times op ran.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// TotalCalls reports the number of operations of any kind.
func (s *Store) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *Store) enter(op, collection string) error {
	s.mu.Lock()
	s.calls[op]++
	err := s.errs[op]
	before := s.BeforeFn
	s.mu.Unlock()
	if before != nil {
		before(op, collection)
	}
	return err
}

func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	if err := s.enter("get", collection); err != nil {
		return nil, err
	}
	return s.Memory.Get(ctx, collection, id)
}

func (s *Store) Set(ctx context.Context, collection, id string, fields docstore.Fields) error {
	if err := s.enter("set", collection); err != nil {
		return err
	}
	return s.Memory.Set(ctx, collection, id, fields)
}

func (s *Store) Create(ctx context.Context, collection, id string, fields docstore.Fields) error {
	if err := s.enter("create", collection); err != nil {
		return err
	}
	return s.Memory.Create(ctx, collection, id, fields)
}

func (s *Store) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	if err := s.enter("update", collection); err != nil {
		return err
	}
	return s.Memory.Update(ctx, collection, id, fields)
}

func (s *Store) Add(ctx context.Context, collection string, fields docstore.Fields) (string, error) {
	if err := s.enter("add", collection); err != nil {
		return "", err
	}
	return s.Memory.Add(ctx, collection, fields)
}

func (s *Store) All(ctx context.Context, collection string) ([]docstore.Document, error) {
	if err := s.enter("all", collection); err != nil {
		return nil, err
	}
	return s.Memory.All(ctx, collection)
}

func (s *Store) QueryEquals(ctx context.Context, collection, field string, value any) ([]docstore.Document, error) {
	if err := s.enter("query_equals", collection); err != nil {
		return nil, err
	}
	return s.Memory.QueryEquals(ctx, collection, field, value)
}

func (s *Store) QueryOrdered(ctx context.Context, collection, field string, dir docstore.Direction) ([]docstore.Document, error) {
	if err := s.enter("query_ordered", collection); err != nil {
		return nil, err
	}
	return s.Memory.QueryOrdered(ctx, collection, field, dir)
}
