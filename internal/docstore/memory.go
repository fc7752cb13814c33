package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory keeps every collection in process and, when a file path is set,
// rewrites it as indented JSON after each write.
type Memory struct {
	mu   sync.RWMutex
	path string
	data map[string]map[string]Fields // collection -> id -> fields
}

func NewMemory() *Memory {
	return &Memory{data: map[string]map[string]Fields{}}
}

// OpenFile loads path if it exists and persists every later write to it.
// Timestamps written as time.Time come back as RFC 3339 strings after a reload.
func OpenFile(path string) (*Memory, error) {
	m := NewMemory()
	m.path = path
	if err := readJSONFile(path, &m.data); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if m.data == nil {
		m.data = map[string]map[string]Fields{}
	}
	return m, nil
}

func readJSONFile[T any](path string, out *T) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func writeJSONFile(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// save must be called with mu held.
func (m *Memory) save() error {
	if m.path == "" {
		return nil
	}
	if err := writeJSONFile(m.path, m.data); err != nil {
		return fmt.Errorf("persist %s: %w", m.path, err)
	}
	return nil
}

func (m *Memory) Get(_ context.Context, collection, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Document{ID: id, Fields: copyFields(f)}, nil
}

func (m *Memory) Set(_ context.Context, collection, id string, fields Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commit(collection, id, copyFields(fields))
}

func (m *Memory) Create(_ context.Context, collection, id string, fields Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[collection][id]; ok {
		return ErrAlreadyExists
	}
	return m.commit(collection, id, copyFields(fields))
}

func (m *Memory) Update(_ context.Context, collection, id string, fields Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ex, ok := m.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	// merge: only the given fields are overwritten
	merged := copyFields(ex)
	for k, v := range fields {
		merged[k] = v
	}
	return m.commit(collection, id, merged)
}

func (m *Memory) Add(_ context.Context, collection string, fields Fields) (string, error) {
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.commit(collection, id, copyFields(fields)); err != nil {
		return "", err
	}
	return id, nil
}

// commit stores f and persists. When the file write fails the previous
// document is put back, so memory never holds a write the file lacks.
// Must be called with mu held.
func (m *Memory) commit(collection, id string, f Fields) error {
	prev, existed := m.data[collection][id]
	_, hadCollection := m.data[collection]
	m.put(collection, id, f)
	err := m.save()
	if err == nil {
		return nil
	}
	switch {
	case existed:
		m.data[collection][id] = prev
	case hadCollection:
		delete(m.data[collection], id)
	default:
		delete(m.data, collection)
	}
	return err
}

func (m *Memory) put(collection, id string, f Fields) {
	c := m.data[collection]
	if c == nil {
		c = make(map[string]Fields)
		m.data[collection] = c
	}
	c[id] = f
}

func (m *Memory) All(_ context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Document, 0, len(m.data[collection]))
	for id, f := range m.data[collection] {
		out = append(out, Document{ID: id, Fields: copyFields(f)})
	}
	return out, nil
}

func (m *Memory) QueryEquals(_ context.Context, collection, field string, value any) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Document, 0)
	for id, f := range m.data[collection] {
		v, ok := f[field]
		if !ok || !valuesEqual(v, value) {
			continue
		}
		out = append(out, Document{ID: id, Fields: copyFields(f)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// QueryOrdered drops documents missing field, as Firestore does.
func (m *Memory) QueryOrdered(_ context.Context, collection, field string, dir Direction) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Document, 0)
	for id, f := range m.data[collection] {
		if _, ok := f[field]; !ok {
			continue
		}
		out = append(out, Document{ID: id, Fields: copyFields(f)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := compareValues(out[i].Fields[field], out[j].Fields[field])
		if c == 0 {
			return out[i].ID < out[j].ID
		}
		if dir == Desc {
			return c > 0
		}
		return c < 0
	})
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func valuesEqual(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		p, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return p, true
	}
	return time.Time{}, false
}

// compareValues orders timestamps (time.Time or RFC 3339 strings) by instant,
// numbers numerically and everything else by its string form.
func compareValues(a, b any) int {
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return ta.Compare(tb)
		}
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb || (math.IsNaN(fa) && !math.IsNaN(fb)):
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}
