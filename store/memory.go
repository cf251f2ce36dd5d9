package store

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Persister receives the new full value of a top-level subtree after every
// mutation, so the tree survives a server restart. Implementations live in
// the database package.
type Persister interface {
	SaveSubtree(name string, value any) error
	LoadTree() (map[string]any, error)
}

// MemoryStore is the in-process implementation of Store. All mutations are
// serialized through a single mutex; subscribers are notified in mutation
// order with deep-copied values so no caller can alias the tree.
type MemoryStore struct {
	mu        sync.Mutex
	root      map[string]any
	subs      map[int]*subscription
	nextSubID int
	pending   map[string]map[int]string // clientID -> hook id -> path
	nextHook  int
	persister Persister

	// Notification and persistence work queued in mutation order; drained
	// by whichever mutator finds the queue idle.
	queue      []func()
	delivering bool
}

type subscription struct {
	segments []string
	fn       func(any)
}

// NewMemoryStore returns an empty store. persister may be nil (tests, or a
// purely in-memory deployment); when non-nil the existing tree is loaded
// from it.
func NewMemoryStore(persister Persister) (*MemoryStore, error) {
	s := &MemoryStore{
		root:      make(map[string]any),
		subs:      make(map[int]*subscription),
		pending:   make(map[string]map[int]string),
		persister: persister,
	}
	if persister != nil {
		tree, err := persister.LoadTree()
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted tree: %w", err)
		}
		for name, value := range tree {
			s.root[name] = value
		}
	}
	return s, nil
}

// Get implements Store.
func (s *MemoryStore) Get(path string) (any, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, ErrEmptyPath
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return deepCopy(s.valueAt(segments)), nil
}

// Set implements Store. The value is normalized through JSON so the tree
// only ever holds plain decoded values; a value JSON cannot represent (NaN
// positions included) is refused before anything is written.
func (s *MemoryStore) Set(path string, value any) error {
	segments := splitPath(path)
	if len(segments) == 0 {
		return ErrEmptyPath
	}
	normalized, err := normalize(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	parent := s.ensureParent(segments)
	parent[segments[len(segments)-1]] = normalized
	s.afterMutation(segments)
	s.deliver()
	return nil
}

// Update implements Store. Updating with no fields is a no-op.
func (s *MemoryStore) Update(path string, fields map[string]any) error {
	segments := splitPath(path)
	if len(segments) == 0 {
		return ErrEmptyPath
	}
	if len(fields) == 0 {
		return nil
	}
	normalized, err := normalize(fields)
	if err != nil {
		return err
	}
	merged, ok := normalized.(map[string]any)
	if !ok {
		return fmt.Errorf("update fields are not a map: %T", normalized)
	}
	s.mu.Lock()
	parent := s.ensureParent(segments)
	key := segments[len(segments)-1]
	target, ok := parent[key].(map[string]any)
	if !ok {
		target = make(map[string]any)
		parent[key] = target
	}
	for k, v := range merged {
		target[k] = v
	}
	s.afterMutation(segments)
	s.deliver()
	return nil
}

// Remove implements Store.
func (s *MemoryStore) Remove(path string) error {
	segments := splitPath(path)
	if len(segments) == 0 {
		return ErrEmptyPath
	}
	s.mu.Lock()
	parent, ok := s.parentOf(segments)
	if !ok {
		s.mu.Unlock()
		return nil
	}
	key := segments[len(segments)-1]
	if _, exists := parent[key]; !exists {
		s.mu.Unlock()
		return nil
	}
	delete(parent, key)
	s.afterMutation(segments)
	s.deliver()
	return nil
}

// Push implements Store. Generated ids are UUIDs, unique across clients
// without coordination.
func (s *MemoryStore) Push(path string, value any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(path+"/"+id, value); err != nil {
		return "", err
	}
	return id, nil
}

// Subscribe implements Store.
func (s *MemoryStore) Subscribe(path string, fn func(any)) (cancel func()) {
	segments := splitPath(path)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = &subscription{segments: segments, fn: fn}

	// Initial replay with the latest full value, queued like every later
	// notification so it cannot arrive after a newer one.
	current := deepCopy(s.valueAt(segments))
	s.queue = append(s.queue, func() { fn(current) })
	s.deliver()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// OnDisconnect implements Store.
func (s *MemoryStore) OnDisconnect(clientID, path string) (cancel func()) {
	s.mu.Lock()
	hooks, ok := s.pending[clientID]
	if !ok {
		hooks = make(map[int]string)
		s.pending[clientID] = hooks
	}
	id := s.nextHook
	s.nextHook++
	hooks[id] = path
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		if hooks, ok := s.pending[clientID]; ok {
			delete(hooks, id)
		}
		s.mu.Unlock()
	}
}

// FireDisconnect runs and clears every pending disconnect removal for the
// given client. The websocket hub calls this when a connection drops.
func (s *MemoryStore) FireDisconnect(clientID string) {
	s.mu.Lock()
	hooks := s.pending[clientID]
	delete(s.pending, clientID)
	s.mu.Unlock()

	for _, path := range hooks {
		if err := s.Remove(path); err != nil {
			log.Printf("disconnect cleanup failed for %s: %v", path, err)
		}
	}
}

// valueAt returns the live node at segments, or nil. Caller holds the lock.
func (s *MemoryStore) valueAt(segments []string) any {
	var node any = s.root
	for _, seg := range segments {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node, ok = m[seg]
		if !ok {
			return nil
		}
	}
	return node
}

// ensureParent walks to the parent of the final segment, creating
// intermediate maps as needed. Caller holds the lock.
func (s *MemoryStore) ensureParent(segments []string) map[string]any {
	node := s.root
	for _, seg := range segments[:len(segments)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[seg] = child
		}
		node = child
	}
	return node
}

// parentOf walks to the parent of the final segment without creating
// anything. Caller holds the lock.
func (s *MemoryStore) parentOf(segments []string) (map[string]any, bool) {
	node := s.root
	for _, seg := range segments[:len(segments)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

// afterMutation snapshots the values for overlapping subscribers and the
// persister while the caller still holds the lock, and appends the delivery
// work to the queue. Queue order is mutation order, so subscribers always
// converge on the latest value. Caller holds the lock.
func (s *MemoryStore) afterMutation(changed []string) {
	for _, sub := range s.subs {
		if pathsOverlap(changed, sub.segments) {
			fn, value := sub.fn, deepCopy(s.valueAt(sub.segments))
			s.queue = append(s.queue, func() { fn(value) })
		}
	}

	if s.persister != nil && len(changed) > 0 {
		top := changed[0]
		value := deepCopy(s.valueAt([]string{top}))
		s.queue = append(s.queue, func() {
			if err := s.persister.SaveSubtree(top, value); err != nil {
				log.Printf("Failed to persist subtree %s: %v", top, err)
			}
		})
	}
}

// deliver drains the queue in order with the lock released, so a subscriber
// is free to mutate the store from its callback; re-entrant mutations just
// enqueue and are drained by the outer call. Caller holds the lock; deliver
// returns with it released.
func (s *MemoryStore) deliver() {
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	for len(s.queue) > 0 {
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()
		for _, fn := range batch {
			fn()
		}
		s.mu.Lock()
	}
	s.delivering = false
	s.mu.Unlock()
}

// normalize round-trips a value through JSON so the tree holds only plain
// decoded values regardless of what typed struct the caller handed in.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("value is not representable: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("value is not representable: %w", err)
	}
	return out, nil
}

// deepCopy returns a copy sharing no maps or slices with v.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = deepCopy(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = deepCopy(child)
		}
		return out
	default:
		return v
	}
}

// Decode re-encodes a store value into a typed struct.
func Decode(value any, out any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal store value: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode store value: %w", err)
	}
	return nil
}
