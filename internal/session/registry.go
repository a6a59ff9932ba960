package session

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Registry keeps every session started by this process.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	lastID   atomic.Int64
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int64]*Session)}
}

func (r *Registry) nextID() int64 {
	return r.lastID.Add(1)
}

func (r *Registry) add(s *Session) {
	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
}

func (r *Registry) Get(id int64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// List returns sessions ordered by id, newest first.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	r.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].id > list[j].id })
	return list
}
