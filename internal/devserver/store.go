package devserver

import (
	"maps"
	"sync"
)

// record is a stored submission.
type record struct {
	ID   int64          `json:"id"`
	Data map[string]any `json:"data"`
}

// store keeps records per form in memory.
type store struct {
	mu     sync.Mutex
	nextID int64
	forms  map[string]map[int64]map[string]any
}

func newStore() *store {
	return &store{forms: make(map[string]map[int64]map[string]any)}
}

func (s *store) create(form string, data map[string]any) record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	recs := s.forms[form]
	if recs == nil {
		recs = make(map[int64]map[string]any)
		s.forms[form] = recs
	}
	recs[s.nextID] = maps.Clone(data)
	return record{ID: s.nextID, Data: maps.Clone(data)}
}

func (s *store) get(form string, id int64) (record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.forms[form][id]
	if !ok {
		return record{}, false
	}
	return record{ID: id, Data: maps.Clone(data)}, true
}

func (s *store) put(form string, id int64, data map[string]any) (record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forms[form][id]; !ok {
		return record{}, false
	}
	s.forms[form][id] = maps.Clone(data)
	return record{ID: id, Data: maps.Clone(data)}, true
}

func (s *store) delete(form string, id int64) (record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.forms[form][id]
	if !ok {
		return record{}, false
	}
	delete(s.forms[form], id)
	return record{ID: id, Data: data}, true
}
