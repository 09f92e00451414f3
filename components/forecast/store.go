package forecast

import "sync"

// FilterAll is the synthetic filter choice matching every company.
const FilterAll = "ALL"

// Store is the in-memory mirror of the remote submissions table plus the
// current filter selection and its derived subsequence. The store owns the
// collection exclusively; the coordinator is the single writer, and mutators
// never cascade recomputation on their own — callers invoke Recompute after a
// batch of changes (explicit pull model).
type Store struct {
	mu        sync.RWMutex
	all       []Submission
	filtered  []Submission
	selection string
}

// NewStore returns an empty store with the ALL selection.
func NewStore() *Store {
	return &Store{selection: FilterAll}
}

// Load replaces the collection wholesale. Used on initial fetch and full
// refresh; a full reload always wins over partial state.
func (s *Store) Load(rows []Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = append([]Submission(nil), rows...)
}

// ApplyInsert prepends the row, preserving newest-first ordering for
// push-origin inserts. If a row with the same id is already present the
// existing entry is replaced in place so ids stay unique.
func (s *Store) ApplyInsert(row Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.all {
		if s.all[i].ID == row.ID {
			s.all[i] = row
			return
		}
	}
	s.all = append([]Submission{row}, s.all...)
}

// ApplyUpdate replaces the entry whose id matches. A remote update for a row
// not yet loaded locally is dropped, not fetched.
func (s *Store) ApplyUpdate(row Submission) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.all {
		if s.all[i].ID == row.ID {
			s.all[i] = row
			return true
		}
	}
	return false
}

// ApplyDelete removes the entry whose id matches; no-op if absent.
func (s *Store) ApplyDelete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.all {
		if s.all[i].ID == id {
			s.all = append(s.all[:i], s.all[i+1:]...)
			return true
		}
	}
	return false
}

// SetFilter updates the filter selection. The filtered subsequence is stale
// until the next Recompute.
func (s *Store) SetFilter(selection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if selection == "" {
		selection = FilterAll
	}
	s.selection = selection
}

// Recompute re-derives the filtered subsequence from the collection and the
// current selection.
func (s *Store) Recompute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filtered = ComputeFiltered(s.all, s.selection)
}

// All returns a copy of the full collection in newest-first order.
func (s *Store) All() []Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Submission(nil), s.all...)
}

// Filtered returns a copy of the filtered subsequence as of the last
// Recompute.
func (s *Store) Filtered() []Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Submission(nil), s.filtered...)
}

// Selection returns the active filter selection.
func (s *Store) Selection() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection
}

// Get looks up a row by id.
func (s *Store) Get(id string) (Submission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.all {
		if row.ID == id {
			return row, true
		}
	}
	return Submission{}, false
}

// Len returns the size of the full collection.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.all)
}

// Title derives the dashboard heading for the current selection.
func (s *Store) Title() string {
	selection := s.Selection()
	if selection == FilterAll {
		return "Global Forecast Dashboard"
	}
	return "Forecast for " + selection
}
