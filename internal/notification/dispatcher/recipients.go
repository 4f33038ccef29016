package dispatcher

import "github.com/google/uuid"

// RecipientSet accumulates notification recipients, dropping missing or zero
// user references and deduplicating while preserving insertion order. It
// replaces ad hoc push-if-present list building so an absent user id can
// never leak into an insert.
type RecipientSet struct {
	order []uuid.UUID
	seen  map[uuid.UUID]struct{}
}

// NewRecipientSet creates an empty recipient set.
func NewRecipientSet() *RecipientSet {
	return &RecipientSet{seen: make(map[uuid.UUID]struct{})}
}

// Add inserts an optional user reference. Nil and zero ids are ignored, as
// are ids already present.
func (s *RecipientSet) Add(id *uuid.UUID) {
	if id == nil {
		return
	}
	s.AddID(*id)
}

// AddID inserts a user id. Zero ids are ignored, as are ids already present.
func (s *RecipientSet) AddID(id uuid.UUID) {
	if id == uuid.Nil {
		return
	}
	if _, exists := s.seen[id]; exists {
		return
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
}

// IDs returns the deduplicated recipients in insertion order.
func (s *RecipientSet) IDs() []uuid.UUID {
	out := make([]uuid.UUID, len(s.order))
	copy(out, s.order)
	return out
}

// IsEmpty reports whether no recipients were collected.
func (s *RecipientSet) IsEmpty() bool {
	return len(s.order) == 0
}
