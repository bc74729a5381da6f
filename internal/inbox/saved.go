package inbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/chatwoot/inboxq/internal/metrics"
	"github.com/chatwoot/inboxq/internal/resolve"
)

func newSavedFilterID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// SavedFilters returns a copy of the saved filter collection in creation
// order.
func (s *Session) SavedFilters() []SavedFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SavedFilter, 0, len(s.st.saved))
	for _, sf := range s.st.saved {
		out = append(out, sf.clone())
	}
	return out
}

// FindSavedFilter resolves ref as an id, a unique id prefix, or a name.
func (s *Session) FindSavedFilter(ref string) (SavedFilter, error) {
	saved := s.SavedFilters()
	if len(saved) == 0 {
		return SavedFilter{}, &resolve.NotFoundError{Query: ref}
	}
	items := make([]resolve.Named, len(saved))
	for i, sf := range saved {
		items[i] = resolve.Named{ID: sf.ID, Name: sf.Name}
	}
	id, err := resolve.Ref(ref, items)
	if err != nil {
		return SavedFilter{}, err
	}
	for _, sf := range saved {
		if sf.ID == id {
			return sf, nil
		}
	}
	return SavedFilter{}, &resolve.NotFoundError{Query: ref}
}

// SaveCurrentFilters snapshots the live filters under name. Names are not
// unique. If the store rejects the write, the collection is left as it was.
func (s *Session) SaveCurrentFilters(ctx context.Context, name string) (SavedFilter, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SavedFilter{}, fmt.Errorf("saved filter name is required")
	}
	metrics.CountMutation("save_filter")

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	sf := SavedFilter{
		ID:        s.newID(),
		Name:      name,
		Filters:   s.st.filters.Clone(),
		CreatedAt: s.now().UTC(),
	}
	next := s.st.clone()
	next.saved = append(next.saved, sf.clone())
	s.mu.Unlock()

	if err := s.persist(ctx, next); err != nil {
		return SavedFilter{}, err
	}
	s.update(func(st *state) { st.saved = append(st.saved, sf.clone()) })
	return sf, nil
}

// DeleteSavedFilter removes the saved filter with id. An unknown id is not an
// error.
func (s *Session) DeleteSavedFilter(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	idx := s.st.savedIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	next := s.st.clone()
	next.saved = append(next.saved[:idx], next.saved[idx+1:]...)
	s.mu.Unlock()

	metrics.CountMutation("delete_filter")
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.update(func(st *state) {
		if i := st.savedIndex(id); i >= 0 {
			st.saved = append(st.saved[:i], st.saved[i+1:]...)
		}
	})
	return nil
}

// ApplySavedFilter replaces the live filters with the snapshot's copy and
// follows the same reset, location and fetch sequence as any filter mutator.
// An unknown id is a no-op.
func (s *Session) ApplySavedFilter(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.st.savedIndex(id)
	var snapshot FilterState
	if idx >= 0 {
		snapshot = s.st.saved[idx].Filters.Clone()
	}
	s.mu.Unlock()
	if idx < 0 {
		return nil
	}
	return s.changeFilters(ctx, "apply_filter", func(f *FilterState) { *f = snapshot })
}

func (st state) savedIndex(id string) int {
	for i, sf := range st.saved {
		if sf.ID == id {
			return i
		}
	}
	return -1
}
