package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// PersistField names a session field that survives restarts.
type PersistField string

const (
	PersistSavedFilters PersistField = "savedFilters"
	PersistSortBy       PersistField = "sortBy"
	PersistSortOrder    PersistField = "sortOrder"
	PersistPerPage      PersistField = "perPage"
)

// slotVersion is bumped when the persisted shape changes incompatibly.
const slotVersion = 1

func defaultPersistedFields() map[PersistField]bool {
	return map[PersistField]bool{
		PersistSavedFilters: true,
		PersistSortBy:       true,
		PersistSortOrder:    true,
		PersistPerPage:      true,
	}
}

// persistedSlot is the JSON document stored in the slot. Live filters, the
// page cursor and fetched results are never part of it.
type persistedSlot struct {
	State   persistedState `json:"state"`
	Version int            `json:"version"`
}

type persistedState struct {
	SavedFilters []SavedFilter `json:"savedFilters,omitempty"`
	SortBy       SortField     `json:"sortBy,omitempty"`
	SortOrder    SortOrder     `json:"sortOrder,omitempty"`
	PerPage      int           `json:"perPage,omitempty"`
}

type preferences struct {
	sortBy    SortField
	sortOrder SortOrder
	perPage   int
}

func (st state) preferences() preferences {
	return preferences{sortBy: st.sortBy, sortOrder: st.sortOrder, perPage: st.perPage}
}

func (s *Session) hydrate(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	data, err := s.store.Load(ctx, s.slot)
	if errors.Is(err, ErrSlotNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", s.slot, err)
	}

	var slot persistedSlot
	if err := json.Unmarshal(data, &slot); err != nil {
		s.logger.Warn("ignoring corrupt persisted state", "slot", s.slot, "error", err)
		return nil
	}
	if slot.Version > slotVersion {
		s.logger.Warn("ignoring persisted state from a newer version", "slot", s.slot, "version", slot.Version)
		return nil
	}

	p := slot.State
	if s.persisted[PersistSavedFilters] {
		for _, sf := range p.SavedFilters {
			if sf.ID == "" {
				continue
			}
			sf.Filters = sf.Filters.normalized()
			s.st.saved = append(s.st.saved, sf)
		}
	}
	if s.persisted[PersistSortBy] && p.SortBy != "" {
		s.st.sortBy = p.SortBy
	}
	if s.persisted[PersistSortOrder] && p.SortOrder != "" {
		s.st.sortOrder = p.SortOrder
	}
	if s.persisted[PersistPerPage] && p.PerPage > 0 {
		s.st.perPage = p.PerPage
	}
	return nil
}

// encodeSlot renders the persisted fields of st.
func (s *Session) encodeSlot(st state) ([]byte, error) {
	var p persistedState
	if s.persisted[PersistSavedFilters] {
		p.SavedFilters = st.saved
	}
	if s.persisted[PersistSortBy] {
		p.SortBy = st.sortBy
	}
	if s.persisted[PersistSortOrder] {
		p.SortOrder = st.sortOrder
	}
	if s.persisted[PersistPerPage] {
		p.PerPage = st.perPage
	}
	return json.Marshal(persistedSlot{State: p, Version: slotVersion})
}

// persist writes the slot built from st. Callers hold writeMu and build st
// from the latest state, so the slot tracks the last committed write.
func (s *Session) persist(ctx context.Context, st state) error {
	if s.store == nil || len(s.persisted) == 0 {
		return nil
	}
	data, err := s.encodeSlot(st)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.slot, err)
	}
	if err := s.store.Save(ctx, s.slot, data); err != nil {
		return fmt.Errorf("save %s: %w", s.slot, err)
	}
	return nil
}

// persistPreferences writes the slot after a sort or page size change.
// Failures are logged; a lost preference never blocks the list.
func (s *Session) persistPreferences(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	st := s.st.clone()
	s.mu.Unlock()
	if err := s.persist(ctx, st); err != nil {
		s.logger.Warn("failed to persist preferences", "error", err)
	}
}
