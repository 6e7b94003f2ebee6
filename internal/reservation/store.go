package reservation

import (
	"sort"

	"github.com/iliyamo/table-reservation/internal/model"
)

// store is the in-memory state: the table pool and the active records
// keyed by canonical ID.  It enforces nothing on its own; the Manager
// checks every invariant before calling a mutator.
type store struct {
	available []bool
	byID      map[string]model.Reservation
}

func newStore(tables int) *store {
	s := &store{
		available: make([]bool, tables),
		byID:      make(map[string]model.Reservation),
	}
	for i := range s.available {
		s.available[i] = true
	}
	return s
}

func (s *store) inRange(table int) bool { return table >= 0 && table < len(s.available) }

func (s *store) isFree(table int) bool { return s.inRange(table) && s.available[table] }

func (s *store) get(id string) (model.Reservation, bool) {
	res, ok := s.byID[model.CanonicalID(id)]
	return res, ok
}

// exists reports whether id is taken by a record other than excluding.
func (s *store) exists(id, excluding string) bool {
	id = model.CanonicalID(id)
	if id == model.CanonicalID(excluding) {
		return false
	}
	_, ok := s.byID[id]
	return ok
}

func (s *store) insert(res model.Reservation) {
	s.byID[res.ID] = res
	s.available[res.TableIndex] = false
}

func (s *store) remove(id string) {
	res, ok := s.byID[id]
	if !ok {
		return
	}
	s.available[res.TableIndex] = true
	delete(s.byID, id)
}

// replace swaps the record stored under oldID for res, moving its table
// claim as needed.
func (s *store) replace(oldID string, res model.Reservation) {
	s.remove(oldID)
	s.insert(res)
}

func (s *store) tables() []bool {
	out := make([]bool, len(s.available))
	copy(out, s.available)
	return out
}

// list returns matching records ordered by ID number, then ID text.
func (s *store) list(match func(model.Reservation) bool) []model.Reservation {
	out := make([]model.Reservation, 0, len(s.byID))
	for _, res := range s.byID {
		if match == nil || match(res) {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ni, oki := model.IDNumber(out[i].ID)
		nj, okj := model.IDNumber(out[j].ID)
		if oki && okj && ni != nj {
			return ni < nj
		}
		if oki != okj {
			return oki
		}
		return out[i].ID < out[j].ID
	})
	return out
}
