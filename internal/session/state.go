// Package session holds the in-memory application state: the current
// selection, accumulated incident reports, discovered facilities, and the
// loading flags the presentation layer reads.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/envirowatch/envirowatch/internal/model"
)

// Validation sentinels for incident submission.
var (
	ErrNoSelection = eris.New("session: no location selected")
	ErrNoIssues    = eris.New("session: at least one issue tag is required")
)

// State is the process-wide session model. Every field follows a
// single-writer discipline: facilities are written by aggregation results,
// incidents by report submission, the selection by location resolution.
// All updates replace whole values under one mutex.
type State struct {
	mu         sync.Mutex
	selection  *model.Coordinate
	incidents  []model.Incident
	facilities []model.AggregatedFacility
	locating   bool
	searching  bool
	generation uint64

	onSelection  []func(*model.Coordinate)
	onFacilities []func([]model.AggregatedFacility)
	onIncidents  []func([]model.Incident)

	now func() time.Time // injectable for testing
}

// New creates an empty session state.
func New() *State {
	return &State{now: time.Now}
}

// WithNow sets a fixed clock for testing.
func (s *State) WithNow(now func() time.Time) *State {
	s.now = now
	return s
}

// OnSelectionChanged registers a callback fired after every selection
// change. A nil coordinate means the selection was cleared.
func (s *State) OnSelectionChanged(fn func(*model.Coordinate)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSelection = append(s.onSelection, fn)
}

// OnFacilitiesChanged registers a callback fired after every facility list
// replacement.
func (s *State) OnFacilitiesChanged(fn func([]model.AggregatedFacility)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFacilities = append(s.onFacilities, fn)
}

// OnIncidentsChanged registers a callback fired after every incident
// submission with the full, most-recent-first list.
func (s *State) OnIncidentsChanged(fn func([]model.Incident)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onIncidents = append(s.onIncidents, fn)
}

// SetSelection replaces the current selection.
func (s *State) SetSelection(coord model.Coordinate) {
	s.mu.Lock()
	c := coord
	s.selection = &c
	callbacks := append([]func(*model.Coordinate){}, s.onSelection...)
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(&c)
	}
}

// ClearSelection drops the current selection.
func (s *State) ClearSelection() {
	s.mu.Lock()
	s.selection = nil
	callbacks := append([]func(*model.Coordinate){}, s.onSelection...)
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(nil)
	}
}

// Selection returns the current selection, if any.
func (s *State) Selection() (model.Coordinate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == nil {
		return model.Coordinate{}, false
	}
	return *s.selection, true
}

// BeginSearch marks a facility search as in flight and returns its
// generation. Each call supersedes all earlier generations.
func (s *State) BeginSearch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.searching = true
	return s.generation
}

// PublishFacilities replaces the facility list if gen is still the newest
// generation. Stale completions are discarded and reported false.
func (s *State) PublishFacilities(gen uint64, facilities []model.AggregatedFacility) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false
	}
	s.facilities = facilities
	s.searching = false
	callbacks := append([]func([]model.AggregatedFacility){}, s.onFacilities...)
	snapshot := append([]model.AggregatedFacility{}, facilities...)
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(snapshot)
	}
	return true
}

// Facilities returns the latest published facility list.
func (s *State) Facilities() []model.AggregatedFacility {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AggregatedFacility{}, s.facilities...)
}

// Searching reports whether a facility search is in flight.
func (s *State) Searching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searching
}

// SetLocating flags an in-flight geolocation request.
func (s *State) SetLocating(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locating = v
}

// Locating reports whether a geolocation request is in flight.
func (s *State) Locating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locating
}

// SubmitIncident validates and records a report at the current selection,
// prepends it to the incident list, and clears the selection. The incident
// is immutable once stored.
func (s *State) SubmitIncident(issueTags []string, notes string) (model.Incident, error) {
	return s.submit(nil, issueTags, notes)
}

// SubmitIncidentAt records a report at an explicit position. Position and
// submission happen under one lock acquisition, so concurrent submitters
// cannot file a report at each other's coordinates.
func (s *State) SubmitIncidentAt(position model.Coordinate, issueTags []string, notes string) (model.Incident, error) {
	if !position.Valid() {
		return model.Incident{}, eris.Errorf("session: position out of range (%f, %f)", position.Lat, position.Lng)
	}
	return s.submit(&position, issueTags, notes)
}

// submit records a report at position, or at the current selection when
// position is nil.
func (s *State) submit(position *model.Coordinate, issueTags []string, notes string) (model.Incident, error) {
	tags := make([]string, 0, len(issueTags))
	for _, t := range issueTags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	s.mu.Lock()
	if position == nil {
		if s.selection == nil {
			s.mu.Unlock()
			return model.Incident{}, ErrNoSelection
		}
		position = s.selection
	}
	if len(tags) == 0 {
		s.mu.Unlock()
		return model.Incident{}, ErrNoIssues
	}

	incident := model.Incident{
		ID:          uuid.NewString(),
		Position:    *position,
		IssueTags:   tags,
		Notes:       notes,
		SubmittedAt: s.now().UTC(),
	}
	s.incidents = append([]model.Incident{incident}, s.incidents...)
	s.selection = nil

	incidentCallbacks := append([]func([]model.Incident){}, s.onIncidents...)
	selectionCallbacks := append([]func(*model.Coordinate){}, s.onSelection...)
	snapshot := append([]model.Incident{}, s.incidents...)
	s.mu.Unlock()

	for _, fn := range incidentCallbacks {
		fn(snapshot)
	}
	for _, fn := range selectionCallbacks {
		fn(nil)
	}
	return incident, nil
}

// Incidents returns the reports, most recent first.
func (s *State) Incidents() []model.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Incident{}, s.incidents...)
}

// FilterIncidents returns the reports whose issue labels or notes contain
// the term, case-insensitively. An empty term matches everything.
func (s *State) FilterIncidents(term string) []model.Incident {
	term = strings.ToLower(strings.TrimSpace(term))
	all := s.Incidents()
	if term == "" {
		return all
	}

	var matched []model.Incident
	for _, inc := range all {
		if strings.Contains(strings.ToLower(inc.Notes), term) {
			matched = append(matched, inc)
			continue
		}
		for _, tag := range inc.IssueTags {
			if strings.Contains(strings.ToLower(model.IssueLabel(tag)), term) {
				matched = append(matched, inc)
				break
			}
		}
	}
	return matched
}
