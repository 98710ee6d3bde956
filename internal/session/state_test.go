package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envirowatch/envirowatch/internal/model"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newState() *State {
	return New().WithNow(func() time.Time { return fixedNow })
}

func TestSubmitIncidentWithoutSelection(t *testing.T) {
	s := newState()

	_, err := s.SubmitIncident([]string{"noise"}, "loud trucks")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoSelection))
	assert.Empty(t, s.Incidents())
}

func TestSubmitIncidentWithoutIssues(t *testing.T) {
	s := newState()
	s.SetSelection(model.Coordinate{Lat: 47.62, Lng: -122.35})

	_, err := s.SubmitIncident(nil, "something")
	assert.True(t, eris.Is(err, ErrNoIssues))

	// Whitespace-only tags don't count.
	_, err = s.SubmitIncident([]string{"  ", ""}, "something")
	assert.True(t, eris.Is(err, ErrNoIssues))

	assert.Empty(t, s.Incidents())
	// The selection survives a rejected submission.
	_, ok := s.Selection()
	assert.True(t, ok)
}

func TestSubmitIncident(t *testing.T) {
	s := newState()
	s.SetSelection(model.Coordinate{Lat: 47.62, Lng: -122.35})

	var incidentEvents [][]model.Incident
	var selectionEvents []*model.Coordinate
	s.OnIncidentsChanged(func(list []model.Incident) { incidentEvents = append(incidentEvents, list) })
	s.OnSelectionChanged(func(c *model.Coordinate) { selectionEvents = append(selectionEvents, c) })

	inc, err := s.SubmitIncident([]string{"noise"}, "loud trucks")
	require.NoError(t, err)
	assert.NotEmpty(t, inc.ID)
	assert.Equal(t, model.Coordinate{Lat: 47.62, Lng: -122.35}, inc.Position)
	assert.Equal(t, []string{"noise"}, inc.IssueTags)
	assert.Equal(t, "loud trucks", inc.Notes)
	assert.Equal(t, fixedNow, inc.SubmittedAt)

	require.Len(t, s.Incidents(), 1)

	// Submission clears the pending selection and notifies both observers.
	_, ok := s.Selection()
	assert.False(t, ok)
	require.Len(t, incidentEvents, 1)
	require.Len(t, selectionEvents, 1)
	assert.Nil(t, selectionEvents[0])
}

func TestSubmitIncidentAt(t *testing.T) {
	s := newState()

	pos := model.Coordinate{Lat: 47.70, Lng: -122.40}
	inc, err := s.SubmitIncidentAt(pos, []string{"heat"}, "")
	require.NoError(t, err)
	assert.Equal(t, pos, inc.Position)

	// No prior selection is needed, and any pending one is consumed.
	s.SetSelection(model.Coordinate{Lat: 47.62, Lng: -122.35})
	_, err = s.SubmitIncidentAt(pos, []string{"noise"}, "")
	require.NoError(t, err)
	_, ok := s.Selection()
	assert.False(t, ok)
}

func TestSubmitIncidentAtValidation(t *testing.T) {
	s := newState()

	_, err := s.SubmitIncidentAt(model.Coordinate{Lat: 95, Lng: 0}, []string{"noise"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	_, err = s.SubmitIncidentAt(model.Coordinate{Lat: 47.62, Lng: -122.35}, nil, "")
	assert.True(t, eris.Is(err, ErrNoIssues))
	assert.Empty(t, s.Incidents())
}

func TestSubmitIncidentAtConcurrent(t *testing.T) {
	s := newState()

	const submitters = 8
	var wg sync.WaitGroup
	for i := range submitters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pos := model.Coordinate{Lat: 40 + float64(i), Lng: -120}
			_, err := s.SubmitIncidentAt(pos, []string{fmt.Sprintf("lat-%d", i)}, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Every report carries the position it was submitted with, regardless
	// of interleaving.
	incidents := s.Incidents()
	require.Len(t, incidents, submitters)
	for _, inc := range incidents {
		require.Len(t, inc.IssueTags, 1)
		var i int
		_, err := fmt.Sscanf(inc.IssueTags[0], "lat-%d", &i)
		require.NoError(t, err)
		assert.Equal(t, 40+float64(i), inc.Position.Lat)
	}
}

func TestIncidentsMostRecentFirst(t *testing.T) {
	s := newState()

	s.SetSelection(model.Coordinate{Lat: 47.0, Lng: -122.0})
	first, err := s.SubmitIncident([]string{"heat"}, "first")
	require.NoError(t, err)

	s.SetSelection(model.Coordinate{Lat: 47.1, Lng: -122.1})
	second, err := s.SubmitIncident([]string{"odor"}, "second")
	require.NoError(t, err)

	list := s.Incidents()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestPublishFacilitiesGenerationGuard(t *testing.T) {
	s := newState()

	stale := s.BeginSearch()
	fresh := s.BeginSearch()
	require.Greater(t, fresh, stale)

	freshList := []model.AggregatedFacility{{
		FacilityRecord: model.FacilityRecord{ID: "fresh"},
	}}
	assert.True(t, s.PublishFacilities(fresh, freshList))
	assert.False(t, s.Searching())

	// The stale completion arrives afterwards and is discarded.
	staleList := []model.AggregatedFacility{{
		FacilityRecord: model.FacilityRecord{ID: "stale"},
	}}
	assert.False(t, s.PublishFacilities(stale, staleList))

	got := s.Facilities()
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].ID)
}

func TestPublishFacilitiesReplacesWithEmpty(t *testing.T) {
	s := newState()

	gen := s.BeginSearch()
	require.True(t, s.PublishFacilities(gen, []model.AggregatedFacility{{
		FacilityRecord: model.FacilityRecord{ID: "a"},
	}}))

	// A later zero-result cycle replaces the list wholesale.
	gen = s.BeginSearch()
	require.True(t, s.PublishFacilities(gen, nil))
	assert.Empty(t, s.Facilities())
}

func TestFacilitiesChangedCallback(t *testing.T) {
	s := newState()

	var events int
	s.OnFacilitiesChanged(func([]model.AggregatedFacility) { events++ })

	gen := s.BeginSearch()
	s.PublishFacilities(gen, nil)
	assert.Equal(t, 1, events)

	// Discarded stale publishes fire no callback.
	s.PublishFacilities(gen-1, nil)
	assert.Equal(t, 1, events)
}

func TestFilterIncidents(t *testing.T) {
	s := newState()

	s.SetSelection(model.Coordinate{Lat: 47.0, Lng: -122.0})
	_, err := s.SubmitIncident([]string{"noise"}, "loud trucks at night")
	require.NoError(t, err)

	s.SetSelection(model.Coordinate{Lat: 47.1, Lng: -122.1})
	_, err = s.SubmitIncident([]string{"water"}, "runoff into creek")
	require.NoError(t, err)

	// Matches against the issue label, not just the key.
	assert.Len(t, s.FilterIncidents("Noise Pollution"), 1)
	assert.Len(t, s.FilterIncidents("noise"), 1)
	// Matches against notes.
	assert.Len(t, s.FilterIncidents("creek"), 1)
	assert.Len(t, s.FilterIncidents("TRUCKS"), 1)
	// Empty term returns everything; no match returns nothing.
	assert.Len(t, s.FilterIncidents(""), 2)
	assert.Empty(t, s.FilterIncidents("wildfire"))
}

func TestLoadingFlags(t *testing.T) {
	s := newState()

	assert.False(t, s.Locating())
	s.SetLocating(true)
	assert.True(t, s.Locating())

	assert.False(t, s.Searching())
	s.BeginSearch()
	assert.True(t, s.Searching())
}
