package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envirowatch/envirowatch/internal/aggregate"
	"github.com/envirowatch/envirowatch/internal/model"
	"github.com/envirowatch/envirowatch/internal/overlay"
	"github.com/envirowatch/envirowatch/internal/session"
)

var center = model.Coordinate{Lat: 47.62, Lng: -122.35}

type fakeSearcher struct {
	mu      sync.Mutex
	centers []model.Coordinate
	result  *aggregate.Result
	err     error

	// when set, Aggregate blocks until the channel is closed
	gate chan struct{}
	// closed once Aggregate has been entered
	entered chan struct{}
}

func (f *fakeSearcher) Aggregate(_ context.Context, c model.Coordinate) (*aggregate.Result, error) {
	f.mu.Lock()
	f.centers = append(f.centers, c)
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if entered != nil {
		close(entered)
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeGeo struct {
	coord model.Coordinate
	err   error

	// observed value of state.Locating while the fix was in flight
	sawLocating bool
	state       *session.State
}

func (f *fakeGeo) CurrentLocation(context.Context) (model.Coordinate, error) {
	if f.state != nil {
		f.sawLocating = f.state.Locating()
	}
	return f.coord, f.err
}

type fakeOverlay struct {
	markers []overlay.Marker
	clears  int
}

func (f *fakeOverlay) Clear() {
	f.clears++
	f.markers = nil
}

func (f *fakeOverlay) AddMarkers(markers []overlay.Marker) {
	f.markers = append(f.markers, markers...)
}

type fakeMap struct {
	overlays  []*fakeOverlay
	viewports []overlay.Viewport
}

func (f *fakeMap) CreateOverlay() overlay.OverlayHandle {
	o := &fakeOverlay{}
	f.overlays = append(f.overlays, o)
	return o
}

func (f *fakeMap) ProjectPixelToCoordinate(overlay.Pixel) (model.Coordinate, error) {
	return model.Coordinate{}, eris.New("no projection in tests")
}

func (f *fakeMap) SetViewport(v overlay.Viewport) {
	f.viewports = append(f.viewports, v)
}

func (f *fakeMap) incidents() *fakeOverlay  { return f.overlays[0] }
func (f *fakeMap) selection() *fakeOverlay  { return f.overlays[1] }
func (f *fakeMap) facilities() *fakeOverlay { return f.overlays[2] }

func resultWith(names ...string) *aggregate.Result {
	res := &aggregate.Result{ProvidersQueried: []string{"poi"}}
	for i, name := range names {
		res.Facilities = append(res.Facilities, model.AggregatedFacility{
			FacilityRecord: model.FacilityRecord{
				ID:       name,
				Name:     name,
				Source:   model.SourcePOI,
				Position: model.Coordinate{Lat: center.Lat + float64(i)*0.01, Lng: center.Lng},
			},
			ImpactCategory: model.ImpactLow,
			ImpactScore:    3,
		})
	}
	return res
}

func TestRequestFacilitySearchPublishes(t *testing.T) {
	state := session.New()
	searcher := &fakeSearcher{result: resultWith("Facility A", "Facility B")}
	a := New(state, searcher, nil)
	m := &fakeMap{}
	a.AttachMap(m)

	err := a.RequestFacilitySearch(t.Context(), center)
	require.NoError(t, err)

	require.Equal(t, []model.Coordinate{center}, searcher.centers)
	assert.Len(t, state.Facilities(), 2)
	assert.False(t, state.Searching())
	assert.Len(t, m.facilities().markers, 2)
	require.Len(t, m.viewports, 1, "non-empty results frame the viewport")
}

func TestRequestFacilitySearchError(t *testing.T) {
	state := session.New()
	searcher := &fakeSearcher{err: eris.New("all sources down")}
	a := New(state, searcher, nil)

	err := a.RequestFacilitySearch(t.Context(), center)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "facility search")
	assert.Empty(t, state.Facilities())
	assert.False(t, state.Searching(), "a failed search must clear the loading flag")
}

func TestRequestFacilitySearchStaleResultDiscarded(t *testing.T) {
	state := session.New()
	slow := &fakeSearcher{
		result:  resultWith("Stale Hall"),
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
	a := New(state, slow, nil)

	done := make(chan error, 1)
	go func() {
		done <- a.RequestFacilitySearch(context.Background(), center)
	}()
	<-slow.entered

	// A newer cycle completes while the first is still in flight.
	slow.mu.Lock()
	gate := slow.gate
	slow.gate, slow.entered = nil, nil
	slow.result = resultWith("Fresh Hall")
	slow.mu.Unlock()
	require.NoError(t, a.RequestFacilitySearch(context.Background(), center))

	// Release the first cycle; its publish must be rejected.
	close(gate)
	require.NoError(t, <-done)

	facilities := state.Facilities()
	require.Len(t, facilities, 1)
	assert.Equal(t, "Fresh Hall", facilities[0].Name)
}

func TestResolvePointerSelectsAndDraws(t *testing.T) {
	state := session.New()
	a := New(state, &fakeSearcher{result: resultWith()}, nil)
	m := &fakeMap{}
	a.AttachMap(m)

	coord, ok := a.ResolvePointer(overlay.PointerEvent{Position: &center})
	require.True(t, ok)
	assert.Equal(t, center, coord)

	got, selected := state.Selection()
	require.True(t, selected)
	assert.Equal(t, center, got)
	require.Len(t, m.selection().markers, 1)
}

func TestResolvePointerWithoutMap(t *testing.T) {
	a := New(session.New(), &fakeSearcher{}, nil)

	_, ok := a.ResolvePointer(overlay.PointerEvent{Position: &center})
	assert.False(t, ok)
}

func TestSubmitIncidentClearsSelectionAndMarks(t *testing.T) {
	state := session.New()
	a := New(state, &fakeSearcher{result: resultWith()}, nil)
	m := &fakeMap{}
	a.AttachMap(m)

	_, ok := a.ResolvePointer(overlay.PointerEvent{Position: &center})
	require.True(t, ok)

	inc, authority, err := a.SubmitIncident([]string{"noise"}, "loud trucks at night")
	require.NoError(t, err)

	assert.Equal(t, center, inc.Position)
	assert.Equal(t, "Local Police Department", authority.Name)

	_, selected := state.Selection()
	assert.False(t, selected)
	assert.Empty(t, m.selection().markers)
	require.Len(t, m.incidents().markers, 1)
	assert.Equal(t, "noise", m.incidents().markers[0].Label)
}

func TestSubmitIncidentDefaultAuthority(t *testing.T) {
	state := session.New()
	a := New(state, &fakeSearcher{}, nil)
	state.SetSelection(center)

	_, authority, err := a.SubmitIncident([]string{"light"}, "")
	require.NoError(t, err)
	assert.Equal(t, "Local Environmental Department", authority.Name)
}

func TestSubmitIncidentAtExplicitPosition(t *testing.T) {
	state := session.New()
	a := New(state, &fakeSearcher{}, nil)

	inc, authority, err := a.SubmitIncidentAt(center, []string{"water"}, "runoff into the creek")
	require.NoError(t, err)
	assert.Equal(t, center, inc.Position)
	assert.Equal(t, "EPA Water Division", authority.Name)

	_, selected := state.Selection()
	assert.False(t, selected, "explicit-position submit needs no selection")
}

func TestSubmitIncidentWithoutSelection(t *testing.T) {
	a := New(session.New(), &fakeSearcher{}, nil)

	_, _, err := a.SubmitIncident([]string{"noise"}, "")
	require.Error(t, err)
	assert.True(t, eris.Is(err, session.ErrNoSelection))
}

func TestUseLocationRecentersAndSearches(t *testing.T) {
	state := session.New()
	searcher := &fakeSearcher{result: resultWith()}
	geo := &fakeGeo{coord: model.Coordinate{Lat: 47.70, Lng: -122.40}, state: state}
	a := New(state, searcher, geo)
	m := &fakeMap{}
	a.AttachMap(m)

	coord, err := a.UseLocation(t.Context())
	require.NoError(t, err)
	assert.Equal(t, geo.coord, coord)

	assert.True(t, geo.sawLocating, "locating flag must be set while the fix is in flight")
	assert.False(t, state.Locating())

	require.NotEmpty(t, m.viewports)
	vp := m.viewports[0]
	require.NotNil(t, vp.Center)
	assert.Equal(t, geo.coord, *vp.Center)
	assert.Equal(t, locateZoom, vp.Zoom)

	require.Equal(t, []model.Coordinate{geo.coord}, searcher.centers)
}

func TestUseLocationErrors(t *testing.T) {
	tests := []struct {
		name string
		geo  GeolocationSource
		want string
	}{
		{
			name: "no source",
			geo:  nil,
			want: "no location source",
		},
		{
			name: "source failure",
			geo:  &fakeGeo{err: eris.New("permission denied")},
			want: "locate device",
		},
		{
			name: "out of range fix",
			geo:  &fakeGeo{coord: model.Coordinate{Lat: 95, Lng: 0}},
			want: "out-of-range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := session.New()
			a := New(state, &fakeSearcher{result: resultWith()}, tt.geo)

			_, err := a.UseLocation(t.Context())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.False(t, state.Locating())
		})
	}
}

func TestUseLocationSearchTimeout(t *testing.T) {
	state := session.New()
	searcher := &fakeSearcher{err: eris.New("deadline exceeded")}
	geo := &fakeGeo{coord: center}
	a := New(state, searcher, geo)

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()

	coord, err := a.UseLocation(ctx)
	require.Error(t, err)
	assert.Equal(t, center, coord, "the fix is still returned when the search fails")
}
