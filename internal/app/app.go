// Package app wires session state, the facility aggregator, and the map
// overlays into the application surface the CLI and HTTP server call.
package app

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/envirowatch/envirowatch/internal/aggregate"
	"github.com/envirowatch/envirowatch/internal/model"
	"github.com/envirowatch/envirowatch/internal/overlay"
	"github.com/envirowatch/envirowatch/internal/session"
)

// locateZoom is the camera zoom applied after a successful device locate.
const locateZoom = 15

// Searcher runs a multi-source facility aggregation around a center.
type Searcher interface {
	Aggregate(ctx context.Context, center model.Coordinate) (*aggregate.Result, error)
}

// GeolocationSource reports the device position.
type GeolocationSource interface {
	CurrentLocation(ctx context.Context) (model.Coordinate, error)
}

// App owns the session and mediates between state changes and the map.
type App struct {
	state *session.State
	agg   Searcher
	geo   GeolocationSource
	sync  *overlay.Sync
	log   *zap.Logger
}

// New builds an App. geo may be nil when no location source exists.
func New(state *session.State, agg Searcher, geo GeolocationSource) *App {
	return &App{
		state: state,
		agg:   agg,
		geo:   geo,
		log:   zap.L().With(zap.String("component", "app")),
	}
}

// State exposes the underlying session.
func (a *App) State() *session.State {
	return a.state
}

// AttachMap builds the overlay set on a ready map component and subscribes
// it to session changes. Call once per map instance.
func (a *App) AttachMap(mapc overlay.MapComponent) *overlay.Sync {
	s := overlay.New(mapc)
	a.sync = s

	a.state.OnSelectionChanged(func(coord *model.Coordinate) {
		if coord == nil {
			s.ClearSelection()
			return
		}
		s.SetSelection(*coord)
	})
	a.state.OnFacilitiesChanged(s.SetFacilities)
	a.state.OnIncidentsChanged(s.SetIncidents)

	return s
}

// ResolvePointer turns a raw map click or tap into a report selection.
// Unresolvable events are ignored.
func (a *App) ResolvePointer(ev overlay.PointerEvent) (model.Coordinate, bool) {
	if a.sync == nil {
		return model.Coordinate{}, false
	}
	coord, ok := a.sync.ResolvePointerEvent(ev)
	if !ok {
		return model.Coordinate{}, false
	}
	a.state.SetSelection(coord)
	return coord, true
}

// RequestFacilitySearch runs one aggregation cycle around center and
// publishes the outcome. Results from a cycle superseded by a newer one
// are discarded, so concurrent calls are safe.
func (a *App) RequestFacilitySearch(ctx context.Context, center model.Coordinate) error {
	gen := a.state.BeginSearch()

	res, err := a.agg.Aggregate(ctx, center)
	if err != nil {
		a.state.PublishFacilities(gen, nil)
		return eris.Wrap(err, "app: facility search")
	}

	if len(res.ProvidersFailed) > 0 {
		a.log.Warn("some facility sources failed",
			zap.Strings("failed", res.ProvidersFailed),
			zap.Int("found", len(res.Facilities)))
	}
	if !a.state.PublishFacilities(gen, res.Facilities) {
		a.log.Debug("discarded superseded facility results", zap.Uint64("generation", gen))
	}
	return nil
}

// UseLocation asks the device for its position, recenters the map on it,
// and kicks off a facility search there.
func (a *App) UseLocation(ctx context.Context) (model.Coordinate, error) {
	if a.geo == nil {
		return model.Coordinate{}, eris.New("app: no location source configured")
	}

	a.state.SetLocating(true)
	coord, err := a.geo.CurrentLocation(ctx)
	a.state.SetLocating(false)
	if err != nil {
		return model.Coordinate{}, eris.Wrap(err, "app: locate device")
	}
	if !coord.Valid() {
		return model.Coordinate{}, eris.Errorf("app: location source returned out-of-range coordinate (%f, %f)", coord.Lat, coord.Lng)
	}

	if a.sync != nil {
		a.sync.Recenter(coord, locateZoom)
	}

	if err := a.RequestFacilitySearch(ctx, coord); err != nil {
		return coord, err
	}
	return coord, nil
}

// SubmitIncident files a report at the current selection and returns the
// authority responsible for its primary issue.
func (a *App) SubmitIncident(issueTags []string, notes string) (model.Incident, model.AuthorityContact, error) {
	inc, err := a.state.SubmitIncident(issueTags, notes)
	return a.submitted(inc, err)
}

// SubmitIncidentAt files a report at an explicit position, bypassing the
// selection. Callers serving concurrent requests use this so position and
// report stay paired.
func (a *App) SubmitIncidentAt(position model.Coordinate, issueTags []string, notes string) (model.Incident, model.AuthorityContact, error) {
	inc, err := a.state.SubmitIncidentAt(position, issueTags, notes)
	return a.submitted(inc, err)
}

func (a *App) submitted(inc model.Incident, err error) (model.Incident, model.AuthorityContact, error) {
	if err != nil {
		return model.Incident{}, model.AuthorityContact{}, err
	}

	primary := ""
	if len(inc.IssueTags) > 0 {
		primary = inc.IssueTags[0]
	}
	authority := model.AuthorityFor(primary)

	a.log.Info("incident submitted",
		zap.String("id", inc.ID),
		zap.Strings("issues", inc.IssueTags),
		zap.String("authority", authority.Name))
	return inc, authority, nil
}
