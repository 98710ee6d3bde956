// Package overlay keeps the three map marker collections (incidents,
// selection, facilities) consistent with session state, and resolves raw
// pointer events into geographic coordinates.
package overlay

import (
	"github.com/twpayne/go-geom"

	"github.com/envirowatch/envirowatch/internal/geodist"
	"github.com/envirowatch/envirowatch/internal/model"
)

// facilityPadding is the viewport margin, in pixels, kept around the
// facility bounding box.
const facilityPadding = 50

// Marker is one rendered map feature.
type Marker struct {
	Position   model.Coordinate
	Label      string
	Properties map[string]string
}

// Pixel is a device coordinate from a pointer event.
type Pixel struct {
	X float64
	Y float64
}

// Viewport describes a camera move: either a center+zoom or a bounding box
// with padding.
type Viewport struct {
	Center  *model.Coordinate
	Zoom    int
	Bounds  *geom.Bounds
	Padding int
}

// OverlayHandle is one independently clearable marker collection owned by
// the external map component.
type OverlayHandle interface {
	Clear()
	AddMarkers(markers []Marker)
}

// MapComponent is the external map the overlays render on.
type MapComponent interface {
	CreateOverlay() OverlayHandle
	ProjectPixelToCoordinate(p Pixel) (model.Coordinate, error)
	SetViewport(v Viewport)
}

// PointerEvent is a raw click or touch. It carries either a geographic
// position or a device pixel needing projection; events with neither do
// not resolve.
type PointerEvent struct {
	Position *model.Coordinate
	Pixel    *Pixel
}

// Sync owns the three overlays. Construct it once at map-ready time.
type Sync struct {
	mapc       MapComponent
	incidents  OverlayHandle
	selection  OverlayHandle
	facilities OverlayHandle

	seenIncidents map[string]struct{}
}

// New builds the overlay set on the given map component.
func New(mapc MapComponent) *Sync {
	return &Sync{
		mapc:          mapc,
		incidents:     mapc.CreateOverlay(),
		selection:     mapc.CreateOverlay(),
		facilities:    mapc.CreateOverlay(),
		seenIncidents: make(map[string]struct{}),
	}
}

// SetSelection clears the selection overlay and draws exactly one marker.
func (s *Sync) SetSelection(coord model.Coordinate) {
	s.selection.Clear()
	s.selection.AddMarkers([]Marker{{Position: coord}})
}

// Recenter moves the camera to a point at the given zoom.
func (s *Sync) Recenter(coord model.Coordinate, zoom int) {
	s.mapc.SetViewport(Viewport{Center: &coord, Zoom: zoom})
}

// ClearSelection empties the selection overlay.
func (s *Sync) ClearSelection() {
	s.selection.Clear()
}

// SetIncidents appends one marker per newly submitted incident. Existing
// incident markers are never removed within a session.
func (s *Sync) SetIncidents(incidents []model.Incident) {
	var fresh []Marker
	for _, inc := range incidents {
		if _, ok := s.seenIncidents[inc.ID]; ok {
			continue
		}
		s.seenIncidents[inc.ID] = struct{}{}

		label := ""
		if len(inc.IssueTags) > 0 {
			label = inc.IssueTags[0]
		}
		fresh = append(fresh, Marker{
			Position: inc.Position,
			Label:    label,
			Properties: map[string]string{
				"notes": inc.Notes,
			},
		})
	}
	if len(fresh) > 0 {
		s.incidents.AddMarkers(fresh)
	}
}

// SetFacilities fully redraws the facility overlay from the latest
// aggregation result. A non-empty list recenters the viewport to the
// bounding region containing every marker, plus a fixed padding margin; an
// empty list clears the overlay and leaves the viewport alone.
func (s *Sync) SetFacilities(facilities []model.AggregatedFacility) {
	s.facilities.Clear()
	if len(facilities) == 0 {
		return
	}

	markers := make([]Marker, 0, len(facilities))
	coords := make([]model.Coordinate, 0, len(facilities))
	for _, f := range facilities {
		markers = append(markers, Marker{
			Position: f.Position,
			Label:    string(f.ImpactCategory),
			Properties: map[string]string{
				"name":     f.Name,
				"operator": f.Operator,
				"source":   string(f.Source),
			},
		})
		coords = append(coords, f.Position)
	}
	s.facilities.AddMarkers(markers)

	s.mapc.SetViewport(Viewport{
		Bounds:  geodist.BoundsOf(coords),
		Padding: facilityPadding,
	})
}

// ResolvePointerEvent normalizes a raw pointer event into a coordinate.
// A provided geographic position wins over a pixel; a pixel is projected
// through the map component. Coordinates outside the WGS84 range are
// rejected. Every successful resolution draws the selection marker.
func (s *Sync) ResolvePointerEvent(ev PointerEvent) (model.Coordinate, bool) {
	var coord model.Coordinate
	switch {
	case ev.Position != nil:
		coord = *ev.Position
	case ev.Pixel != nil:
		projected, err := s.mapc.ProjectPixelToCoordinate(*ev.Pixel)
		if err != nil {
			return model.Coordinate{}, false
		}
		coord = projected
	default:
		return model.Coordinate{}, false
	}

	if !coord.Valid() {
		return model.Coordinate{}, false
	}

	s.SetSelection(coord)
	return coord, true
}
