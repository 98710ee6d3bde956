// Package model defines the shared domain types for facility aggregation
// and incident reporting.
package model

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate is inside the legal WGS84 range.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Source identifies the provider a facility record originated from.
type Source string

const (
	// SourcePOI is the keyword point-of-interest search provider.
	SourcePOI Source = "poi"
	// SourceRegistry is the infrastructure registry provider (HIFLD-style).
	SourceRegistry Source = "registry"
	// SourceOverpass is the tagged-map-feature provider (Overpass).
	SourceOverpass Source = "overpass"
	// SourceECHO is the compliance registry provider (EPA ECHO-style).
	SourceECHO Source = "echo"
	// SourceFallback marks built-in sample facilities.
	SourceFallback Source = "fallback"
)

// FacilityRecord is one provider hit normalized to a common shape. Records
// live for a single aggregation cycle and are replaced wholesale on the next.
type FacilityRecord struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Position      Coordinate        `json:"position"`
	Operator      string            `json:"operator"`
	Source        Source            `json:"source"`
	RawAttributes map[string]string `json:"raw_attributes,omitempty"`
}

// ImpactCategory classifies a facility's dominant environmental burden.
type ImpactCategory string

const (
	ImpactHighThermal ImpactCategory = "high-thermal"
	ImpactNoise       ImpactCategory = "noise"
	ImpactCombined    ImpactCategory = "heat-noise"
	ImpactEmissions   ImpactCategory = "emissions"
	ImpactLow         ImpactCategory = "low-impact"
)

// AggregatedFacility is a deduplicated facility record with its impact
// classification attached.
type AggregatedFacility struct {
	FacilityRecord
	ImpactCategory ImpactCategory `json:"impact_category"`
	ImpactScore    int            `json:"impact_score"`
}
