package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/envirowatch/envirowatch/internal/fetcher"
	"github.com/envirowatch/envirowatch/internal/model"
)

// OverpassProvider runs a radius query for tagged data-center map features
// against an Overpass API endpoint.
type OverpassProvider struct {
	fetcher fetcher.JSONFetcher
	baseURL string
}

// NewOverpassProvider creates the spatial-tag provider.
func NewOverpassProvider(f fetcher.JSONFetcher, baseURL string) *OverpassProvider {
	return &OverpassProvider{
		fetcher: f,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name implements Provider.
func (p *OverpassProvider) Name() string { return "overpass" }

// Source implements Provider.
func (p *OverpassProvider) Source() model.Source { return model.SourceOverpass }

// overpassResponse is the Overpass JSON output shape.
type overpassResponse struct {
	Elements []struct {
		Type   string  `json:"type"`
		ID     int64   `json:"id"`
		Lat    float64 `json:"lat"`
		Lon    float64 `json:"lon"`
		Center *struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"center"`
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// Search implements Provider.
func (p *OverpassProvider) Search(ctx context.Context, center model.Coordinate, radiusMeters float64) ([]model.FacilityRecord, error) {
	query := fmt.Sprintf(`[out:json][timeout:25];
(
  node["telecom"="data_center"](around:%.0f,%f,%f);
  way["telecom"="data_center"](around:%.0f,%f,%f);
  node["amenity"="data_centre"](around:%.0f,%f,%f);
  way["amenity"="data_centre"](around:%.0f,%f,%f);
);
out center;`,
		radiusMeters, center.Lat, center.Lng,
		radiusMeters, center.Lat, center.Lng,
		radiusMeters, center.Lat, center.Lng,
		radiusMeters, center.Lat, center.Lng,
	)

	form := url.Values{}
	form.Set("data", query)

	var resp overpassResponse
	err := p.fetcher.PostJSON(ctx, p.baseURL+"/api/interpreter",
		"application/x-www-form-urlencoded", form.Encode(), &resp)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: radius query")
	}

	records := make([]model.FacilityRecord, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		pos := model.Coordinate{Lat: el.Lat, Lng: el.Lon}
		// Ways carry their location in the computed center.
		if el.Center != nil {
			pos = model.Coordinate{Lat: el.Center.Lat, Lng: el.Center.Lon}
		}
		if !pos.Valid() || (pos.Lat == 0 && pos.Lng == 0) {
			continue
		}

		name := el.Tags["name"]
		if name == "" {
			name = placeholderName(model.SourceOverpass, len(records)+1)
		}
		operator := el.Tags["operator"]
		if operator == "" {
			operator = unknownOperator
		}

		raw := map[string]string{}
		for _, tag := range []string{"telecom", "amenity", "building", "addr:street", "addr:city"} {
			if v, ok := el.Tags[tag]; ok {
				raw[tag] = v
			}
		}

		records = append(records, model.FacilityRecord{
			ID:            fmt.Sprintf("osm-%s-%d", el.Type, el.ID),
			Name:          name,
			Position:      pos,
			Operator:      operator,
			Source:        model.SourceOverpass,
			RawAttributes: raw,
		})
	}
	return records, nil
}
