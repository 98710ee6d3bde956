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

// hifldBBoxDegrees is the half-width of the registry bounding box query.
const hifldBBoxDegrees = 0.5

// HIFLDProvider queries a HIFLD-style ArcGIS feature service for
// organization-tagged infrastructure facilities inside a bounding box.
type HIFLDProvider struct {
	fetcher fetcher.JSONFetcher
	baseURL string
}

// NewHIFLDProvider creates the infrastructure registry provider.
func NewHIFLDProvider(f fetcher.JSONFetcher, baseURL string) *HIFLDProvider {
	return &HIFLDProvider{
		fetcher: f,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name implements Provider.
func (p *HIFLDProvider) Name() string { return "hifld" }

// Source implements Provider.
func (p *HIFLDProvider) Source() model.Source { return model.SourceRegistry }

// hifldResponse is the ArcGIS feature service query response shape.
type hifldResponse struct {
	Features []struct {
		Attributes struct {
			ObjectID int64  `json:"OBJECTID"`
			Name     string `json:"NAME"`
			Operator string `json:"OPERATOR"`
			Owner    string `json:"OWNER"`
			Address  string `json:"ADDRESS"`
			Type     string `json:"TYPE"`
		} `json:"attributes"`
		Geometry struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"geometry"`
	} `json:"features"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Search implements Provider. The radius argument is ignored: the registry
// is queried with a fixed envelope of ±0.5° around the center.
func (p *HIFLDProvider) Search(ctx context.Context, center model.Coordinate, _ float64) ([]model.FacilityRecord, error) {
	q := url.Values{}
	q.Set("where", "1=1")
	q.Set("geometry", fmt.Sprintf("%f,%f,%f,%f",
		center.Lng-hifldBBoxDegrees, center.Lat-hifldBBoxDegrees,
		center.Lng+hifldBBoxDegrees, center.Lat+hifldBBoxDegrees))
	q.Set("geometryType", "esriGeometryEnvelope")
	q.Set("inSR", "4326")
	q.Set("outSR", "4326")
	q.Set("outFields", "*")
	q.Set("f", "json")
	queryURL := p.baseURL + "/query?" + q.Encode()

	var resp hifldResponse
	if err := p.fetcher.GetJSON(ctx, queryURL, &resp); err != nil {
		return nil, eris.Wrap(err, "hifld: bounding box query")
	}
	if resp.Error != nil {
		return nil, eris.Errorf("hifld: service error %d: %s", resp.Error.Code, resp.Error.Message)
	}

	records := make([]model.FacilityRecord, 0, len(resp.Features))
	for _, feat := range resp.Features {
		operator := feat.Attributes.Operator
		if operator == "" {
			operator = feat.Attributes.Owner
		}
		if operator == "" {
			operator = unknownOperator
		}
		name := feat.Attributes.Name
		if name == "" {
			name = placeholderName(model.SourceRegistry, len(records)+1)
		}
		records = append(records, model.FacilityRecord{
			ID:       fmt.Sprintf("hifld-%d", feat.Attributes.ObjectID),
			Name:     name,
			Position: model.Coordinate{Lat: feat.Geometry.Y, Lng: feat.Geometry.X},
			Operator: operator,
			Source:   model.SourceRegistry,
			RawAttributes: map[string]string{
				"address": feat.Attributes.Address,
				"type":    feat.Attributes.Type,
			},
		})
	}
	return records, nil
}
