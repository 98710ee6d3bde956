package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/envirowatch/envirowatch/internal/fetcher"
	"github.com/envirowatch/envirowatch/internal/model"
)

// echoBBoxDegrees is the half-width of the compliance registry query box.
const echoBBoxDegrees = 0.5

// ECHOProvider queries an EPA ECHO-style compliance registry for regulated
// facilities inside a bounding box. Violation history rides along in the
// record attributes and feeds impact scoring.
type ECHOProvider struct {
	fetcher fetcher.JSONFetcher
	baseURL string
}

// NewECHOProvider creates the compliance registry provider.
func NewECHOProvider(f fetcher.JSONFetcher, baseURL string) *ECHOProvider {
	return &ECHOProvider{
		fetcher: f,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name implements Provider.
func (p *ECHOProvider) Name() string { return "epa_echo" }

// Source implements Provider.
func (p *ECHOProvider) Source() model.Source { return model.SourceECHO }

// echoResponse is the ECHO facility search response shape. ECHO reports
// numeric fields as strings.
type echoResponse struct {
	Results struct {
		Facilities []struct {
			RegistryID         string `json:"RegistryID"`
			FacName            string `json:"FacName"`
			FacLat             string `json:"FacLat"`
			FacLong            string `json:"FacLong"`
			FacStreet          string `json:"FacStreet"`
			FacCity            string `json:"FacCity"`
			FacQtrsWithNC      string `json:"FacQtrsWithNC"`
			FacDateLastInsp    string `json:"FacDateLastInspection"`
			FacParentCompanies string `json:"FacParentCompanies"`
		} `json:"Facilities"`
	} `json:"Results"`
}

// Search implements Provider. The radius argument is ignored in favor of a
// fixed ±0.5° box, mirroring the registry provider.
func (p *ECHOProvider) Search(ctx context.Context, center model.Coordinate, _ float64) ([]model.FacilityRecord, error) {
	q := url.Values{}
	q.Set("output", "JSON")
	q.Set("p_c1lat", fmt.Sprintf("%f", center.Lat-echoBBoxDegrees))
	q.Set("p_c1lon", fmt.Sprintf("%f", center.Lng-echoBBoxDegrees))
	q.Set("p_c2lat", fmt.Sprintf("%f", center.Lat+echoBBoxDegrees))
	q.Set("p_c2lon", fmt.Sprintf("%f", center.Lng+echoBBoxDegrees))
	queryURL := p.baseURL + "/echo_rest_services.get_facilities?" + q.Encode()

	var resp echoResponse
	if err := p.fetcher.GetJSON(ctx, queryURL, &resp); err != nil {
		return nil, eris.Wrap(err, "echo: facility query")
	}

	records := make([]model.FacilityRecord, 0, len(resp.Results.Facilities))
	for _, fac := range resp.Results.Facilities {
		lat, latErr := strconv.ParseFloat(fac.FacLat, 64)
		lng, lngErr := strconv.ParseFloat(fac.FacLong, 64)
		if latErr != nil || lngErr != nil {
			continue
		}

		name := fac.FacName
		if name == "" {
			name = placeholderName(model.SourceECHO, len(records)+1)
		}
		operator := fac.FacParentCompanies
		if operator == "" {
			operator = unknownOperator
		}

		raw := map[string]string{
			"address": strings.TrimSpace(fac.FacStreet + " " + fac.FacCity),
		}
		if fac.FacQtrsWithNC != "" {
			raw["violations"] = fac.FacQtrsWithNC
		}
		if fac.FacDateLastInsp != "" {
			raw["last_inspection"] = fac.FacDateLastInsp
		}

		records = append(records, model.FacilityRecord{
			ID:            "echo-" + fac.RegistryID,
			Name:          name,
			Position:      model.Coordinate{Lat: lat, Lng: lng},
			Operator:      operator,
			Source:        model.SourceECHO,
			RawAttributes: raw,
		})
	}
	return records, nil
}

// Violations extracts the violation count a compliance record carries, or 0
// when the record has none.
func Violations(rec model.FacilityRecord) int {
	v, err := strconv.Atoi(rec.RawAttributes["violations"])
	if err != nil || v < 0 {
		return 0
	}
	return v
}
