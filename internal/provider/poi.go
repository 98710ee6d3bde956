package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/envirowatch/envirowatch/internal/fetcher"
	"github.com/envirowatch/envirowatch/internal/model"
)

// DefaultSearchTerms is the keyword list the POI provider queries, one
// request per term.
var DefaultSearchTerms = []string{
	"data center",
	"server farm",
	"technology campus",
	"computing facility",
	"AI facility",
	"machine learning",
	"cloud computing",
	"technology company",
	"tech campus",
	"digital facility",
}

// poiLimit caps results requested per term.
const poiLimit = 10

// POIProvider issues keyword point-of-interest searches against an
// Azure-Maps-style search endpoint.
type POIProvider struct {
	fetcher fetcher.JSONFetcher
	baseURL string
	apiKey  string
	terms   []string
}

// POIOption configures a POIProvider.
type POIOption func(*POIProvider)

// WithTerms overrides the default search term list.
func WithTerms(terms []string) POIOption {
	return func(p *POIProvider) {
		if len(terms) > 0 {
			p.terms = terms
		}
	}
}

// NewPOIProvider creates a keyword POI search provider.
func NewPOIProvider(f fetcher.JSONFetcher, baseURL, apiKey string, opts ...POIOption) *POIProvider {
	p := &POIProvider{
		fetcher: f,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		terms:   DefaultSearchTerms,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *POIProvider) Name() string { return "azure_poi" }

// Source implements Provider.
func (p *POIProvider) Source() model.Source { return model.SourcePOI }

// poiResponse is the wire shape of a POI search response.
type poiResponse struct {
	Results []struct {
		ID       string `json:"id"`
		Position struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"position"`
		POI struct {
			Name        string `json:"name"`
			CategorySet []struct {
				Name string `json:"name"`
			} `json:"categorySet"`
			Brands []struct {
				Name string `json:"name"`
			} `json:"brands"`
		} `json:"poi"`
		Address struct {
			FreeformAddress string `json:"freeformAddress"`
		} `json:"address"`
	} `json:"results"`
}

// Search implements Provider. Each term is queried independently; a failed
// term is logged and skipped so the remaining terms still contribute.
func (p *POIProvider) Search(ctx context.Context, center model.Coordinate, radiusMeters float64) ([]model.FacilityRecord, error) {
	log := zap.L().With(zap.String("provider", p.Name()))

	var records []model.FacilityRecord
	failed := 0
	for _, term := range p.terms {
		q := url.Values{}
		q.Set("api-version", "1.0")
		q.Set("query", term)
		q.Set("lat", fmt.Sprintf("%f", center.Lat))
		q.Set("lon", fmt.Sprintf("%f", center.Lng))
		q.Set("radius", fmt.Sprintf("%d", int(radiusMeters)))
		q.Set("limit", fmt.Sprintf("%d", poiLimit))
		if p.apiKey != "" {
			q.Set("subscription-key", p.apiKey)
		}
		searchURL := p.baseURL + "/search/poi/json?" + q.Encode()

		var resp poiResponse
		if err := p.fetcher.GetJSON(ctx, searchURL, &resp); err != nil {
			failed++
			log.Warn("term search failed", zap.String("term", term), zap.Error(err))
			continue
		}

		for _, r := range resp.Results {
			rec := model.FacilityRecord{
				ID:       r.ID,
				Name:     r.POI.Name,
				Position: model.Coordinate{Lat: r.Position.Lat, Lng: r.Position.Lon},
				Operator: r.POI.Name,
				Source:   model.SourcePOI,
				RawAttributes: map[string]string{
					"address": r.Address.FreeformAddress,
					"term":    term,
				},
			}
			if len(r.POI.Brands) > 0 && r.POI.Brands[0].Name != "" {
				rec.Operator = r.POI.Brands[0].Name
			}
			if rec.Operator == "" {
				rec.Operator = unknownOperator
			}
			if len(r.POI.CategorySet) > 0 {
				cats := make([]string, 0, len(r.POI.CategorySet))
				for _, c := range r.POI.CategorySet {
					cats = append(cats, c.Name)
				}
				rec.RawAttributes["categories"] = strings.Join(cats, ", ")
			}
			if rec.Name == "" {
				rec.Name = placeholderName(model.SourcePOI, len(records)+1)
			}
			if rec.ID == "" {
				rec.ID = fmt.Sprintf("poi-%f-%f", r.Position.Lat, r.Position.Lon)
			}
			records = append(records, rec)
		}
	}

	// Only surface an error when every term failed; partial coverage is
	// still a usable result.
	if failed == len(p.terms) {
		return nil, eris.Errorf("poi: all %d term searches failed", failed)
	}
	return records, nil
}
