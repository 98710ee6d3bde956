package aggregate

import (
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/envirowatch/envirowatch/internal/model"
)

// fallbackYAML is the built-in sample set substituted when every provider
// fails with a transport error and the fallback is enabled in config. The
// offsets place the samples around whatever center was searched.
const fallbackYAML = `
- name: AI Training Facility
  operator: AI Research Corp
  lat_offset: 0.005
  lng_offset: 0.005
  impact_category: high-thermal
  impact_score: 8
- name: Machine Learning Data Center
  operator: ML Computing Inc
  lat_offset: -0.003
  lng_offset: -0.003
  impact_category: heat-noise
  impact_score: 6
- name: Cloud AI Facility
  operator: Cloud AI Services
  lat_offset: 0.002
  lng_offset: -0.004
  impact_category: emissions
  impact_score: 7
`

type fallbackEntry struct {
	Name           string  `yaml:"name"`
	Operator       string  `yaml:"operator"`
	LatOffset      float64 `yaml:"lat_offset"`
	LngOffset      float64 `yaml:"lng_offset"`
	ImpactCategory string  `yaml:"impact_category"`
	ImpactScore    int     `yaml:"impact_score"`
}

var (
	fallbackOnce    sync.Once
	fallbackEntries []fallbackEntry
)

// fallbackFacilities materializes the sample set around the given center.
func fallbackFacilities(center model.Coordinate) []model.AggregatedFacility {
	fallbackOnce.Do(func() {
		// The sample set is compiled in; a parse failure is a bug, not a
		// runtime condition.
		if err := yaml.Unmarshal([]byte(fallbackYAML), &fallbackEntries); err != nil {
			panic(fmt.Sprintf("aggregate: parse fallback sample set: %v", err))
		}
	})

	out := make([]model.AggregatedFacility, 0, len(fallbackEntries))
	for i, e := range fallbackEntries {
		out = append(out, model.AggregatedFacility{
			FacilityRecord: model.FacilityRecord{
				ID:   fmt.Sprintf("fallback-%d", i+1),
				Name: e.Name,
				Position: model.Coordinate{
					Lat: center.Lat + e.LatOffset,
					Lng: center.Lng + e.LngOffset,
				},
				Operator: e.Operator,
				Source:   model.SourceFallback,
			},
			ImpactCategory: model.ImpactCategory(e.ImpactCategory),
			ImpactScore:    e.ImpactScore,
		})
	}
	return out
}
