package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envirowatch/envirowatch/internal/model"
)

const echoHits = `{
  "Results": {
    "Facilities": [
      {
        "RegistryID": "110000123456",
        "FacName": "NORTHWEST POWER GENERATION",
        "FacLat": "47.6011",
        "FacLong": "-122.3321",
        "FacStreet": "800 5TH AVE",
        "FacCity": "SEATTLE",
        "FacQtrsWithNC": "7",
        "FacDateLastInspection": "2024-11-02",
        "FacParentCompanies": "NW ENERGY HOLDINGS"
      },
      {
        "RegistryID": "110000654321",
        "FacName": "BAD COORDS SITE",
        "FacLat": "not-a-number",
        "FacLong": "-122.3"
      }
    ]
  }
}`

func TestECHOSearch(t *testing.T) {
	f := &stubFetcher{responses: map[string]string{"": echoHits}}
	p := NewECHOProvider(f, "https://echo.example.gov")

	recs, err := p.Search(t.Context(), model.Coordinate{Lat: 47.6, Lng: -122.33}, 0)
	require.NoError(t, err)
	// The unparseable-coordinate facility is dropped.
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, "echo-110000123456", rec.ID)
	assert.Equal(t, "NORTHWEST POWER GENERATION", rec.Name)
	assert.Equal(t, "NW ENERGY HOLDINGS", rec.Operator)
	assert.Equal(t, model.SourceECHO, rec.Source)
	assert.Equal(t, model.Coordinate{Lat: 47.6011, Lng: -122.3321}, rec.Position)
	assert.Equal(t, "7", rec.RawAttributes["violations"])
	assert.Equal(t, "2024-11-02", rec.RawAttributes["last_inspection"])
	assert.Equal(t, "800 5TH AVE SEATTLE", rec.RawAttributes["address"])
}

func TestECHOSearchBoundingBox(t *testing.T) {
	f := &stubFetcher{responses: map[string]string{"": `{"Results":{"Facilities":[]}}`}}
	p := NewECHOProvider(f, "https://echo.example.gov")

	_, err := p.Search(t.Context(), model.Coordinate{Lat: 47.0, Lng: -122.0}, 12345)
	require.NoError(t, err)
	require.Len(t, f.urls, 1)
	assert.Contains(t, f.urls[0], "p_c1lat=46.500000")
	assert.Contains(t, f.urls[0], "p_c2lon=-121.500000")
	assert.Contains(t, f.urls[0], "output=JSON")
}

func TestViolations(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]string
		want int
	}{
		{name: "present", raw: map[string]string{"violations": "7"}, want: 7},
		{name: "zero", raw: map[string]string{"violations": "0"}, want: 0},
		{name: "missing", raw: map[string]string{}, want: 0},
		{name: "garbage", raw: map[string]string{"violations": "n/a"}, want: 0},
		{name: "negative clamps", raw: map[string]string{"violations": "-3"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := model.FacilityRecord{RawAttributes: tt.raw}
			assert.Equal(t, tt.want, Violations(rec))
		})
	}
}
