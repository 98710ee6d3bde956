package aggregate

import (
	"strings"

	"github.com/envirowatch/envirowatch/internal/model"
)

// domainKeywords is the relevance vocabulary for keyword-search results.
// Registry, tag, and compliance sources are relevant by construction and
// skip the filter.
var domainKeywords = []string{
	"data", "server", "cloud", "computing", "ai", "artificial intelligence",
	"machine learning", "technology", "digital", "tech",
	"facility", "campus", "center", "company", "corporation", "inc",
	"systems", "solutions", "services", "research", "development",
}

// relevant reports whether a POI record's name, category tags, or address
// contains at least one domain keyword (case-insensitive substring match).
func relevant(rec model.FacilityRecord) bool {
	if rec.Source != model.SourcePOI {
		return true
	}

	haystacks := []string{
		strings.ToLower(rec.Name),
		strings.ToLower(rec.RawAttributes["categories"]),
		strings.ToLower(rec.RawAttributes["address"]),
	}
	for _, kw := range domainKeywords {
		for _, h := range haystacks {
			if h != "" && strings.Contains(h, kw) {
				return true
			}
		}
	}
	return false
}
