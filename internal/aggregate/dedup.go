package aggregate

import (
	"github.com/envirowatch/envirowatch/internal/geodist"
	"github.com/envirowatch/envirowatch/internal/model"
)

// Dedup tolerances, in degrees. Records from the same source are duplicates
// only at exact position equality (providers echo the same point verbatim
// across keyword terms); across sources the cluster widens to roughly 100 m.
const (
	sameSourceTolerance  = 0.0
	crossSourceTolerance = 0.001
)

// dedup collapses spatial clusters to their first-seen record. Input order
// is provider invocation order, so earlier providers win. Idempotent.
func dedup(records []model.FacilityRecord) []model.FacilityRecord {
	kept := make([]model.FacilityRecord, 0, len(records))
	for _, rec := range records {
		dup := false
		for _, k := range kept {
			tol := crossSourceTolerance
			if k.Source == rec.Source {
				tol = sameSourceTolerance
			}
			if geodist.WithinDegrees(k.Position, rec.Position, tol) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, rec)
		}
	}
	return kept
}
