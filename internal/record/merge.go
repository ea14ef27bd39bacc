package record

import (
	"errors"
	"sort"
)

// Merge flattens per-source record sequences into one chronological stream.
// Records are ordered by timestamp, with the lexically smaller id first on
// exact ties so the result is stable across runs. Malformed records are
// dropped and returned separately rather than aborting the merge.
func Merge(sources ...[]Record) ([]Record, []MalformedError) {
	var (
		merged    []Record
		malformed []MalformedError
	)
	for _, src := range sources {
		for _, rec := range src {
			if err := rec.Validate(); err != nil {
				var me *MalformedError
				if errors.As(err, &me) {
					malformed = append(malformed, *me)
				} else {
					malformed = append(malformed, MalformedError{ID: rec.ID, Reason: err.Error()})
				}
				continue
			}
			merged = append(merged, rec)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].Timestamp.Equal(merged[j].Timestamp) {
			return merged[i].Timestamp.Before(merged[j].Timestamp)
		}
		return merged[i].ID < merged[j].ID
	})
	return merged, malformed
}
