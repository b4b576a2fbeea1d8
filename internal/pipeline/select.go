package pipeline

import "github.com/couchcryptid/flood-risk-service/internal/domain"

// Selector picks one location from the geocoder's candidates. Candidates are
// never empty when a Selector is called.
type Selector func(candidates []domain.Location) (domain.Location, error)

// FirstCandidate selects the provider's most relevant match.
func FirstCandidate(candidates []domain.Location) (domain.Location, error) {
	return candidates[0], nil
}

// CandidateAt selects the i-th candidate (zero based). An index past the end
// of the list is an invalid-input error.
func CandidateAt(i int) Selector {
	return func(candidates []domain.Location) (domain.Location, error) {
		if i < 0 || i >= len(candidates) {
			return domain.Location{}, domain.InvalidInputf("pipeline.select",
				"candidate %d requested, %d available", i, len(candidates))
		}
		return candidates[i], nil
	}
}
