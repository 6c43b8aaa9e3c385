// README: Matching candidates returned to providers.
package matching

import (
	"errandhub/internal/modules/request"
)

// Candidate is an open request paired with its distance from the provider.
type Candidate struct {
	Request       *request.ServiceRequest `json:"request"`
	DistanceMiles float64                 `json:"distance_miles"`
}

const (
	// DefaultRadiusMiles is the provider service radius.
	DefaultRadiusMiles = 2.0
	// DefaultMaxCandidates is how many open requests one storage read returns;
	// matching keeps reading until the box is exhausted.
	DefaultMaxCandidates = 500
)
