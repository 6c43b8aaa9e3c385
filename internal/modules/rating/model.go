// README: Ratings exchanged by the two parties of a completed assignment.
package rating

import (
	"time"

	"errandhub/internal/types"
)

const (
	MinScore = 1
	MaxScore = 5
)

type Rating struct {
	ID           types.ID  `json:"id"`
	AssignmentID types.ID  `json:"assignment_id"`
	RequestID    types.ID  `json:"request_id"`
	RaterID      types.ID  `json:"rater_id"`
	RateeID      types.ID  `json:"ratee_id"`
	Score        int       `json:"score"`
	Comment      string    `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
