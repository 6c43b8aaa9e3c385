// README: Rating service validates submissions against the assignment they rate.
package rating

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"errandhub/internal/access"
	"errandhub/internal/modules/request"
	"errandhub/internal/types"
)

const maxCommentLen = 1000

// Assignments resolves the assignment being rated and its request.
type Assignments interface {
	GetAssignment(ctx context.Context, id types.ID) (*request.Assignment, error)
	GetRequest(ctx context.Context, id types.ID) (*request.ServiceRequest, error)
}

type Service struct {
	ratings     Repository
	assignments Assignments
	authz       access.Authorizer
	log         logrus.FieldLogger
	now         func() time.Time
}

func NewService(ratings Repository, assignments Assignments, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		ratings:     ratings,
		assignments: assignments,
		authz:       access.Policy{},
		log:         log,
		now:         time.Now,
	}
}

type SubmitCommand struct {
	AssignmentID types.ID
	Rater        access.Caller
	Score        int
	Comment      string
}

// Submit records the rater's score for the other party of a completed assignment.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*Rating, error) {
	if cmd.Score < MinScore || cmd.Score > MaxScore {
		return nil, fmt.Errorf("%w: score must be between %d and %d", types.ErrValidation, MinScore, MaxScore)
	}
	comment := strings.TrimSpace(cmd.Comment)
	if len(comment) > maxCommentLen {
		return nil, fmt.Errorf("%w: comment longer than %d characters", types.ErrValidation, maxCommentLen)
	}
	a, err := s.assignments.GetAssignment(ctx, cmd.AssignmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != request.AssignmentCompleted {
		return nil, fmt.Errorf("%w: only completed assignments can be rated", types.ErrConflict)
	}
	req, err := s.assignments.GetRequest(ctx, a.RequestID)
	if err != nil {
		return nil, err
	}
	res := access.Resource{RequesterID: req.RequesterID, ProviderID: a.ProviderID}
	if err := s.authz.Allow(ctx, cmd.Rater, access.ActionRate, res); err != nil {
		return nil, err
	}

	var ratee types.ID
	switch cmd.Rater.UserID {
	case req.RequesterID:
		ratee = a.ProviderID
	case a.ProviderID:
		ratee = req.RequesterID
	default:
		return nil, fmt.Errorf("%w: only the requester or the provider can rate", types.ErrForbidden)
	}

	r := &Rating{
		ID:           types.NewID(),
		AssignmentID: a.ID,
		RequestID:    req.ID,
		RaterID:      cmd.Rater.UserID,
		RateeID:      ratee,
		Score:        cmd.Score,
		Comment:      comment,
		CreatedAt:    s.now(),
	}
	if err := s.ratings.Create(ctx, r); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"assignment_id": a.ID, "rater_id": r.RaterID, "score": r.Score}).Info("rating submitted")
	return r, nil
}

func (s *Service) ListForUser(ctx context.Context, userID types.ID, page types.Page) ([]*Rating, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", types.ErrValidation)
	}
	return s.ratings.ListForUser(ctx, userID, page.Clamp())
}
