// README: Transition graphs for requests and assignments; completed and cancelled are terminal.
package lifecycle

import "errandhub/internal/modules/request"

var requestGraph = map[request.Status][]request.Status{
	request.StatusPending:    {request.StatusAccepted, request.StatusCancelled},
	request.StatusAccepted:   {request.StatusInProgress, request.StatusCancelled},
	request.StatusInProgress: {request.StatusCompleted, request.StatusCancelled},
}

var assignmentGraph = map[request.AssignmentStatus][]request.AssignmentStatus{
	request.AssignmentAssigned:   {request.AssignmentAccepted, request.AssignmentInProgress, request.AssignmentCancelled},
	request.AssignmentAccepted:   {request.AssignmentInProgress, request.AssignmentCancelled},
	request.AssignmentInProgress: {request.AssignmentCompleted, request.AssignmentCancelled},
}

// CanTransition reports whether a request may move from one status to another.
func CanTransition(from, to request.Status) bool {
	for _, next := range requestGraph[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanAdvance reports whether an assignment may move from one status to another.
func CanAdvance(from, to request.AssignmentStatus) bool {
	for _, next := range assignmentGraph[from] {
		if next == to {
			return true
		}
	}
	return false
}
