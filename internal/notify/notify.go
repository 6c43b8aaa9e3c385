// Package notify delivers lifecycle events to users. Delivery is best effort:
// callers log a failed Emit and carry on.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"errandhub/internal/types"
)

type EventType string

const (
	RequestAccepted  EventType = "request_accepted"
	AssignmentStatus EventType = "assignment_status"
	RequestCompleted EventType = "request_completed"
	RequestCancelled EventType = "request_cancelled"
	RatingAvailable  EventType = "rating_available"
	PaymentStatus    EventType = "payment_status"
)

// Event is addressed to one user. RelatedID names the request or assignment
// the event is about; Detail carries an optional status value.
type Event struct {
	Type      EventType
	UserID    types.ID
	RelatedID types.ID
	Detail    string
	Timestamp time.Time
}

type Notifier interface {
	Emit(ctx context.Context, e Event) error
}

type NotifierFunc func(ctx context.Context, e Event) error

func (f NotifierFunc) Emit(ctx context.Context, e Event) error { return f(ctx, e) }

// Nop discards every event.
var Nop Notifier = NotifierFunc(func(context.Context, Event) error { return nil })

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Emit(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Emit(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes events to the application log.
type LogNotifier struct {
	Log logrus.FieldLogger
}

func (l LogNotifier) Emit(_ context.Context, e Event) error {
	log := l.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithFields(logrus.Fields{
		"event":      e.Type,
		"user_id":    e.UserID,
		"related_id": e.RelatedID,
		"detail":     e.Detail,
	}).Info("notification")
	return nil
}
