// README: Firebase Cloud Messaging notifier; each user subscribes to topic user_<id>.
package notify

import (
	"context"
	"fmt"
	"strconv"

	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"

	"errandhub/internal/types"
)

// Sender is implemented by *messaging.Client.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type FCMNotifier struct {
	sender Sender
	log    logrus.FieldLogger
}

func NewFCMNotifier(sender Sender, log logrus.FieldLogger) *FCMNotifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FCMNotifier{sender: sender, log: log}
}

func UserTopic(id types.ID) string {
	return "user_" + string(id)
}

func (n *FCMNotifier) Emit(ctx context.Context, e Event) error {
	if e.UserID == "" {
		return fmt.Errorf("%w: event %s has no recipient", types.ErrValidation, e.Type)
	}
	msg := &messaging.Message{
		Topic: UserTopic(e.UserID),
		Data: map[string]string{
			"type":       string(e.Type),
			"related_id": string(e.RelatedID),
			"detail":     e.Detail,
			"timestamp":  strconv.FormatInt(e.Timestamp.Unix(), 10),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
	if title, body := headline(e); title != "" {
		msg.Notification = &messaging.Notification{Title: title, Body: body}
	}

	messageID, err := n.sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("sending FCM to %s: %w", msg.Topic, err)
	}
	n.log.WithFields(logrus.Fields{"event": e.Type, "message_id": messageID}).Debug("fcm sent")
	return nil
}

func headline(e Event) (string, string) {
	switch e.Type {
	case RequestAccepted:
		return "Request accepted", "A provider accepted your request."
	case AssignmentStatus:
		return "Request update", "Your request is now " + e.Detail + "."
	case RequestCompleted:
		return "Request completed", "Your request has been completed."
	case RequestCancelled:
		return "Request cancelled", "A request you are part of was cancelled."
	case RatingAvailable:
		return "Rate your experience", "Let us know how it went."
	case PaymentStatus:
		return "Payment update", "Payment status: " + e.Detail + "."
	}
	return "", ""
}
