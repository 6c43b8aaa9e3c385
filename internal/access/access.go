// Package access decides whether a caller may act on a service request or
// assignment. It knows nothing about how callers were authenticated.
package access

import (
	"context"
	"fmt"

	"errandhub/internal/types"
)

type Role string

const (
	RoleRequester Role = "requester"
	RoleProvider  Role = "provider"
	RoleAdmin     Role = "admin"
)

// Caller is the authenticated identity behind an operation.
type Caller struct {
	UserID types.ID
	Role   Role
}

func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

type Action string

const (
	ActionView       Action = "view"
	ActionEdit       Action = "edit"
	ActionDelete     Action = "delete"
	ActionAccept     Action = "accept"
	ActionAdvance    Action = "advance"
	ActionCancel     Action = "cancel"
	ActionSetPayment Action = "set_payment"
	ActionRate       Action = "rate"
)

// Resource carries the ownership facts of the target. ProviderID is empty while no
// assignment exists. Open is true while the request is still pending.
type Resource struct {
	RequesterID types.ID
	ProviderID  types.ID
	Open        bool
}

// Authorizer returns nil to allow, or an error wrapping types.ErrForbidden.
type Authorizer interface {
	Allow(ctx context.Context, caller Caller, action Action, res Resource) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, caller Caller, action Action, res Resource) error

func (f AuthorizerFunc) Allow(ctx context.Context, caller Caller, action Action, res Resource) error {
	return f(ctx, caller, action, res)
}

// Policy is the default marketplace rule set.
type Policy struct{}

func (Policy) Allow(_ context.Context, caller Caller, action Action, res Resource) error {
	if caller.UserID == "" {
		return deny(action, "anonymous caller")
	}
	isRequester := caller.UserID == res.RequesterID
	isProvider := res.ProviderID != "" && caller.UserID == res.ProviderID

	switch action {
	case ActionAccept:
		// admins get no exemption here: nobody serves their own request
		if isRequester {
			return deny(action, "cannot accept your own request")
		}
		if caller.Role == RoleRequester {
			return deny(action, "requester role cannot accept requests")
		}
		return nil
	case ActionSetPayment:
		if caller.IsAdmin() {
			return nil
		}
		return deny(action, "admin role required")
	}

	if caller.IsAdmin() {
		return nil
	}

	switch action {
	case ActionView:
		if isRequester || isProvider || res.Open {
			return nil
		}
	case ActionEdit, ActionDelete:
		if isRequester {
			return nil
		}
	case ActionAdvance:
		if isProvider {
			return nil
		}
	case ActionCancel, ActionRate:
		if isRequester || isProvider {
			return nil
		}
	default:
		return deny(action, "unknown action")
	}
	return deny(action, "caller is not a party to this request")
}

func deny(action Action, reason string) error {
	return fmt.Errorf("%w: %s: %s", types.ErrForbidden, action, reason)
}
