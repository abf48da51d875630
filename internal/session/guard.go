package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mergington/signup/pkg/client"
	"github.com/mergington/signup/pkg/domain"
)

// Action is a student-mutating call.
type Action int

const (
	ActionSignup Action = iota
	ActionUnregister
)

func (a Action) String() string {
	if a == ActionUnregister {
		return "unregister"
	}
	return "signup"
}

// LoginRequired is the notice shown when the action is attempted without a session.
func (a Action) LoginRequired() string {
	if a == ActionUnregister {
		return "Teacher login required to unregister students"
	}
	return "Teacher login required to register students"
}

func (a Action) transportFailed() string {
	if a == ActionUnregister {
		return "Failed to unregister. Please try again."
	}
	return "Failed to sign up. Please try again."
}

// Mutation is an authorized request ready to send. Token is the bearer
// credential captured when the mutation was begun.
type Mutation struct {
	Action   Action
	Activity string
	Email    string
	Token    string
}

// Signup registers email for activity if the teacher is logged in.
func (c *Controller) Signup(ctx context.Context, activity, email string) Outcome {
	return c.mutate(ctx, ActionSignup, activity, email)
}

// Unregister removes email from activity if the teacher is logged in.
func (c *Controller) Unregister(ctx context.Context, activity, email string) Outcome {
	return c.mutate(ctx, ActionUnregister, activity, email)
}

func (c *Controller) mutate(ctx context.Context, action Action, activity, email string) Outcome {
	m, rejected, ok := c.BeginMutation(action, activity, email)
	if !ok {
		return rejected
	}
	resp, err := c.RequestMutation(ctx, m)
	return c.CompleteMutation(m, resp, err)
}

// BeginMutation checks the local preconditions. When ok is false the
// returned outcome explains why and no request must be sent.
func (c *Controller) BeginMutation(action Action, activity, email string) (Mutation, Outcome, bool) {
	if !c.IsAuthorized() {
		c.log.Infow("mutation rejected locally", "action", action.String(), "reason", "not authenticated")
		return Mutation{}, Outcome{Notice: failure(action.LoginRequired())}, false
	}
	activity = strings.TrimSpace(activity)
	email = strings.TrimSpace(email)
	if activity == "" {
		return Mutation{}, Outcome{Notice: failure(msgSelectActivity)}, false
	}
	if email == "" {
		return Mutation{}, Outcome{Notice: failure(msgEmailRequired)}, false
	}
	return Mutation{Action: action, Activity: activity, Email: email, Token: c.session.Token}, Outcome{}, true
}

// RequestMutation performs the network half of a mutation.
func (c *Controller) RequestMutation(ctx context.Context, m Mutation) (*domain.MessageResponse, error) {
	switch m.Action {
	case ActionSignup:
		return c.backend.Signup(ctx, m.Token, m.Activity, m.Email)
	case ActionUnregister:
		return c.backend.Unregister(ctx, m.Token, m.Activity, m.Email)
	}
	return nil, fmt.Errorf("session: unknown action %d", m.Action)
}

// CompleteMutation applies the response of m. Success asks for a refresh;
// 401 ends the session; other failures leave the session as it is.
func (c *Controller) CompleteMutation(m Mutation, resp *domain.MessageResponse, err error) Outcome {
	log := c.log.With("action", m.Action.String(), "activity", m.Activity)
	switch {
	case err == nil:
		log.Infow("mutation succeeded")
		text := ""
		if resp != nil {
			text = resp.Message
		}
		return Outcome{Notice: success(fallback(text, "Done")), Refresh: true}

	case client.IsStatus(err, http.StatusUnauthorized):
		log.Warnw("mutation unauthorized, session expired", "error", err, "request_id", client.RequestID(err))
		out := c.drop("unauthorized")
		// The expiry notice wins over a store error notice.
		out.Notice = failure(msgExpired)
		out.Expired = true
		return out

	case client.IsTransport(err):
		log.Errorw("mutation request failed", "error", err, "request_id", client.RequestID(err))
		return Outcome{Notice: failure(m.Action.transportFailed())}

	default:
		log.Warnw("mutation rejected by backend", "error", err, "request_id", client.RequestID(err))
		return Outcome{Notice: failure(fallback(client.Detail(err), msgGenericError))}
	}
}
