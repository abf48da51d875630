// Package session owns the client's authentication state machine and the
// guard in front of every student-mutating call.
package session

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mergington/signup/pkg/client"
	"github.com/mergington/signup/pkg/domain"
)

// Backend is the subset of the activities API the controller drives.
// *client.Client satisfies it.
type Backend interface {
	Login(ctx context.Context, username, password string) (*domain.LoginResponse, error)
	Verify(ctx context.Context, token string) (*domain.VerifyResponse, error)
	Signup(ctx context.Context, token, activity, email string) (*domain.MessageResponse, error)
	Unregister(ctx context.Context, token, activity, email string) (*domain.MessageResponse, error)
}

// CredentialStore persists the token across runs.
type CredentialStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Controller owns the single Session. It is not safe for concurrent use:
// every method except the Request* ones must run on one goroutine (the
// UI event loop). Request* methods only touch the backend and may run as
// background tasks; their results are fed back through Complete*.
type Controller struct {
	backend Backend
	store   CredentialStore
	log     *zap.SugaredLogger

	state   State
	session domain.Session
}

// New returns a controller in the Unauthenticated state. Call Restore to
// pick up a persisted token.
func New(backend Backend, store CredentialStore, log *zap.SugaredLogger) *Controller {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Controller{backend: backend, store: store, log: log}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Session returns a copy of the current session.
func (c *Controller) Session() domain.Session { return c.session }

// IsAuthorized is true only in Authenticated.
func (c *Controller) IsAuthorized() bool { return c.state == Authenticated }

// Enablement returns the UI enablement for the current state.
func (c *Controller) Enablement() Enablement { return EnablementFor(c.state, c.session) }

// Restore loads the persisted token. The controller enters Verifying when
// one exists and Unauthenticated otherwise.
func (c *Controller) Restore() State {
	tok, err := c.store.Load()
	if err != nil {
		c.log.Warnw("credential load failed, starting unauthenticated", "error", err)
		tok = ""
	}
	if tok == "" {
		c.session = domain.Session{}
		c.transition(Unauthenticated, "no stored credential")
		return c.state
	}
	c.session = domain.Session{Token: tok}
	c.transition(Verifying, "stored credential found")
	return c.state
}

// --- login ---

// Login sends the credentials and applies the result.
func (c *Controller) Login(ctx context.Context, username, password string) Outcome {
	resp, err := c.RequestLogin(ctx, username, password)
	return c.CompleteLogin(resp, err)
}

// RequestLogin performs the network half of Login.
func (c *Controller) RequestLogin(ctx context.Context, username, password string) (*domain.LoginResponse, error) {
	return c.backend.Login(ctx, username, password)
}

// CompleteLogin applies a login response. Failures leave the state alone
// and are reported inline for the login prompt.
func (c *Controller) CompleteLogin(resp *domain.LoginResponse, err error) Outcome {
	if err != nil {
		if client.IsTransport(err) {
			c.log.Errorw("login request failed", "error", err, "request_id", client.RequestID(err))
			return Outcome{LoginError: msgLoginRetry}
		}
		c.log.Warnw("login rejected", "error", err, "request_id", client.RequestID(err))
		return Outcome{LoginError: fallback(client.Detail(err), msgLoginFailed)}
	}
	if resp == nil || resp.AccessToken == "" {
		c.log.Errorw("login response missing access token")
		return Outcome{LoginError: msgLoginFailed}
	}
	if strings.TrimSpace(resp.TeacherName) == "" {
		c.log.Errorw("login response missing teacher name")
		return Outcome{LoginError: msgLoginFailed}
	}

	c.session = domain.Session{Token: resp.AccessToken, TeacherName: resp.TeacherName}
	c.transition(Authenticated, "login")

	out := Outcome{CloseLogin: true, Notice: success(msgLoginOK)}
	if err := c.store.Save(resp.AccessToken); err != nil {
		c.log.Errorw("credential save failed", "error", err)
		out.Notice = failure(msgSaveFailed)
	}
	return out
}

// --- verify ---

// Verify confirms a restored token with the backend. It does nothing
// unless the controller is Verifying.
func (c *Controller) Verify(ctx context.Context) Outcome {
	tok, ok := c.BeginVerify()
	if !ok {
		return Outcome{}
	}
	resp, err := c.RequestVerify(ctx, tok)
	return c.CompleteVerify(tok, resp, err)
}

// BeginVerify returns the token to verify, or false when no verification
// is pending.
func (c *Controller) BeginVerify() (string, bool) {
	if c.state != Verifying {
		return "", false
	}
	return c.session.Token, true
}

// RequestVerify performs the network half of Verify.
func (c *Controller) RequestVerify(ctx context.Context, token string) (*domain.VerifyResponse, error) {
	return c.backend.Verify(ctx, token)
}

// CompleteVerify applies a verify response for token. Anything short of an
// explicit confirmation naming the teacher drops the session (fail-closed). Results for a
// token that is no longer pending are ignored.
func (c *Controller) CompleteVerify(token string, resp *domain.VerifyResponse, err error) Outcome {
	if c.state != Verifying || c.session.Token != token {
		c.log.Infow("stale verify result ignored", "state", c.state.String())
		return Outcome{}
	}
	if err == nil && resp != nil && resp.Authenticated && strings.TrimSpace(resp.TeacherName) != "" {
		c.session.TeacherName = resp.TeacherName
		c.transition(Authenticated, "verified")
		return Outcome{}
	}

	if err != nil {
		c.log.Warnw("verify failed", "error", err, "request_id", client.RequestID(err))
	} else {
		c.log.Infow("stored credential not confirmed by backend")
	}
	out := c.drop("verify failed")
	if out.Notice == nil {
		out.Notice = failure(msgVerifyFailed)
	}
	return out
}

// --- logout ---

// Logout ends the session. Calling it again is harmless.
func (c *Controller) Logout() Outcome {
	out := c.drop("logout")
	if out.Notice == nil {
		out.Notice = success(msgLoggedOut)
	}
	return out
}

// drop clears the in-memory and persisted credential. The returned outcome
// only carries a notice when clearing the store failed.
func (c *Controller) drop(reason string) Outcome {
	c.session = domain.Session{}
	c.transition(Unauthenticated, reason)
	if err := c.store.Clear(); err != nil {
		c.log.Errorw("credential clear failed", "error", err)
		return Outcome{Notice: failure(msgClearFailed)}
	}
	return Outcome{}
}

func (c *Controller) transition(to State, reason string) {
	if c.state != to {
		c.log.Infow("session transition", "from", c.state.String(), "to", to.String(), "reason", reason)
	}
	c.state = to
}

func fallback(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
