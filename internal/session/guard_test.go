package session

import (
	"context"
	"net/http"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mergington/signup/internal/apitest"
	"github.com/mergington/signup/internal/store"
	"github.com/mergington/signup/pkg/client"
	"github.com/mergington/signup/pkg/domain"
)

func TestMutationRequiresLogin(t *testing.T) {
	tests := []struct {
		name string
		run  func(c *Controller) Outcome
		want string
	}{
		{"signup", func(c *Controller) Outcome {
			return c.Signup(context.Background(), "Chess Club", "a@b.com")
		}, "Teacher login required to register students"},
		{"unregister", func(c *Controller) Outcome {
			return c.Unregister(context.Background(), "Chess Club", "a@b.com")
		}, "Teacher login required to unregister students"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, token := range []string{"", "pending"} {
				b := &fakeBackend{}
				c, _ := newTestController(b, token)
				c.Restore() // Unauthenticated or Verifying: neither is authorized

				out := tt.run(c)
				if len(b.calls) != 0 {
					t.Errorf("calls = %v, want no request", b.calls)
				}
				if out.Notice == nil || out.Notice.Text != tt.want {
					t.Errorf("Notice = %+v, want %q", out.Notice, tt.want)
				}
				if out.Refresh {
					t.Error("rejected mutation must not refresh")
				}
			}
		})
	}
}

func TestMutationLocalValidation(t *testing.T) {
	b := &fakeBackend{}
	c, _ := loggedIn(t, b)

	if out := c.Signup(context.Background(), "Chess Club", "  "); out.Notice == nil || out.Notice.Text != "Email is required" {
		t.Errorf("empty email notice = %+v", out.Notice)
	}
	if out := c.Signup(context.Background(), "", "a@b.com"); out.Notice == nil || out.Notice.Text != "Select an activity" {
		t.Errorf("empty activity notice = %+v", out.Notice)
	}
	if len(b.calls) != 0 {
		t.Errorf("calls = %v, want none", b.calls)
	}
}

func TestMutationSuccessRefreshes(t *testing.T) {
	b := &fakeBackend{mutResp: &domain.MessageResponse{Message: "Signed up a@b.com for Chess Club"}}
	c, _ := loggedIn(t, b)

	out := c.Signup(context.Background(), "Chess Club", "a@b.com")
	if b.lastToken != "abc" {
		t.Errorf("bearer token = %q, want %q", b.lastToken, "abc")
	}
	if !out.Refresh {
		t.Error("expected Refresh after success")
	}
	if out.Notice == nil || out.Notice.Text != "Signed up a@b.com for Chess Club" || out.Notice.Kind != NoticeSuccess {
		t.Errorf("Notice = %+v", out.Notice)
	}
	if !c.IsAuthorized() {
		t.Error("success must not change the session")
	}
}

func TestMutationUnauthorizedExpiresSession(t *testing.T) {
	for _, action := range []Action{ActionSignup, ActionUnregister} {
		t.Run(action.String(), func(t *testing.T) {
			b := &fakeBackend{mutErr: httpErr(http.StatusUnauthorized, "Teacher authentication required")}
			c, st := loggedIn(t, b)

			var out Outcome
			if action == ActionSignup {
				out = c.Signup(context.Background(), "Chess Club", "a@b.com")
			} else {
				out = c.Unregister(context.Background(), "Chess Club", "a@b.com")
			}

			if c.State() != Unauthenticated {
				t.Errorf("State() = %s, want unauthenticated", c.State())
			}
			if tok, _ := st.Load(); tok != "" {
				t.Errorf("persisted token = %q, want removed", tok)
			}
			if !out.Expired {
				t.Error("expected Expired")
			}
			if out.Notice == nil || out.Notice.Text != "Authentication expired. Please login again." {
				t.Errorf("Notice = %+v, want expired notice", out.Notice)
			}
			if out.Refresh {
				t.Error("401 must not refresh")
			}
			assertConsistent(t, c)
		})
	}
}

func TestMutationOtherFailuresKeepSession(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		err    error
		want   string
	}{
		{"detail", ActionSignup, httpErr(http.StatusBadRequest, "Student is already signed up"), "Student is already signed up"},
		{"not found", ActionUnregister, httpErr(http.StatusNotFound, "Activity not found"), "Activity not found"},
		{"no detail", ActionSignup, httpErr(http.StatusInternalServerError, ""), "An error occurred"},
		{"transport signup", ActionSignup, errTransport, "Failed to sign up. Please try again."},
		{"transport unregister", ActionUnregister, errTransport, "Failed to unregister. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{mutErr: tt.err}
			c, st := loggedIn(t, b)

			m, _, ok := c.BeginMutation(tt.action, "Chess Club", "a@b.com")
			if !ok {
				t.Fatal("BeginMutation rejected an authorized call")
			}
			resp, err := c.RequestMutation(context.Background(), m)
			out := c.CompleteMutation(m, resp, err)

			if out.Notice == nil || out.Notice.Text != tt.want || out.Notice.Kind != NoticeError {
				t.Errorf("Notice = %+v, want error %q", out.Notice, tt.want)
			}
			if !c.IsAuthorized() {
				t.Error("session must survive non-401 failures")
			}
			if tok, _ := st.Load(); tok != "abc" {
				t.Errorf("persisted token = %q, want kept", tok)
			}
			if out.Refresh || out.Expired {
				t.Errorf("unexpected Refresh/Expired: %+v", out)
			}
		})
	}
}

func TestConcurrentMutationsHandledIndependently(t *testing.T) {
	b := &fakeBackend{}
	c, _ := loggedIn(t, b)

	first, _, _ := c.BeginMutation(ActionSignup, "Chess Club", "a@b.com")
	second, _, _ := c.BeginMutation(ActionUnregister, "Chess Club", "michael@mergington.edu")

	// Results arrive out of order; each is applied on its own.
	out2 := c.CompleteMutation(second, &domain.MessageResponse{Message: "Unregistered"}, nil)
	out1 := c.CompleteMutation(first, nil, httpErr(http.StatusBadRequest, "Student is already signed up"))

	if !out2.Refresh || out1.Refresh {
		t.Errorf("refresh flags = %v/%v, want true/false", out2.Refresh, out1.Refresh)
	}
	if !c.IsAuthorized() {
		t.Error("session must be intact")
	}
}

func TestGuardAgainstFakeBackend(t *testing.T) {
	srv := apitest.New(apitest.Teacher{Username: "ms.smith", Name: "Ms. Smith", Password: "pw"})
	defer srv.Close()

	st := store.NewMemoryStore("")
	c := New(client.New(srv.URL, 0), st, nil)
	c.Restore()

	// Unauthorized signup never reaches the server.
	before := srv.TotalHits()
	out := c.Signup(context.Background(), "Chess Club", "a@b.com")
	if srv.TotalHits() != before {
		t.Errorf("server saw %d requests, want none", srv.TotalHits()-before)
	}
	if out.Notice == nil || out.Notice.Text != "Teacher login required to register students" {
		t.Errorf("Notice = %+v", out.Notice)
	}

	if out := c.Login(context.Background(), "ms.smith", "pw"); out.Failed() {
		t.Fatalf("login failed: %+v", out)
	}
	out = c.Signup(context.Background(), "Chess Club", "a@b.com")
	if out.Notice == nil || out.Notice.Text != "Signed up a@b.com for Chess Club" {
		t.Errorf("signup Notice = %+v", out.Notice)
	}
	chess, _ := srv.Activities().Find("Chess Club")
	if !chess.HasParticipant("a@b.com") {
		t.Error("server did not record the signup")
	}

	out = c.Signup(context.Background(), "Chess Club", "a@b.com")
	if out.Notice == nil || out.Notice.Text != "Student is already signed up" {
		t.Errorf("duplicate signup Notice = %+v", out.Notice)
	}

	srv.RevokeTokens()
	out = c.Unregister(context.Background(), "Chess Club", "a@b.com")
	if !out.Expired || c.State() != Unauthenticated {
		t.Errorf("after revoke: Expired=%v state=%s", out.Expired, c.State())
	}
	if tok, _ := st.Load(); tok != "" {
		t.Errorf("persisted token = %q, want removed", tok)
	}
}

func TestLoginAgainstFakeBackend(t *testing.T) {
	srv := apitest.New(apitest.Teacher{Username: "ms.smith", Name: "Ms. Smith", Password: "pw"})
	defer srv.Close()

	c := New(client.New(srv.URL, 0), store.NewMemoryStore(""), nil)
	out := c.Login(context.Background(), "ms.smith", "wrong")
	if out.LoginError != "Invalid username or password" {
		t.Errorf("LoginError = %q", out.LoginError)
	}
}

func TestFailureLogsCarryRequestID(t *testing.T) {
	srv := apitest.New(apitest.Teacher{Username: "ms.smith", Name: "Ms. Smith", Password: "pw"})
	defer srv.Close()

	core, logs := observer.New(zap.InfoLevel)
	c := New(client.New(srv.URL, 0), store.NewMemoryStore(""), zap.New(core).Sugar())

	c.Login(context.Background(), "ms.smith", "wrong")
	if out := c.Login(context.Background(), "ms.smith", "pw"); out.Failed() {
		t.Fatalf("login failed: %+v", out)
	}
	c.Signup(context.Background(), "Nope", "a@b.com")
	srv.RevokeTokens()
	c.Signup(context.Background(), "Chess Club", "a@b.com")

	for _, msg := range []string{"login rejected", "mutation rejected by backend", "mutation unauthorized, session expired"} {
		entries := logs.FilterMessage(msg).All()
		if len(entries) != 1 {
			t.Errorf("%q logged %d times, want 1", msg, len(entries))
			continue
		}
		if id, _ := entries[0].ContextMap()["request_id"].(string); id == "" {
			t.Errorf("%q logged without request_id: %v", msg, entries[0].ContextMap())
		}
	}
}
