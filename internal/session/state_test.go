package session

import (
	"testing"

	"github.com/mergington/signup/pkg/domain"
)

func TestEnablementFor(t *testing.T) {
	smith := domain.Session{Token: "abc", TeacherName: "Ms. Smith"}
	tests := []struct {
		name     string
		state    State
		session  domain.Session
		authed   bool
		greeting string
	}{
		{"authenticated", Authenticated, smith, true, "Welcome, Ms. Smith"},
		{"verifying", Verifying, domain.Session{Token: "abc"}, false, ""},
		{"unauthenticated", Unauthenticated, domain.Session{}, false, ""},
		{"authenticated without name", Authenticated, domain.Session{Token: "abc"}, false, ""},
		{"authenticated without token", Authenticated, domain.Session{TeacherName: "Ms. Smith"}, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := EnablementFor(tt.state, tt.session)
			if e.SignupEnabled != tt.authed || e.RemoveEnabled != tt.authed || e.LogoutVisible != tt.authed {
				t.Errorf("signup=%v remove=%v logout=%v, want all %v", e.SignupEnabled, e.RemoveEnabled, e.LogoutVisible, tt.authed)
			}
			if e.LoginVisible == tt.authed {
				t.Errorf("LoginVisible = %v, want %v", e.LoginVisible, !tt.authed)
			}
			if e.Greeting != tt.greeting {
				t.Errorf("Greeting = %q, want %q", e.Greeting, tt.greeting)
			}
		})
	}
}
