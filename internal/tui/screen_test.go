package tui

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/mergington/signup/internal/apitest"
	"github.com/mergington/signup/internal/session"
	"github.com/mergington/signup/pkg/domain"
)

var smith = domain.Session{Token: "abc", TeacherName: "Ms. Smith"}

func TestDescribeUnauthenticated(t *testing.T) {
	en := session.EnablementFor(session.Unauthenticated, domain.Session{})
	sc := describe(en, session.Unauthenticated, apitest.DefaultActivities(), uiState{})

	if sc.Greeting != "" {
		t.Errorf("Greeting = %q, want empty", sc.Greeting)
	}
	if !sc.LoginVisible || sc.LogoutVisible {
		t.Errorf("LoginVisible=%v LogoutVisible=%v, want true/false", sc.LoginVisible, sc.LogoutVisible)
	}
	if sc.Form.Enabled {
		t.Error("signup form enabled while logged out")
	}
	for _, c := range sc.Cards {
		for _, p := range c.Participants {
			if p.Removable {
				t.Errorf("%s/%s is removable while logged out", c.Name, p.Email)
			}
		}
	}
}

func TestDescribeAuthenticated(t *testing.T) {
	en := session.EnablementFor(session.Authenticated, smith)
	sc := describe(en, session.Authenticated, apitest.DefaultActivities(), uiState{cursor: 1, email: "new@mergington.edu"})

	if sc.Greeting != "Welcome, Ms. Smith" {
		t.Errorf("Greeting = %q, want %q", sc.Greeting, "Welcome, Ms. Smith")
	}
	if sc.LoginVisible || !sc.LogoutVisible {
		t.Errorf("LoginVisible=%v LogoutVisible=%v, want false/true", sc.LoginVisible, sc.LogoutVisible)
	}
	if !sc.Form.Enabled {
		t.Fatal("signup form disabled while logged in")
	}
	if sc.Form.Activity != "Programming Class" {
		t.Errorf("Form.Activity = %q, want %q", sc.Form.Activity, "Programming Class")
	}
	if sc.Form.Email != "new@mergington.edu" {
		t.Errorf("Form.Email = %q", sc.Form.Email)
	}
	for _, p := range sc.Cards[0].Participants {
		if !p.Removable {
			t.Errorf("%s not removable while logged in", p.Email)
		}
	}
}

func TestDescribeVerifyingOffersNoMutations(t *testing.T) {
	en := session.EnablementFor(session.Verifying, domain.Session{Token: "abc"})
	sc := describe(en, session.Verifying, apitest.DefaultActivities(), uiState{mode: modeSignup})

	if !sc.Verifying {
		t.Error("Verifying = false")
	}
	if sc.Form.Enabled || sc.Form.Focused {
		t.Error("signup form offered while verifying")
	}
	if sc.Greeting != "" {
		t.Errorf("Greeting = %q while verifying", sc.Greeting)
	}
}

func TestDescribeIsPure(t *testing.T) {
	en := session.EnablementFor(session.Authenticated, smith)
	acts := apitest.DefaultActivities()
	ui := uiState{cursor: 2, mode: modeParticipants, pcursor: 1}

	a := describe(en, session.Authenticated, acts, ui)
	b := describe(en, session.Authenticated, acts, ui)
	if !reflect.DeepEqual(a, b) {
		t.Error("describe returned different screens for identical inputs")
	}
}

func TestDescribeLoginPromptOnlyWhenLoginVisible(t *testing.T) {
	ui := uiState{mode: modeLogin, login: loginForm{username: "ms.smith", password: "pw"}}

	en := session.EnablementFor(session.Unauthenticated, domain.Session{})
	sc := describe(en, session.Unauthenticated, nil, ui)
	if sc.Login == nil {
		t.Fatal("login prompt missing while logged out")
	}
	if sc.Login.Password != "••" {
		t.Errorf("Password = %q, want masked", sc.Login.Password)
	}

	en = session.EnablementFor(session.Authenticated, smith)
	if sc := describe(en, session.Authenticated, nil, ui); sc.Login != nil {
		t.Error("login prompt shown while logged in")
	}
}

func TestDescribeSelectsParticipant(t *testing.T) {
	en := session.EnablementFor(session.Authenticated, smith)
	sc := describe(en, session.Authenticated, apitest.DefaultActivities(), uiState{cursor: 0, mode: modeParticipants, pcursor: 1})

	ps := sc.Cards[0].Participants
	if ps[0].Selected || !ps[1].Selected {
		t.Errorf("selection = [%v %v], want [false true]", ps[0].Selected, ps[1].Selected)
	}
	for _, p := range sc.Cards[1].Participants {
		if p.Selected {
			t.Errorf("participant %s selected on an unselected card", p.Email)
		}
	}
}

func TestDescribeSpotsLeft(t *testing.T) {
	acts := domain.ActivityList{
		{Name: "Full", MaxParticipants: 1, Participants: []string{"a@mergington.edu"}},
		{Name: "Open", MaxParticipants: 3, Participants: []string{"a@mergington.edu"}},
	}
	sc := describe(session.EnablementFor(session.Unauthenticated, domain.Session{}), session.Unauthenticated, acts, uiState{})
	if sc.Cards[0].SpotsLeft != 0 || sc.Cards[1].SpotsLeft != 2 {
		t.Errorf("SpotsLeft = %d, %d, want 0, 2", sc.Cards[0].SpotsLeft, sc.Cards[1].SpotsLeft)
	}
}

func TestRenderHidesRemoveWhenLoggedOut(t *testing.T) {
	ui := uiState{mode: modeParticipants}
	acts := apitest.DefaultActivities()

	out := describe(session.EnablementFor(session.Unauthenticated, domain.Session{}), session.Unauthenticated, acts, ui).render(100, 0, 0)
	if strings.Contains(out, "✕") {
		t.Error("remove affordance rendered while logged out")
	}
	if !strings.Contains(out, "michael@mergington.edu") {
		t.Error("participants of the selected activity not rendered")
	}
	if !strings.Contains(out, "teacher login required") {
		t.Error("disabled signup hint missing")
	}

	out = describe(session.EnablementFor(session.Authenticated, smith), session.Authenticated, acts, ui).render(100, 0, 0)
	if !strings.Contains(out, "✕") {
		t.Error("remove affordance missing while logged in")
	}
	if !strings.Contains(out, "Welcome, Ms. Smith") {
		t.Error("greeting missing")
	}
}

func TestRenderNoticeAndLoadError(t *testing.T) {
	ui := uiState{
		loadErr: msgLoadFailed,
		notice:  &session.Notice{Text: "Signed up a@b.com for Chess Club", Kind: session.NoticeSuccess},
	}
	out := describe(session.EnablementFor(session.Unauthenticated, domain.Session{}), session.Unauthenticated, nil, ui).render(100, 0, 0)
	for _, want := range []string{msgLoadFailed, "Signed up a@b.com for Chess Club"} {
		if !strings.Contains(out, want) {
			t.Errorf("render() missing %q", want)
		}
	}
}

func TestRenderRespectsHeight(t *testing.T) {
	en := session.EnablementFor(session.Authenticated, smith)
	out := describe(en, session.Authenticated, apitest.DefaultActivities(), uiState{}).render(80, 12, 0)
	if n := strings.Count(out, "\n") + 1; n > 12 {
		t.Errorf("render() produced %d lines for height 12", n)
	}
}

// schoolCatalogue is the full activity list the school backend seeds.
func schoolCatalogue() domain.ActivityList {
	names := []string{
		"Chess Club", "Programming Class", "Gym Class", "Soccer Team", "Basketball Team",
		"Art Club", "Drama Club", "Math Club", "Debate Team",
	}
	acts := make(domain.ActivityList, 0, len(names))
	for i, n := range names {
		acts = append(acts, domain.Activity{
			Name:            n,
			Description:     n + " meets weekly after school",
			Schedule:        "Fridays, 3:30 PM - 5:00 PM",
			MaxParticipants: 20,
			Participants:    []string{fmt.Sprintf("s%d.a@mergington.edu", i), fmt.Sprintf("s%d.b@mergington.edu", i)},
		})
	}
	return acts
}

func TestRenderKeepsFormAndSelectionOnScreen(t *testing.T) {
	acts := schoolCatalogue()
	en := session.EnablementFor(session.Authenticated, smith)

	tests := []struct {
		name   string
		ui     uiState
		expect []string
	}{
		{"signup on last card", uiState{mode: modeSignup, cursor: 8, email: "new@mergington.edu"}, []string{"email:", "new@mergington.edu", "Debate Team", "s8.b@mergington.edu"}},
		{"participants mid list", uiState{mode: modeParticipants, cursor: 5, pcursor: 1}, []string{"email:", "Art Club", "s5.a@mergington.edu", "s5.b@mergington.edu"}},
		{"browse first card", uiState{}, []string{"email:", "Chess Club", "s0.b@mergington.edu"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := describe(en, session.Authenticated, acts, tt.ui).render(100, 24, 0)
			if n := strings.Count(out, "\n") + 1; n > 24 {
				t.Errorf("render() produced %d lines for height 24", n)
			}
			for _, want := range tt.expect {
				if !strings.Contains(out, want) {
					t.Errorf("render() missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestScrollWindow(t *testing.T) {
	tests := []struct {
		total, viewport, selStart, selEnd int
		start, end                        int
	}{
		{10, 20, 2, 4, 0, 10},
		{40, 10, 0, 5, 0, 10},
		{40, 10, 30, 36, 26, 36},
		{40, 10, 36, 40, 30, 40},
		{40, 4, 10, 16, 10, 14},
		{40, 0, 10, 16, 0, 40},
	}
	for _, tt := range tests {
		start, end := scrollWindow(tt.total, tt.viewport, tt.selStart, tt.selEnd)
		if start != tt.start || end != tt.end {
			t.Errorf("scrollWindow(%d, %d, %d, %d) = %d, %d, want %d, %d",
				tt.total, tt.viewport, tt.selStart, tt.selEnd, start, end, tt.start, tt.end)
		}
	}
}
