package session

import "github.com/mergington/signup/pkg/domain"

// State is the authentication status of the client.
type State int

const (
	Unauthenticated State = iota
	Verifying
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Verifying:
		return "verifying"
	case Authenticated:
		return "authenticated"
	}
	return "unknown"
}

// Enablement says which controls the UI may offer. It is derived from one
// state snapshot so the four flags can never disagree with each other.
type Enablement struct {
	SignupEnabled bool
	RemoveEnabled bool
	LoginVisible  bool
	LogoutVisible bool
	Greeting      string
}

// EnablementFor maps a state to UI enablement. Nothing is enabled for a
// session without a verified identity, whatever the state says.
func EnablementFor(state State, s domain.Session) Enablement {
	authed := state == Authenticated && s.Valid()
	e := Enablement{
		SignupEnabled: authed,
		RemoveEnabled: authed,
		LoginVisible:  !authed,
		LogoutVisible: authed,
	}
	if authed {
		e.Greeting = "Welcome, " + s.TeacherName
	}
	return e
}

// NoticeKind distinguishes confirmation notices from errors.
type NoticeKind int

const (
	NoticeSuccess NoticeKind = iota
	NoticeError
)

// Notice is a transient global message.
type Notice struct {
	Text string
	Kind NoticeKind
}

// Outcome tells the UI what an operation produced.
type Outcome struct {
	Notice *Notice
	// LoginError is inline text for the login prompt. Empty clears it.
	LoginError string
	// CloseLogin asks the UI to dismiss the login prompt.
	CloseLogin bool
	// Refresh asks for a full reload of the activity list.
	Refresh bool
	// Expired is set when a protected call ended the session.
	Expired bool
}

// Failed reports whether the outcome carries an error for the user.
func (o Outcome) Failed() bool {
	return o.LoginError != "" || (o.Notice != nil && o.Notice.Kind == NoticeError)
}

func success(text string) *Notice { return &Notice{Text: text, Kind: NoticeSuccess} }

func failure(text string) *Notice { return &Notice{Text: text, Kind: NoticeError} }

// User-visible texts.
const (
	msgLoginOK        = "Login successful!"
	msgLoginFailed    = "Login failed"
	msgLoginRetry     = "Login failed. Please try again."
	msgLoggedOut      = "Logged out successfully"
	msgVerifyFailed   = "Session could not be verified. Please login again."
	msgExpired        = "Authentication expired. Please login again."
	msgGenericError   = "An error occurred"
	msgEmailRequired  = "Email is required"
	msgSelectActivity = "Select an activity"
	msgSaveFailed     = "Logged in, but the session could not be saved"
	msgClearFailed    = "Logged out, but the saved session could not be removed"
)
