package domain

// Session is the signed-in teacher as seen by the client.
// TeacherName is set only once the token has been confirmed by the backend.
type Session struct {
	Token       string
	TeacherName string
}

// Valid reports whether the session carries a verified identity.
func (s Session) Valid() bool {
	return s.Token != "" && s.TeacherName != ""
}

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	TeacherName string `json:"teacher_name"`
}

// VerifyResponse is returned by GET /auth/verify.
type VerifyResponse struct {
	Authenticated bool   `json:"authenticated"`
	TeacherName   string `json:"teacher_name,omitempty"`
}

// SignupRequest is the payload for POST /activities/{name}/signup.
type SignupRequest struct {
	Email string `json:"email"`
}

// MessageResponse is the success body of signup and unregister.
type MessageResponse struct {
	Message string `json:"message"`
}
