// Package apitest runs an in-process copy of the Mergington activities API
// for tests. It mirrors the backend's routes, payloads and status codes.
package apitest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/mergington/signup/pkg/domain"
)

const tokenTTL = 8 * time.Hour

// Teacher is an account the fake backend accepts.
type Teacher struct {
	Username string
	Name     string
	Password string
}

type teacherRecord struct {
	name string
	hash []byte
}

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Server is a fake backend. All fields are guarded by mu.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	secret     []byte
	teachers   map[string]teacherRecord
	activities domain.ActivityList
	hits       map[string]int
	failNext   map[string]int
}

// New starts a fake backend seeded with the given teachers and the default
// activity catalogue. Call Close when done.
func New(teachers ...Teacher) *Server {
	s := &Server{
		secret:     []byte("mergington-test-secret"),
		teachers:   make(map[string]teacherRecord),
		activities: DefaultActivities(),
		hits:       make(map[string]int),
		failNext:   make(map[string]int),
	}
	for _, t := range teachers {
		// MinCost keeps test setup fast.
		hash, err := bcrypt.GenerateFromPassword([]byte(t.Password), bcrypt.MinCost)
		if err != nil {
			panic(fmt.Sprintf("apitest: hash password: %v", err))
		}
		s.teachers[t.Username] = teacherRecord{name: t.Name, hash: hash}
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

// DefaultActivities returns a fresh copy of the seed catalogue.
func DefaultActivities() domain.ActivityList {
	return domain.ActivityList{
		{Name: "Chess Club", Description: "Learn strategies and compete in chess tournaments", Schedule: "Fridays, 3:30 PM - 5:00 PM", MaxParticipants: 12, Participants: []string{"michael@mergington.edu", "daniel@mergington.edu"}},
		{Name: "Programming Class", Description: "Learn programming fundamentals and build software projects", Schedule: "Tuesdays and Thursdays, 3:30 PM - 4:30 PM", MaxParticipants: 20, Participants: []string{"emma@mergington.edu", "sophia@mergington.edu"}},
		{Name: "Gym Class", Description: "Physical education and sports activities", Schedule: "Mondays, Wednesdays, Fridays, 2:00 PM - 3:00 PM", MaxParticipants: 30, Participants: []string{"john@mergington.edu", "olivia@mergington.edu"}},
		{Name: "Math Club", Description: "Solve challenging problems and participate in math competitions", Schedule: "Tuesdays, 3:30 PM - 4:30 PM", MaxParticipants: 10, Participants: []string{"james@mergington.edu", "benjamin@mergington.edu"}},
	}
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.countHits)
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/verify", s.handleVerify).Methods(http.MethodGet)
	r.HandleFunc("/activities", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/activities/{name}/signup", s.requireTeacher(s.handleSignup)).Methods(http.MethodPost)
	r.HandleFunc("/activities/{name}/unregister", s.requireTeacher(s.handleUnregister)).Methods(http.MethodDelete)
	return r
}

// Hits returns how many requests reached the route whose template is path,
// e.g. "/activities/{name}/signup".
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// TotalHits returns the number of requests served.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.hits {
		n += v
	}
	return n
}

// RevokeTokens makes every previously issued token fail verification.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secret = append([]byte("rotated-"), s.secret...)
}

// FailNext makes the next n requests to the route template answer 500.
func (s *Server) FailNext(path string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[path] = n
}

// Activities returns a snapshot of the server-side catalogue.
func (s *Server) Activities() domain.ActivityList {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(domain.ActivityList, len(s.activities))
	for i, a := range s.activities {
		a.Participants = append([]string(nil), a.Participants...)
		out[i] = a
	}
	return out
}

// IssueToken signs a token for username with the given lifetime.
func (s *Server) IssueToken(username string, ttl time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, err := s.sign(username, ttl)
	if err != nil {
		panic(fmt.Sprintf("apitest: sign token: %v", err))
	}
	return tok
}

func (s *Server) countHits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tmpl := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if t, err := route.GetPathTemplate(); err == nil {
				tmpl = t
			}
		}
		s.mu.Lock()
		s.hits[tmpl]++
		fail := s.failNext[tmpl] > 0
		if fail {
			s.failNext[tmpl]--
		}
		s.mu.Unlock()
		if fail {
			writeDetail(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) sign(username string, ttl time.Duration) (string, error) {
	c := claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// teacherFor resolves the bearer token on r to a known username.
func (s *Server) teacherFor(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || raw == "" {
		return "", false
	}
	s.mu.Lock()
	secret := s.secret
	s.mu.Unlock()

	parsed, err := jwt.ParseWithClaims(raw, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", false
	}
	c, ok := parsed.Claims.(*claims)
	if !ok {
		return "", false
	}
	s.mu.Lock()
	_, known := s.teachers[c.Username]
	s.mu.Unlock()
	return c.Username, known
}

func (s *Server) requireTeacher(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.teacherFor(r); !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Teacher authentication required")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	s.mu.Lock()
	rec, ok := s.teachers[req.Username]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(rec.hash, []byte(req.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	s.mu.Lock()
	tok, err := s.sign(req.Username, tokenTTL)
	s.mu.Unlock()
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, domain.LoginResponse{
		AccessToken: tok,
		TokenType:   "bearer",
		TeacherName: rec.name,
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	username, ok := s.teacherFor(r)
	if !ok {
		writeJSON(w, http.StatusOK, domain.VerifyResponse{Authenticated: false})
		return
	}
	s.mu.Lock()
	name := s.teachers[username].name
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, domain.VerifyResponse{Authenticated: true, TeacherName: name})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Activities())
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req domain.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(name)
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Activity not found")
		return
	}
	if s.activities[i].HasParticipant(req.Email) {
		writeDetail(w, http.StatusBadRequest, "Student is already signed up")
		return
	}
	s.activities[i].Participants = append(s.activities[i].Participants, req.Email)
	writeJSON(w, http.StatusOK, domain.MessageResponse{Message: fmt.Sprintf("Signed up %s for %s", req.Email, name)})
}

func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	email := r.URL.Query().Get("email")

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(name)
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Activity not found")
		return
	}
	a := &s.activities[i]
	kept := a.Participants[:0]
	found := false
	for _, p := range a.Participants {
		if p == email && !found {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		writeDetail(w, http.StatusBadRequest, "Student is not signed up for this activity")
		return
	}
	a.Participants = kept
	writeJSON(w, http.StatusOK, domain.MessageResponse{Message: fmt.Sprintf("Unregistered %s from %s", email, name)})
}

// indexOf must be called with mu held.
func (s *Server) indexOf(name string) int {
	for i, a := range s.activities {
		if a.Name == name {
			return i
		}
	}
	return -1
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
