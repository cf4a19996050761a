// Package forgetest runs an in-memory fake forge over httptest for HTTP
// integration tests. It implements the slice of the admin API the client
// consumes, counts calls per operation, and supports failure injection.
package forgetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/goliatone/go-forgeauth/forge"
)

// AdminToken is the admin credential the fake server accepts.
const AdminToken = "forgetest-admin-token"

// Server is a fake forge. Zero value is not usable; create with NewServer.
type Server struct {
	mu sync.Mutex

	srv *httptest.Server

	users       []forge.User
	groups      []forge.Group
	tokens      map[string]int64 // token string -> owning user id
	issued      []forge.Token
	memberships map[int64][]int64 // group id -> user ids

	calls    map[string]int
	failures map[string]int // route key -> status code to force once

	nextID int64
}

// NewServer starts the fake forge. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		tokens:      map[string]int64{},
		memberships: map[int64][]int64{},
		calls:       map[string]int{},
		failures:    map[string]int{},
		nextID:      100,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v4/user", s.handleGetUser)
	mux.HandleFunc("POST /api/v4/users", s.handleCreateUser)
	mux.HandleFunc("GET /api/v4/users", s.handleListUsers)
	mux.HandleFunc("POST /api/v4/users/{id}/personal_access_tokens", s.handleCreateToken)
	mux.HandleFunc("POST /api/v4/groups", s.handleCreateGroup)
	mux.HandleFunc("POST /api/v4/groups/{id}/members", s.handleAddMember)

	s.srv = httptest.NewServer(mux)
	return s
}

// URL returns the base URL to point a forge.Client at.
func (s *Server) URL() string {
	return s.srv.URL
}

// Client returns a forge client wired to this server with admin credentials.
func (s *Server) Client() *forge.Client {
	return forge.New(forge.Config{
		BaseURL:    s.srv.URL,
		AdminToken: AdminToken,
	})
}

func (s *Server) Close() {
	s.srv.Close()
}

// FailNext forces the next request to the named operation to answer with the
// given status. Operations: get_user, create_user, list_users,
// create_user_token, create_group, add_group_member.
func (s *Server) FailNext(operation string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[operation] = status
}

// Calls returns how many requests the named operation received.
func (s *Server) Calls(operation string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[operation]
}

// TotalCalls returns the number of requests received across all operations.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// SeedUser registers an existing forge user and returns it with an assigned id.
func (s *Server) SeedUser(username, name, email string) forge.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	user := forge.User{
		ID:       s.nextID,
		Username: username,
		Name:     name,
		Email:    email,
		State:    "active",
	}
	s.users = append(s.users, user)
	return user
}

// SeedToken makes the fake forge recognize token as belonging to userID.
func (s *Server) SeedToken(token string, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = userID
}

// RevokeToken makes the fake forge forget a previously recognized token.
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// UserByUsername returns the stored user, if any.
func (s *Server) UserByUsername(username string) (forge.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, true
		}
	}
	return forge.User{}, false
}

// GroupMembers returns the user ids attached to a group.
func (s *Server) GroupMembers(groupID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.memberships[groupID]...)
}

func (s *Server) begin(operation string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[operation]++
	if status, ok := s.failures[operation]; ok {
		delete(s.failures, operation)
		return status, true
	}
	return 0, false
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if status, forced := s.begin("get_user"); forced {
		writeMessage(w, status, "forced failure")
		return
	}

	token := r.Header.Get("Private-Token")

	s.mu.Lock()
	userID, ok := s.tokens[token]
	var user forge.User
	if ok {
		for _, u := range s.users {
			if u.ID == userID {
				user = u
				break
			}
		}
	}
	s.mu.Unlock()

	if !ok || user.ID == 0 {
		writeMessage(w, http.StatusUnauthorized, "401 Unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if status, forced := s.begin("create_user"); forced {
		writeMessage(w, status, "forced failure")
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	var payload struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid payload")
		return
	}

	s.mu.Lock()
	for _, u := range s.users {
		if u.Username == payload.Username || u.Email == payload.Email {
			s.mu.Unlock()
			writeMessage(w, http.StatusConflict, "Username has already been taken")
			return
		}
	}

	s.nextID++
	user := forge.User{
		ID:       s.nextID,
		Username: payload.Username,
		Name:     payload.Name,
		Email:    payload.Email,
		State:    "active",
	}
	s.users = append(s.users, user)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if status, forced := s.begin("list_users"); forced {
		writeMessage(w, status, "forced failure")
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	s.mu.Lock()
	users := append([]forge.User(nil), s.users...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	if status, forced := s.begin("create_user_token"); forced {
		writeMessage(w, status, "forced failure")
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid payload")
		return
	}

	s.mu.Lock()
	found := false
	for _, u := range s.users {
		if u.ID == userID {
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		writeMessage(w, http.StatusNotFound, "404 User Not Found")
		return
	}

	s.nextID++
	expires := time.Now().Add(30 * 24 * time.Hour).UTC()
	token := forge.Token{
		ID:        s.nextID,
		Name:      payload.Name,
		Token:     fmt.Sprintf("forgetest-pat-%d", s.nextID),
		Active:    true,
		ExpiresAt: &expires,
	}
	s.issued = append(s.issued, token)
	s.tokens[token.Token] = userID
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, token)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	if status, forced := s.begin("create_group"); forced {
		writeMessage(w, status, "forced failure")
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	var payload struct {
		Name string `json:"name"`
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid payload")
		return
	}

	s.mu.Lock()
	for _, g := range s.groups {
		if g.Path == payload.Path {
			s.mu.Unlock()
			writeMessage(w, http.StatusConflict, "Path has already been taken")
			return
		}
	}

	s.nextID++
	group := forge.Group{
		ID:   s.nextID,
		Name: payload.Name,
		Path: payload.Path,
	}
	s.groups = append(s.groups, group)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, group)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	if status, forced := s.begin("add_group_member"); forced {
		writeMessage(w, status, "forced failure")
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	groupID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid group id")
		return
	}

	var payload struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid payload")
		return
	}

	s.mu.Lock()
	s.memberships[groupID] = append(s.memberships[groupID], payload.UserID)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":           payload.UserID,
		"access_level": 30,
	})
}

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Private-Token") != AdminToken {
		writeMessage(w, http.StatusForbidden, "403 Forbidden")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
