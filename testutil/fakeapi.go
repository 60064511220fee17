package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// ChatMode controls how the fake backend answers /ai/chat
type ChatMode int

const (
	ChatOK ChatMode = iota
	ChatServerError
	ChatDropConnection
)

type fakeUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"-"`
	MobileNo  string `json:"mobileno"`
	Role      string `json:"role"`
	Language  string `json:"language"`
	CreatedAt string `json:"created_at"`
}

// FakeAPI is an in-process stand-in for the backend HTTP surface
type FakeAPI struct {
	Server *httptest.Server

	mu            sync.Mutex
	users         map[string]*fakeUser
	tokens        map[string]string
	schemes       json.RawMessage
	notifications map[string]json.RawMessage
	chatMode      ChatMode
	chatGate      chan struct{}
	failMe        bool
	failSchemes   bool
	failPatch     bool
	requests      []string
	nextID        int
}

// NewFakeAPI starts a fake backend that is shut down when the test ends
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		users:         make(map[string]*fakeUser),
		tokens:        make(map[string]string),
		schemes:       json.RawMessage("[]"),
		notifications: make(map[string]json.RawMessage),
	}

	r := chi.NewRouter()
	r.Use(f.record)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"message": "Sahayak AI Backend"})
	})
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", f.register)
		r.Post("/login", f.login)
		r.Get("/me", f.me)
		r.Patch("/me", f.patchMe)
	})
	r.Get("/schemes", f.listSchemes)
	r.Post("/schemes/fetch", f.fetchSchemes)
	r.Get("/schemes/{id}", f.getScheme)
	r.Post("/ai/chat", f.chat(true))
	r.Post("/ai/chat/public", f.chat(false))
	r.Post("/ai/scheme-info/{id}", f.schemeInfo)
	r.Get("/notifications/{userID}", f.listNotifications)

	f.Server = httptest.NewServer(r)
	t.Cleanup(func() {
		f.ReleaseChat()
		f.Server.Close()
	})
	return f
}

// URL returns the base URL of the fake backend
func (f *FakeAPI) URL() string {
	return f.Server.URL
}

// AddUser registers an account directly
func (f *FakeAPI) AddUser(name, email, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addUserLocked(name, email, password, "9876543210", "farmer", "en")
}

func (f *FakeAPI) addUserLocked(name, email, password, mobile, role, lang string) *fakeUser {
	f.nextID++
	u := &fakeUser{
		ID:        fmt.Sprintf("u%d", f.nextID),
		Name:      name,
		Email:     email,
		Password:  password,
		MobileNo:  mobile,
		Role:      role,
		Language:  lang,
		CreatedAt: "2024-01-01T00:00:00",
	}
	f.users[email] = u
	return u
}

// RevokeTokens invalidates every issued token
func (f *FakeAPI) RevokeTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = make(map[string]string)
}

// SetSchemes replaces the backend-shape scheme list served by GET /schemes
func (f *FakeAPI) SetSchemes(raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schemes = json.RawMessage(raw)
}

// SetNotifications sets the notifications served for a user id
func (f *FakeAPI) SetNotifications(userID, raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications[userID] = json.RawMessage(raw)
}

// SetChatMode changes how chat requests are answered
func (f *FakeAPI) SetChatMode(mode ChatMode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatMode = mode
}

// BlockChat makes chat requests wait until ReleaseChat is called
func (f *FakeAPI) BlockChat() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatGate = make(chan struct{})
}

// ReleaseChat unblocks chat requests held by BlockChat
func (f *FakeAPI) ReleaseChat() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chatGate != nil {
		close(f.chatGate)
		f.chatGate = nil
	}
}

// FailCurrentUser makes GET /auth/me answer 500
func (f *FakeAPI) FailCurrentUser(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failMe = fail
}

// FailSchemes makes GET /schemes answer 500
func (f *FakeAPI) FailSchemes(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSchemes = fail
}

// FailProfileUpdate makes PATCH /auth/me answer 500
func (f *FakeAPI) FailProfileUpdate(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPatch = fail
}

// Requests returns "METHOD /path" for every request received
func (f *FakeAPI) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requests))
	copy(out, f.requests)
	return out
}

// CountRequests counts received requests matching "METHOD /path"
func (f *FakeAPI) CountRequests(methodPath string) int {
	n := 0
	for _, r := range f.Requests() {
		if r == methodPath {
			n++
		}
	}
	return n
}

func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondDetail(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

func (f *FakeAPI) authenticate(r *http.Request) *fakeUser {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	email, ok := f.tokens[token]
	if !ok {
		return nil
	}
	return f.users[email]
}

func (f *FakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		MobileNo string `json:"mobileno"`
		Role     string `json:"role"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		respondDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[body.Email]; exists {
		respondDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	role := body.Role
	if role == "" {
		role = "other"
	}
	f.addUserLocked(body.Name, body.Email, body.Password, body.MobileNo, role, body.Language)
	respondJSON(w, http.StatusOK, map[string]string{"message": "User registered successfully"})
}

func (f *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[body.Email]
	if !ok || u.Password != body.Password {
		respondDetail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	f.nextID++
	token := fmt.Sprintf("token-%d", f.nextID)
	f.tokens[token] = u.Email
	respondJSON(w, http.StatusOK, map[string]string{"access_token": token, "token_type": "bearer"})
}

func (f *FakeAPI) me(w http.ResponseWriter, r *http.Request) {
	u := f.authenticate(r)
	if u == nil {
		respondDetail(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	f.mu.Lock()
	fail := f.failMe
	copied := *u
	f.mu.Unlock()
	if fail {
		respondDetail(w, http.StatusInternalServerError, "database unavailable")
		return
	}
	respondJSON(w, http.StatusOK, copied)
}

func (f *FakeAPI) patchMe(w http.ResponseWriter, r *http.Request) {
	u := f.authenticate(r)
	if u == nil {
		respondDetail(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	var body fakeUser
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPatch {
		respondDetail(w, http.StatusInternalServerError, "update failed")
		return
	}
	u.Name = body.Name
	u.MobileNo = body.MobileNo
	u.Role = body.Role
	u.Language = body.Language
	respondJSON(w, http.StatusOK, *u)
}

func (f *FakeAPI) listSchemes(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	fail := f.failSchemes
	schemes := f.schemes
	f.mu.Unlock()
	if fail {
		respondDetail(w, http.StatusInternalServerError, "scheme store unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(schemes)
}

func (f *FakeAPI) findScheme(id string) (map[string]interface{}, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []map[string]interface{}
	if err := json.Unmarshal(f.schemes, &list); err != nil {
		return nil, false
	}
	for _, s := range list {
		if s["id"] == id {
			return s, true
		}
	}
	return nil, false
}

func (f *FakeAPI) getScheme(w http.ResponseWriter, r *http.Request) {
	s, ok := f.findScheme(chi.URLParam(r, "id"))
	if !ok {
		respondDetail(w, http.StatusNotFound, "Scheme not found")
		return
	}
	respondJSON(w, http.StatusOK, s)
}

func (f *FakeAPI) fetchSchemes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Schemes fetched and stored successfully",
		"details": map[string]int{"stored": 0},
	})
}

func (f *FakeAPI) chat(requireAuth bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requireAuth && f.authenticate(r) == nil {
			respondDetail(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		var body struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondDetail(w, http.StatusUnprocessableEntity, "invalid body")
			return
		}

		f.mu.Lock()
		gate := f.chatGate
		mode := f.chatMode
		f.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}

		switch mode {
		case ChatServerError:
			respondDetail(w, http.StatusInternalServerError, "model unavailable")
		case ChatDropConnection:
			hj, ok := w.(http.Hijacker)
			if !ok {
				respondDetail(w, http.StatusInternalServerError, "hijack unsupported")
				return
			}
			conn, _, err := hj.Hijack()
			if err == nil {
				_ = conn.Close()
			}
		default:
			source := "database"
			if !requireAuth {
				source = "public"
			}
			respondJSON(w, http.StatusOK, map[string]interface{}{
				"response":      "Reply to: " + body.Message,
				"schemes_count": 2,
				"data_source":   source,
				"cached":        false,
			})
		}
	}
}

func (f *FakeAPI) schemeInfo(w http.ResponseWriter, r *http.Request) {
	s, ok := f.findScheme(chi.URLParam(r, "id"))
	if !ok {
		respondDetail(w, http.StatusNotFound, "Scheme not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"explanation": fmt.Sprintf("%v helps eligible citizens.", s["name"]),
	})
}

func (f *FakeAPI) listNotifications(w http.ResponseWriter, r *http.Request) {
	if f.authenticate(r) == nil {
		respondDetail(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	f.mu.Lock()
	raw, ok := f.notifications[chi.URLParam(r, "userID")]
	f.mu.Unlock()
	if !ok {
		raw = json.RawMessage("[]")
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}
