package internal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Backend is the remote API the store synchronizes with. *api.Client
// implements it.
type Backend interface {
	Register(ctx context.Context, reg Registration) (APIMessage, error)
	Login(ctx context.Context, email, password string) (AuthToken, error)
	CurrentUser(ctx context.Context) (User, error)
	UpdateProfile(ctx context.Context, user User) (User, error)
	ListSchemes(ctx context.Context) ([]Scheme, error)
	GetScheme(ctx context.Context, id string) (Scheme, error)
	FetchSchemesFromSource(ctx context.Context) (APIMessage, error)
	Chat(ctx context.Context, message string) (ChatReply, error)
	ChatPublic(ctx context.Context, message string) (ChatReply, error)
	SchemeExplanation(ctx context.Context, schemeID string) (string, error)
	Notifications(ctx context.Context, userID string) ([]Notification, error)
}

// Phase is the session state machine position
type Phase int

const (
	PhaseAnonymous Phase = iota
	PhaseAuthenticating
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// State is an immutable copy of everything the store holds.
// IsAuthenticated is true exactly when Token is set and User is present.
type State struct {
	Phase           Phase
	Token           string
	User            *User
	IsAuthenticated bool
	Language        Language

	Schemes          []Scheme
	SchemesFetchedAt time.Time
	Transcript       []ChatMessage
	ChatLoading      bool
	Notifications    []Notification
	Explanations     map[string]string
}

func (s State) clone() State {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	out.Schemes = append([]Scheme(nil), s.Schemes...)
	out.Transcript = append([]ChatMessage(nil), s.Transcript...)
	out.Notifications = append([]Notification(nil), s.Notifications...)
	if s.Explanations != nil {
		out.Explanations = make(map[string]string, len(s.Explanations))
		for k, v := range s.Explanations {
			out.Explanations[k] = v
		}
	}
	return out
}

// Snapshot returns the persisted subset of the state
func (s State) Snapshot() Snapshot {
	snap := Snapshot{Language: s.Language, IsAuthenticated: s.IsAuthenticated}
	if s.User != nil {
		u := *s.User
		snap.User = &u
	}
	return snap
}

// Options configures a Store
type Options struct {
	// Cache keeps schemes and explanations on disk. Nil disables it.
	Cache *CacheManager
	// Language used until the user picks one
	DefaultLanguage Language
	Now             func() time.Time
	NewID           func() string
}

// Store is the application state container. Views read State() or
// Subscribe, and change state only through the action methods.
type Store struct {
	backend Backend
	persist Persistence
	cache   *CacheManager
	now     func() time.Time
	newID   func() string

	// sessionMu serializes actions that mutate the session
	sessionMu sync.Mutex

	mu           sync.Mutex
	state        State
	pendingToken string
	generation   uint64
	lifetime     context.Context
	cancel       context.CancelFunc
	subscribers  map[int]func(State)
	nextSubID    int

	// notifyMu keeps subscriber callbacks in commit order
	notifyMu sync.Mutex
}

// NewStore creates an anonymous store. Call Hydrate to restore a saved session.
func NewStore(backend Backend, persist Persistence, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = newMessageID
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = LanguageEnglish
	}

	lifetime, cancel := context.WithCancel(context.Background())
	return &Store{
		backend:     backend,
		persist:     persist,
		cache:       opts.Cache,
		now:         opts.Now,
		newID:       opts.NewID,
		state:       State{Phase: PhaseAnonymous, Language: opts.DefaultLanguage},
		lifetime:    lifetime,
		cancel:      cancel,
		subscribers: make(map[int]func(State)),
	}
}

// newMessageID returns a time-ordered UUID
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// State returns a copy of the current state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Token returns the bearer token for outgoing requests. While a login is in
// flight the freshly issued token is returned before it is committed.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingToken != "" {
		return s.pendingToken
	}
	return s.state.Token
}

// Subscribe registers fn to receive every committed state. Callbacks run on
// the committing goroutine and must not call store actions synchronously.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Close cancels every in-flight request
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
}

// commit applies fn atomically and notifies subscribers
func (s *Store) commit(fn func(st *State)) {
	s.update(func(st *State) bool {
		fn(st)
		return true
	})
}

// update applies fn atomically. Subscribers are notified only when fn
// reports a change.
func (s *Store) update(fn func(st *State) bool) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if !fn(&s.state) {
		s.mu.Unlock()
		return false
	}
	snapshot := s.state.clone()
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snapshot)
	}
	return true
}

// actionContext derives a context that is also cancelled by Logout, plus the
// session generation the action started in
func (s *Store) actionContext(ctx context.Context) (context.Context, context.CancelFunc, uint64) {
	s.mu.Lock()
	lifetime, gen := s.lifetime, s.generation
	s.mu.Unlock()

	ctx, cancel := withLifetime(ctx, lifetime)
	return ctx, cancel, gen
}

// withLifetime returns ctx cancelled when either ctx or lifetime ends
func withLifetime(ctx, lifetime context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(lifetime, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// current reports whether gen is still the active session generation.
// Caller must hold s.mu.
func (s *Store) current(gen uint64) bool {
	return s.generation == gen
}

// endSession cancels in-flight requests and starts a new generation
func (s *Store) endSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	s.lifetime, s.cancel = context.WithCancel(context.Background())
	s.generation++
	s.pendingToken = ""
}

// onSessionChange writes the session snapshot. Called at the end of every
// action that mutates the session.
func (s *Store) onSessionChange(ctx context.Context) {
	snap := s.State().Snapshot()
	if err := s.persist.SaveSnapshot(context.WithoutCancel(ctx), snap); err != nil {
		LogError("Failed to persist session: %v", err)
	}
}

// Hydrate restores the persisted session. A snapshot that claims to be
// authenticated without a stored token, or a token without an authenticated
// snapshot, is discarded so the session invariant holds from the start.
func (s *Store) Hydrate(ctx context.Context) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	snap, snapErr := s.persist.LoadSnapshot(ctx)
	if snapErr != nil {
		LogWarn("Discarding unreadable session snapshot: %v", snapErr)
		snap = nil
	}
	token, err := s.persist.LoadToken(ctx)
	if err != nil {
		return err
	}

	var (
		user     *User
		language Language
		repaired = snapErr != nil
	)
	if snap != nil {
		language = snap.Language
		if snap.IsAuthenticated && snap.User != nil && token != "" {
			u := *snap.User
			user = &u
		} else if snap.IsAuthenticated || snap.User != nil {
			LogWarn("Discarding session snapshot without a stored token")
			repaired = true
		}
	}
	if user == nil && token != "" {
		LogDebug("Clearing token without an authenticated session")
		if err := s.persist.ClearToken(ctx); err != nil {
			return err
		}
		token = ""
	}
	if _, err := ParseLanguage(string(language)); err != nil {
		language = ""
	}

	var cached []Scheme
	if s.cache != nil {
		if cached, err = s.cache.LoadSchemes(); err != nil {
			LogWarn("Failed to load cached schemes: %v", err)
			cached = nil
		}
	}

	s.commit(func(st *State) {
		if language != "" {
			st.Language = language
		}
		if user != nil {
			st.Token = token
			st.User = user
			st.IsAuthenticated = true
			st.Phase = PhaseAuthenticated
		}
		if len(cached) > 0 && len(st.Schemes) == 0 {
			st.Schemes = cached
		}
	})

	if repaired {
		s.onSessionChange(ctx)
	}
	return nil
}
