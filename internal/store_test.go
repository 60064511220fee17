package internal_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iksnae/sahayak/internal"
	"github.com/iksnae/sahayak/internal/api"
	"github.com/iksnae/sahayak/testutil"
)

const (
	testEmail    = "asha@example.com"
	testPassword = "s3cret"
)

type harness struct {
	store   *internal.Store
	fake    *testutil.FakeAPI
	persist *internal.SQLitePersistence
	cache   *internal.CacheManager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	persist, err := internal.OpenPersistence(internal.MemoryDatabase)
	if err != nil {
		t.Fatalf("OpenPersistence() error = %v", err)
	}
	t.Cleanup(func() { _ = persist.Close() })
	return newHarnessWith(t, fake, persist, nil)
}

func newHarnessWith(t *testing.T, fake *testutil.FakeAPI, persist *internal.SQLitePersistence, cache *internal.CacheManager) *harness {
	t.Helper()
	client := api.NewClient(fake.URL(), api.WithTimeout(5*time.Second))
	store := internal.NewStore(client, persist, internal.Options{Cache: cache})
	client.SetTokenSource(store)
	t.Cleanup(store.Close)
	return &harness{store: store, fake: fake, persist: persist, cache: cache}
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	h.fake.AddUser("Asha Patil", testEmail, testPassword)
	if err := h.store.Login(context.Background(), testEmail, testPassword); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
}

func (h *harness) storedToken(t *testing.T) string {
	t.Helper()
	token, err := h.persist.LoadToken(context.Background())
	if err != nil {
		t.Fatalf("LoadToken() error = %v", err)
	}
	return token
}

// recordStates collects every committed state
func recordStates(t *testing.T, store *internal.Store) func() []internal.State {
	t.Helper()
	var (
		mu     sync.Mutex
		states []internal.State
	)
	unsubscribe := store.Subscribe(func(st internal.State) {
		mu.Lock()
		states = append(states, st)
		mu.Unlock()
	})
	t.Cleanup(unsubscribe)
	return func() []internal.State {
		mu.Lock()
		defer mu.Unlock()
		return append([]internal.State(nil), states...)
	}
}

// waitForChatLoading returns a channel that is closed once ChatLoading is observed
func waitForChatLoading(t *testing.T, store *internal.Store) <-chan struct{} {
	t.Helper()
	ch := make(chan struct{})
	var once sync.Once
	unsubscribe := store.Subscribe(func(st internal.State) {
		if st.ChatLoading {
			once.Do(func() { close(ch) })
		}
	})
	t.Cleanup(unsubscribe)
	return ch
}

func waitOrFail(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestStore_NewStoreIsAnonymous(t *testing.T) {
	h := newHarness(t)
	st := h.store.State()
	if st.IsAuthenticated || st.User != nil || st.Token != "" {
		t.Errorf("new store session = %+v, want anonymous", st)
	}
	if st.Phase != internal.PhaseAnonymous || st.Language != internal.LanguageEnglish {
		t.Errorf("new store phase %v language %q", st.Phase, st.Language)
	}
}

func TestStore_LoginSuccess(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	st := h.store.State()
	if !st.IsAuthenticated || st.User == nil || st.User.Email != testEmail {
		t.Fatalf("State() after login = %+v", st)
	}
	if st.Phase != internal.PhaseAuthenticated {
		t.Errorf("Phase = %v, want authenticated", st.Phase)
	}
	if got := h.storedToken(t); got == "" || got != st.Token {
		t.Errorf("persisted token = %q, state token = %q", got, st.Token)
	}

	snap, err := h.persist.LoadSnapshot(context.Background())
	if err != nil || snap == nil {
		t.Fatalf("LoadSnapshot() = %v, %v", snap, err)
	}
	if !snap.IsAuthenticated || snap.User == nil || snap.User.Email != testEmail {
		t.Errorf("persisted snapshot = %+v", snap)
	}
}

func TestStore_LoginBadCredentials(t *testing.T) {
	h := newHarness(t)
	h.fake.AddUser("Asha Patil", testEmail, testPassword)
	states := recordStates(t, h.store)

	err := h.store.Login(context.Background(), "bad@x.com", "wrong")
	if err == nil {
		t.Fatal("Login() with bad credentials succeeded")
	}
	if kind := internal.KindOf(err); kind != internal.FailureInvalidCredentials {
		t.Errorf("KindOf() = %v, want invalid_credentials", kind)
	}

	st := h.store.State()
	if st.IsAuthenticated || st.User != nil || st.Phase != internal.PhaseAnonymous {
		t.Errorf("State() after failed login = %+v", st)
	}
	if token := h.storedToken(t); token != "" {
		t.Errorf("token persisted after failed login: %q", token)
	}
	if snap, _ := h.persist.LoadSnapshot(context.Background()); snap != nil {
		t.Errorf("snapshot persisted after failed login: %+v", snap)
	}

	seen := states()
	if len(seen) == 0 || seen[0].Phase != internal.PhaseAuthenticating {
		t.Errorf("first committed phase = %v, want authenticating", seen)
	}
}

func TestStore_LoginCurrentUserFailureKeepsNoToken(t *testing.T) {
	h := newHarness(t)
	h.fake.AddUser("Asha Patil", testEmail, testPassword)
	h.fake.FailCurrentUser(true)

	err := h.store.Login(context.Background(), testEmail, testPassword)
	if kind := internal.KindOf(err); kind != internal.FailureServer {
		t.Fatalf("Login() kind = %v, want server (err %v)", kind, err)
	}
	if h.store.State().IsAuthenticated {
		t.Error("session authenticated after user fetch failed")
	}
	if token := h.storedToken(t); token != "" {
		t.Errorf("token persisted after user fetch failed: %q", token)
	}
	if token := h.store.Token(); token != "" {
		t.Errorf("Token() = %q after failed login, want empty", token)
	}
}

func TestStore_FailedReloginKeepsSession(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	before := h.store.State()

	if err := h.store.Login(context.Background(), testEmail, "wrong"); err == nil {
		t.Fatal("Login() with wrong password succeeded")
	}
	after := h.store.State()
	if !reflect.DeepEqual(before, after) {
		t.Errorf("failed re-login changed state:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestStore_SignupComposesLogin(t *testing.T) {
	h := newHarness(t)

	reg := internal.Registration{
		Name:     "Ravi",
		Email:    "ravi@example.com",
		Password: "pw",
		MobileNo: "9000000000",
		Language: internal.LanguageMarathi,
	}
	if err := h.store.Signup(context.Background(), reg); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	st := h.store.State()
	if !st.IsAuthenticated || st.User == nil || st.User.Email != reg.Email {
		t.Fatalf("State() after signup = %+v", st)
	}
	if st.User.Language != internal.LanguageMarathi {
		t.Errorf("user language = %q, want mr", st.User.Language)
	}

	want := []string{"POST /auth/register", "POST /auth/login", "GET /auth/me"}
	if got := h.fake.Requests(); !reflect.DeepEqual(got, want) {
		t.Errorf("requests = %v, want %v", got, want)
	}
}

func TestStore_SignupDuplicateEmail(t *testing.T) {
	h := newHarness(t)
	h.fake.AddUser("Asha Patil", testEmail, testPassword)

	err := h.store.Signup(context.Background(), internal.Registration{Name: "Asha", Email: testEmail, Password: "other"})
	if kind := internal.KindOf(err); kind != internal.FailureValidation {
		t.Fatalf("Signup() kind = %v, want validation (err %v)", kind, err)
	}
	var apiErr *internal.APIError
	if !errors.As(err, &apiErr) || apiErr.Detail != "Email already registered" {
		t.Errorf("Signup() error = %v", err)
	}
	if h.store.State().IsAuthenticated {
		t.Error("session authenticated after failed signup")
	}
	if n := h.fake.CountRequests("POST /auth/login"); n != 0 {
		t.Errorf("login attempted %d times after failed register", n)
	}
}

func TestStore_LogoutIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.fake.SetSchemes(testutil.KCCSchemesJSON)
	h.login(t)
	ctx := context.Background()

	h.store.FetchSchemes(ctx)
	h.store.SendChatMessage(ctx, "hello")
	if st := h.store.State(); len(st.Schemes) == 0 || len(st.Transcript) == 0 {
		t.Fatalf("setup did not populate state: %+v", st)
	}

	h.store.Logout(ctx)
	once := h.store.State()
	h.store.Logout(ctx)
	twice := h.store.State()

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second Logout() changed state:\nonce  %+v\ntwice %+v", once, twice)
	}
	if twice.IsAuthenticated || twice.User != nil || twice.Token != "" {
		t.Errorf("session after logout = %+v", twice)
	}
	if len(twice.Schemes) != 0 || len(twice.Transcript) != 0 || twice.ChatLoading {
		t.Errorf("collections after logout: schemes %d transcript %d loading %v", len(twice.Schemes), len(twice.Transcript), twice.ChatLoading)
	}
	if token := h.storedToken(t); token != "" {
		t.Errorf("token still persisted after logout: %q", token)
	}
	snap, _ := h.persist.LoadSnapshot(ctx)
	if snap != nil && (snap.IsAuthenticated || snap.User != nil) {
		t.Errorf("snapshot after logout = %+v", snap)
	}
}

func TestStore_LogoutWhenAnonymous(t *testing.T) {
	h := newHarness(t)
	before := h.store.State()
	h.store.Logout(context.Background())
	if after := h.store.State(); !reflect.DeepEqual(before, after) {
		t.Errorf("Logout() on anonymous store changed state: %+v", after)
	}
}

func TestStore_SessionInvariantHolds(t *testing.T) {
	h := newHarness(t)
	h.fake.AddUser("Asha Patil", testEmail, testPassword)
	states := recordStates(t, h.store)
	ctx := context.Background()

	_ = h.store.Login(ctx, testEmail, "wrong")
	_ = h.store.Login(ctx, testEmail, testPassword)
	user := *h.store.State().User
	user.Name = "Asha P."
	_ = h.store.UpdateProfile(ctx, user)
	h.fake.FailProfileUpdate(true)
	_ = h.store.UpdateProfile(ctx, user)
	_ = h.store.SetLanguage(ctx, internal.LanguageHindi)
	h.store.Logout(ctx)

	for i, st := range states() {
		want := st.Token != "" && st.User != nil
		if st.IsAuthenticated != want {
			t.Errorf("state %d: IsAuthenticated = %v, token %q, user %v", i, st.IsAuthenticated, st.Token, st.User)
		}
	}
}

func TestStore_FetchSchemesMapsBackendShape(t *testing.T) {
	h := newHarness(t)
	h.fake.SetSchemes(testutil.KCCSchemesJSON)

	h.store.FetchSchemes(context.Background())

	st := h.store.State()
	if len(st.Schemes) != 1 {
		t.Fatalf("Schemes = %d entries, want 1", len(st.Schemes))
	}
	s := st.Schemes[0]
	if s.Title != "KCC" || s.Eligibility != "a\n• b" || s.Benefits != "c" {
		t.Errorf("Schemes[0] = %+v", s)
	}
	if !s.IsNew || s.CreatedAt != "2024-01-01" || s.SourceURL != "" {
		t.Errorf("pass-through fields = %+v", s)
	}
	if st.SchemesFetchedAt.IsZero() {
		t.Error("SchemesFetchedAt not set")
	}
	if got, ok := h.store.Scheme("s1"); !ok || got.Title != "KCC" {
		t.Errorf("Scheme(s1) = %+v, %v", got, ok)
	}
}

func TestStore_FetchSchemesFailureKeepsPreviousList(t *testing.T) {
	h := newHarness(t)
	h.fake.SetSchemes(testutil.SampleSchemesJSON)
	ctx := context.Background()

	h.store.FetchSchemes(ctx)
	before := h.store.State().Schemes
	if len(before) != 2 {
		t.Fatalf("initial fetch returned %d schemes", len(before))
	}

	h.fake.FailSchemes(true)
	h.store.FetchSchemes(ctx)

	if after := h.store.State().Schemes; !reflect.DeepEqual(before, after) {
		t.Errorf("failed fetch replaced schemes: %+v", after)
	}
}

func TestStore_ChatFailureAppendsFallback(t *testing.T) {
	h := newHarness(t)
	h.fake.SetChatMode(testutil.ChatDropConnection)

	if !h.store.SendChatMessage(context.Background(), "hello") {
		t.Fatal("SendChatMessage() rejected")
	}

	st := h.store.State()
	if len(st.Transcript) != 2 {
		t.Fatalf("Transcript = %+v, want 2 entries", st.Transcript)
	}
	if st.Transcript[0].Sender != internal.SenderUser || st.Transcript[0].Text != "hello" {
		t.Errorf("Transcript[0] = %+v", st.Transcript[0])
	}
	if st.Transcript[1].Sender != internal.SenderAI || st.Transcript[1].Text != internal.ChatFallbackText {
		t.Errorf("Transcript[1] = %+v", st.Transcript[1])
	}
	if st.ChatLoading {
		t.Error("ChatLoading still true after terminal append")
	}
}

func TestStore_ChatServerErrorAppendsFallback(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.fake.SetChatMode(testutil.ChatServerError)

	h.store.SendChatMessage(context.Background(), "schemes for me?")
	st := h.store.State()
	if len(st.Transcript) != 2 || st.Transcript[1].Text != internal.ChatFallbackText {
		t.Errorf("Transcript = %+v", st.Transcript)
	}
}

func TestStore_ChatUsesEndpointForSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.store.SendChatMessage(ctx, "before login")
	h.login(t)
	h.store.SendChatMessage(ctx, "after login")

	if n := h.fake.CountRequests("POST /ai/chat/public"); n != 1 {
		t.Errorf("public chat requests = %d, want 1", n)
	}
	if n := h.fake.CountRequests("POST /ai/chat"); n != 1 {
		t.Errorf("authenticated chat requests = %d, want 1", n)
	}

	st := h.store.State()
	if len(st.Transcript) != 4 || st.Transcript[3].Text != "Reply to: after login" {
		t.Errorf("Transcript = %+v", st.Transcript)
	}
}

func TestStore_ChatRejectsBlankText(t *testing.T) {
	h := newHarness(t)
	if h.store.SendChatMessage(context.Background(), "   ") {
		t.Error("SendChatMessage() accepted blank text")
	}
	if n := len(h.store.State().Transcript); n != 0 {
		t.Errorf("Transcript has %d entries", n)
	}
}

func TestStore_ChatSingleInFlight(t *testing.T) {
	h := newHarness(t)
	states := recordStates(t, h.store)
	loading := waitForChatLoading(t, h.store)
	h.fake.BlockChat()
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.store.SendChatMessage(ctx, "first")
	}()
	waitOrFail(t, loading, "ChatLoading")

	if h.store.SendChatMessage(ctx, "second") {
		t.Error("second SendChatMessage() accepted while first was in flight")
	}
	if st := h.store.State(); !st.ChatLoading || len(st.Transcript) != 1 {
		t.Errorf("in-flight state: loading %v transcript %+v", st.ChatLoading, st.Transcript)
	}

	h.fake.ReleaseChat()
	waitOrFail(t, done, "first SendChatMessage")

	st := h.store.State()
	if len(st.Transcript) != 2 || st.Transcript[0].Text != "first" || st.Transcript[1].Text != "Reply to: first" {
		t.Errorf("Transcript = %+v", st.Transcript)
	}

	// ChatLoading is true exactly while the last entry is an unanswered user message
	for i, s := range states() {
		pending := len(s.Transcript) > 0 && s.Transcript[len(s.Transcript)-1].Sender == internal.SenderUser
		if s.ChatLoading != pending {
			t.Errorf("state %d: ChatLoading = %v with transcript %+v", i, s.ChatLoading, s.Transcript)
		}
	}
}

func TestStore_ChatMessageIDsAndTimestamps(t *testing.T) {
	h := newHarness(t)
	h.store.SendChatMessage(context.Background(), "hello")

	st := h.store.State()
	if len(st.Transcript) != 2 {
		t.Fatalf("Transcript = %+v", st.Transcript)
	}
	if st.Transcript[0].ID == "" || st.Transcript[0].ID == st.Transcript[1].ID {
		t.Errorf("message ids = %q, %q", st.Transcript[0].ID, st.Transcript[1].ID)
	}
	if st.Transcript[0].ID > st.Transcript[1].ID {
		t.Errorf("message ids not time ordered: %q > %q", st.Transcript[0].ID, st.Transcript[1].ID)
	}
	for _, m := range st.Transcript {
		if _, err := time.Parse(time.RFC3339, m.Timestamp); err != nil {
			t.Errorf("timestamp %q is not RFC 3339: %v", m.Timestamp, err)
		}
	}
}

func TestStore_LogoutCancelsInFlightChat(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	loading := waitForChatLoading(t, h.store)
	h.fake.BlockChat()
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.store.SendChatMessage(ctx, "will be cancelled")
	}()
	waitOrFail(t, loading, "ChatLoading")

	h.store.Logout(ctx)
	waitOrFail(t, done, "cancelled SendChatMessage")

	st := h.store.State()
	if len(st.Transcript) != 0 || st.ChatLoading {
		t.Errorf("state after logout during chat: transcript %+v loading %v", st.Transcript, st.ChatLoading)
	}
	if !h.store.SendChatMessage(ctx, "new session") {
		t.Error("SendChatMessage() rejected after logout")
	}
}

func TestStore_ClearTranscript(t *testing.T) {
	h := newHarness(t)
	if h.store.ClearTranscript() {
		t.Error("ClearTranscript() on empty transcript reported a change")
	}
	h.store.SendChatMessage(context.Background(), "hello")
	if !h.store.ClearTranscript() {
		t.Error("ClearTranscript() reported no change")
	}
	if n := len(h.store.State().Transcript); n != 0 {
		t.Errorf("Transcript has %d entries after clear", n)
	}
}

func TestStore_UpdateProfile(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := context.Background()

	edited := *h.store.State().User
	edited.Name = "Asha Patil-Deshmukh"
	edited.Role = internal.RoleSelfEmployed
	edited.Email = "ignored@example.com"

	if err := h.store.UpdateProfile(ctx, edited); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	user := h.store.State().User
	if user.Name != edited.Name || user.Role != internal.RoleSelfEmployed || user.Email != testEmail {
		t.Errorf("User after update = %+v", user)
	}

	snap, _ := h.persist.LoadSnapshot(ctx)
	if snap == nil || snap.User == nil || snap.User.Name != edited.Name {
		t.Errorf("persisted snapshot = %+v", snap)
	}
}

func TestStore_UpdateProfileRollsBack(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.fake.FailProfileUpdate(true)
	ctx := context.Background()
	original := *h.store.State().User
	states := recordStates(t, h.store)

	edited := original
	edited.Name = "Not Saved"
	if err := h.store.UpdateProfile(ctx, edited); err == nil {
		t.Fatal("UpdateProfile() succeeded against failing backend")
	}

	if user := h.store.State().User; *user != original {
		t.Errorf("User after rollback = %+v, want %+v", user, original)
	}
	snap, _ := h.persist.LoadSnapshot(ctx)
	if snap == nil || snap.User == nil || *snap.User != original {
		t.Errorf("persisted snapshot after rollback = %+v", snap)
	}

	seen := states()
	if len(seen) < 2 || seen[0].User.Name != "Not Saved" {
		t.Errorf("optimistic update not committed first: %+v", seen)
	}
}

func TestStore_UpdateProfileRequiresLogin(t *testing.T) {
	h := newHarness(t)
	err := h.store.UpdateProfile(context.Background(), internal.User{Name: "x"})
	if !errors.Is(err, internal.ErrNotAuthenticated) {
		t.Errorf("UpdateProfile() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestStore_SetLanguage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.store.SetLanguage(ctx, "fr"); !errors.Is(err, internal.ErrUnknownLanguage) {
		t.Errorf("SetLanguage(fr) error = %v, want ErrUnknownLanguage", err)
	}
	if err := h.store.SetLanguage(ctx, "HI"); err != nil {
		t.Fatalf("SetLanguage(HI) error = %v", err)
	}
	if lang := h.store.State().Language; lang != internal.LanguageHindi {
		t.Errorf("Language = %q, want hi", lang)
	}
	snap, _ := h.persist.LoadSnapshot(ctx)
	if snap == nil || snap.Language != internal.LanguageHindi {
		t.Errorf("persisted snapshot = %+v", snap)
	}

	h.login(t)
	h.store.Logout(ctx)
	if lang := h.store.State().Language; lang != internal.LanguageHindi {
		t.Errorf("Language after logout = %q, want hi", lang)
	}
	snap, _ = h.persist.LoadSnapshot(ctx)
	if snap == nil || snap.Language != internal.LanguageHindi {
		t.Errorf("persisted language after logout = %+v", snap)
	}
}

func TestStore_HydrateRestoresSession(t *testing.T) {
	first := newHarness(t)
	first.login(t)
	_ = first.store.SetLanguage(context.Background(), internal.LanguageMarathi)

	second := newHarnessWith(t, first.fake, first.persist, nil)
	if err := second.store.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate() error = %v", err)
	}

	st := second.store.State()
	if !st.IsAuthenticated || st.User == nil || st.User.Email != testEmail {
		t.Fatalf("hydrated state = %+v", st)
	}
	if st.Language != internal.LanguageMarathi || st.Phase != internal.PhaseAuthenticated {
		t.Errorf("hydrated language %q phase %v", st.Language, st.Phase)
	}
	if st.Token != first.store.State().Token {
		t.Error("hydrated token differs from persisted token")
	}

	// the restored token authorizes requests
	second.store.SendChatMessage(context.Background(), "still logged in?")
	if n := second.fake.CountRequests("POST /ai/chat"); n != 1 {
		t.Errorf("authenticated chat requests = %d, want 1", n)
	}
}

func TestStore_HydrateDiscardsInconsistentSession(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(t *testing.T, p internal.Persistence)
	}{
		{
			name: "authenticated snapshot without token",
			setup: func(t *testing.T, p internal.Persistence) {
				snap := internal.Snapshot{Language: internal.LanguageHindi, User: internal.CreateTestUser(testEmail), IsAuthenticated: true}
				if err := p.SaveSnapshot(ctx, snap); err != nil {
					t.Fatal(err)
				}
			},
		},
		{
			name: "token without snapshot",
			setup: func(t *testing.T, p internal.Persistence) {
				if err := p.SaveToken(ctx, "orphan"); err != nil {
					t.Fatal(err)
				}
			},
		},
		{
			name: "user without authenticated flag",
			setup: func(t *testing.T, p internal.Persistence) {
				snap := internal.Snapshot{User: internal.CreateTestUser(testEmail)}
				if err := p.SaveSnapshot(ctx, snap); err != nil {
					t.Fatal(err)
				}
				if err := p.SaveToken(ctx, "tok"); err != nil {
					t.Fatal(err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setup(t, h.persist)

			if err := h.store.Hydrate(ctx); err != nil {
				t.Fatalf("Hydrate() error = %v", err)
			}
			st := h.store.State()
			if st.IsAuthenticated || st.User != nil || st.Token != "" {
				t.Errorf("hydrated state = %+v, want anonymous", st)
			}
			if token := h.storedToken(t); token != "" {
				t.Errorf("orphan token kept: %q", token)
			}
			if snap, _ := h.persist.LoadSnapshot(ctx); snap != nil && (snap.IsAuthenticated || snap.User != nil) {
				t.Errorf("inconsistent snapshot kept: %+v", snap)
			}
		})
	}
}

func TestStore_HydrateToleratesCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	db, err := internal.OpenStateDB(internal.MemoryDatabase)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := internal.PutKV(ctx, db, internal.SnapshotKey, "{broken"); err != nil {
		t.Fatal(err)
	}
	h := newHarnessWith(t, testutil.NewFakeAPI(t), internal.NewSQLitePersistence(db, internal.MemoryDatabase), nil)

	if err := h.store.Hydrate(ctx); err != nil {
		t.Fatalf("Hydrate() error = %v", err)
	}
	if h.store.State().IsAuthenticated {
		t.Error("corrupt snapshot restored a session")
	}
	if _, err := h.persist.LoadSnapshot(ctx); err != nil {
		t.Errorf("corrupt snapshot not replaced: %v", err)
	}
}

func TestStore_RefreshUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.store.RefreshUser(ctx); !errors.Is(err, internal.ErrNotAuthenticated) {
		t.Errorf("RefreshUser() anonymous error = %v", err)
	}

	h.login(t)
	if err := h.store.RefreshUser(ctx); err != nil {
		t.Fatalf("RefreshUser() error = %v", err)
	}

	h.fake.RevokeTokens()
	err := h.store.RefreshUser(ctx)
	if internal.KindOf(err) != internal.FailureUnauthorized {
		t.Errorf("RefreshUser() revoked kind = %v (err %v)", internal.KindOf(err), err)
	}
	if h.store.State().IsAuthenticated {
		t.Error("session kept after token was rejected")
	}
	if token := h.storedToken(t); token != "" {
		t.Errorf("rejected token still persisted: %q", token)
	}
}

func TestStore_ExplainSchemeIsMemoized(t *testing.T) {
	h := newHarness(t)
	h.fake.SetSchemes(testutil.SampleSchemesJSON)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		text, err := h.store.ExplainScheme(ctx, "s1")
		if err != nil {
			t.Fatalf("ExplainScheme() error = %v", err)
		}
		if !strings.Contains(text, "Kisan Credit Card") {
			t.Errorf("ExplainScheme() = %q", text)
		}
	}
	if n := h.fake.CountRequests("POST /ai/scheme-info/s1"); n != 1 {
		t.Errorf("scheme-info requests = %d, want 1", n)
	}

	_, err := h.store.ExplainScheme(ctx, "missing")
	if !errors.Is(err, internal.ErrSchemeNotFound) {
		t.Errorf("ExplainScheme(missing) error = %v, want ErrSchemeNotFound", err)
	}
}

func TestStore_FetchScheme(t *testing.T) {
	h := newHarness(t)
	h.fake.SetSchemes(testutil.SampleSchemesJSON)
	ctx := context.Background()

	s, err := h.store.FetchScheme(ctx, "s1")
	if err != nil || s.Title != "Kisan Credit Card" {
		t.Fatalf("FetchScheme() = %+v, %v", s, err)
	}
	if len(h.store.State().Schemes) != 0 {
		t.Error("FetchScheme() modified the scheme list")
	}
	if _, err := h.store.FetchScheme(ctx, "nope"); !errors.Is(err, internal.ErrSchemeNotFound) {
		t.Errorf("FetchScheme(nope) error = %v", err)
	}
}

func TestStore_RefreshSchemesFromSource(t *testing.T) {
	h := newHarness(t)
	msg, err := h.store.RefreshSchemesFromSource(context.Background())
	if err != nil || msg == "" {
		t.Errorf("RefreshSchemesFromSource() = %q, %v", msg, err)
	}
}

func TestStore_FetchNotifications(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.store.FetchNotifications(ctx); !errors.Is(err, internal.ErrNotAuthenticated) {
		t.Errorf("FetchNotifications() anonymous error = %v", err)
	}

	h.login(t)
	userID := h.store.State().User.ID
	h.fake.SetNotifications(userID, `[{"id":"n1","user_id":"`+userID+`","message":"New scheme: KCC","type":"new_scheme","created_at":"2024-01-02","is_read":false}]`)

	if err := h.store.FetchNotifications(ctx); err != nil {
		t.Fatalf("FetchNotifications() error = %v", err)
	}
	if list := h.store.State().Notifications; len(list) != 1 || list[0].Message != "New scheme: KCC" {
		t.Errorf("Notifications = %+v", list)
	}

	h.store.Logout(ctx)
	if n := len(h.store.State().Notifications); n != 0 {
		t.Errorf("notifications kept after logout: %d", n)
	}
}

func TestStore_SchemeCache(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.SetSchemes(testutil.SampleSchemesJSON)
	persist, err := internal.OpenPersistence(internal.MemoryDatabase)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = persist.Close() })
	cache := internal.NewCacheManager(filepath.Join(testutil.CreateTempDir(t), "cache"), fake.URL())
	ctx := context.Background()

	online := newHarnessWith(t, fake, persist, cache)
	online.store.FetchSchemes(ctx)
	if _, err := online.store.ExplainScheme(ctx, "s2"); err != nil {
		t.Fatal(err)
	}

	offline := newHarnessWith(t, fake, persist, cache)
	if err := offline.store.Hydrate(ctx); err != nil {
		t.Fatalf("Hydrate() error = %v", err)
	}
	if n := len(offline.store.State().Schemes); n != 2 {
		t.Errorf("hydrated schemes from cache = %d, want 2", n)
	}
	if _, err := offline.store.ExplainScheme(ctx, "s2"); err != nil {
		t.Fatal(err)
	}
	if n := fake.CountRequests("POST /ai/scheme-info/s2"); n != 1 {
		t.Errorf("scheme-info requests across stores = %d, want 1", n)
	}

	offline.store.Logout(ctx)
	if schemes, _ := cache.LoadSchemes(); schemes != nil {
		t.Errorf("cache kept %d schemes after logout", len(schemes))
	}
}
