package internal

import (
	"context"
	"fmt"
	"strings"
)

// Login authenticates with the backend. A nil error means the session is
// authenticated. On any failure no token is kept and the previous session is
// left untouched.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	return s.login(ctx, email, password)
}

func (s *Store) login(ctx context.Context, email, password string) error {
	actx, done, gen := s.actionContext(ctx)
	defer done()

	email = strings.TrimSpace(email)
	s.commit(func(st *State) {
		st.Phase = PhaseAuthenticating
	})

	fail := func(err error) error {
		s.commit(func(st *State) {
			if s.current(gen) {
				s.pendingToken = ""
			}
			st.Phase = phaseOf(st)
		})
		LogWarn("Login failed for %s: %v", email, err)
		return err
	}

	token, err := s.backend.Login(actx, email, password)
	if err != nil {
		return fail(err)
	}

	s.mu.Lock()
	if !s.current(gen) {
		s.mu.Unlock()
		return fail(context.Canceled)
	}
	s.pendingToken = token.AccessToken
	s.mu.Unlock()

	user, err := s.backend.CurrentUser(actx)
	if err != nil {
		return fail(err)
	}
	user.Role = NormalizeRole(user.Role)

	if err := s.persist.SaveToken(ctx, token.AccessToken); err != nil {
		return fail(err)
	}

	committed := false
	s.commit(func(st *State) {
		if !s.current(gen) {
			st.Phase = phaseOf(st)
			return
		}
		s.pendingToken = ""
		st.Token = token.AccessToken
		st.User = &user
		st.IsAuthenticated = true
		st.Phase = PhaseAuthenticated
		committed = true
	})
	if !committed {
		_ = s.persist.ClearToken(context.WithoutCancel(ctx))
		return fail(context.Canceled)
	}

	s.onSessionChange(ctx)
	LogInfo("Logged in as %s", user.Email)
	return nil
}

// phaseOf derives the resting phase from the session fields
func phaseOf(st *State) Phase {
	if st.IsAuthenticated {
		return PhaseAuthenticated
	}
	return PhaseAnonymous
}

// Signup registers an account and then logs in with the same credentials
func (s *Store) Signup(ctx context.Context, reg Registration) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Role != "" {
		reg.Role = NormalizeRole(reg.Role)
	}
	if reg.Language == "" {
		reg.Language = s.State().Language
	}

	actx, done, _ := s.actionContext(ctx)
	_, err := s.backend.Register(actx, reg)
	done()
	if err != nil {
		LogWarn("Signup failed for %s: %v", reg.Email, err)
		return err
	}

	return s.login(ctx, reg.Email, reg.Password)
}

// Logout cancels in-flight requests, clears the persisted token and snapshot,
// and resets the session and every derived collection. Safe to call when
// already logged out.
func (s *Store) Logout(ctx context.Context) {
	s.endSession()

	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	s.logout(ctx)
}

// logout expects sessionMu to be held and endSession to have run
func (s *Store) logout(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if err := s.persist.ClearToken(ctx); err != nil {
		LogError("Failed to clear token: %v", err)
	}
	if err := s.persist.ClearSnapshot(ctx); err != nil {
		LogError("Failed to clear session snapshot: %v", err)
	}
	if s.cache != nil {
		if err := s.cache.ClearCache(); err != nil {
			LogWarn("Failed to clear cache: %v", err)
		}
	}

	s.commit(func(st *State) {
		*st = State{Phase: PhaseAnonymous, Language: st.Language}
	})

	// the language preference outlives the session
	s.onSessionChange(ctx)
	LogDebug("Session cleared")
}

// RefreshUser re-reads the current user from the backend. A rejected token
// ends the session.
func (s *Store) RefreshUser(ctx context.Context) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if !s.State().IsAuthenticated {
		return ErrNotAuthenticated
	}

	actx, done, gen := s.actionContext(ctx)
	user, err := s.backend.CurrentUser(actx)
	done()
	if err != nil {
		if KindOf(err) == FailureUnauthorized {
			LogWarn("Stored token was rejected, logging out")
			s.endSession()
			s.logout(ctx)
		}
		return err
	}
	user.Role = NormalizeRole(user.Role)

	s.commit(func(st *State) {
		if s.current(gen) && st.IsAuthenticated {
			st.User = &user
		}
	})
	s.onSessionChange(ctx)
	return nil
}

// UpdateProfile replaces the user locally, sends the edit to the backend,
// and restores the previous user if the backend rejects it
func (s *Store) UpdateProfile(ctx context.Context, user User) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	st := s.State()
	if !st.IsAuthenticated {
		return ErrNotAuthenticated
	}
	previous := *st.User
	user.ID = previous.ID
	user.Email = previous.Email
	user.Role = NormalizeRole(user.Role)
	if user.Language == "" {
		user.Language = previous.Language
	}

	actx, done, gen := s.actionContext(ctx)
	defer done()

	s.commit(func(st *State) {
		if s.current(gen) && st.IsAuthenticated {
			u := user
			st.User = &u
		}
	})
	s.onSessionChange(ctx)

	updated, err := s.backend.UpdateProfile(actx, user)
	if err != nil {
		s.commit(func(st *State) {
			if s.current(gen) && st.IsAuthenticated {
				st.User = &previous
			}
		})
		s.onSessionChange(ctx)
		LogWarn("Profile update rejected, restored previous profile: %v", err)
		return err
	}

	updated.Role = NormalizeRole(updated.Role)
	s.commit(func(st *State) {
		if s.current(gen) && st.IsAuthenticated {
			st.User = &updated
		}
	})
	s.onSessionChange(ctx)
	return nil
}

// SetLanguage changes the UI language and persists it
func (s *Store) SetLanguage(ctx context.Context, lang Language) error {
	parsed, err := ParseLanguage(string(lang))
	if err != nil {
		return err
	}

	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	s.commit(func(st *State) {
		st.Language = parsed
	})
	s.onSessionChange(ctx)
	return nil
}

// requireUser returns the logged-in user or ErrNotAuthenticated
func (s *Store) requireUser() (User, error) {
	st := s.State()
	if !st.IsAuthenticated || st.User == nil {
		return User{}, fmt.Errorf("%w: login required", ErrNotAuthenticated)
	}
	return *st.User, nil
}
