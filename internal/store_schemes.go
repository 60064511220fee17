package internal

import (
	"context"
	"fmt"
)

// FetchSchemes replaces the scheme list with the backend's. On failure the
// previous list is kept and the error is only logged; callers detect failure
// from a stale or empty list.
func (s *Store) FetchSchemes(ctx context.Context) {
	actx, done, gen := s.actionContext(ctx)
	defer done()

	schemes, err := s.backend.ListSchemes(actx)
	if err != nil {
		LogWarn("Failed to fetch schemes: %v", err)
		return
	}

	fetchedAt := s.now()
	applied := false
	s.commit(func(st *State) {
		if !s.current(gen) {
			return
		}
		st.Schemes = schemes
		st.SchemesFetchedAt = fetchedAt
		applied = true
	})
	if !applied {
		LogDebug("Discarding scheme list from an ended session")
		return
	}
	LogDebug("Fetched %d schemes", len(schemes))

	if s.cache != nil {
		if err := s.cache.SaveSchemes(schemes); err != nil {
			LogWarn("Failed to cache schemes: %v", err)
		}
	}
}

// RefreshSchemesFromSource asks the backend to pull schemes from its
// upstream source. The local list is not touched; call FetchSchemes after.
func (s *Store) RefreshSchemesFromSource(ctx context.Context) (string, error) {
	actx, done, _ := s.actionContext(ctx)
	defer done()

	msg, err := s.backend.FetchSchemesFromSource(actx)
	if err != nil {
		LogWarn("Scheme refresh failed: %v", err)
		return "", err
	}
	return msg.Message, nil
}

// Scheme looks up a scheme in the current list
func (s *Store) Scheme(id string) (Scheme, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sc := range s.state.Schemes {
		if sc.ID == id {
			return sc, true
		}
	}
	return Scheme{}, false
}

// FetchScheme loads a single scheme from the backend without changing the list
func (s *Store) FetchScheme(ctx context.Context, id string) (Scheme, error) {
	actx, done, _ := s.actionContext(ctx)
	defer done()

	scheme, err := s.backend.GetScheme(actx, id)
	if err != nil {
		if KindOf(err) == FailureNotFound {
			return Scheme{}, fmt.Errorf("%w: %s: %v", ErrSchemeNotFound, id, err)
		}
		return Scheme{}, err
	}
	return scheme, nil
}

// ExplainScheme returns the assistant's explanation of a scheme. Results are
// memoized per scheme id for the rest of the session.
func (s *Store) ExplainScheme(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	cached, ok := s.state.Explanations[id]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}
	if s.cache != nil {
		if text, ok := s.cache.LoadExplanation(id); ok {
			s.rememberExplanation(s.generationNow(), id, text)
			return text, nil
		}
	}

	actx, done, gen := s.actionContext(ctx)
	defer done()

	text, err := s.backend.SchemeExplanation(actx, id)
	if err != nil {
		if KindOf(err) == FailureNotFound {
			return "", fmt.Errorf("%w: %s: %v", ErrSchemeNotFound, id, err)
		}
		return "", err
	}

	if s.rememberExplanation(gen, id, text) && s.cache != nil {
		if err := s.cache.SaveExplanation(id, text); err != nil {
			LogWarn("Failed to cache explanation for %s: %v", id, err)
		}
	}
	return text, nil
}

func (s *Store) generationNow() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Store) rememberExplanation(gen uint64, id, text string) bool {
	return s.update(func(st *State) bool {
		if !s.current(gen) {
			return false
		}
		if st.Explanations == nil {
			st.Explanations = make(map[string]string)
		}
		st.Explanations[id] = text
		return true
	})
}

// FetchNotifications loads the logged-in user's notifications
func (s *Store) FetchNotifications(ctx context.Context) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}

	actx, done, gen := s.actionContext(ctx)
	defer done()

	list, err := s.backend.Notifications(actx, user.ID)
	if err != nil {
		LogWarn("Failed to fetch notifications: %v", err)
		return err
	}

	s.commit(func(st *State) {
		if s.current(gen) && st.IsAuthenticated {
			st.Notifications = list
		}
	})
	return nil
}
