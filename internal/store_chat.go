package internal

import (
	"context"
	"strings"
	"time"
)

// ChatFallbackText replaces the assistant reply whenever the chat call fails
const ChatFallbackText = "Sorry, I couldn't reach the assistant right now. Please try again in a moment."

// SendChatMessage appends text to the transcript and waits for the
// assistant's reply. It returns false without doing anything when text is
// blank or another message is still in flight.
//
// The user message and ChatLoading are committed together before the
// request is sent. Exactly one assistant message follows, either the reply
// or ChatFallbackText, committed together with ChatLoading going false.
func (s *Store) SendChatMessage(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	outgoing := s.newMessage(SenderUser, text)
	var (
		gen           uint64
		lifetime      context.Context
		authenticated bool
	)
	accepted := s.update(func(st *State) bool {
		if st.ChatLoading {
			return false
		}
		st.Transcript = append(st.Transcript, outgoing)
		st.ChatLoading = true
		gen, lifetime = s.generation, s.lifetime
		authenticated = st.IsAuthenticated
		return true
	})
	if !accepted {
		LogDebug("Chat message rejected, a reply is still pending")
		return false
	}

	actx, done := withLifetime(ctx, lifetime)
	defer done()

	var (
		reply ChatReply
		err   error
	)
	if authenticated {
		reply, err = s.backend.Chat(actx, text)
	} else {
		reply, err = s.backend.ChatPublic(actx, text)
	}

	answer := strings.TrimSpace(reply.Response)
	if err != nil || answer == "" {
		if err != nil {
			LogWarn("Chat request failed: %v", err)
		}
		answer = ChatFallbackText
	}
	incoming := s.newMessage(SenderAI, answer)

	s.update(func(st *State) bool {
		// Logout already reset the transcript and ChatLoading
		if !s.current(gen) {
			return false
		}
		st.Transcript = append(st.Transcript, incoming)
		st.ChatLoading = false
		return true
	})
	return true
}

// ClearTranscript empties the chat transcript unless a reply is pending
func (s *Store) ClearTranscript() bool {
	return s.update(func(st *State) bool {
		if st.ChatLoading || len(st.Transcript) == 0 {
			return false
		}
		st.Transcript = nil
		return true
	})
}

func (s *Store) newMessage(sender Sender, text string) ChatMessage {
	return ChatMessage{
		ID:        s.newID(),
		Sender:    sender,
		Text:      text,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	}
}
