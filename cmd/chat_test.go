package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/iksnae/sahayak/internal"
	"github.com/iksnae/sahayak/testutil"
)

func TestAsk(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "ask", "Which", "schemes", "help", "farmers?")
	if !strings.Contains(out, "Reply to: Which schemes help farmers?") {
		t.Errorf("ask output = %q", out)
	}
	if env.fake.CountRequests("POST /ai/chat/public") != 1 {
		t.Errorf("anonymous ask should use the public endpoint: %v", env.fake.Requests())
	}

	env.login(t)
	env.mustRun(t, "ask", "hello")
	if env.fake.CountRequests("POST /ai/chat") != 1 {
		t.Errorf("logged-in ask should use the personalised endpoint: %v", env.fake.Requests())
	}
}

func TestAsk_JSON(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "ask", "--format", "json", "PM-KISAN eligibility")
	var transcript []internal.ChatMessage
	testutil.JSONUnmarshal(t, []byte(out), &transcript)
	if len(transcript) != 2 {
		t.Fatalf("transcript has %d messages, want 2", len(transcript))
	}
	if transcript[0].Sender != internal.SenderUser || transcript[1].Sender != internal.SenderAI {
		t.Errorf("senders = %q, %q", transcript[0].Sender, transcript[1].Sender)
	}
	if !json.Valid([]byte(out)) {
		t.Error("output is not valid JSON")
	}
}

func TestAsk_Errors(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.run(t, "ask", "--format", "xml", "hi"); err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("bad format error = %v", err)
	}
	if _, err := env.run(t, "ask", "   "); err == nil {
		t.Error("blank question should fail")
	}

	env.fake.SetChatMode(testutil.ChatServerError)
	out, err := env.run(t, "ask", "hello")
	if err == nil || !strings.Contains(err.Error(), "unavailable") {
		t.Errorf("server error = %v", err)
	}
	if !strings.Contains(out, internal.ChatFallbackText) {
		t.Errorf("fallback reply not printed: %q", out)
	}
}

func TestChatCommandFlags(t *testing.T) {
	for _, name := range []string{"export-format", "export-dir"} {
		if chatCmd.Flags().Lookup(name) == nil {
			t.Errorf("chat command missing --%s", name)
		}
	}
}
