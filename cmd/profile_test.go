package cmd

import (
	"strings"
	"testing"
)

func TestProfile(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.run(t, "profile"); err == nil || !strings.Contains(err.Error(), "sahayak login") {
		t.Errorf("profile while logged out error = %v", err)
	}

	env.login(t)
	out := env.mustRun(t, "profile")
	for _, want := range []string{"Asha Patil", testEmail, "9876543210", "farmer"} {
		if !strings.Contains(out, want) {
			t.Errorf("profile output missing %q:\n%s", want, out)
		}
	}
}

func TestProfileUpdate(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	if _, err := env.run(t, "profile", "update"); err == nil || !strings.Contains(err.Error(), "nothing to update") {
		t.Errorf("empty update error = %v", err)
	}

	out := env.mustRun(t, "profile", "update", "--name", "Asha P", "--role", "student")
	if !strings.Contains(out, "Profile updated") || !strings.Contains(out, "Asha P") || !strings.Contains(out, "student") {
		t.Errorf("update output = %q", out)
	}
	if n := env.fake.CountRequests("PATCH /auth/me"); n != 1 {
		t.Errorf("PATCH /auth/me called %d times", n)
	}

	env.fake.FailProfileUpdate(true)
	if _, err := env.run(t, "profile", "update", "--name", "Someone Else"); err == nil {
		t.Fatal("expected rejected update to fail")
	}
	if out := env.mustRun(t, "profile"); !strings.Contains(out, "Asha P") || strings.Contains(out, "Someone Else") {
		t.Errorf("rejected update was not rolled back:\n%s", out)
	}
}

func TestLanguage(t *testing.T) {
	env := newTestEnv(t)

	if out := env.mustRun(t, "language"); !strings.Contains(out, "(en)") {
		t.Errorf("default language = %q", out)
	}
	if out := env.mustRun(t, "language", "hi"); !strings.Contains(out, "Language set to") {
		t.Errorf("set language output = %q", out)
	}
	if out := env.mustRun(t, "language"); !strings.Contains(out, "(hi)") {
		t.Errorf("language not persisted: %q", out)
	}
	if _, err := env.run(t, "language", "fr"); err == nil {
		t.Error("expected error for unsupported language")
	}

	env.login(t)
	env.mustRun(t, "logout")
	if out := env.mustRun(t, "language"); !strings.Contains(out, "(hi)") {
		t.Errorf("language should survive logout: %q", out)
	}
}
