package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/sahayak/internal"
	"github.com/iksnae/sahayak/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	testEmail    = "asha@example.com"
	testPassword = "secret-pass"
)

// testEnv runs commands against a fake backend with an isolated home
type testEnv struct {
	fake    *testutil.FakeAPI
	home    string
	storage string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := testutil.CreateTempDir(t)
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, key := range []string{
		internal.EnvAPIURL, internal.EnvStateDB, internal.EnvCacheDir,
		internal.EnvRequestTimeout, internal.EnvLanguage, internal.EnvBasePath,
	} {
		t.Setenv(key, "")
	}
	return &testEnv{
		fake:    testutil.NewFakeAPI(t),
		home:    home,
		storage: filepath.Join(home, "state.db"),
	}
}

// resetFlags restores every flag to its default so runs do not leak state
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return e.runWithInput(t, "", args...)
}

func (e *testEnv) runWithInput(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(append([]string{"--api-url", e.fake.URL(), "--storage", e.storage}, args...))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))

	err := rootCmd.Execute()
	return stdout.String(), err
}

// mustRun fails the test if the command errors
func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("sahayak %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	e.fake.AddUser("Asha Patil", testEmail, testPassword)
	e.mustRun(t, "login", "--email", testEmail, "--password", testPassword)
}
