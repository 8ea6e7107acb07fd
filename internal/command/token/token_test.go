package token_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cirruslabs/catcache/internal/command/token"
	tokenpkg "github.com/cirruslabs/catcache/internal/server/token"
	"github.com/stretchr/testify/require"
)

const secret = "correct-horse-battery-staple"

func TestIssue(t *testing.T) {
	rawToken := execute(t, "--secret", secret, "--subject", "ci", "--validity", time.Hour.String())

	tokenManager, err := tokenpkg.NewManager(secret)
	require.NoError(t, err)

	subject, err := tokenManager.Verify(rawToken)
	require.NoError(t, err)
	require.Equal(t, "ci", subject)
}

func TestIssueFromConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "catcache.yml")
	require.NoError(t, os.WriteFile(configPath, []byte("auth:\n  secret: "+secret+"\n"), 0600))

	rawToken := execute(t, "-f", configPath)

	tokenManager, err := tokenpkg.NewManager(secret)
	require.NoError(t, err)

	subject, err := tokenManager.Verify(rawToken)
	require.NoError(t, err)
	require.Equal(t, "catcache", subject)
}

func TestNoSecret(t *testing.T) {
	cmd := token.NewCommand()
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	require.ErrorContains(t, cmd.ExecuteContext(context.Background()), "secret")
}

func execute(t *testing.T, args ...string) string {
	t.Helper()

	var stdout bytes.Buffer

	cmd := token.NewCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)

	require.NoError(t, cmd.ExecuteContext(context.Background()))

	return strings.TrimSpace(stdout.String())
}
