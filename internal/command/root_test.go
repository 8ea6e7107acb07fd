package command_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cirruslabs/catcache/internal/command"
	"github.com/cirruslabs/catcache/internal/logginglevel"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDebugAndLogFile(t *testing.T) {
	t.Cleanup(func() {
		logginglevel.Level.SetLevel(zap.InfoLevel)
	})

	var stdout bytes.Buffer

	cmd := command.NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{
		"--debug",
		"--log-file", filepath.Join(t.TempDir(), "catcache.log"),
		"token", "--secret", "correct-horse-battery-staple",
	})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	require.Equal(t, zap.DebugLevel, logginglevel.Level.Level())
	require.Len(t, strings.Split(strings.TrimSpace(stdout.String()), "."), 3)
}

func TestVersion(t *testing.T) {
	var stdout bytes.Buffer

	cmd := command.NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	require.Contains(t, stdout.String(), "catcache version")
}
