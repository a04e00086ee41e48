package commands_test

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/zb/cmd/zb/commands"
	"go.trai.ch/zb/internal/build"
)

func TestVersionCommand(t *testing.T) {
	cli := commands.New()
	var out bytes.Buffer
	cli.SetOut(&out)
	cli.SetArgs([]string{"version"})

	require.NoError(t, cli.Execute(context.Background()))
	require.Contains(t, out.String(), build.Version)
}

func TestFlagsBecomeEnvOverrides(t *testing.T) {
	for _, env := range []string{"ZB_ROOT", "ZB_PREFIX", "ZB_CONCURRENCY"} {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}

	cli := commands.New()
	var out bytes.Buffer
	cli.SetOut(&out)
	cli.SetArgs([]string{"--root", "/tmp/zbtest", "--concurrency", "7", "version"})

	require.NoError(t, cli.Execute(context.Background()))
	require.Equal(t, "/tmp/zbtest", os.Getenv("ZB_ROOT"))
	require.Equal(t, "7", os.Getenv("ZB_CONCURRENCY"))
}

func TestInstallWithoutArgsShowsHelp(t *testing.T) {
	cli := commands.New()
	var out bytes.Buffer
	cli.SetOut(&out)
	cli.SetArgs([]string{"install"})

	require.NoError(t, cli.Execute(context.Background()))
	require.Contains(t, out.String(), "install")
}
