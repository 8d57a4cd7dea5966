package command

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"strings"
	"testing"

	"github.com/joeycumines/jsadapter/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCommand implements Command for registry tests.
type TestCommand struct {
	*BaseCommand
	verbose bool
}

func (c *TestCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.verbose, "verbose", false, "Say more")
}

func (c *TestCommand) Execute(context.Context, []string, io.Writer, io.Writer) error {
	return nil
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	registry.Register(&TestCommand{BaseCommand: NewBaseCommand("zeta", "Last", "zeta")})
	registry.Register(&TestCommand{BaseCommand: NewBaseCommand("alpha", "First", "alpha")})

	cmd, err := registry.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "First", cmd.Description())

	_, err = registry.Get("nonexistent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCommand))
	assert.Contains(t, err.Error(), "nonexistent")

	assert.Equal(t, []string{"alpha", "zeta"}, registry.List())

	registry.Register(&TestCommand{BaseCommand: NewBaseCommand("alpha", "Replaced", "alpha")})
	cmd, err = registry.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "Replaced", cmd.Description())
}

func TestHelpCommandExecute(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	registry.Register(NewVersionCommand("1.0.0"))
	registry.Register(&TestCommand{BaseCommand: NewBaseCommand("test", "Test command", "test [options]")})
	cmd := NewHelpCommand(registry)
	registry.Register(cmd)

	t.Run("general help", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		require.NoError(t, cmd.Execute(t.Context(), nil, &stdout, &stderr))
		output := stdout.String()
		for _, part := range []string{
			"jsadapt",
			"Usage: jsadapt <command>",
			"Available commands:",
			"version",
			"Display version information",
			"test",
		} {
			assert.Contains(t, output, part)
		}
		assert.Empty(t, stderr.String())
	})

	t.Run("specific command with flags", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		require.NoError(t, cmd.Execute(t.Context(), []string{"test"}, &stdout, &stderr))
		output := stdout.String()
		assert.Contains(t, output, "Command: test")
		assert.Contains(t, output, "Description: Test command")
		assert.Contains(t, output, "Usage: jsadapt test [options]")
		assert.Contains(t, output, "Flags:")
		assert.Contains(t, output, "-verbose")
	})

	t.Run("specific command without flags", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		require.NoError(t, cmd.Execute(t.Context(), []string{"version"}, &stdout, &stderr))
		assert.NotContains(t, stdout.String(), "Flags:")
	})

	t.Run("unknown command", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		err := cmd.Execute(t.Context(), []string{"nope"}, &stdout, &stderr)
		require.ErrorIs(t, err, ErrUnknownCommand)
		assert.Contains(t, stderr.String(), "Unknown command: nope")
	})
}

func TestVersionCommandExecute(t *testing.T) {
	t.Parallel()
	cmd := NewVersionCommand("1.2.3")

	var stdout, stderr bytes.Buffer
	require.NoError(t, cmd.Execute(t.Context(), nil, &stdout, &stderr))
	assert.Equal(t, "jsadapt version 1.2.3\n", stdout.String())

	stdout.Reset()
	err := cmd.Execute(t.Context(), []string{"extra"}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "unexpected arguments")
	assert.Empty(t, stdout.String())
}

func loadConfig(t *testing.T, text string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromReader(strings.NewReader(text))
	require.NoError(t, err)
	return cfg
}

func TestConfigCommand(t *testing.T) {
	t.Parallel()
	cfg := loadConfig(t, `
engine.main-realm primary
engine.bogus 1

[eval]
module true
`)

	run := func(t *testing.T, section string, args ...string) string {
		t.Helper()
		cmd := NewConfigCommand(cfg)
		fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
		cmd.SetupFlags(fs)
		if section != "" {
			require.NoError(t, fs.Parse([]string{"-section", section}))
		}
		var stdout, stderr bytes.Buffer
		require.NoError(t, cmd.Execute(t.Context(), args, &stdout, &stderr))
		return stdout.String()
	}

	t.Run("usage", func(t *testing.T) {
		out := run(t, "")
		assert.Contains(t, out, "config validate")
		assert.Contains(t, out, "config schema")
	})

	t.Run("get from file", func(t *testing.T) {
		assert.Equal(t, "engine.main-realm: primary\n", run(t, "", "engine.main-realm"))
	})

	t.Run("get default", func(t *testing.T) {
		assert.Equal(t, "engine.console: true\n", run(t, "", "engine.console"))
	})

	t.Run("get in section", func(t *testing.T) {
		assert.Equal(t, "module: true\n", run(t, "eval", "module"))
		assert.Contains(t, run(t, "", "module"), "not found")
	})

	t.Run("unknown key", func(t *testing.T) {
		assert.Contains(t, run(t, "", "no.such.key"), "Configuration key 'no.such.key' not found")
	})

	t.Run("show", func(t *testing.T) {
		out := run(t, "", "show")
		assert.Regexp(t, `engine\.main-realm\s+primary`, out)
		assert.Regexp(t, `engine\.sync-timeout\s+5s`, out)
		assert.Contains(t, out, "[eval]")
		assert.Regexp(t, `module\s+true`, out)
	})

	t.Run("validate", func(t *testing.T) {
		out := run(t, "", "validate")
		assert.Contains(t, out, "Configuration has 1 issue(s):")
		assert.Contains(t, out, `"engine.bogus"`)
		assert.Equal(t, "Configuration is valid.\n", func() string {
			var stdout bytes.Buffer
			require.NoError(t, NewConfigCommand(nil).Execute(t.Context(), []string{"validate"}, &stdout, io.Discard))
			return stdout.String()
		}())
	})

	t.Run("schema", func(t *testing.T) {
		out := run(t, "", "schema")
		assert.Contains(t, out, "Global Options:")
		assert.Contains(t, out, "engine.sync-timeout")
		assert.Contains(t, out, "[eval] Options:")
	})

	t.Run("too many arguments", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		err := NewConfigCommand(cfg).Execute(t.Context(), []string{"a", "b"}, &stdout, &stderr)
		require.Error(t, err)
		assert.Contains(t, stderr.String(), "Invalid number of arguments")
	})
}
