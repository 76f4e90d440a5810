package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodentplay/rodentbot/internal/chat"
	"github.com/rodentplay/rodentbot/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "rodentbot dev\n", out)
}

func TestConfigInitWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	cfg, err := config.Load("", path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestConfigInitRefusesToOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: squeak\n"), 0644))

	_, err := execute(t, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "config", "init", "--force", path)
	require.NoError(t, err)
}

func TestConfigShowMergesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: squeak\ndefense:\n  radius: 6\n"), 0644))

	out, err := execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "name: squeak")
	assert.Contains(t, out, "radius: 6")
	assert.Contains(t, out, "flee_distance: 15")
}

func TestInvalidConfigIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("defense:\n  radius: -1\n"), 0644))

	_, err := execute(t, "--config", path, "run")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "invalid config"))
}

func TestNewWorldPlacesLocalPlayer(t *testing.T) {
	w := newWorld(config.DefaultConfig(), "alex")

	p, ok := w.Player("alex")
	require.True(t, ok)
	assert.Less(t, p.Position.DistanceSquared(w.Self().Position), 25.0)
	assert.True(t, p.Player)
}

func TestNewTransportSelection(t *testing.T) {
	cfg := config.DefaultConfig()

	tr, err := newTransport(cfg, &runOptions{user: "steve"}, strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)
	assert.IsType(t, &chat.Console{}, tr)

	tr, err = newTransport(cfg, &runOptions{user: "steve", tui: true}, strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Nil(t, tr)
}

func TestNewFlavorDisabledWithoutCommand(t *testing.T) {
	assert.Nil(t, newFlavor(config.FlavorConfig{}, nil))
	assert.NotNil(t, newFlavor(config.FlavorConfig{Command: "echo"}, nil))
}
