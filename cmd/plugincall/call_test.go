// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/plugincall/internal/command"
	"github.com/holomush/plugincall/pkg/errutil"
)

func runCall(t *testing.T, cfg *Config, opts *callConfig, args ...string) (string, error) {
	t.Helper()
	cmd := &cobra.Command{}
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	err := runCallWithDeps(context.Background(), cfg, opts, cmd, args, nil)
	return buf.String(), err
}

func TestRunCall_PluginCall(t *testing.T) {
	cfg := testConfig(t, pluginDir(t))

	out, err := runCall(t, cfg, &callConfig{as: "Alice"}, "$ping")
	require.NoError(t, err)
	assert.Equal(t, "pong\n", out)
}

func TestRunCall_DisconnectedPlayerGetsSession(t *testing.T) {
	cfg := testConfig(t, pluginDir(t))

	out, err := runCall(t, cfg, &callConfig{as: "Bob"}, "$ping")
	require.NoError(t, err)
	assert.Equal(t, "pong\n", out)
}

func TestRunCall_SuperIdentity(t *testing.T) {
	cfg := testConfig(t, pluginDir(t))

	out, err := runCall(t, cfg, &callConfig{}, "$ping")
	require.NoError(t, err)
	assert.Equal(t, "pong\n", out)
}

func TestRunCall_CommandLine(t *testing.T) {
	cfg := testConfig(t, pluginDir(t))

	out, err := runCall(t, cfg, &callConfig{as: "Alice", line: true}, "  $ping  ")
	require.NoError(t, err)
	assert.Equal(t, "pong\n", out)

	_, err = runCall(t, cfg, &callConfig{line: true}, "$ping", "extra")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, command.CodeInvalidArgs)

	_, err = runCall(t, cfg, &callConfig{line: true}, "   ")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, command.CodeEmptyCommand)
}

func TestRunCall_UnknownPlayer(t *testing.T) {
	cfg := testConfig(t)

	_, err := runCall(t, cfg, &callConfig{as: "Mallory"}, "$ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Player Mallory not found")
}

func TestRunCall_UnknownCommand(t *testing.T) {
	cfg := testConfig(t)

	_, err := runCall(t, cfg, &callConfig{as: "Alice"}, "$nothing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown command: $nothing")
}

func TestRunCall_CallerRolesEnforced(t *testing.T) {
	dir := t.TempDir()
	plugin := writePlugin(t, dir, "secret")
	doc := `
version: "1.0.0"
extension:
  id: ext-vault
calls:
  $vault:
    pluginPath: ` + plugin + `
    pluginMethod: open
    callerRoles: THAUMATURGE
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vault.yaml"), []byte(doc), 0o600))
	cfg := testConfig(t, dir)

	_, err := runCall(t, cfg, &callConfig{as: "Alice"}, "$vault")
	require.Error(t, err)

	out, err := runCall(t, cfg, &callConfig{}, "$vault")
	require.NoError(t, err)
	assert.Equal(t, "secret\n", out)
}

func TestRunCall_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Log.Format = "xml"

	_, err := runCall(t, cfg, &callConfig{}, "$ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestCallCommand_ThroughRoot(t *testing.T) {
	dir := pluginDir(t)
	cfgPath := writeConfig(t, `
log:
  level: error
plugins:
  dirs: [`+dir+`]
world:
  players:
    - name: Alice
      roles: [DENIZEN]
      connected: true
`)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--config", cfgPath, "call", "--as", "Alice", "$ping"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "pong\n", buf.String())
}
