// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDocument = `
version: "2.1.0"
extension:
  id: ext-dice
  name: Dice
calls:
  $roll:
    pluginPath: /usr/local/bin/dice
    pluginMethod: roll
  $flip:
    pluginPath: /usr/local/bin/dice
    pluginMethod: flip
    callerRoles: [BARD]
`

func writeDocument(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestValidateCommand_Help(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"validate", "--help"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "definition documents")
}

func TestValidateCommand_ValidDocument(t *testing.T) {
	path := writeDocument(t, "dice.yaml", validDocument)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"validate", path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "ok   "+path+": extension ext-dice, version 2.1.0, 2 calls")
}

func TestValidateCommand_ReportsEveryInvalidDocument(t *testing.T) {
	good := writeDocument(t, "dice.yaml", validDocument)
	noCalls := writeDocument(t, "bad.yaml", "version: \"1.0.0\"\nextension:\n  id: ext-bad\n")
	badName := writeDocument(t, "name.yaml", `
version: "1.0.0"
extension:
  id: ext-bad
calls:
  roll:
    pluginPath: /bin/true
    pluginMethod: roll
`)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"validate", good, noCalls, badName})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 documents invalid")

	out := buf.String()
	assert.Contains(t, out, "ok   "+good)
	assert.Contains(t, out, "FAIL "+noCalls)
	assert.Contains(t, out, "FAIL "+badName)
}

func TestValidateCommand_RequiresArguments(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"validate"})

	require.Error(t, cmd.Execute())
}
