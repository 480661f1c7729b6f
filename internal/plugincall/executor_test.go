// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugincall

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/plugincall/internal/attr"
	"github.com/holomush/plugincall/internal/identity"
	"github.com/holomush/plugincall/internal/jsonrpc"
	"github.com/holomush/plugincall/internal/tracker"
	"github.com/holomush/plugincall/pkg/errutil"
)

var (
	testActor  = identity.Actor{ID: "actor-1", Username: "alice"}
	testCaller = identity.NewPlayer("p1", "Alice")
	testRoles  = stubRoles{
		"p1":    identity.NewRoles(identity.RoleBard),
		"guest": identity.NewRoles(identity.RoleGuest),
	}
)

func newTestDefinition(t *testing.T, tr *tracker.Tracker) *Definition {
	t.Helper()
	def, err := Build("$roll", callData(), testExtension, tr)
	require.NoError(t, err)
	return def
}

func respondWith(raw string) func(*jsonrpc.Request) string {
	return func(*jsonrpc.Request) string { return raw }
}

func TestExecute_StringResult(t *testing.T) {
	tr := tracker.New()
	def := newTestDefinition(t, tr)

	var seen *jsonrpc.Request
	var trackedDuringCall tracker.Entry
	var wasTracked bool
	factory := &fakeFactory{respond: func(req *jsonrpc.Request) string {
		seen = req
		id, _ := req.Params.String(jsonrpc.ParamPluginCallID)
		trackedDuringCall, wasTracked = tr.Lookup(id)
		return `{"jsonrpc":"2.0","result":"You rolled 7","id":"x"}`
	}}
	exec := NewExecutor(testRoles, WithProcessFactory(factory), WithGatewaySocket("/run/api.sock"))

	result, ok, err := exec.Execute(context.Background(), def, testActor, testCaller, []string{"2d6"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "You rolled 7", result)

	require.NotNil(t, seen)
	assert.Equal(t, "roll", seen.Method)
	callID, ok := seen.Params.String(jsonrpc.ParamPluginCallID)
	require.True(t, ok)
	assert.NotEmpty(t, callID)
	extID, _ := seen.Params.String(jsonrpc.ParamExtensionID)
	assert.Equal(t, "ext-1", extID)
	args, _ := seen.Params.Strings(jsonrpc.ParamPluginCallArguments)
	assert.Equal(t, []string{"2d6"}, args)
	assert.False(t, seen.ID.IsNull())

	require.True(t, wasTracked, "call must be tracked while the plugin runs")
	assert.Equal(t, tracker.Entry{Actor: testActor, Caller: testCaller, Extension: testExtension}, trackedDuringCall)
	_, stillTracked := tr.Lookup(callID)
	assert.False(t, stillTracked)

	assert.Equal(t, []string{"/opt/dice"}, factory.paths)
	assert.Equal(t, []string{EnvSocket + "=/run/api.sock"}, factory.env)
}

func TestExecute_NilArgumentsSentAsEmptyList(t *testing.T) {
	def := newTestDefinition(t, tracker.New())
	var args []string
	var present bool
	factory := &fakeFactory{respond: func(req *jsonrpc.Request) string {
		args, present = req.Params.Strings(jsonrpc.ParamPluginCallArguments)
		return `{"jsonrpc":"2.0","result":null,"id":"x"}`
	}}

	_, _, err := NewExecutor(testRoles, WithProcessFactory(factory)).
		Execute(context.Background(), def, testActor, testCaller, nil)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Empty(t, args)
}

func TestExecute_NoResult(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty string", `{"jsonrpc":"2.0","result":"","id":"x"}`},
		{"null", `{"jsonrpc":"2.0","result":null,"id":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := newTestDefinition(t, tracker.New())
			exec := NewExecutor(testRoles, WithProcessFactory(&fakeFactory{respond: respondWith(tt.raw)}))

			result, ok, err := exec.Execute(context.Background(), def, testActor, testCaller, nil)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Empty(t, result)
		})
	}
}

func TestExecute_NonStringResult(t *testing.T) {
	for _, raw := range []string{
		`{"jsonrpc":"2.0","result":42,"id":"x"}`,
		`{"jsonrpc":"2.0","result":["a"],"id":"x"}`,
		`{"jsonrpc":"2.0","result":{"a":1},"id":"x"}`,
	} {
		tr := tracker.New()
		def := newTestDefinition(t, tr)
		exec := NewExecutor(testRoles, WithProcessFactory(&fakeFactory{respond: respondWith(raw)}))

		_, _, err := exec.Execute(context.Background(), def, testActor, testCaller, nil)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, CodeInvalidResult)
		assert.Equal(t, 0, tr.Len())
	}
}

func TestExecute_PluginError(t *testing.T) {
	tr := tracker.New()
	def := newTestDefinition(t, tr)
	exec := NewExecutor(testRoles, WithProcessFactory(&fakeFactory{
		respond: respondWith(`{"jsonrpc":"2.0","error":{"code":-32602,"message":"Unrecognized subcommand x"},"id":"x"}`),
	}))

	_, _, err := exec.Execute(context.Background(), def, testActor, testCaller, []string{"x"})
	errutil.AssertErrorCode(t, err, CodePluginError)
	errutil.AssertErrorContext(t, err, "message", "Plugin error: Unrecognized subcommand x")
	assert.Equal(t, 0, tr.Len())
}

func TestExecute_PermissionDeniedStartsNoProcess(t *testing.T) {
	tr := tracker.New()
	def := newTestDefinition(t, tr)
	factory := &fakeFactory{respond: respondWith(`{"jsonrpc":"2.0","result":"x","id":"x"}`)}
	exec := NewExecutor(testRoles, WithProcessFactory(factory))

	for _, caller := range []identity.Principal{
		identity.NewPlayer("guest", "Guest"),
		identity.NewPlayer("unknown", "Nobody"),
	} {
		_, _, err := exec.Execute(context.Background(), def, testActor, caller, nil)
		errutil.AssertErrorCode(t, err, CodePermissionDenied)
	}
	assert.Equal(t, 0, factory.startCount())
	assert.Equal(t, 0, tr.Len())
}

func TestExecute_SuperIdentityBypassesRoles(t *testing.T) {
	def := newTestDefinition(t, tracker.New())
	factory := &fakeFactory{respond: respondWith(`{"jsonrpc":"2.0","result":"ok","id":"x"}`)}
	exec := NewExecutor(stubRoles{}, WithProcessFactory(factory))

	result, ok, err := exec.Execute(context.Background(), def, testActor, identity.God(), nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, factory.startCount())
}

func TestExecute_StartFailure(t *testing.T) {
	tr := tracker.New()
	def := newTestDefinition(t, tr)
	exec := NewExecutor(testRoles, WithProcessFactory(&fakeFactory{startErr: errors.New("no such file")}))

	_, _, err := exec.Execute(context.Background(), def, testActor, testCaller, nil)
	errutil.AssertErrorCode(t, err, CodeUnreachable)
	assert.Equal(t, 0, tr.Len())
}

func TestExecute_MalformedResponse(t *testing.T) {
	for _, raw := range []string{
		"",
		"not json",
		`{"jsonrpc":"2.0","id":"x"}`,
		`{"jsonrpc":"1.0","result":"x","id":"x"}`,
	} {
		tr := tracker.New()
		def := newTestDefinition(t, tr)
		factory := &fakeFactory{respond: respondWith(raw)}
		exec := NewExecutor(testRoles, WithProcessFactory(factory))

		_, _, err := exec.Execute(context.Background(), def, testActor, testCaller, nil)
		errutil.AssertErrorCode(t, err, CodeUnreachable)
		assert.Equal(t, 0, tr.Len())
		assert.True(t, factory.lastProc.killed)
	}
}

func TestExecute_OversizedResponse(t *testing.T) {
	def := newTestDefinition(t, tracker.New())
	raw := `{"jsonrpc":"2.0","result":"` + strings.Repeat("a", 64) + `","id":"x"}`
	exec := NewExecutor(testRoles,
		WithProcessFactory(&fakeFactory{respond: respondWith(raw)}),
		WithMaxResponseSize(32))

	_, _, err := exec.Execute(context.Background(), def, testActor, testCaller, nil)
	errutil.AssertErrorCode(t, err, CodeUnreachable)
}

func TestExecute_NonZeroExitIsNotAFailure(t *testing.T) {
	def := newTestDefinition(t, tracker.New())
	exec := NewExecutor(testRoles, WithProcessFactory(&fakeFactory{
		respond:  respondWith(`{"jsonrpc":"2.0","result":"done","id":"x"}`),
		exitCode: 3,
		stderr:   "warning: something",
	}))

	result, ok, err := exec.Execute(context.Background(), def, testActor, testCaller, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "done", result)
}

func TestExecute_Timeout(t *testing.T) {
	tr := tracker.New()
	def := newTestDefinition(t, tr)
	exec := NewExecutor(testRoles,
		WithProcessFactory(&fakeFactory{block: true}),
		WithTimeout(20*time.Millisecond))

	_, _, err := exec.Execute(context.Background(), def, testActor, testCaller, nil)
	errutil.AssertErrorCode(t, err, CodeTimeout)
	assert.Equal(t, 0, tr.Len())
}

func TestExecute_Interrupted(t *testing.T) {
	tr := tracker.New()
	def := newTestDefinition(t, tr)
	exec := NewExecutor(testRoles, WithProcessFactory(&fakeFactory{block: true}))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, _, err := exec.Execute(ctx, def, testActor, testCaller, nil)
	errutil.AssertErrorCode(t, err, CodeInterrupted)
	assert.Equal(t, 0, tr.Len())
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "plugin.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o700)) //nolint:gosec // test plugin must be executable
	return path
}

func TestExecFactory_RealProcess(t *testing.T) {
	path := writeScript(t, `cat > /dev/null
printf '%s' "{\"jsonrpc\":\"2.0\",\"result\":\"$PLUGINCALL_API_SOCKET\",\"id\":\"x\"}"
echo "bye" >&2
exit 2
`)
	tr := tracker.New()
	def, err := Build("$echo", attr.Map(
		attr.F(FieldPath, attr.String(path)),
		attr.F(FieldMethod, attr.String("echo")),
	), testExtension, tr)
	require.NoError(t, err)

	exec := NewExecutor(testRoles, WithGatewaySocket("/tmp/test.sock"), WithTimeout(10*time.Second))
	result, ok, err := exec.Execute(context.Background(), def, testActor, testCaller, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/tmp/test.sock", result)
	assert.Equal(t, 0, tr.Len())
}

func TestExecFactory_MissingExecutable(t *testing.T) {
	def, err := Build("$nope", attr.Map(
		attr.F(FieldPath, attr.String(filepath.Join(t.TempDir(), "missing"))),
		attr.F(FieldMethod, attr.String("x")),
	), testExtension, tracker.New())
	require.NoError(t, err)

	_, _, err = NewExecutor(testRoles).Execute(context.Background(), def, testActor, testCaller, nil)
	errutil.AssertErrorCode(t, err, CodeUnreachable)
}

func TestExecFactory_TimeoutKillsChild(t *testing.T) {
	path := writeScript(t, "cat > /dev/null\nexec sleep 30\n")
	tr := tracker.New()
	def, err := Build("$slow", attr.Map(
		attr.F(FieldPath, attr.String(path)),
		attr.F(FieldMethod, attr.String("slow")),
	), testExtension, tr)
	require.NoError(t, err)

	exec := NewExecutor(testRoles, WithTimeout(100*time.Millisecond))
	start := time.Now()
	_, _, err = exec.Execute(context.Background(), def, testActor, testCaller, nil)
	errutil.AssertErrorCode(t, err, CodeTimeout)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, 0, tr.Len())
}
