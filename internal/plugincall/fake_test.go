// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugincall

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/holomush/plugincall/internal/identity"
	"github.com/holomush/plugincall/internal/jsonrpc"
)

// stubRoles is a RoleProvider keyed by principal ID.
type stubRoles map[string]identity.Roles

func (s stubRoles) RolesOf(_ context.Context, p identity.Principal) (identity.Roles, error) {
	roles, ok := s[p.ID]
	if !ok {
		return nil, errors.New("unknown principal " + p.ID)
	}
	return roles, nil
}

// fakeFactory starts fakeProcesses. respond produces the plugin's stdout from
// the request it was sent; it runs when the executor closes stdin.
type fakeFactory struct {
	mu       sync.Mutex
	starts   int
	paths    []string
	env      []string
	startErr error
	exitCode int
	stderr   string
	respond  func(req *jsonrpc.Request) string
	block    bool
	lastProc *fakeProcess
}

func (f *fakeFactory) Start(ctx context.Context, path string, env []string) (Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.starts++
	f.paths = append(f.paths, path)
	f.env = env
	if f.startErr != nil {
		return nil, f.startErr
	}
	p := &fakeProcess{ctx: ctx, factory: f, outReady: make(chan struct{})}
	f.lastProc = p
	return p, nil
}

func (f *fakeFactory) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

type fakeProcess struct {
	ctx      context.Context
	factory  *fakeFactory
	in       bytes.Buffer
	out      io.Reader
	outReady chan struct{}
	killed   bool
}

func (p *fakeProcess) Stdin() io.WriteCloser { return fakeStdin{p} }
func (p *fakeProcess) Stdout() io.Reader     { return fakeStdout{p} }
func (p *fakeProcess) Stderr() string        { return p.factory.stderr }
func (p *fakeProcess) Kill() error           { p.killed = true; return nil }

func (p *fakeProcess) Wait() (int, error) { return p.factory.exitCode, nil }

type fakeStdin struct{ p *fakeProcess }

func (s fakeStdin) Write(b []byte) (int, error) { return s.p.in.Write(b) }

func (s fakeStdin) Close() error {
	out := ""
	if req, err := jsonrpc.DecodeRequest(bytes.TrimSpace(s.p.in.Bytes())); err == nil && s.p.factory.respond != nil {
		out = s.p.factory.respond(req)
	}
	s.p.out = strings.NewReader(out)
	close(s.p.outReady)
	return nil
}

type fakeStdout struct{ p *fakeProcess }

func (s fakeStdout) Read(b []byte) (int, error) {
	if s.p.factory.block {
		<-s.p.ctx.Done()
		return 0, s.p.ctx.Err()
	}
	<-s.p.outReady
	return s.p.out.Read(b)
}
