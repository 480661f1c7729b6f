// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package api

import (
	"context"
	"log/slog"
	"sort"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/holomush/plugincall/internal/jsonrpc"
)

// CodeInvalidPattern is returned for an allow-list pattern that does not compile.
const CodeInvalidPattern = "INVALID_METHOD_PATTERN"

// Method handles one gateway request. It always returns a response; failures
// are reported as JSON-RPC errors, never as Go errors.
type Method interface {
	Invoke(ctx context.Context, req *jsonrpc.Request, mc *Context) *jsonrpc.Response
}

// MethodFunc adapts a function to Method.
type MethodFunc func(ctx context.Context, req *jsonrpc.Request, mc *Context) *jsonrpc.Response

// Invoke implements Method.
func (f MethodFunc) Invoke(ctx context.Context, req *jsonrpc.Request, mc *Context) *jsonrpc.Response {
	return f(ctx, req, mc)
}

// Registry maps method names to methods. It cannot change once built.
type Registry struct {
	methods map[string]Method
}

// RegistryOption configures NewRegistry.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	allow []string
}

// WithAllowList exposes only the methods whose names match one of patterns.
// An empty list exposes every method.
func WithAllowList(patterns ...string) RegistryOption {
	return func(c *registryConfig) {
		c.allow = append(c.allow, patterns...)
	}
}

// NewRegistry builds a registry from methods. The map is copied.
func NewRegistry(methods map[string]Method, opts ...RegistryOption) (*Registry, error) {
	var cfg registryConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	globs := make([]glob.Glob, 0, len(cfg.allow))
	for _, pattern := range cfg.allow {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, oops.Code(CodeInvalidPattern).With("pattern", pattern).Wrapf(err, "compile method pattern")
		}
		globs = append(globs, g)
	}

	r := &Registry{methods: make(map[string]Method, len(methods))}
	for name, m := range methods {
		if !allowed(globs, name) {
			slog.Debug("gateway method not in allow-list", "method", name)
			continue
		}
		r.methods[name] = m
	}
	return r, nil
}

func allowed(globs []glob.Glob, name string) bool {
	if len(globs) == 0 {
		return true
	}
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Lookup returns the method registered under name.
func (r *Registry) Lookup(name string) (Method, bool) {
	m, ok := r.methods[name]
	return m, ok
}

// Names returns the registered method names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
