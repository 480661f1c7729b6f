// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugincall

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/plugincall/internal/attr"
	"github.com/holomush/plugincall/internal/command"
	"github.com/holomush/plugincall/internal/identity"
	"github.com/holomush/plugincall/internal/tracker"
)

// Catalog indexes plugin call definitions by command name and exposes them
// to the command dispatcher. It is safe for concurrent use.
type Catalog struct {
	executor *Executor
	tracker  *tracker.Tracker

	mu    sync.RWMutex
	calls map[string]*Definition
}

// NewCatalog creates an empty catalog whose calls share tr and run on executor.
func NewCatalog(executor *Executor, tr *tracker.Tracker) *Catalog {
	return &Catalog{
		executor: executor,
		tracker:  tr,
		calls:    make(map[string]*Definition),
	}
}

// Add registers def under its name. An existing definition with the same name
// is replaced and a warning is logged.
func (c *Catalog) Add(def *Definition) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.calls[def.Name()]; ok {
		slog.Warn("plugin call conflict: overwriting existing definition",
			"call", def.Name(),
			"previous_extension", existing.Extension().ID,
			"new_extension", def.Extension().ID)
	}
	c.calls[def.Name()] = def
}

// Get returns the definition named name.
func (c *Catalog) Get(name string) (*Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.calls[name]
	return def, ok
}

// All returns every definition sorted by name.
func (c *Catalog) All() []*Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	defs := make([]*Definition, 0, len(c.calls))
	for _, d := range c.calls {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name() < defs[j].Name() })
	return defs
}

// LoadDocument builds and adds every call in doc. Nothing is added if any
// call is invalid.
func (c *Catalog) LoadDocument(doc *ParsedDocument) error {
	defs := make([]*Definition, 0, len(doc.Calls))
	for _, call := range doc.Calls {
		def, err := Build(call.Name, call.Value, doc.Extension, c.tracker)
		if err != nil {
			return err
		}
		defs = append(defs, def)
	}
	for _, def := range defs {
		c.Add(def)
	}
	return nil
}

// LoadFile parses the definition document at path and adds its calls.
func (c *Catalog) LoadFile(path string) (*ParsedDocument, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, oops.Code(CodeInvalidDocument).With("path", path).Wrapf(err, "read definition document")
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	if err := c.LoadDocument(doc); err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return doc, nil
}

// LoadDir loads every *.yaml and *.yml document in dir. Invalid documents are
// logged and skipped. A missing directory loads nothing.
func (c *Catalog) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, oops.Code(CodeInvalidDocument).With("dir", dir).Wrapf(err, "read definitions directory")
	}

	loaded := 0
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		doc, err := c.LoadFile(path)
		if err != nil {
			slog.Warn("skipping invalid definition document",
				"path", path,
				"error", err)
			continue
		}
		slog.Info("loaded plugin call definitions",
			"path", path,
			"extension", doc.Extension.ID,
			"version", doc.Version.String(),
			"calls", len(doc.Calls))
		loaded++
	}
	return loaded, nil
}

// LoadAttrs adds a definition for every ATTRLIST attribute of extension whose
// name starts with Prefix. Invalid definitions are logged and skipped; the
// number added is returned.
func (c *Catalog) LoadAttrs(extension identity.Principal, attrs []attr.Attr) int {
	added := 0
	for _, a := range attrs {
		if !strings.HasPrefix(a.Name, Prefix) {
			continue
		}
		def, err := BuildFromAttr(a, extension, c.tracker)
		if err != nil {
			slog.Warn("skipping invalid plugin call attribute",
				"extension", extension.ID,
				"attr", a.Name,
				"error", err)
			continue
		}
		c.Add(def)
		added++
	}
	return added
}

// Resolve implements command.Resolver so that plugin calls run as commands.
func (c *Catalog) Resolve(name string) (command.Entry, bool) {
	def, ok := c.Get(name)
	if !ok {
		return command.Entry{}, false
	}
	summary, _ := def.Help(strings.TrimPrefix(name, Prefix) + ".summary")
	return command.Entry{
		Name:    def.Name(),
		Handler: c.handler(def),
		Help:    summary,
		Source:  def.Extension().ID,
	}, true
}

func (c *Catalog) handler(def *Definition) command.Handler {
	return func(ctx context.Context, inv *command.Invocation) (string, error) {
		result, _, err := c.executor.Execute(ctx, def, inv.Actor, inv.As, inv.Args)
		return result, err
	}
}
