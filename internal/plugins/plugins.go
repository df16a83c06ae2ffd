// SPDX-License-Identifier: MIT

// Package plugins answers whether a class is loadable, either from the core
// class path or from a named plugin.
package plugins

import (
	"fmt"
	"sort"
	"sync"
)

// Lookup is the outcome of a class or plugin lookup. A miss is a value,
// not an error.
type Lookup struct {
	Found   bool
	Message string
}

// Hit returns a successful Lookup.
func Hit() Lookup { return Lookup{Found: true} }

// Miss returns a failed Lookup carrying a diagnostic.
func Miss(format string, args ...any) Lookup {
	return Lookup{Message: fmt.Sprintf(format, args...)}
}

// ClassNotFound is the diagnostic for a class missing from a class path.
func ClassNotFound(class string) Lookup { return Miss("Class not found: %s.", class) }

// PluginNotFound is the diagnostic for an unknown plugin.
func PluginNotFound(name string) Lookup { return Miss("Plugin not found: %s.", name) }

// Plugin is an installed plugin and the classes it provides.
type Plugin struct {
	Name    string
	Version string
	classes map[string]struct{}
}

// NewPlugin returns a plugin providing classes.
func NewPlugin(name, version string, classes ...string) *Plugin {
	p := &Plugin{Name: name, Version: version, classes: make(map[string]struct{}, len(classes))}
	for _, c := range classes {
		p.classes[c] = struct{}{}
	}
	return p
}

// LookupClass looks class up in the plugin's own class path.
func (p *Plugin) LookupClass(class string) Lookup {
	if _, ok := p.classes[class]; ok {
		return Hit()
	}
	return ClassNotFound(class)
}

// Classes returns the plugin's classes, sorted.
func (p *Plugin) Classes() []string {
	out := make([]string, 0, len(p.classes))
	for c := range p.classes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Catalog resolves classes against the whole installation.
type Catalog interface {
	// LookupClass searches the core class path and every plugin.
	LookupClass(class string) Lookup
	// Plugin returns the installed plugin called name.
	Plugin(name string) (*Plugin, bool)
}

// Static is a Catalog over a fixed set of core classes and plugins.
type Static struct {
	mu      sync.RWMutex
	core    map[string]struct{}
	plugins map[string]*Plugin
}

// NewStatic returns a catalog.
func NewStatic(core []string, plugins ...*Plugin) *Static {
	s := &Static{}
	s.Set(core, plugins)
	return s
}

// Set replaces the catalog contents.
func (s *Static) Set(core []string, plugins []*Plugin) {
	coreSet := make(map[string]struct{}, len(core))
	for _, c := range core {
		coreSet[c] = struct{}{}
	}
	byName := make(map[string]*Plugin, len(plugins))
	for _, p := range plugins {
		if p != nil {
			byName[p.Name] = p
		}
	}
	s.mu.Lock()
	s.core = coreSet
	s.plugins = byName
	s.mu.Unlock()
}

// LookupClass implements Catalog.
func (s *Static) LookupClass(class string) Lookup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.core[class]; ok {
		return Hit()
	}
	for _, p := range s.plugins {
		if p.LookupClass(class).Found {
			return Hit()
		}
	}
	return ClassNotFound(class)
}

// Plugin implements Catalog.
func (s *Static) Plugin(name string) (*Plugin, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plugins[name]
	return p, ok
}

// Plugins returns the installed plugins sorted by name.
func (s *Static) Plugins() []*Plugin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Plugin, 0, len(s.plugins))
	for _, p := range s.plugins {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
