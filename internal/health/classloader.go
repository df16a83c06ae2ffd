// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"strings"

	"github.com/ManuGH/zonewatch/internal/derived"
	"github.com/ManuGH/zonewatch/internal/inventory"
	"github.com/ManuGH/zonewatch/internal/plugins"
)

// KindClassLoader builds a ClassCheck.
const KindClassLoader = "class_loader"

// ClassCheck fails when any listed class cannot be loaded. An entry of the
// form class@plugin is looked up in that plugin only.
type ClassCheck struct {
	catalog plugins.Catalog
	classes []string
}

// NewClassCheck splits classes on whitespace and commas and returns the
// check.
func NewClassCheck(catalog plugins.Catalog, classes string) (*ClassCheck, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: class check needs a plugin catalog", ErrInvalidParams)
	}
	return &ClassCheck{catalog: catalog, classes: inventory.ParseLabels(classes)}, nil
}

// Classes returns the classes checked, in order.
func (c *ClassCheck) Classes() []string { return append([]string(nil), c.classes...) }

// Perform implements Check.
func (c *ClassCheck) Perform(_ context.Context, l *Listener) derived.Result {
	failed := false
	for _, entry := range c.classes {
		if lookup := c.lookup(entry); !lookup.Found {
			failed = true
			l.Errorf("%s", lookup.Message)
		}
	}
	if failed {
		return derived.Failure
	}
	return derived.Success
}

func (c *ClassCheck) lookup(entry string) plugins.Lookup {
	class, pluginName, scoped := strings.Cut(entry, "@")
	if !scoped {
		return c.catalog.LookupClass(entry)
	}
	p, ok := c.catalog.Plugin(pluginName)
	if !ok {
		return plugins.PluginNotFound(pluginName)
	}
	if lookup := p.LookupClass(class); !lookup.Found {
		return plugins.ClassNotFound(entry)
	}
	return plugins.Hit()
}

// Describe implements Check.
func (c *ClassCheck) Describe() derived.ComponentSpec {
	return derived.ComponentSpec{Kind: KindClassLoader, Params: derived.Params{
		"classes": strings.Join(c.classes, ","),
	}}
}

func (c *ClassCheck) String() string {
	return fmt.Sprintf("ClassLoaderCheck [%s]", strings.Join(c.classes, ","))
}

type classParams struct {
	Classes string `yaml:"classes"`
}

func classConstructor(catalog plugins.Catalog) func(derived.Params) (Check, error) {
	return func(p derived.Params) (Check, error) {
		var cp classParams
		if err := p.Decode(&cp); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
		}
		c, err := NewClassCheck(catalog, cp.Classes)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
