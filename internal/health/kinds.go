// SPDX-License-Identifier: MIT

package health

import (
	"github.com/ManuGH/zonewatch/internal/derived"
	"github.com/ManuGH/zonewatch/internal/inventory"
	"github.com/ManuGH/zonewatch/internal/plugins"
)

// Deps are the collaborators checks are built with.
type Deps struct {
	Inventory inventory.Inventory
	Catalog   plugins.Catalog
}

// RegisterKinds registers every check kind with f.
func RegisterKinds(f *derived.Factory[string], deps Deps) error {
	kinds := map[string]func(derived.Params) (Check, error){
		KindDebug:       newDebugCheck,
		KindExecutor:    executorConstructor(deps.Inventory),
		KindClassLoader: classConstructor(deps.Catalog),
		KindFile:        newFileCheck,
	}
	for kind, build := range kinds {
		if err := f.Register(kind, adaptConstructor(build)); err != nil {
			return err
		}
	}
	return nil
}

// NewFactory returns a factory with every check kind registered.
func NewFactory(deps Deps) (*derived.Factory[string], error) {
	f := derived.NewFactory[string]()
	if err := RegisterKinds(f, deps); err != nil {
		return nil, err
	}
	return f, nil
}

func adaptConstructor(build func(derived.Params) (Check, error)) derived.Constructor[string] {
	return func(p derived.Params) (derived.Component[string], error) {
		c, err := build(p)
		if err != nil {
			return nil, err
		}
		return Adapt(c), nil
	}
}
