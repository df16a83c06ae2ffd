// SPDX-License-Identifier: MIT

package derived

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// staticComponent always reports the same result and value.
type staticComponent struct {
	name   string
	result Result
	value  string
}

func (s *staticComponent) PerformDerivation(context.Context) Report[string] {
	return MustReport(s.result, s.value)
}

func (s *staticComponent) String() string { return s.name }

func (s *staticComponent) Describe() ComponentSpec {
	return ComponentSpec{Kind: "static", Params: Params{
		"name":   s.name,
		"result": s.result.String(),
		"value":  s.value,
	}}
}

type staticParams struct {
	Name   string `yaml:"name"`
	Result string `yaml:"result"`
	Value  string `yaml:"value"`
}

func newStaticComponent(p Params) (Component[string], error) {
	var sp staticParams
	if err := p.Decode(&sp); err != nil {
		return nil, err
	}
	if sp.Name == "" {
		return nil, errors.New("name is required")
	}
	res := Success
	if sp.Result != "" {
		var err error
		if res, err = ParseResult(sp.Result); err != nil {
			return nil, err
		}
	}
	return &staticComponent{name: sp.Name, result: res, value: sp.Value}, nil
}

func newTestFactory(t *testing.T) *Factory[string] {
	t.Helper()
	f := NewFactory[string]()
	require.NoError(t, f.Register("static", newStaticComponent))
	return f
}

func staticZone(t *testing.T, name string, comps ...*staticComponent) *Zone[string] {
	t.Helper()
	cs := make([]Component[string], 0, len(comps))
	for _, c := range comps {
		cs = append(cs, c)
	}
	z, err := NewZone(name, cs)
	require.NoError(t, err)
	return z
}

type recordingObserver struct {
	components []string
	zones      []string
}

func (o *recordingObserver) ObserveComponent(zone, key string, result Result, _ time.Duration) {
	o.components = append(o.components, zone+"/"+key+"="+result.String())
}

func (o *recordingObserver) ObserveZone(zone string, result Result, _ time.Duration) {
	o.zones = append(o.zones, zone+"="+result.String())
}
