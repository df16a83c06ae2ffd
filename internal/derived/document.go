// SPDX-License-Identifier: MIT

package derived

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// DocumentVersion is the schema version written by this package.
const DocumentVersion = 1

// Document is the persisted form of a registry: every zone with the kind
// and parameters of each of its components, in order.
type Document struct {
	Version int        `yaml:"version" json:"version"`
	Zones   []ZoneSpec `yaml:"zones" json:"zones"`
}

// ZoneSpec is the persisted form of one zone.
type ZoneSpec struct {
	Name       string          `yaml:"name" json:"name"`
	Components []ComponentSpec `yaml:"components,omitempty" json:"components,omitempty"`
}

// ComponentSpec names a component kind and the parameters its constructor
// receives.
type ComponentSpec struct {
	Kind   string `yaml:"kind" json:"kind"`
	Params Params `yaml:"params,omitempty" json:"params,omitempty"`
}

// Params holds the construction parameters of a component. Values should be
// scalars so that they survive a YAML round trip unchanged.
type Params map[string]any

// Decode strictly decodes p into out, a pointer to a parameter struct with
// yaml tags. Unknown keys are rejected.
func (p Params) Decode(out any) error {
	if len(p) == 0 {
		return nil
	}
	data, err := yaml.Marshal(map[string]any(p))
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Names returns the zone names in document order.
func (d Document) Names() []string {
	names := make([]string, 0, len(d.Zones))
	for _, z := range d.Zones {
		names = append(names, z.Name)
	}
	return names
}

// Validate checks the version, that every zone has a unique non-empty name
// and that every component names a kind.
func (d Document) Validate() error {
	if d.Version != 0 && d.Version != DocumentVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidDocument, d.Version)
	}
	seen := make(map[string]struct{}, len(d.Zones))
	for i, z := range d.Zones {
		if strings.TrimSpace(z.Name) == "" {
			return fmt.Errorf("%w: zones[%d]: %w", ErrInvalidDocument, i, ErrEmptyZoneName)
		}
		if _, ok := seen[z.Name]; ok {
			return fmt.Errorf("%w: %w: %q", ErrInvalidDocument, ErrDuplicateZone, z.Name)
		}
		seen[z.Name] = struct{}{}
		for j, c := range z.Components {
			if strings.TrimSpace(c.Kind) == "" {
				return fmt.Errorf("%w: zones[%d].components[%d]: kind is required", ErrInvalidDocument, i, j)
			}
		}
	}
	return nil
}

// EncodeDocument writes d as YAML.
func EncodeDocument(w io.Writer, d Document) error {
	if d.Version == 0 {
		d.Version = DocumentVersion
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode zone document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close zone document encoder: %w", err)
	}
	return nil
}

// MarshalDocument returns d encoded as YAML.
func MarshalDocument(d Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeDocument(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeDocument strictly decodes a YAML (or JSON) zone document. Unknown
// fields and trailing documents are rejected; empty input yields an empty
// document. Decode failures wrap ErrCorruptDocument.
func DecodeDocument(r io.Reader) (Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var d Document
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{Version: DocumentVersion}, nil
		}
		return Document{}, fmt.Errorf("%w: %w", ErrCorruptDocument, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Document{}, fmt.Errorf("%w: multiple documents or trailing content", ErrCorruptDocument)
	}
	if d.Version == 0 {
		d.Version = DocumentVersion
	}
	return d, nil
}

// UnmarshalDocument decodes data with DecodeDocument.
func UnmarshalDocument(data []byte) (Document, error) {
	return DecodeDocument(bytes.NewReader(data))
}
