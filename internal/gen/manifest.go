package gen

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Manifest lists the events a downstream poller subscribes to.
type Manifest struct {
	Package string          `yaml:"package"`
	Network string          `yaml:"network,omitempty"`
	Events  []ManifestEvent `yaml:"events"`
}

// ManifestEvent describes one event type.
type ManifestEvent struct {
	// Type is the on-chain event type string.
	Type   string `yaml:"type"`
	Module string `yaml:"module"`
	GoType string `yaml:"go_type"`
	Table  string `yaml:"table"`
}

// BuildManifest collects the event models.
func BuildManifest(pkg, network string, models []Model) Manifest {
	m := Manifest{Package: pkg, Network: network, Events: []ManifestEvent{}}

	for _, model := range models {
		if !model.IsEvent {
			continue
		}

		m.Events = append(m.Events, ManifestEvent{
			Type:   model.EventType,
			Module: model.Key.Module,
			GoType: model.Name,
			Table:  model.Table,
		})
	}

	sortEvents(m.Events)

	return m
}

// File encodes the manifest as events.yaml.
func (m Manifest) File() (GeneratedFile, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(m); err != nil {
		return GeneratedFile{}, fmt.Errorf("encoding manifest: %w", err)
	}

	if err := enc.Close(); err != nil {
		return GeneratedFile{}, fmt.Errorf("encoding manifest: %w", err)
	}

	return GeneratedFile{Filename: ManifestFile, Content: buf.Bytes()}, nil
}

// LoadManifest parses events.yaml content.
func LoadManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parsing manifest: %w", err)
	}

	return m, nil
}
