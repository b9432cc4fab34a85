package namespace

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Model is the YAML form of a dictionary model.
type Model struct {
	Namespaces []struct {
		Prefix string `yaml:"prefix"`
		URI    string `yaml:"uri"`
	} `yaml:"namespaces"`
	Properties []struct {
		Name        string `yaml:"name"`
		Type        string `yaml:"type"`
		Description string `yaml:"description"`
	} `yaml:"properties"`
}

// LoadFile builds a registry from a YAML model file.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary model: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load builds a registry from a YAML model.
func Load(r io.Reader) (*Registry, error) {
	var model Model
	if err := yaml.NewDecoder(r).Decode(&model); err != nil {
		return nil, fmt.Errorf("parse dictionary model: %w", err)
	}

	reg := NewRegistry()
	for _, ns := range model.Namespaces {
		if err := reg.RegisterNamespace(ns.Prefix, ns.URI); err != nil {
			return nil, err
		}
	}
	for _, p := range model.Properties {
		if _, err := reg.RegisterProperty(p.Name, WithDataType(p.Type), WithDescription(p.Description)); err != nil {
			return nil, fmt.Errorf("property %q: %w", p.Name, err)
		}
	}
	return reg, nil
}
