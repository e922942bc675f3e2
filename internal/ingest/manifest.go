package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the optional file that replaces the directory scan
const ManifestFile = "manifest.yaml"

// Manifest lists input files explicitly instead of relying on naming conventions
type Manifest struct {
	Executions []ManifestExecution `yaml:"executions"`
}

// ManifestExecution is one execution and its scenario files
type ManifestExecution struct {
	Name  string            `yaml:"name"`
	Files []ManifestFileRef `yaml:"files"`
}

// ManifestFileRef points at one scenario file, relative to the input root
type ManifestFileRef struct {
	Scenario string `yaml:"scenario"`
	Path     string `yaml:"path"`
}

// loadManifest reads root/manifest.yaml. It returns (nil, nil) when the file does not exist.
func loadManifest(root string) (*Manifest, error) {
	path := filepath.Join(root, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &IOError{Path: path, Err: err}
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, &SchemaError{Path: path, Reason: "failed to parse manifest", Err: err}
	}

	if err := manifest.validate(path); err != nil {
		return nil, err
	}
	return &manifest, nil
}

func (m *Manifest) validate(path string) error {
	seen := make(map[string]bool)
	for i, exec := range m.Executions {
		if exec.Name == "" {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("execution %d has no name", i+1)}
		}
		if seen[exec.Name] {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("duplicate execution %q", exec.Name)}
		}
		seen[exec.Name] = true

		for j, file := range exec.Files {
			if !scenarioCodePattern.MatchString(file.Scenario) {
				return &SchemaError{Path: path, Reason: fmt.Sprintf("execution %q file %d: invalid scenario code %q", exec.Name, j+1, file.Scenario)}
			}
			if file.Path == "" {
				return &SchemaError{Path: path, Reason: fmt.Sprintf("execution %q file %d: path is required", exec.Name, j+1)}
			}
		}
	}
	return nil
}

// sources converts the manifest into resolved sources, in manifest order
func (m *Manifest) sources(root string) []Source {
	var sources []Source
	for _, exec := range m.Executions {
		for _, file := range exec.Files {
			path := file.Path
			if !filepath.IsAbs(path) {
				path = filepath.Join(root, path)
			}
			sources = append(sources, Source{
				Execution:    exec.Name,
				ScenarioCode: file.Scenario,
				Path:         path,
			})
		}
	}
	return sources
}
