// Package spec loads project files.
package spec

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectFile is the project file name inside a project directory.
const ProjectFile = "project.yaml"

// DefaultOutputDir is used when the project names no output directory.
const DefaultOutputDir = "runs"

// Load reads a project from a YAML file. Dir is set to the file's directory.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}

	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing project YAML: %w", err)
	}
	p.Dir = filepath.Dir(path)
	if p.Output.Dir == "" {
		p.Output.Dir = DefaultOutputDir
	}
	return &p, nil
}

// LoadProject loads the project from a project directory.
// It looks for project.yaml in the given directory.
func LoadProject(projectDir string) (*Project, error) {
	return Load(filepath.Join(projectDir, ProjectFile))
}

// Resolve returns path relative to the project directory. Absolute and empty
// paths are returned unchanged.
func (p *Project) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Dir, path)
}

// OutputDir returns the resolved output directory.
func (p *Project) OutputDir() string {
	return p.Resolve(p.Output.Dir)
}
