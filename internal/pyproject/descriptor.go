// Package pyproject loads and validates the build descriptor of a Python project.
package pyproject

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	// DescriptorFileName is the build descriptor expected at the project root.
	DescriptorFileName = "pyproject.toml"

	dynamicVersionFieldNameConstant       = "version"
	dynamicVersionLabelConstant           = "dynamic"
	descriptorMissingTemplateConstant     = "build descriptor %s not found in %s"
	descriptorReadTemplateConstant        = "unable to read build descriptor %s: %w"
	descriptorParseTemplateConstant       = "unable to parse build descriptor %s: %w"
	projectNameMissingMessageConstant     = "project name must be declared in the build descriptor"
	projectVersionMissingMessageConstant  = "project version must be declared or listed as dynamic"
	buildBackendMissingMessageConstant    = "build backend must be declared in the build descriptor"
)

// Descriptor models the subset of the build descriptor pypub consumes.
type Descriptor struct {
	Project     ProjectMetadata `toml:"project"`
	BuildSystem BuildSystem     `toml:"build-system"`
}

// ProjectMetadata carries the published package identity.
type ProjectMetadata struct {
	Name           string   `toml:"name"`
	Version        string   `toml:"version"`
	Description    string   `toml:"description"`
	RequiresPython string   `toml:"requires-python"`
	Dynamic        []string `toml:"dynamic"`
}

// BuildSystem records the backend responsible for producing distributions.
type BuildSystem struct {
	Requires     []string `toml:"requires"`
	BuildBackend string   `toml:"build-backend"`
}

// Load reads and parses the build descriptor found in the supplied project directory.
func Load(projectDirectory string) (Descriptor, error) {
	descriptorPath := filepath.Join(projectDirectory, DescriptorFileName)

	descriptorContent, readError := os.ReadFile(descriptorPath)
	if readError != nil {
		if os.IsNotExist(readError) {
			return Descriptor{}, fmt.Errorf(descriptorMissingTemplateConstant, DescriptorFileName, projectDirectory)
		}
		return Descriptor{}, fmt.Errorf(descriptorReadTemplateConstant, descriptorPath, readError)
	}

	var descriptor Descriptor
	if parseError := toml.Unmarshal(descriptorContent, &descriptor); parseError != nil {
		return Descriptor{}, fmt.Errorf(descriptorParseTemplateConstant, descriptorPath, parseError)
	}

	return descriptor, nil
}

// Validate confirms the descriptor declares everything a distribution build requires.
func (descriptor Descriptor) Validate() error {
	if len(descriptor.Project.Name) == 0 {
		return errors.New(projectNameMissingMessageConstant)
	}
	if len(descriptor.Project.Version) == 0 && !descriptor.versionIsDynamic() {
		return errors.New(projectVersionMissingMessageConstant)
	}
	if len(descriptor.BuildSystem.BuildBackend) == 0 {
		return errors.New(buildBackendMissingMessageConstant)
	}
	return nil
}

// VersionLabel reports the declared version or a marker for backend-computed versions.
func (descriptor Descriptor) VersionLabel() string {
	if len(descriptor.Project.Version) > 0 {
		return descriptor.Project.Version
	}
	if descriptor.versionIsDynamic() {
		return dynamicVersionLabelConstant
	}
	return ""
}

func (descriptor Descriptor) versionIsDynamic() bool {
	for _, dynamicField := range descriptor.Project.Dynamic {
		if dynamicField == dynamicVersionFieldNameConstant {
			return true
		}
	}
	return false
}
