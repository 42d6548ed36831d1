package publish

import (
	"strings"

	"github.com/pypub/pypub/internal/pypirc"
)

const (
	defaultProjectDirectoryConstant = "."
	defaultDistDirectoryConstant    = "dist"

	repositoryURLConfigurationKeySuffixConstant = ".repository_url"
	projectDirectoryConfigurationKeySuffixConstant = ".project_dir"
	distDirectoryConfigurationKeySuffixConstant    = ".dist_dir"
	skipExistingConfigurationKeySuffixConstant     = ".skip_existing"
)

// Configuration aggregates settings for the publish pipeline.
type Configuration struct {
	RepositoryURL    string `mapstructure:"repository_url"`
	ProjectDirectory string `mapstructure:"project_dir"`
	DistDirectory    string `mapstructure:"dist_dir"`
	SkipExisting     bool   `mapstructure:"skip_existing"`
}

// DefaultConfigurationValues supplies baseline values keyed beneath the provided prefix.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	return map[string]any{
		configurationKeyPrefix + repositoryURLConfigurationKeySuffixConstant:    pypirc.DefaultRepositoryURL,
		configurationKeyPrefix + projectDirectoryConfigurationKeySuffixConstant: defaultProjectDirectoryConstant,
		configurationKeyPrefix + distDirectoryConfigurationKeySuffixConstant:    defaultDistDirectoryConstant,
		configurationKeyPrefix + skipExistingConfigurationKeySuffixConstant:     false,
	}
}

// Sanitize trims configured values and substitutes defaults for missing entries.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := Configuration{
		RepositoryURL:    strings.TrimSpace(configuration.RepositoryURL),
		ProjectDirectory: strings.TrimSpace(configuration.ProjectDirectory),
		DistDirectory:    strings.TrimSpace(configuration.DistDirectory),
		SkipExisting:     configuration.SkipExisting,
	}
	if len(sanitized.RepositoryURL) == 0 {
		sanitized.RepositoryURL = pypirc.DefaultRepositoryURL
	}
	if len(sanitized.ProjectDirectory) == 0 {
		sanitized.ProjectDirectory = defaultProjectDirectoryConstant
	}
	if len(sanitized.DistDirectory) == 0 {
		sanitized.DistDirectory = defaultDistDirectoryConstant
	}
	return sanitized
}
