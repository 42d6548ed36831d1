package credentials

import (
	"strings"

	pathutils "github.com/pypub/pypub/internal/utils/path"
)

var credentialsConfigurationHomeDirectoryExpander = pathutils.NewHomeExpander()

const (
	defaultCredentialFilePathConstant = "~/.pypirc"

	usernameSourceConfigurationKeySuffixConstant = ".username_source"
	passwordSourceConfigurationKeySuffixConstant = ".password_source"
	pathConfigurationKeySuffixConstant           = ".path"
)

// Configuration aggregates settings for credential resolution and persistence.
type Configuration struct {
	UsernameSource string `mapstructure:"username_source"`
	PasswordSource string `mapstructure:"password_source"`
	Path           string `mapstructure:"path"`
}

// DefaultConfigurationValues supplies baseline values keyed beneath the provided prefix.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	return map[string]any{
		configurationKeyPrefix + usernameSourceConfigurationKeySuffixConstant: DefaultUsernameSource,
		configurationKeyPrefix + passwordSourceConfigurationKeySuffixConstant: DefaultPasswordSource,
		configurationKeyPrefix + pathConfigurationKeySuffixConstant:           defaultCredentialFilePathConstant,
	}
}

// Sanitize trims configured values and substitutes defaults for missing entries.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := Configuration{
		UsernameSource: strings.TrimSpace(configuration.UsernameSource),
		PasswordSource: strings.TrimSpace(configuration.PasswordSource),
		Path:           strings.TrimSpace(configuration.Path),
	}
	if len(sanitized.UsernameSource) == 0 {
		sanitized.UsernameSource = DefaultUsernameSource
	}
	if len(sanitized.PasswordSource) == 0 {
		sanitized.PasswordSource = DefaultPasswordSource
	}
	if len(sanitized.Path) == 0 {
		sanitized.Path = defaultCredentialFilePathConstant
	}
	sanitized.Path = credentialsConfigurationHomeDirectoryExpander.Expand(sanitized.Path)
	return sanitized
}
