package credentials

import (
	"context"
	"errors"
	"fmt"
)

const (
	// DefaultUsernameSource names the environment variable consulted for the publisher username.
	DefaultUsernameSource = "env:PYPI_USERNAME"
	// DefaultPasswordSource names the environment variable consulted for the publisher password.
	DefaultPasswordSource = "env:PYPI_PASSWORD"
)

const (
	resolverNotConfiguredMessageConstant   = "credential resolver not configured"
	usernameSourceParseTemplateConstant    = "invalid username source: %w"
	passwordSourceParseTemplateConstant    = "invalid password source: %w"
	usernameResolutionTemplateConstant     = "unable to resolve publisher username: %w"
	passwordResolutionTemplateConstant     = "unable to resolve publisher password: %w"
)

// PublisherCredentials carries the resolved registry authentication pair.
type PublisherCredentials struct {
	Username string
	Password string
}

// ResolvePublisherCredentials resolves both credential values, failing before any side effect when either is unavailable.
func ResolvePublisherCredentials(resolutionContext context.Context, resolver Resolver, usernameSource string, passwordSource string) (PublisherCredentials, error) {
	if resolver == nil {
		return PublisherCredentials{}, errors.New(resolverNotConfiguredMessageConstant)
	}

	usernameConfiguration, usernameParseError := ParseSource(usernameSource)
	if usernameParseError != nil {
		return PublisherCredentials{}, fmt.Errorf(usernameSourceParseTemplateConstant, usernameParseError)
	}

	passwordConfiguration, passwordParseError := ParseSource(passwordSource)
	if passwordParseError != nil {
		return PublisherCredentials{}, fmt.Errorf(passwordSourceParseTemplateConstant, passwordParseError)
	}

	usernameValue, usernameResolutionError := resolver.ResolveSecret(resolutionContext, usernameConfiguration)
	if usernameResolutionError != nil {
		return PublisherCredentials{}, fmt.Errorf(usernameResolutionTemplateConstant, usernameResolutionError)
	}

	passwordValue, passwordResolutionError := resolver.ResolveSecret(resolutionContext, passwordConfiguration)
	if passwordResolutionError != nil {
		return PublisherCredentials{}, fmt.Errorf(passwordResolutionTemplateConstant, passwordResolutionError)
	}

	return PublisherCredentials{Username: usernameValue, Password: passwordValue}, nil
}
