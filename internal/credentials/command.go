package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pypub/pypub/internal/pypirc"
)

const (
	credentialsCommandUseConstant              = "credentials"
	credentialsCommandShortDescriptionConstant = "Manage registry credential files"
	credentialsCommandLongDescriptionConstant  = "credentials provides commands for maintaining registry-configuration files used by upload tooling."
	writeCommandUseConstant                    = "write"
	writeCommandShortDescriptionConstant       = "Write a persistent registry-configuration file"
	writeCommandLongDescriptionConstant        = "write resolves the publisher credentials and renders them into a registry-configuration file, replacing any previous section for the same index."
	unexpectedArgumentsErrorMessageConstant    = "credentials write does not accept positional arguments"
	commandExecutionErrorTemplateConstant      = "credentials write failed: %w"
	usernameSourceFlagNameConstant             = "username-source"
	usernameSourceFlagDescriptionConstant      = "Username source (env:NAME or file:/path)"
	passwordSourceFlagNameConstant             = "password-source"
	passwordSourceFlagDescriptionConstant      = "Password source (env:NAME or file:/path)"
	pathFlagNameConstant                       = "path"
	pathFlagDescriptionConstant                = "Destination path for the registry-configuration file"
	repositoryURLFlagNameConstant              = "repository-url"
	repositoryURLFlagDescriptionConstant       = "Upload endpoint recorded in the registry section"
	credentialFileWrittenMessageConstant       = "credential file written"
	logFieldCredentialPathConstant             = "path"
	logFieldIndexNameConstant                  = "index"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsErrorMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current credentials configuration.
type ConfigurationProvider func() Configuration

// CredentialWriter persists a rendered registry-configuration document.
type CredentialWriter func(targetPath string, credentials pypirc.Credentials) error

// CommandBuilder assembles the credentials command hierarchy.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	EnvironmentLookup     EnvironmentLookup
	FileReader            FileReader
	CredentialWriter      CredentialWriter
}

// Build constructs the credentials command with the write subcommand.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	credentialsCommand := &cobra.Command{
		Use:   credentialsCommandUseConstant,
		Short: credentialsCommandShortDescriptionConstant,
		Long:  credentialsCommandLongDescriptionConstant,
	}

	writeCommand := &cobra.Command{
		Use:   writeCommandUseConstant,
		Short: writeCommandShortDescriptionConstant,
		Long:  writeCommandLongDescriptionConstant,
		RunE:  builder.runWrite,
	}

	writeCommand.Flags().String(usernameSourceFlagNameConstant, "", usernameSourceFlagDescriptionConstant)
	writeCommand.Flags().String(passwordSourceFlagNameConstant, "", passwordSourceFlagDescriptionConstant)
	writeCommand.Flags().String(pathFlagNameConstant, "", pathFlagDescriptionConstant)
	writeCommand.Flags().String(repositoryURLFlagNameConstant, "", repositoryURLFlagDescriptionConstant)

	credentialsCommand.AddCommand(writeCommand)

	return credentialsCommand, nil
}

func (builder *CommandBuilder) runWrite(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	configuration := builder.resolveConfiguration()

	usernameSource := builder.stringFlagOrDefault(command, usernameSourceFlagNameConstant, configuration.UsernameSource)
	passwordSource := builder.stringFlagOrDefault(command, passwordSourceFlagNameConstant, configuration.PasswordSource)
	targetPath := builder.stringFlagOrDefault(command, pathFlagNameConstant, configuration.Path)
	repositoryURL := builder.stringFlagOrDefault(command, repositoryURLFlagNameConstant, pypirc.DefaultRepositoryURL)

	resolver := NewResolver(builder.EnvironmentLookup, builder.FileReader)
	publisherCredentials, resolutionError := ResolvePublisherCredentials(command.Context(), resolver, usernameSource, passwordSource)
	if resolutionError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, resolutionError)
	}

	credentialWriter := builder.CredentialWriter
	if credentialWriter == nil {
		credentialWriter = pypirc.WriteFile
	}

	registryCredentials := pypirc.Credentials{
		RepositoryURL: repositoryURL,
		Username:      publisherCredentials.Username,
		Password:      publisherCredentials.Password,
	}
	if writeError := credentialWriter(targetPath, registryCredentials); writeError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, writeError)
	}

	builder.resolveLogger().Info(
		credentialFileWrittenMessageConstant,
		zap.String(logFieldCredentialPathConstant, targetPath),
		zap.String(logFieldIndexNameConstant, pypirc.DefaultIndexName),
	)

	return nil
}

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	if builder.ConfigurationProvider == nil {
		return Configuration{}.Sanitize()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) stringFlagOrDefault(command *cobra.Command, flagName string, defaultValue string) string {
	flagValue, _ := command.Flags().GetString(flagName)
	trimmedFlagValue := strings.TrimSpace(flagValue)
	if len(trimmedFlagValue) == 0 {
		return defaultValue
	}
	return trimmedFlagValue
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}
