package distupload

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pypub/pypub/internal/artifacts"
	"github.com/pypub/pypub/internal/credentials"
	"github.com/pypub/pypub/internal/execshell"
	"github.com/pypub/pypub/internal/pypirc"
)

const (
	uploadCommandUseConstant            = "upload"
	uploadCommandShortDescription       = "Upload built distributions to the package index"
	uploadCommandLongDescription        = "upload resolves the publisher credentials into a transient registry-configuration file, runs twine against every distribution in the dist directory, and removes the file afterwards."
	distDirectoryFlagNameConstant       = "dist-dir"
	distDirectoryFlagDescription        = "Directory containing the built distributions"
	repositoryURLFlagNameConstant       = "repository-url"
	repositoryURLFlagDescription        = "Upload endpoint recorded in the registry-configuration file"
	skipExistingFlagNameConstant        = "skip-existing"
	skipExistingFlagDescription         = "Tolerate distributions already present on the index"
	usernameSourceFlagNameConstant      = "username-source"
	usernameSourceFlagDescription       = "Username source (env:NAME or file:/path)"
	passwordSourceFlagNameConstant      = "password-source"
	passwordSourceFlagDescription       = "Password source (env:NAME or file:/path)"
	uploadUnexpectedArgumentsMessage    = "upload does not accept positional arguments"
	uploadCommandFailureTemplate        = "upload failed: %w"
	executorCreationFailureTemplate     = "unable to create command executor: %w"
	credentialCleanupWarningConstant    = "unable to remove transient credential file"
)

var errUploadUnexpectedArguments = errors.New(uploadUnexpectedArgumentsMessage)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CredentialsConfigurationProvider returns the current credentials configuration.
type CredentialsConfigurationProvider func() credentials.Configuration

// UploadDefaults carries configured fallbacks for the upload command flags.
type UploadDefaults struct {
	DistDirectory string
	RepositoryURL string
	SkipExisting  bool
}

// DefaultsProvider returns the configured upload defaults.
type DefaultsProvider func() UploadDefaults

// ScopedCredentialWriter renders credentials into a transient file and returns its path with a cleanup function.
type ScopedCredentialWriter func(registryCredentials pypirc.Credentials) (string, func() error, error)

// CommandBuilder assembles the upload command.
type CommandBuilder struct {
	LoggerProvider                   LoggerProvider
	CredentialsConfigurationProvider CredentialsConfigurationProvider
	DefaultsProvider                 DefaultsProvider
	EnvironmentLookup                credentials.EnvironmentLookup
	FileReader                       credentials.FileReader
	ScopedCredentialWriter           ScopedCredentialWriter
	Executor                         CommandExecutor
}

// Build constructs the upload command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	uploadCommand := &cobra.Command{
		Use:   uploadCommandUseConstant,
		Short: uploadCommandShortDescription,
		Long:  uploadCommandLongDescription,
		RunE:  builder.run,
	}

	uploadCommand.Flags().String(distDirectoryFlagNameConstant, "", distDirectoryFlagDescription)
	uploadCommand.Flags().String(repositoryURLFlagNameConstant, "", repositoryURLFlagDescription)
	uploadCommand.Flags().Bool(skipExistingFlagNameConstant, false, skipExistingFlagDescription)
	uploadCommand.Flags().String(usernameSourceFlagNameConstant, "", usernameSourceFlagDescription)
	uploadCommand.Flags().String(passwordSourceFlagNameConstant, "", passwordSourceFlagDescription)

	return uploadCommand, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUploadUnexpectedArguments
	}

	logger := builder.resolveLogger()
	uploadDefaults := builder.resolveDefaults()
	credentialsConfiguration := builder.resolveCredentialsConfiguration()

	distDirectory := builder.stringFlagOrDefault(command, distDirectoryFlagNameConstant, uploadDefaults.DistDirectory)
	repositoryURL := builder.stringFlagOrDefault(command, repositoryURLFlagNameConstant, uploadDefaults.RepositoryURL)
	usernameSource := builder.stringFlagOrDefault(command, usernameSourceFlagNameConstant, credentialsConfiguration.UsernameSource)
	passwordSource := builder.stringFlagOrDefault(command, passwordSourceFlagNameConstant, credentialsConfiguration.PasswordSource)

	skipExisting := uploadDefaults.SkipExisting
	if command.Flags().Changed(skipExistingFlagNameConstant) {
		skipExisting, _ = command.Flags().GetBool(skipExistingFlagNameConstant)
	}

	resolver := credentials.NewResolver(builder.EnvironmentLookup, builder.FileReader)
	publisherCredentials, resolutionError := credentials.ResolvePublisherCredentials(command.Context(), resolver, usernameSource, passwordSource)
	if resolutionError != nil {
		return fmt.Errorf(uploadCommandFailureTemplate, resolutionError)
	}

	collectedArtifacts, collectError := artifacts.Collect(distDirectory)
	if collectError != nil {
		return fmt.Errorf(uploadCommandFailureTemplate, collectError)
	}

	scopedWriter := builder.ScopedCredentialWriter
	if scopedWriter == nil {
		scopedWriter = pypirc.WriteScoped
	}

	configurationFilePath, cleanupCredentialFile, writeError := scopedWriter(pypirc.Credentials{
		RepositoryURL: repositoryURL,
		Username:      publisherCredentials.Username,
		Password:      publisherCredentials.Password,
	})
	if writeError != nil {
		return fmt.Errorf(uploadCommandFailureTemplate, writeError)
	}
	defer func() {
		if cleanupError := cleanupCredentialFile(); cleanupError != nil {
			logger.Warn(credentialCleanupWarningConstant, zap.Error(cleanupError))
		}
	}()

	executor, executorError := builder.resolveExecutor(logger)
	if executorError != nil {
		return fmt.Errorf(executorCreationFailureTemplate, executorError)
	}

	uploadService, serviceError := NewService(logger, executor)
	if serviceError != nil {
		return fmt.Errorf(uploadCommandFailureTemplate, serviceError)
	}

	uploadOptions := Options{
		ConfigurationFilePath: configurationFilePath,
		RepositoryName:        pypirc.DefaultIndexName,
		SkipExisting:          skipExisting,
		ArtifactPaths:         artifacts.Paths(collectedArtifacts),
	}
	if uploadError := uploadService.Upload(command.Context(), uploadOptions); uploadError != nil {
		return fmt.Errorf(uploadCommandFailureTemplate, uploadError)
	}

	return nil
}

func (builder *CommandBuilder) resolveExecutor(logger *zap.Logger) (CommandExecutor, error) {
	if builder.Executor != nil {
		return builder.Executor, nil
	}
	return execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
}

func (builder *CommandBuilder) resolveDefaults() UploadDefaults {
	if builder.DefaultsProvider == nil {
		return UploadDefaults{RepositoryURL: pypirc.DefaultRepositoryURL}
	}
	return builder.DefaultsProvider()
}

func (builder *CommandBuilder) resolveCredentialsConfiguration() credentials.Configuration {
	if builder.CredentialsConfigurationProvider == nil {
		return credentials.Configuration{}.Sanitize()
	}
	return builder.CredentialsConfigurationProvider().Sanitize()
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
