package publish

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pypub/pypub/internal/credentials"
	"github.com/pypub/pypub/internal/distbuild"
	"github.com/pypub/pypub/internal/distupload"
	"github.com/pypub/pypub/internal/execshell"
	"github.com/pypub/pypub/internal/notify"
)

const (
	publishCommandUseConstant         = "publish"
	publishCommandShortDescription    = "Build and upload distributions in one run"
	publishCommandLongDescription     = "publish validates the project metadata, builds the source and wheel distributions, and uploads them with credentials scoped to the lifetime of the run."
	projectDirectoryFlagNameConstant  = "project-dir"
	projectDirectoryFlagDescription   = "Directory containing the project descriptor"
	distDirectoryFlagNameConstant     = "dist-dir"
	distDirectoryFlagDescription      = "Directory receiving the built distributions"
	repositoryURLFlagNameConstant     = "repository-url"
	repositoryURLFlagDescription      = "Upload endpoint recorded in the registry-configuration file"
	skipExistingFlagNameConstant      = "skip-existing"
	skipExistingFlagDescription       = "Tolerate distributions already present on the index"
	dryRunFlagNameConstant            = "dry-run"
	dryRunFlagDescription             = "Validate and log the planned publish without building or uploading"
	skipBuildFlagNameConstant         = "skip-build"
	skipBuildFlagDescription          = "Upload previously built distributions without rebuilding them"
	usernameSourceFlagNameConstant    = "username-source"
	usernameSourceFlagDescription     = "Username source (env:NAME or file:/path)"
	passwordSourceFlagNameConstant    = "password-source"
	passwordSourceFlagDescription     = "Password source (env:NAME or file:/path)"
	publishUnexpectedArgumentsMessage = "publish does not accept positional arguments"
	publishCommandFailureTemplate     = "publish failed: %w"
	executorCreationFailureTemplate   = "unable to create command executor: %w"
)

var errPublishUnexpectedArguments = errors.New(publishUnexpectedArgumentsMessage)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current publish configuration.
type ConfigurationProvider func() Configuration

// CredentialsConfigurationProvider returns the current credentials configuration.
type CredentialsConfigurationProvider func() credentials.Configuration

// NotifyConfigurationProvider returns the current notification configuration.
type NotifyConfigurationProvider func() notify.Configuration

// PipelineExecutor runs both the Python build frontend and twine.
type PipelineExecutor interface {
	distbuild.CommandExecutor
	distupload.CommandExecutor
}

// CommandBuilder assembles the publish command.
type CommandBuilder struct {
	LoggerProvider                   LoggerProvider
	ConfigurationProvider            ConfigurationProvider
	CredentialsConfigurationProvider CredentialsConfigurationProvider
	NotifyConfigurationProvider      NotifyConfigurationProvider
	EnvironmentLookup                credentials.EnvironmentLookup
	FileReader                       credentials.FileReader
	ScopedCredentialWriter           ScopedCredentialWriter
	Executor                         PipelineExecutor
}

// Build constructs the publish command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	publishCommand := &cobra.Command{
		Use:   publishCommandUseConstant,
		Short: publishCommandShortDescription,
		Long:  publishCommandLongDescription,
		RunE:  builder.run,
	}

	publishCommand.Flags().String(projectDirectoryFlagNameConstant, "", projectDirectoryFlagDescription)
	publishCommand.Flags().String(distDirectoryFlagNameConstant, "", distDirectoryFlagDescription)
	publishCommand.Flags().String(repositoryURLFlagNameConstant, "", repositoryURLFlagDescription)
	publishCommand.Flags().Bool(skipExistingFlagNameConstant, false, skipExistingFlagDescription)
	publishCommand.Flags().Bool(dryRunFlagNameConstant, false, dryRunFlagDescription)
	publishCommand.Flags().Bool(skipBuildFlagNameConstant, false, skipBuildFlagDescription)
	publishCommand.Flags().String(usernameSourceFlagNameConstant, "", usernameSourceFlagDescription)
	publishCommand.Flags().String(passwordSourceFlagNameConstant, "", passwordSourceFlagDescription)

	return publishCommand, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errPublishUnexpectedArguments
	}

	logger := builder.resolveLogger()

	pipelineConfiguration := builder.resolveConfiguration()
	pipelineConfiguration.ProjectDirectory = builder.stringFlagOrDefault(command, projectDirectoryFlagNameConstant, pipelineConfiguration.ProjectDirectory)
	pipelineConfiguration.DistDirectory = builder.stringFlagOrDefault(command, distDirectoryFlagNameConstant, pipelineConfiguration.DistDirectory)
	pipelineConfiguration.RepositoryURL = builder.stringFlagOrDefault(command, repositoryURLFlagNameConstant, pipelineConfiguration.RepositoryURL)
	if command.Flags().Changed(skipExistingFlagNameConstant) {
		pipelineConfiguration.SkipExisting, _ = command.Flags().GetBool(skipExistingFlagNameConstant)
	}

	credentialsConfiguration := builder.resolveCredentialsConfiguration()
	credentialsConfiguration.UsernameSource = builder.stringFlagOrDefault(command, usernameSourceFlagNameConstant, credentialsConfiguration.UsernameSource)
	credentialsConfiguration.PasswordSource = builder.stringFlagOrDefault(command, passwordSourceFlagNameConstant, credentialsConfiguration.PasswordSource)

	executor, executorError := builder.resolveExecutor(logger)
	if executorError != nil {
		return fmt.Errorf(executorCreationFailureTemplate, executorError)
	}

	buildService, buildServiceError := distbuild.NewService(logger, executor)
	if buildServiceError != nil {
		return fmt.Errorf(publishCommandFailureTemplate, buildServiceError)
	}

	uploadService, uploadServiceError := distupload.NewService(logger, executor)
	if uploadServiceError != nil {
		return fmt.Errorf(publishCommandFailureTemplate, uploadServiceError)
	}

	releaseNotifier, notifierError := notify.NewNotifier(logger, builder.resolveNotifyConfiguration())
	if notifierError != nil {
		return fmt.Errorf(publishCommandFailureTemplate, notifierError)
	}

	publishService, serviceError := NewService(ServiceDependencies{
		Logger:                 logger,
		Builder:                buildService,
		Uploader:               uploadService,
		CredentialResolver:     credentials.NewResolver(builder.EnvironmentLookup, builder.FileReader),
		ScopedCredentialWriter: builder.ScopedCredentialWriter,
		Notifier:               releaseNotifier,
	})
	if serviceError != nil {
		return fmt.Errorf(publishCommandFailureTemplate, serviceError)
	}

	dryRunRequested, _ := command.Flags().GetBool(dryRunFlagNameConstant)
	skipBuildRequested, _ := command.Flags().GetBool(skipBuildFlagNameConstant)

	publishOptions := Options{
		Configuration: pipelineConfiguration,
		Credentials:   credentialsConfiguration,
		DryRun:        dryRunRequested,
		SkipBuild:     skipBuildRequested,
	}
	if _, publishError := publishService.Publish(command.Context(), publishOptions); publishError != nil {
		return fmt.Errorf(publishCommandFailureTemplate, publishError)
	}

	return nil
}

func (builder *CommandBuilder) resolveExecutor(logger *zap.Logger) (PipelineExecutor, error) {
	if builder.Executor != nil {
		return builder.Executor, nil
	}
	return execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
}

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	if builder.ConfigurationProvider == nil {
		return Configuration{}.Sanitize()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveCredentialsConfiguration() credentials.Configuration {
	if builder.CredentialsConfigurationProvider == nil {
		return credentials.Configuration{}.Sanitize()
	}
	return builder.CredentialsConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveNotifyConfiguration() notify.Configuration {
	if builder.NotifyConfigurationProvider == nil {
		return notify.Configuration{}
	}
	return builder.NotifyConfigurationProvider()
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
