package distbuild

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pypub/pypub/internal/execshell"
)

const (
	buildCommandUseConstant              = "build"
	buildCommandShortDescription         = "Build source and wheel distributions"
	buildCommandLongDescription          = "build validates the project metadata and runs the Python build frontend to produce a source distribution and a wheel."
	projectDirectoryFlagNameConstant     = "project-dir"
	projectDirectoryFlagDescription      = "Directory containing the project descriptor"
	distDirectoryFlagNameConstant        = "dist-dir"
	distDirectoryFlagDescription         = "Directory receiving the built distributions"
	dryRunFlagNameConstant               = "dry-run"
	dryRunFlagDescription                = "Validate the project and log the planned build without running it"
	buildUnexpectedArgumentsMessage      = "build does not accept positional arguments"
	buildCommandFailureTemplateConstant  = "build failed: %w"
	executorCreationFailureTemplate      = "unable to create command executor: %w"
)

var errBuildUnexpectedArguments = errors.New(buildUnexpectedArgumentsMessage)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// DirectoryProvider returns a configured directory path.
type DirectoryProvider func() string

// CommandBuilder assembles the build command.
type CommandBuilder struct {
	LoggerProvider           LoggerProvider
	ProjectDirectoryProvider DirectoryProvider
	DistDirectoryProvider    DirectoryProvider
	Executor                 CommandExecutor
}

// Build constructs the build command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	buildCommand := &cobra.Command{
		Use:   buildCommandUseConstant,
		Short: buildCommandShortDescription,
		Long:  buildCommandLongDescription,
		RunE:  builder.run,
	}

	buildCommand.Flags().String(projectDirectoryFlagNameConstant, "", projectDirectoryFlagDescription)
	buildCommand.Flags().String(distDirectoryFlagNameConstant, "", distDirectoryFlagDescription)
	buildCommand.Flags().Bool(dryRunFlagNameConstant, false, dryRunFlagDescription)

	return buildCommand, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errBuildUnexpectedArguments
	}

	logger := builder.resolveLogger()

	executor, executorError := builder.resolveExecutor(logger)
	if executorError != nil {
		return fmt.Errorf(executorCreationFailureTemplate, executorError)
	}

	buildService, serviceError := NewService(logger, executor)
	if serviceError != nil {
		return fmt.Errorf(buildCommandFailureTemplateConstant, serviceError)
	}

	dryRunRequested, _ := command.Flags().GetBool(dryRunFlagNameConstant)
	buildOptions := Options{
		ProjectDirectory: builder.stringFlagOrDefault(command, projectDirectoryFlagNameConstant, builder.resolveDirectory(builder.ProjectDirectoryProvider)),
		DistDirectory:    builder.stringFlagOrDefault(command, distDirectoryFlagNameConstant, builder.resolveDirectory(builder.DistDirectoryProvider)),
		DryRun:           dryRunRequested,
	}

	if _, buildError := buildService.Build(command.Context(), buildOptions); buildError != nil {
		return fmt.Errorf(buildCommandFailureTemplateConstant, buildError)
	}

	return nil
}

func (builder *CommandBuilder) resolveExecutor(logger *zap.Logger) (CommandExecutor, error) {
	if builder.Executor != nil {
		return builder.Executor, nil
	}
	return execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
}

func (builder *CommandBuilder) resolveDirectory(provider DirectoryProvider) string {
	if provider == nil {
		return ""
	}
	return provider()
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
