package pyproject

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pypub/pypub/internal/utils"
)

const (
	inspectCommandUseConstant              = "inspect"
	inspectCommandShortDescription         = "Show the project metadata declared in the build descriptor"
	inspectCommandLongDescription          = "inspect reads pyproject.toml and prints the package identity the publish pipeline would use."
	inspectUnexpectedArgumentsMessage      = "inspect does not accept positional arguments"
	inspectExecutionErrorTemplateConstant  = "inspect failed: %w"
	projectDirectoryFlagNameConstant       = "project-dir"
	projectDirectoryFlagDescription        = "Directory containing the build descriptor"
	defaultProjectDirectoryConstant        = "."
	inspectNameLineTemplateConstant        = "name: %s\n"
	inspectVersionLineTemplateConstant     = "version: %s\n"
	inspectBackendLineTemplateConstant     = "build-backend: %s\n"
	inspectRequiresPythonLineTemplate      = "requires-python: %s\n"
	inspectRequiresPythonUnsetValueLabel   = "unrestricted"
)

var errInspectUnexpectedArguments = errors.New(inspectUnexpectedArgumentsMessage)

// CommandBuilder assembles the inspect command.
type CommandBuilder struct {
	ProjectDirectoryProvider func() string
}

// Build constructs the inspect command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   inspectCommandUseConstant,
		Short: inspectCommandShortDescription,
		Long:  inspectCommandLongDescription,
		RunE:  builder.run,
	}

	command.Flags().String(projectDirectoryFlagNameConstant, "", projectDirectoryFlagDescription)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errInspectUnexpectedArguments
	}

	projectDirectory := builder.resolveProjectDirectory(command)

	descriptor, loadError := Load(projectDirectory)
	if loadError != nil {
		return fmt.Errorf(inspectExecutionErrorTemplateConstant, loadError)
	}
	if validationError := descriptor.Validate(); validationError != nil {
		return fmt.Errorf(inspectExecutionErrorTemplateConstant, validationError)
	}

	outputWriter := utils.NewFlushingWriter(command.OutOrStdout())
	requiresPython := descriptor.Project.RequiresPython
	if len(requiresPython) == 0 {
		requiresPython = inspectRequiresPythonUnsetValueLabel
	}

	fmt.Fprintf(outputWriter, inspectNameLineTemplateConstant, descriptor.Project.Name)
	fmt.Fprintf(outputWriter, inspectVersionLineTemplateConstant, descriptor.VersionLabel())
	fmt.Fprintf(outputWriter, inspectBackendLineTemplateConstant, descriptor.BuildSystem.BuildBackend)
	fmt.Fprintf(outputWriter, inspectRequiresPythonLineTemplate, requiresPython)

	return nil
}

func (builder *CommandBuilder) resolveProjectDirectory(command *cobra.Command) string {
	flagValue, _ := command.Flags().GetString(projectDirectoryFlagNameConstant)
	trimmedFlagValue := strings.TrimSpace(flagValue)
	if len(trimmedFlagValue) > 0 {
		return trimmedFlagValue
	}

	if builder.ProjectDirectoryProvider != nil {
		configuredDirectory := strings.TrimSpace(builder.ProjectDirectoryProvider())
		if len(configuredDirectory) > 0 {
			return configuredDirectory
		}
	}

	return defaultProjectDirectoryConstant
}
