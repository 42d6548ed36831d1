package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
)

const (
	pythonModuleFlagConstant            = "-m"
	pythonBuildModuleNameConstant       = "build"
	buildOutputDirectoryFlagConstant    = "--outdir"
	twineUploadSubcommandNameConstant   = "upload"
	twineRepositoryFlagConstant         = "--repository"
	twineRepositoryURLFlagConstant      = "--repository-url"
	twineConfigFileFlagConstant         = "--config-file"
	defaultRepositoryLabelConstant      = "the configured repository"
	singleArtifactNounConstant          = "distribution"
	multipleArtifactsNounConstant       = "distributions"
	artifactCountNounTemplateConstant   = "%d %s"
	unknownArtifactSelectionLabel       = "distributions"
	buildStartTemplateConstant          = "Building sdist and wheel distributions from %s"
	buildSuccessTemplateConstant        = "Built sdist and wheel distributions into %s"
	buildFailureTemplateConstant        = "Distribution build in %s failed with exit code %d%s"
	buildExecutionFailureTemplate       = "Unable to run the Python build frontend in %s: %s"
	uploadStartTemplateConstant         = "Uploading %s to %s"
	uploadSuccessTemplateConstant       = "Uploaded %s to %s"
	uploadFailureTemplateConstant       = "Upload of %s to %s failed with exit code %d%s"
	uploadExecutionFailureTemplate      = "Unable to run twine for %s: %s"
	twineValueCarryingFlagsListConstant = twineRepositoryFlagConstant + "," + twineRepositoryURLFlagConstant + "," + twineConfigFileFlagConstant
)

var twineValueCarryingFlags = func() map[string]struct{} {
	flagNames := strings.Split(twineValueCarryingFlagsListConstant, ",")
	flagSet := make(map[string]struct{}, len(flagNames))
	for _, flagName := range flagNames {
		flagSet[flagName] = struct{}{}
	}
	return flagSet
}()

// CommandMessageFormatter builds human-readable messages describing command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	switch command.Name {
	case CommandPython:
		if message := formatter.describePythonBuildMessage(command, result, failure, stage); len(message) > 0 {
			return message
		}
	case CommandTwine:
		if message := formatter.describeTwineUploadMessage(command, result, failure, stage); len(message) > 0 {
			return message
		}
	}
	return formatter.buildGenericMessage(command, result, failure, stage)
}

func (formatter CommandMessageFormatter) describePythonBuildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) < 2 || arguments[0] != pythonModuleFlagConstant || arguments[1] != pythonBuildModuleNameConstant {
		return emptyStringConstant
	}

	projectLabel := formatter.describeWorkingDirectory(command)
	outputDirectory := findFlagValue(arguments, buildOutputDirectoryFlagConstant)
	if len(outputDirectory) == 0 {
		outputDirectory = projectLabel
	}

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(buildStartTemplateConstant, projectLabel)
	case messageStageSuccess:
		return fmt.Sprintf(buildSuccessTemplateConstant, outputDirectory)
	case messageStageFailure:
		return fmt.Sprintf(buildFailureTemplateConstant, projectLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(buildExecutionFailureTemplate, projectLabel, formatter.describeFailure(failure))
	}

	return emptyStringConstant
}

func (formatter CommandMessageFormatter) describeTwineUploadMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) == 0 || arguments[0] != twineUploadSubcommandNameConstant {
		return emptyStringConstant
	}

	artifactLabel := formatter.describeArtifactSelection(arguments)
	repositoryLabel := formatter.describeUploadRepository(arguments)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(uploadStartTemplateConstant, artifactLabel, repositoryLabel)
	case messageStageSuccess:
		return fmt.Sprintf(uploadSuccessTemplateConstant, artifactLabel, repositoryLabel)
	case messageStageFailure:
		return fmt.Sprintf(uploadFailureTemplateConstant, artifactLabel, repositoryLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(uploadExecutionFailureTemplate, artifactLabel, formatter.describeFailure(failure))
	}

	return emptyStringConstant
}

func (formatter CommandMessageFormatter) describeArtifactSelection(arguments []string) string {
	artifactCount := countArtifactArguments(arguments)
	if artifactCount == 0 {
		return unknownArtifactSelectionLabel
	}

	artifactNoun := multipleArtifactsNounConstant
	if artifactCount == 1 {
		artifactNoun = singleArtifactNounConstant
	}
	return fmt.Sprintf(artifactCountNounTemplateConstant, artifactCount, artifactNoun)
}

func (formatter CommandMessageFormatter) describeUploadRepository(arguments []string) string {
	if repositoryURL := findFlagValue(arguments, twineRepositoryURLFlagConstant); len(repositoryURL) > 0 {
		return repositoryURL
	}
	if repositoryName := findFlagValue(arguments, twineRepositoryFlagConstant); len(repositoryName) > 0 {
		return repositoryName
	}
	return defaultRepositoryLabelConstant
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	}
	return commandLabel
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandParts := []string{string(command.Name)}
	if len(command.Details.Arguments) > 0 {
		commandParts = append(commandParts, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	label := strings.Join(commandParts, commandArgumentsJoinSeparatorConstant)
	return fmt.Sprintf(commandLabelTemplateConstant, label, formatter.formatWorkingDirectorySuffix(command))
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	if len(command.Details.WorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, command.Details.WorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	if len(command.Details.WorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return command.Details.WorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func countArtifactArguments(arguments []string) int {
	artifactCount := 0
	argumentIndex := 1
	for argumentIndex < len(arguments) {
		currentArgument := arguments[argumentIndex]
		if strings.HasPrefix(currentArgument, "-") {
			flagName := currentArgument
			if equalsIndex := strings.Index(currentArgument, "="); equalsIndex >= 0 {
				flagName = currentArgument[:equalsIndex]
			}
			if _, carriesValue := twineValueCarryingFlags[flagName]; carriesValue && !strings.Contains(currentArgument, "=") {
				argumentIndex += 2
				continue
			}
			argumentIndex++
			continue
		}
		artifactCount++
		argumentIndex++
	}
	return artifactCount
}

func findFlagValue(arguments []string, flag string) string {
	for argumentIndex, argument := range arguments {
		if argument == flag {
			if argumentIndex+1 < len(arguments) {
				return arguments[argumentIndex+1]
			}
			return emptyStringConstant
		}
		if strings.HasPrefix(argument, flag+"=") {
			return strings.TrimPrefix(argument, flag+"=")
		}
	}
	return emptyStringConstant
}
