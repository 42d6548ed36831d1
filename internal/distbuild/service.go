// Package distbuild runs the Python build frontend to produce distribution files.
package distbuild

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pypub/pypub/internal/execshell"
	"github.com/pypub/pypub/internal/pyproject"
)

const (
	buildModuleFlagConstant              = "-m"
	buildModuleNameConstant              = "build"
	sdistFlagConstant                    = "--sdist"
	wheelFlagConstant                    = "--wheel"
	outputDirectoryFlagConstant          = "--outdir"
	executorNotConfiguredMessageConstant = "distbuild service requires a command executor"
	descriptorInvalidTemplateConstant    = "distribution metadata in %s is not buildable: %w"
	buildPlannedMessageConstant          = "distribution build planned"
	buildCompletedMessageConstant        = "distribution build completed"
	logFieldProjectDirectoryConstant     = "project_dir"
	logFieldDistDirectoryConstant        = "dist_dir"
	logFieldProjectNameConstant          = "project"
	logFieldProjectVersionConstant       = "version"
)

// ErrExecutorNotConfigured reports a service constructed without a command executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// CommandExecutor runs Python interpreter commands.
type CommandExecutor interface {
	ExecutePython(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Service builds source and wheel distributions for a project.
type Service struct {
	logger   *zap.Logger
	executor CommandExecutor
}

// NewService constructs a build service with the provided logger and executor.
func NewService(logger *zap.Logger, executor CommandExecutor) (*Service, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}

	resolvedLogger := logger
	if resolvedLogger == nil {
		resolvedLogger = zap.NewNop()
	}

	return &Service{logger: resolvedLogger, executor: executor}, nil
}

// Options configures one build invocation.
type Options struct {
	ProjectDirectory string
	DistDirectory    string
	DryRun           bool
}

// Build validates the project descriptor and produces both distribution formats.
func (service *Service) Build(executionContext context.Context, options Options) (pyproject.Descriptor, error) {
	descriptor, loadError := pyproject.Load(options.ProjectDirectory)
	if loadError != nil {
		return pyproject.Descriptor{}, loadError
	}
	if validationError := descriptor.Validate(); validationError != nil {
		return pyproject.Descriptor{}, fmt.Errorf(descriptorInvalidTemplateConstant, options.ProjectDirectory, validationError)
	}

	if options.DryRun {
		service.logger.Info(
			buildPlannedMessageConstant,
			zap.String(logFieldProjectNameConstant, descriptor.Project.Name),
			zap.String(logFieldProjectVersionConstant, descriptor.VersionLabel()),
			zap.String(logFieldProjectDirectoryConstant, options.ProjectDirectory),
			zap.String(logFieldDistDirectoryConstant, options.DistDirectory),
		)
		return descriptor, nil
	}

	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			buildModuleFlagConstant,
			buildModuleNameConstant,
			sdistFlagConstant,
			wheelFlagConstant,
			outputDirectoryFlagConstant,
			options.DistDirectory,
		},
		WorkingDirectory: options.ProjectDirectory,
	}

	if _, executionError := service.executor.ExecutePython(executionContext, commandDetails); executionError != nil {
		return pyproject.Descriptor{}, executionError
	}

	service.logger.Info(
		buildCompletedMessageConstant,
		zap.String(logFieldProjectNameConstant, descriptor.Project.Name),
		zap.String(logFieldProjectVersionConstant, descriptor.VersionLabel()),
		zap.String(logFieldDistDirectoryConstant, options.DistDirectory),
	)

	return descriptor, nil
}
