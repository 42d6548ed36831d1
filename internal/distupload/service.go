// Package distupload runs twine to transfer built distributions to a package index.
package distupload

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/pypub/pypub/internal/execshell"
)

const (
	uploadSubcommandConstant             = "upload"
	configFileFlagConstant               = "--config-file"
	repositoryFlagConstant               = "--repository"
	skipExistingFlagConstant             = "--skip-existing"
	executorNotConfiguredMessageConstant = "distupload service requires a command executor"
	noArtifactsMessageConstant           = "no distribution files were provided for upload"
	uploadCompletedMessageConstant       = "distribution upload completed"
	logFieldRepositoryConstant           = "repository"
	logFieldArtifactCountConstant        = "artifact_count"
)

// ErrExecutorNotConfigured reports a service constructed without a command executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// ErrNoArtifacts reports an upload attempted without distribution files.
var ErrNoArtifacts = errors.New(noArtifactsMessageConstant)

// CommandExecutor runs twine commands.
type CommandExecutor interface {
	ExecuteTwine(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Service uploads distribution files through twine.
type Service struct {
	logger   *zap.Logger
	executor CommandExecutor
}

// NewService constructs an upload service with the provided logger and executor.
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

// Options configures one upload invocation.
type Options struct {
	ConfigurationFilePath string
	RepositoryName        string
	SkipExisting          bool
	ArtifactPaths         []string
}

// Upload transfers the listed distribution files to the configured repository.
func (service *Service) Upload(executionContext context.Context, options Options) error {
	if len(options.ArtifactPaths) == 0 {
		return ErrNoArtifacts
	}

	uploadArguments := []string{
		uploadSubcommandConstant,
		configFileFlagConstant,
		options.ConfigurationFilePath,
		repositoryFlagConstant,
		options.RepositoryName,
	}
	if options.SkipExisting {
		uploadArguments = append(uploadArguments, skipExistingFlagConstant)
	}
	uploadArguments = append(uploadArguments, options.ArtifactPaths...)

	commandDetails := execshell.CommandDetails{Arguments: uploadArguments}
	if _, executionError := service.executor.ExecuteTwine(executionContext, commandDetails); executionError != nil {
		return executionError
	}

	service.logger.Info(
		uploadCompletedMessageConstant,
		zap.String(logFieldRepositoryConstant, options.RepositoryName),
		zap.Int(logFieldArtifactCountConstant, len(options.ArtifactPaths)),
	)

	return nil
}
