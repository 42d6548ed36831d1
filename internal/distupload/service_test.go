package distupload_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pypub/pypub/internal/distupload"
	"github.com/pypub/pypub/internal/execshell"
	"github.com/pypub/pypub/internal/pypirc"
)

const (
	configurationPathConstant     = "/tmp/pypub-credentials/pypirc"
	twineFailureMessageConstant   = "twine rejected the upload"
	publisherUsernameConstant     = "alice"
	publisherPasswordConstant     = "secret"
	usernameVariableNameConstant  = "PYPI_USERNAME"
	passwordVariableNameConstant  = "PYPI_PASSWORD"
)

type recordingTwineExecutor struct {
	recordedDetails []execshell.CommandDetails
	executionError  error
}

func (executor *recordingTwineExecutor) ExecuteTwine(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedDetails = append(executor.recordedDetails, details)
	if executor.executionError != nil {
		return execshell.ExecutionResult{}, executor.executionError
	}
	return execshell.ExecutionResult{}, nil
}

func TestNewServiceRequiresExecutor(testInstance *testing.T) {
	service, creationError := distupload.NewService(zap.NewNop(), nil)
	require.Error(testInstance, creationError)
	require.Nil(testInstance, service)
}

func TestUploadRunsTwineWithConfigurationFile(testInstance *testing.T) {
	executor := &recordingTwineExecutor{}
	service, creationError := distupload.NewService(zap.NewNop(), executor)
	require.NoError(testInstance, creationError)

	uploadError := service.Upload(context.Background(), distupload.Options{
		ConfigurationFilePath: configurationPathConstant,
		RepositoryName:        pypirc.DefaultIndexName,
		ArtifactPaths:         []string{"/dist/example-1.2.3.tar.gz", "/dist/example-1.2.3-py3-none-any.whl"},
	})
	require.NoError(testInstance, uploadError)

	require.Len(testInstance, executor.recordedDetails, 1)
	require.Equal(
		testInstance,
		[]string{
			"upload",
			"--config-file", configurationPathConstant,
			"--repository", "pypi",
			"/dist/example-1.2.3.tar.gz",
			"/dist/example-1.2.3-py3-none-any.whl",
		},
		executor.recordedDetails[0].Arguments,
	)
}

func TestUploadAppendsSkipExistingFlag(testInstance *testing.T) {
	executor := &recordingTwineExecutor{}
	service, creationError := distupload.NewService(zap.NewNop(), executor)
	require.NoError(testInstance, creationError)

	uploadError := service.Upload(context.Background(), distupload.Options{
		ConfigurationFilePath: configurationPathConstant,
		RepositoryName:        pypirc.DefaultIndexName,
		SkipExisting:          true,
		ArtifactPaths:         []string{"/dist/example-1.2.3.tar.gz"},
	})
	require.NoError(testInstance, uploadError)

	require.Len(testInstance, executor.recordedDetails, 1)
	require.Contains(testInstance, executor.recordedDetails[0].Arguments, "--skip-existing")
}

func TestUploadRequiresArtifacts(testInstance *testing.T) {
	executor := &recordingTwineExecutor{}
	service, creationError := distupload.NewService(zap.NewNop(), executor)
	require.NoError(testInstance, creationError)

	uploadError := service.Upload(context.Background(), distupload.Options{
		ConfigurationFilePath: configurationPathConstant,
		RepositoryName:        pypirc.DefaultIndexName,
	})
	require.ErrorIs(testInstance, uploadError, distupload.ErrNoArtifacts)
	require.Empty(testInstance, executor.recordedDetails)
}

func TestUploadPropagatesExecutorFailure(testInstance *testing.T) {
	executor := &recordingTwineExecutor{executionError: errors.New(twineFailureMessageConstant)}
	service, creationError := distupload.NewService(zap.NewNop(), executor)
	require.NoError(testInstance, creationError)

	uploadError := service.Upload(context.Background(), distupload.Options{
		ConfigurationFilePath: configurationPathConstant,
		RepositoryName:        pypirc.DefaultIndexName,
		ArtifactPaths:         []string{"/dist/example-1.2.3.tar.gz"},
	})
	require.Error(testInstance, uploadError)
	require.Contains(testInstance, uploadError.Error(), twineFailureMessageConstant)
}

func TestUploadCommandWritesScopedCredentialsAndCleansUp(testInstance *testing.T) {
	distDirectory := testInstance.TempDir()
	sdistPath := filepath.Join(distDirectory, "example_package-1.2.3.tar.gz")
	require.NoError(testInstance, os.WriteFile(sdistPath, []byte("sdist"), 0o644))

	executor := &recordingTwineExecutor{}
	cleanupInvocationCount := 0
	var writtenCredentials pypirc.Credentials

	builder := &distupload.CommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.NewNop() },
		DefaultsProvider: func() distupload.UploadDefaults {
			return distupload.UploadDefaults{
				DistDirectory: distDirectory,
				RepositoryURL: pypirc.DefaultRepositoryURL,
			}
		},
		EnvironmentLookup: func(variableName string) (string, bool) {
			switch variableName {
			case usernameVariableNameConstant:
				return publisherUsernameConstant, true
			case passwordVariableNameConstant:
				return publisherPasswordConstant, true
			default:
				return "", false
			}
		},
		ScopedCredentialWriter: func(registryCredentials pypirc.Credentials) (string, func() error, error) {
			writtenCredentials = registryCredentials
			return configurationPathConstant, func() error {
				cleanupInvocationCount++
				return nil
			}, nil
		},
		Executor: executor,
	}

	uploadCommand, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	uploadCommand.SetArgs([]string{})
	require.NoError(testInstance, uploadCommand.Execute())

	require.Equal(testInstance, publisherUsernameConstant, writtenCredentials.Username)
	require.Equal(testInstance, publisherPasswordConstant, writtenCredentials.Password)
	require.Equal(testInstance, 1, cleanupInvocationCount)

	require.Len(testInstance, executor.recordedDetails, 1)
	require.Contains(testInstance, executor.recordedDetails[0].Arguments, sdistPath)
	require.Contains(testInstance, executor.recordedDetails[0].Arguments, configurationPathConstant)
}

func TestUploadCommandFailsBeforeWritingWhenCredentialsMissing(testInstance *testing.T) {
	distDirectory := testInstance.TempDir()
	require.NoError(testInstance, os.WriteFile(filepath.Join(distDirectory, "example_package-1.2.3.tar.gz"), []byte("sdist"), 0o644))

	executor := &recordingTwineExecutor{}
	scopedWriterInvoked := false

	builder := &distupload.CommandBuilder{
		DefaultsProvider: func() distupload.UploadDefaults {
			return distupload.UploadDefaults{DistDirectory: distDirectory, RepositoryURL: pypirc.DefaultRepositoryURL}
		},
		EnvironmentLookup: func(string) (string, bool) { return "", false },
		ScopedCredentialWriter: func(pypirc.Credentials) (string, func() error, error) {
			scopedWriterInvoked = true
			return configurationPathConstant, func() error { return nil }, nil
		},
		Executor: executor,
	}

	uploadCommand, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	uploadCommand.SetArgs([]string{})
	require.Error(testInstance, uploadCommand.Execute())
	require.False(testInstance, scopedWriterInvoked)
	require.Empty(testInstance, executor.recordedDetails)
}

func TestUploadCommandCleansUpWhenTwineFails(testInstance *testing.T) {
	distDirectory := testInstance.TempDir()
	require.NoError(testInstance, os.WriteFile(filepath.Join(distDirectory, "example_package-1.2.3.tar.gz"), []byte("sdist"), 0o644))

	executor := &recordingTwineExecutor{executionError: errors.New(twineFailureMessageConstant)}
	cleanupInvocationCount := 0

	builder := &distupload.CommandBuilder{
		DefaultsProvider: func() distupload.UploadDefaults {
			return distupload.UploadDefaults{DistDirectory: distDirectory, RepositoryURL: pypirc.DefaultRepositoryURL}
		},
		EnvironmentLookup: func(variableName string) (string, bool) {
			switch variableName {
			case usernameVariableNameConstant:
				return publisherUsernameConstant, true
			case passwordVariableNameConstant:
				return publisherPasswordConstant, true
			default:
				return "", false
			}
		},
		ScopedCredentialWriter: func(pypirc.Credentials) (string, func() error, error) {
			return configurationPathConstant, func() error {
				cleanupInvocationCount++
				return nil
			}, nil
		},
		Executor: executor,
	}

	uploadCommand, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	uploadCommand.SetArgs([]string{})
	require.Error(testInstance, uploadCommand.Execute())
	require.Equal(testInstance, 1, cleanupInvocationCount)
}
