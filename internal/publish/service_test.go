package publish_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pypub/pypub/internal/artifacts"
	"github.com/pypub/pypub/internal/credentials"
	"github.com/pypub/pypub/internal/distbuild"
	"github.com/pypub/pypub/internal/distupload"
	"github.com/pypub/pypub/internal/publish"
	"github.com/pypub/pypub/internal/pypirc"
	"github.com/pypub/pypub/internal/pyproject"
)

const (
	projectNameConstant          = "example-package"
	projectVersionConstant       = "1.2.3"
	publisherUsernameConstant    = "alice"
	publisherPasswordConstant    = "secret"
	usernameVariableNameConstant = "PYPI_USERNAME"
	passwordVariableNameConstant = "PYPI_PASSWORD"
	buildFailureMessageConstant  = "build frontend failed"
	scopedConfigurationPath      = "/tmp/pypub-credentials/pypirc"
)

type stubBuilder struct {
	recordedOptions []distbuild.Options
	buildError      error
}

func (builder *stubBuilder) Build(_ context.Context, options distbuild.Options) (pyproject.Descriptor, error) {
	builder.recordedOptions = append(builder.recordedOptions, options)
	if builder.buildError != nil {
		return pyproject.Descriptor{}, builder.buildError
	}
	return pyproject.Descriptor{
		Project: pyproject.ProjectMetadata{Name: projectNameConstant, Version: projectVersionConstant},
	}, nil
}

type stubUploader struct {
	recordedOptions []distupload.Options
	uploadError     error
}

func (uploader *stubUploader) Upload(_ context.Context, options distupload.Options) error {
	uploader.recordedOptions = append(uploader.recordedOptions, options)
	return uploader.uploadError
}

type recordedNotification struct {
	projectName    string
	projectVersion string
	repositoryURL  string
	artifactCount  int
}

type stubNotifier struct {
	notifications []recordedNotification
}

func (notifier *stubNotifier) NotifyPublished(projectName string, projectVersion string, repositoryURL string, artifactCount int) {
	notifier.notifications = append(notifier.notifications, recordedNotification{
		projectName:    projectName,
		projectVersion: projectVersion,
		repositoryURL:  repositoryURL,
		artifactCount:  artifactCount,
	})
}

func publishableInventory() []artifacts.Artifact {
	return []artifacts.Artifact{
		{Path: "/dist/example_package-1.2.3.tar.gz", Kind: artifacts.KindSdist},
		{Path: "/dist/example_package-1.2.3-py3-none-any.whl", Kind: artifacts.KindWheel},
	}
}

func publisherEnvironment(variableName string) (string, bool) {
	switch variableName {
	case usernameVariableNameConstant:
		return publisherUsernameConstant, true
	case passwordVariableNameConstant:
		return publisherPasswordConstant, true
	default:
		return "", false
	}
}

type serviceHarness struct {
	builder                *stubBuilder
	uploader               *stubUploader
	notifier               *stubNotifier
	writtenCredentials     []pypirc.Credentials
	cleanupInvocationCount int
}

func newServiceHarness(testInstance *testing.T, environmentLookup credentials.EnvironmentLookup, collector publish.ArtifactCollector) (*publish.Service, *serviceHarness) {
	testInstance.Helper()

	harness := &serviceHarness{
		builder:  &stubBuilder{},
		uploader: &stubUploader{},
		notifier: &stubNotifier{},
	}

	service, creationError := publish.NewService(publish.ServiceDependencies{
		Logger:             zap.NewNop(),
		Builder:            harness.builder,
		Uploader:           harness.uploader,
		CredentialResolver: credentials.NewResolver(environmentLookup, nil),
		ArtifactCollector:  collector,
		ScopedCredentialWriter: func(registryCredentials pypirc.Credentials) (string, func() error, error) {
			harness.writtenCredentials = append(harness.writtenCredentials, registryCredentials)
			return scopedConfigurationPath, func() error {
				harness.cleanupInvocationCount++
				return nil
			}, nil
		},
		Notifier: harness.notifier,
	})
	require.NoError(testInstance, creationError)

	return service, harness
}

func TestNewServiceValidatesDependencies(testInstance *testing.T) {
	testCases := []struct {
		name          string
		dependencies  publish.ServiceDependencies
		expectedError error
	}{
		{
			name:          "missing_builder",
			dependencies:  publish.ServiceDependencies{Uploader: &stubUploader{}, CredentialResolver: credentials.NewResolver(nil, nil)},
			expectedError: publish.ErrBuilderNotConfigured,
		},
		{
			name:          "missing_uploader",
			dependencies:  publish.ServiceDependencies{Builder: &stubBuilder{}, CredentialResolver: credentials.NewResolver(nil, nil)},
			expectedError: publish.ErrUploaderNotConfigured,
		},
		{
			name:          "missing_resolver",
			dependencies:  publish.ServiceDependencies{Builder: &stubBuilder{}, Uploader: &stubUploader{}},
			expectedError: publish.ErrResolverNotConfigured,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			service, creationError := publish.NewService(testCase.dependencies)
			require.ErrorIs(testInstance, creationError, testCase.expectedError)
			require.Nil(testInstance, service)
		})
	}
}

func TestPublishRunsPipelineAndScopesCredentials(testInstance *testing.T) {
	service, harness := newServiceHarness(testInstance, publisherEnvironment, func(string) ([]artifacts.Artifact, error) {
		return publishableInventory(), nil
	})

	result, publishError := service.Publish(context.Background(), publish.Options{})
	require.NoError(testInstance, publishError)
	require.Equal(testInstance, projectNameConstant, result.ProjectName)
	require.Equal(testInstance, projectVersionConstant, result.ProjectVersion)
	require.Len(testInstance, result.Artifacts, 2)

	require.Len(testInstance, harness.builder.recordedOptions, 1)
	require.False(testInstance, harness.builder.recordedOptions[0].DryRun)

	require.Len(testInstance, harness.writtenCredentials, 1)
	require.Equal(testInstance, publisherUsernameConstant, harness.writtenCredentials[0].Username)
	require.Equal(testInstance, publisherPasswordConstant, harness.writtenCredentials[0].Password)
	require.Equal(testInstance, pypirc.DefaultRepositoryURL, harness.writtenCredentials[0].RepositoryURL)

	require.Len(testInstance, harness.uploader.recordedOptions, 1)
	require.Equal(testInstance, scopedConfigurationPath, harness.uploader.recordedOptions[0].ConfigurationFilePath)
	require.Equal(testInstance, pypirc.DefaultIndexName, harness.uploader.recordedOptions[0].RepositoryName)
	require.Equal(testInstance, 1, harness.cleanupInvocationCount)

	require.Len(testInstance, harness.notifier.notifications, 1)
	require.Equal(testInstance, projectNameConstant, harness.notifier.notifications[0].projectName)
	require.Equal(testInstance, 2, harness.notifier.notifications[0].artifactCount)
}

func TestPublishFailsBeforeBuildWhenCredentialsUnavailable(testInstance *testing.T) {
	service, harness := newServiceHarness(testInstance, func(string) (string, bool) { return "", false }, func(string) ([]artifacts.Artifact, error) {
		return publishableInventory(), nil
	})

	_, publishError := service.Publish(context.Background(), publish.Options{})
	require.Error(testInstance, publishError)
	require.Contains(testInstance, publishError.Error(), "credentials")

	require.Empty(testInstance, harness.builder.recordedOptions)
	require.Empty(testInstance, harness.uploader.recordedOptions)
	require.Empty(testInstance, harness.writtenCredentials)
}

func TestPublishBuildFailurePreventsUpload(testInstance *testing.T) {
	service, harness := newServiceHarness(testInstance, publisherEnvironment, func(string) ([]artifacts.Artifact, error) {
		return publishableInventory(), nil
	})
	harness.builder.buildError = errors.New(buildFailureMessageConstant)

	_, publishError := service.Publish(context.Background(), publish.Options{})
	require.Error(testInstance, publishError)
	require.Contains(testInstance, publishError.Error(), buildFailureMessageConstant)

	require.Empty(testInstance, harness.uploader.recordedOptions)
	require.Empty(testInstance, harness.writtenCredentials)
	require.Empty(testInstance, harness.notifier.notifications)
}

func TestPublishIncompleteInventoryPreventsUpload(testInstance *testing.T) {
	service, harness := newServiceHarness(testInstance, publisherEnvironment, func(string) ([]artifacts.Artifact, error) {
		return []artifacts.Artifact{{Path: "/dist/example_package-1.2.3.tar.gz", Kind: artifacts.KindSdist}}, nil
	})

	_, publishError := service.Publish(context.Background(), publish.Options{})
	require.Error(testInstance, publishError)
	require.Contains(testInstance, publishError.Error(), "no wheel distribution")
	require.Empty(testInstance, harness.uploader.recordedOptions)
	require.Empty(testInstance, harness.writtenCredentials)
}

func TestPublishDryRunSkipsBuildAndUpload(testInstance *testing.T) {
	collectorInvoked := false
	service, harness := newServiceHarness(testInstance, publisherEnvironment, func(string) ([]artifacts.Artifact, error) {
		collectorInvoked = true
		return publishableInventory(), nil
	})

	result, publishError := service.Publish(context.Background(), publish.Options{DryRun: true})
	require.NoError(testInstance, publishError)
	require.Equal(testInstance, projectNameConstant, result.ProjectName)
	require.Empty(testInstance, result.Artifacts)

	require.Len(testInstance, harness.builder.recordedOptions, 1)
	require.True(testInstance, harness.builder.recordedOptions[0].DryRun)
	require.False(testInstance, collectorInvoked)
	require.Empty(testInstance, harness.uploader.recordedOptions)
	require.Empty(testInstance, harness.writtenCredentials)
}

func TestPublishSkipBuildUploadsExistingArtifacts(testInstance *testing.T) {
	service, harness := newServiceHarness(testInstance, publisherEnvironment, func(string) ([]artifacts.Artifact, error) {
		return publishableInventory(), nil
	})

	result, publishError := service.Publish(context.Background(), publish.Options{SkipBuild: true})
	require.NoError(testInstance, publishError)
	require.Len(testInstance, result.Artifacts, 2)

	require.Len(testInstance, harness.builder.recordedOptions, 1)
	require.True(testInstance, harness.builder.recordedOptions[0].DryRun)
	require.Len(testInstance, harness.uploader.recordedOptions, 1)
}

func TestPublishUploadFailureStillRemovesCredentialFile(testInstance *testing.T) {
	service, harness := newServiceHarness(testInstance, publisherEnvironment, func(string) ([]artifacts.Artifact, error) {
		return publishableInventory(), nil
	})
	harness.uploader.uploadError = errors.New("twine rejected the upload")

	_, publishError := service.Publish(context.Background(), publish.Options{})
	require.Error(testInstance, publishError)
	require.Equal(testInstance, 1, harness.cleanupInvocationCount)
	require.Empty(testInstance, harness.notifier.notifications)
}
